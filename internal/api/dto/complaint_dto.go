package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// CreateComplaintRequest payload.
type CreateComplaintRequest struct {
	CustomerName string           `json:"customerName"`
	MeterNo      string           `json:"meterNo"`
	MeterType    domain.MeterType `json:"meterType"`
	IssueType    string           `json:"issueType"`
	Description  string           `json:"description"`
	AssignedTo   string           `json:"assignedTo"`
	Supervisor   string           `json:"supervisor"`
}

// UpdateStatusRequest payload; action is "progress" or "resolve".
type UpdateStatusRequest struct {
	Action string `json:"action"`
}

// ComplaintResponse response.
type ComplaintResponse struct {
	ID           string                 `json:"id"`
	ComplaintID  string                 `json:"complaintId"`
	CustomerName string                 `json:"customerName"`
	MeterNo      string                 `json:"meterNo"`
	MeterType    domain.MeterType       `json:"meterType"`
	IssueType    string                 `json:"issueType"`
	Description  string                 `json:"description"`
	AssignedTo   string                 `json:"assignedTo"`
	Supervisor   string                 `json:"supervisor"`
	Status       domain.ComplaintStatus `json:"status"`
	DaysPending  int                    `json:"daysPending"`
	LoggedAt     time.Time              `json:"loggedAt"`
	ResolvedAt   *time.Time             `json:"resolvedAt"`
}

// EscalationResponse response.
type EscalationResponse struct {
	ID           string    `json:"id"`
	ComplaintID  string    `json:"complaintId"`
	EscalatedAt  time.Time `json:"escalatedAt"`
	LoggedAt     time.Time `json:"loggedAt"`
	AssignedTo   string    `json:"assignedTo"`
	CustomerName string    `json:"customerName"`
	IssueType    string    `json:"issueType"`
}

// SummaryResponse response.
type SummaryResponse struct {
	Total          int `json:"total"`
	Resolved       int `json:"resolved"`
	PendingUnder   int `json:"pending_lt3"`
	PendingOverSLA int `json:"pending_gte3"`
}
