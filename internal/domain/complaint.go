package domain

import "time"

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	ComplaintStatusNew        ComplaintStatus = "New"
	ComplaintStatusInProgress ComplaintStatus = "In Progress"
	ComplaintStatusResolved   ComplaintStatus = "Resolved"
	ComplaintStatusEscalated  ComplaintStatus = "Escalated"
)

// MeterType enumerates supported meter categories.
type MeterType string

const (
	MeterTypePrepaid  MeterType = "Prepaid"
	MeterTypePostpaid MeterType = "Postpaid"
)

// Complaint is the aggregate for customer complaints.
//
// ComplaintID is the human-facing identifier in YYYY-NNNN form; it is assigned
// once at creation and never reused within a year. ResolvedAt is non-nil
// exactly when Status is Resolved.
type Complaint struct {
	ID           string
	ComplaintID  string
	CustomerName string
	MeterNo      string
	MeterType    MeterType
	IssueType    string
	Description  string
	AssignedTo   string
	Supervisor   string
	Status       ComplaintStatus
	LoggedAt     time.Time
	ResolvedAt   *time.Time
}

// IsTerminal reports whether no further transitions are allowed from the status.
func (s ComplaintStatus) IsTerminal() bool {
	return s == ComplaintStatusResolved
}
