package domain

import "time"

// Escalation is an append-only audit record written once per SLA breach.
// LoggedAt is copied verbatim from the complaint at escalation time.
type Escalation struct {
	ID           string
	ComplaintID  string
	EscalatedAt  time.Time
	LoggedAt     time.Time
	AssignedTo   string
	CustomerName string
	IssueType    string
}
