package domain

import "time"

// ReportRow is the derived export record consumed by every report format.
type ReportRow struct {
	ComplaintID  string
	CustomerName string
	MeterNo      string
	MeterType    MeterType
	IssueType    string
	DaysPending  int
	AssignedTo   string
	Supervisor   string
	Escalated    bool
	Recurrent    bool
	LoggedAt     time.Time
	ResolvedAt   *time.Time
}

// Summary aggregates headline counts for the dashboard.
type Summary struct {
	Total           int
	Resolved        int
	PendingUnderSLA int
	PendingOverSLA  int
}
