package service

import (
	"context"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// reportListLimit bounds a report snapshot read.
const reportListLimit = 10000

// ReportService derives the reporting view over complaint snapshots. The
// aggregation itself is pure; only the snapshot read touches the store.
type ReportService struct {
	complaints       repository.ComplaintRepository
	recurrenceWindow time.Duration
	slaThreshold     time.Duration
	now              func() time.Time
}

// NewReportService constructs the service.
func NewReportService(complaints repository.ComplaintRepository, recurrenceWindow, slaThreshold time.Duration, now func() time.Time) *ReportService {
	if now == nil {
		now = time.Now
	}
	return &ReportService{
		complaints:       complaints,
		recurrenceWindow: recurrenceWindow,
		slaThreshold:     slaThreshold,
		now:              now,
	}
}

// BuildReport reads a snapshot matching the filter and derives report rows.
func (s *ReportService) BuildReport(ctx context.Context, filter ComplaintListFilter) ([]domain.ReportRow, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = reportListLimit
	}
	records, err := s.complaints.List(ctx, repository.ComplaintFilter{
		SearchTerm: filter.SearchTerm,
		Status:     filter.Status,
		AssignedTo: filter.AssignedTo,
		LoggedFrom: filter.LoggedFrom,
		LoggedTo:   filter.LoggedTo,
		Limit:      limit,
	})
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return BuildRows(records, s.now().UTC(), s.recurrenceWindow), nil
}

// Summary returns headline counts split at the SLA threshold.
func (s *ReportService) Summary(ctx context.Context) (*domain.Summary, error) {
	cutoff := s.now().UTC().Add(-s.slaThreshold)
	summary, err := s.complaints.Summary(ctx, cutoff)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return summary, nil
}

// BuildRows derives report rows from a snapshot. Rows keep the snapshot order.
// A complaint is Recurrent when its meter has more than one complaint logged
// within the trailing recurrence window of asOf.
func BuildRows(records []domain.Complaint, asOf time.Time, recurrenceWindow time.Duration) []domain.ReportRow {
	windowStart := asOf.Add(-recurrenceWindow)
	meterCounts := make(map[string]int)
	for _, record := range records {
		if !record.LoggedAt.Before(windowStart) {
			meterCounts[record.MeterNo]++
		}
	}

	rows := make([]domain.ReportRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, domain.ReportRow{
			ComplaintID:  record.ComplaintID,
			CustomerName: record.CustomerName,
			MeterNo:      record.MeterNo,
			MeterType:    record.MeterType,
			IssueType:    record.IssueType,
			DaysPending:  PendingDays(record, asOf),
			AssignedTo:   record.AssignedTo,
			Supervisor:   record.Supervisor,
			Escalated:    record.Status == domain.ComplaintStatusEscalated,
			Recurrent:    meterCounts[record.MeterNo] > 1,
			LoggedAt:     record.LoggedAt,
			ResolvedAt:   record.ResolvedAt,
		})
	}
	return rows
}

// PendingDays is zero for resolved complaints, otherwise the floored number of
// days between loggedAt and asOf.
func PendingDays(complaint domain.Complaint, asOf time.Time) int {
	if complaint.Status == domain.ComplaintStatusResolved {
		return 0
	}
	elapsed := asOf.Sub(complaint.LoggedAt)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}
