package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// ErrTransitionSuperseded reports that a compare-and-set transition lost the
// race because the record already moved on. The escalation sweep treats this
// as an expected no-op, never a failure.
var ErrTransitionSuperseded = errors.New("transition superseded by concurrent update")

// maxIDAttempts bounds the identifier retry loop during creation.
const maxIDAttempts = 5

// ComplaintService owns the complaint lifecycle state machine.
type ComplaintService struct {
	complaints     repository.ComplaintRepository
	escalations    repository.EscalationRepository
	sequencer      *SequenceService
	dispatcher     events.Dispatcher
	prepaidHandler string
	recentWindow   time.Duration
	now            func() time.Time
}

// ComplaintDependencies bundles collaborators for the complaint service.
type ComplaintDependencies struct {
	ComplaintRepo  repository.ComplaintRepository
	EscalationRepo repository.EscalationRepository
	Sequencer      *SequenceService
	Dispatcher     events.Dispatcher
	PrepaidHandler string
	RecentWindow   time.Duration
	Now            func() time.Time
}

// ComplaintCreateInput describes the intake payload.
type ComplaintCreateInput struct {
	CustomerName string
	MeterNo      string
	MeterType    domain.MeterType
	IssueType    string
	Description  string
	AssignedTo   string
	Supervisor   string
}

// ComplaintListFilter describes listing filters.
type ComplaintListFilter struct {
	SearchTerm *string
	Status     *domain.ComplaintStatus
	AssignedTo *string
	LoggedFrom *time.Time
	LoggedTo   *time.Time
	Limit      int
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &ComplaintService{
		complaints:     deps.ComplaintRepo,
		escalations:    deps.EscalationRepo,
		sequencer:      deps.Sequencer,
		dispatcher:     deps.Dispatcher,
		prepaidHandler: deps.PrepaidHandler,
		recentWindow:   deps.RecentWindow,
		now:            now,
	}
}

// Create validates intake, applies the prepaid auto-assignment policy, assigns
// a per-year identifier and persists the complaint in state New.
//
// Identifier issuance retries on store conflicts: the candidate ordinal is
// recounted each attempt and the unique constraint on the complaint id is the
// collision guard. After maxIDAttempts the request fails with
// SEQUENCE_EXHAUSTED rather than ever issuing a duplicate id.
func (s *ComplaintService) Create(ctx context.Context, input ComplaintCreateInput) (*domain.Complaint, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	assignedTo := strings.TrimSpace(input.AssignedTo)
	if input.MeterType == domain.MeterTypePrepaid {
		assignedTo = s.prepaidHandler
	}

	loggedAt := s.now().UTC()
	period := PeriodFor(loggedAt)

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		complaintID, err := s.sequencer.Next(ctx, period)
		if err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}

		complaint := &domain.Complaint{
			ComplaintID:  complaintID,
			CustomerName: strings.TrimSpace(input.CustomerName),
			MeterNo:      strings.TrimSpace(input.MeterNo),
			MeterType:    input.MeterType,
			IssueType:    strings.TrimSpace(input.IssueType),
			Description:  strings.TrimSpace(input.Description),
			AssignedTo:   assignedTo,
			Supervisor:   strings.TrimSpace(input.Supervisor),
			Status:       domain.ComplaintStatusNew,
			LoggedAt:     loggedAt,
		}

		err = s.complaints.Insert(ctx, complaint)
		if err == nil {
			s.publishEvent(ctx, events.Event{
				Type:        events.EventComplaintCreated,
				ComplaintID: complaint.ComplaintID,
				Payload:     events.ComplaintCreatedPayload{Complaint: *complaint},
			})
			return complaint, nil
		}
		if errors.Is(err, repository.ErrConflict) {
			continue
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}

	return nil, apperrors.NewSequenceExhausted(period, maxIDAttempts)
}

// MarkInProgress moves a complaint to In Progress. Allowed from any
// non-terminal state and idempotent when already In Progress.
func (s *ComplaintService) MarkInProgress(ctx context.Context, id string) (*domain.Complaint, error) {
	expected := []domain.ComplaintStatus{
		domain.ComplaintStatusNew,
		domain.ComplaintStatusInProgress,
		domain.ComplaintStatusEscalated,
	}
	updated, err := s.complaints.UpdateStatus(ctx, id, expected, domain.ComplaintStatusInProgress, nil)
	if err != nil {
		return nil, s.mapTransitionError(err, id, domain.ComplaintStatusInProgress)
	}
	s.publishStatusChange(ctx, updated)
	return updated, nil
}

// Resolve moves a complaint to Resolved and stamps resolvedAt exactly once.
// Allowed from any non-terminal state, including Escalated.
func (s *ComplaintService) Resolve(ctx context.Context, id string) (*domain.Complaint, error) {
	expected := []domain.ComplaintStatus{
		domain.ComplaintStatusNew,
		domain.ComplaintStatusInProgress,
		domain.ComplaintStatusEscalated,
	}
	resolvedAt := s.now().UTC()
	updated, err := s.complaints.UpdateStatus(ctx, id, expected, domain.ComplaintStatusResolved, &resolvedAt)
	if err != nil {
		return nil, s.mapTransitionError(err, id, domain.ComplaintStatusResolved)
	}
	s.publishStatusChange(ctx, updated)
	return updated, nil
}

// Escalate moves a complaint to Escalated. Only New and In Progress are
// admissible: the compare-and-set at the store rejects a complaint that was
// concurrently resolved or already escalated by an overlapping sweep, in
// which case ErrTransitionSuperseded is returned.
func (s *ComplaintService) Escalate(ctx context.Context, id string) (*domain.Complaint, error) {
	expected := []domain.ComplaintStatus{
		domain.ComplaintStatusNew,
		domain.ComplaintStatusInProgress,
	}
	updated, err := s.complaints.UpdateStatus(ctx, id, expected, domain.ComplaintStatusEscalated, nil)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrTransitionSuperseded
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"id": id})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return updated, nil
}

// List returns complaints matching the filter, most recent first.
func (s *ComplaintService) List(ctx context.Context, filter ComplaintListFilter) ([]domain.Complaint, error) {
	repoFilter := repository.ComplaintFilter{
		SearchTerm: filter.SearchTerm,
		Status:     filter.Status,
		AssignedTo: filter.AssignedTo,
		LoggedFrom: filter.LoggedFrom,
		LoggedTo:   filter.LoggedTo,
		Limit:      filter.Limit,
	}
	complaints, err := s.complaints.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return complaints, nil
}

// ListEscalations returns escalation records, optionally restricted to the
// recent window.
func (s *ComplaintService) ListEscalations(ctx context.Context, recentOnly bool) ([]domain.Escalation, error) {
	var since *time.Time
	if recentOnly {
		cutoff := s.now().UTC().Add(-s.recentWindow)
		since = &cutoff
	}
	records, err := s.escalations.List(ctx, since)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return records, nil
}

func validateCreateInput(input ComplaintCreateInput) error {
	missing := []string{}
	if strings.TrimSpace(input.CustomerName) == "" {
		missing = append(missing, "customerName")
	}
	if strings.TrimSpace(input.MeterNo) == "" {
		missing = append(missing, "meterNo")
	}
	if strings.TrimSpace(string(input.MeterType)) == "" {
		missing = append(missing, "meterType")
	}
	if strings.TrimSpace(input.IssueType) == "" {
		missing = append(missing, "issueType")
	}
	if strings.TrimSpace(input.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("all fields are required", map[string]any{"missing": missing})
	}
	return nil
}

func (s *ComplaintService) mapTransitionError(err error, id string, next domain.ComplaintStatus) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("complaint", map[string]any{"id": id})
	}
	if errors.Is(err, repository.ErrConflict) {
		return apperrors.NewInvalidTransition("complaint state does not allow this transition",
			map[string]any{"id": id, "requested": next})
	}
	return apperrors.NewStoreUnavailable(err)
}

func (s *ComplaintService) publishStatusChange(ctx context.Context, complaint *domain.Complaint) {
	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintStatusChanged,
		ComplaintID: complaint.ComplaintID,
		Payload: events.ComplaintStatusChangedPayload{
			NewStatus: complaint.Status,
		},
	})
}

func (s *ComplaintService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
