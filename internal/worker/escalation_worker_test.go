package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
)

type stubComplaintStore struct {
	mu      sync.Mutex
	records map[string]*domain.Complaint
	listErr error
	// staleSnapshot, when set, is returned by List verbatim to model a read
	// that raced a concurrent transition.
	staleSnapshot []domain.Complaint
}

func newStubComplaintStore() *stubComplaintStore {
	return &stubComplaintStore{records: make(map[string]*domain.Complaint)}
}

func (s *stubComplaintStore) add(complaint domain.Complaint) domain.Complaint {
	s.mu.Lock()
	defer s.mu.Unlock()
	complaint.ID = uuid.NewString()
	stored := complaint
	s.records[stored.ID] = &stored
	return stored
}

func (s *stubComplaintStore) Insert(_ context.Context, complaint *domain.Complaint) error {
	s.add(*complaint)
	return nil
}

func (s *stubComplaintStore) GetByID(_ context.Context, id string) (*domain.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *record
	return &copied, nil
}

func (s *stubComplaintStore) CountByIDPrefix(context.Context, string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

func (s *stubComplaintStore) UpdateStatus(_ context.Context, id string, expected []domain.ComplaintStatus, next domain.ComplaintStatus, resolvedAt *time.Time) (*domain.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	admissible := false
	for _, status := range expected {
		if record.Status == status {
			admissible = true
			break
		}
	}
	if !admissible {
		return nil, repository.ErrConflict
	}
	record.Status = next
	if resolvedAt != nil {
		record.ResolvedAt = resolvedAt
	}
	copied := *record
	return &copied, nil
}

func (s *stubComplaintStore) List(_ context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return nil, s.listErr
	}
	if s.staleSnapshot != nil {
		return s.staleSnapshot, nil
	}

	var result []domain.Complaint
	for _, record := range s.records {
		skip := false
		for _, status := range filter.StatusNotIn {
			if record.Status == status {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if filter.LoggedBefore != nil && !record.LoggedAt.Before(*filter.LoggedBefore) {
			continue
		}
		result = append(result, *record)
	}
	return result, nil
}

func (s *stubComplaintStore) Summary(context.Context, time.Time) (*domain.Summary, error) {
	return &domain.Summary{}, nil
}

type stubEscalationStore struct {
	mu          sync.Mutex
	records     []domain.Escalation
	failFor     map[string]bool
	appendCalls int
}

func (s *stubEscalationStore) Append(_ context.Context, escalation *domain.Escalation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendCalls++
	if s.failFor[escalation.ComplaintID] {
		return errors.New("append failed")
	}
	escalation.ID = uuid.NewString()
	s.records = append(s.records, *escalation)
	return nil
}

func (s *stubEscalationStore) List(_ context.Context, since *time.Time) ([]domain.Escalation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Escalation
	for _, record := range s.records {
		if since != nil && !record.EscalatedAt.After(*since) {
			continue
		}
		result = append(result, record)
	}
	return result, nil
}

func newTestWorker(complaints *stubComplaintStore, escalations *stubEscalationStore, now time.Time) *EscalationWorker {
	engine := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo:  complaints,
		EscalationRepo: escalations,
		Sequencer:      service.NewSequenceService(complaints),
		Now:            func() time.Time { return now },
	})
	return NewEscalationWorker(EscalationDependencies{
		ComplaintRepo:  complaints,
		EscalationRepo: escalations,
		Engine:         engine,
		Logger:         zap.NewNop(),
		Metrics:        observability.NewMetrics(),
		Config: config.EscalationConfig{
			SweepIntervalMinutes: 15,
			SLAThresholdDays:     3,
			RunTimeoutSeconds:    60,
		},
		Now: func() time.Time { return now },
	})
}

func overdueComplaint(number string, loggedAt time.Time) domain.Complaint {
	return domain.Complaint{
		ComplaintID:  number,
		CustomerName: "Customer " + number,
		MeterNo:      "MTR-" + number,
		MeterType:    domain.MeterTypePostpaid,
		IssueType:    "No Power",
		AssignedTo:   "Peter Otieno",
		Status:       domain.ComplaintStatusNew,
		LoggedAt:     loggedAt,
	}
}

func TestSweepEscalatesComplaintsPastThreshold(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	complaints := newStubComplaintStore()
	escalations := &stubEscalationStore{}

	overdue := complaints.add(overdueComplaint("2026-0001", now.Add(-(3*24*time.Hour + time.Minute))))
	fresh := complaints.add(overdueComplaint("2026-0002", now.Add(-24*time.Hour)))

	worker := newTestWorker(complaints, escalations, now)
	worker.Sweep(context.Background())

	got, err := complaints.GetByID(context.Background(), overdue.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != domain.ComplaintStatusEscalated {
		t.Fatalf("overdue complaint must be escalated, got %s", got.Status)
	}

	untouched, err := complaints.GetByID(context.Background(), fresh.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if untouched.Status != domain.ComplaintStatusNew {
		t.Fatalf("fresh complaint must stay New, got %s", untouched.Status)
	}

	if len(escalations.records) != 1 {
		t.Fatalf("expected 1 escalation record, got %d", len(escalations.records))
	}
	record := escalations.records[0]
	if record.ComplaintID != "2026-0001" {
		t.Fatalf("unexpected record %+v", record)
	}
	if !record.EscalatedAt.Equal(now) {
		t.Fatalf("escalatedAt must be the sweep time, got %v", record.EscalatedAt)
	}
	if !record.LoggedAt.Equal(overdue.LoggedAt) {
		t.Fatalf("record must carry the original loggedAt, got %v", record.LoggedAt)
	}

	runs, escalated := worker.metrics.SweepStats()
	if runs != 1 || escalated != 1 {
		t.Fatalf("unexpected sweep stats: runs=%d escalated=%d", runs, escalated)
	}
}

func TestSweepDoesNotReEscalate(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	complaints := newStubComplaintStore()
	escalations := &stubEscalationStore{}

	complaints.add(overdueComplaint("2026-0001", now.Add(-5*24*time.Hour)))

	worker := newTestWorker(complaints, escalations, now)
	worker.Sweep(context.Background())
	worker.Sweep(context.Background())

	if len(escalations.records) != 1 {
		t.Fatalf("a complaint must be escalated at most once, got %d records", len(escalations.records))
	}
}

func TestSweepSkipsConcurrentlyResolvedComplaint(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	complaints := newStubComplaintStore()
	escalations := &stubEscalationStore{}

	stored := complaints.add(func() domain.Complaint {
		c := overdueComplaint("2026-0001", now.Add(-5*24*time.Hour))
		c.Status = domain.ComplaintStatusResolved
		return c
	}())

	// The candidate read saw the complaint before it was resolved.
	stale := stored
	stale.Status = domain.ComplaintStatusNew
	complaints.staleSnapshot = []domain.Complaint{stale}

	worker := newTestWorker(complaints, escalations, now)
	worker.Sweep(context.Background())

	got, err := complaints.GetByID(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != domain.ComplaintStatusResolved {
		t.Fatalf("resolved status must stand, got %s", got.Status)
	}
	if len(escalations.records) != 0 {
		t.Fatalf("no escalation record expected, got %d", len(escalations.records))
	}
}

func TestSweepIsolatesRecordAppendFailure(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	complaints := newStubComplaintStore()
	escalations := &stubEscalationStore{failFor: map[string]bool{"2026-0001": true}}

	first := complaints.add(overdueComplaint("2026-0001", now.Add(-5*24*time.Hour)))
	second := complaints.add(overdueComplaint("2026-0002", now.Add(-4*24*time.Hour)))

	worker := newTestWorker(complaints, escalations, now)
	worker.Sweep(context.Background())

	for _, id := range []string{first.ID, second.ID} {
		got, err := complaints.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Status != domain.ComplaintStatusEscalated {
			t.Fatalf("both complaints must be escalated despite the append failure, got %s", got.Status)
		}
	}
	if escalations.appendCalls != 2 {
		t.Fatalf("expected 2 append attempts, got %d", escalations.appendCalls)
	}
	if len(escalations.records) != 1 || escalations.records[0].ComplaintID != "2026-0002" {
		t.Fatalf("only the second record should land, got %+v", escalations.records)
	}
}

func TestSweepAbortsWhenCandidateReadFails(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	complaints := newStubComplaintStore()
	escalations := &stubEscalationStore{}

	stored := complaints.add(overdueComplaint("2026-0001", now.Add(-5*24*time.Hour)))
	complaints.listErr = errors.New("connection refused")

	worker := newTestWorker(complaints, escalations, now)
	worker.Sweep(context.Background())

	got, err := complaints.GetByID(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != domain.ComplaintStatusNew {
		t.Fatalf("no transitions expected after an aborted run, got %s", got.Status)
	}

	runs, _ := worker.metrics.SweepStats()
	if runs != 0 {
		t.Fatalf("an aborted run must not count as a sweep, got %d", runs)
	}
}
