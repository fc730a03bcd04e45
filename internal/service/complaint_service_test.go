package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// mockComplaintRepository is an in-memory stand-in that mirrors the store's
// compare-and-set and unique-id semantics.
type mockComplaintRepository struct {
	mu         sync.Mutex
	records    map[string]*domain.Complaint
	byNumber   map[string]string
	insertErrs []error
	updateErr  error
	listErr    error
}

func newMockComplaintRepository() *mockComplaintRepository {
	return &mockComplaintRepository{
		records:  make(map[string]*domain.Complaint),
		byNumber: make(map[string]string),
	}
}

func (m *mockComplaintRepository) Insert(_ context.Context, complaint *domain.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.insertErrs) > 0 {
		err := m.insertErrs[0]
		m.insertErrs = m.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, exists := m.byNumber[complaint.ComplaintID]; exists {
		return repository.ErrConflict
	}

	stored := *complaint
	stored.ID = uuid.NewString()
	m.records[stored.ID] = &stored
	m.byNumber[stored.ComplaintID] = stored.ID
	complaint.ID = stored.ID
	return nil
}

func (m *mockComplaintRepository) GetByID(_ context.Context, id string) (*domain.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *record
	return &copied, nil
}

func (m *mockComplaintRepository) CountByIDPrefix(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for number := range m.byNumber {
		if strings.HasPrefix(number, prefix) {
			count++
		}
	}
	return count, nil
}

func (m *mockComplaintRepository) UpdateStatus(_ context.Context, id string, expected []domain.ComplaintStatus, next domain.ComplaintStatus, resolvedAt *time.Time) (*domain.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return nil, m.updateErr
	}
	record, ok := m.records[id]
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

func (m *mockComplaintRepository) List(_ context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []domain.Complaint
	for _, record := range m.records {
		if filter.Status != nil && record.Status != *filter.Status {
			continue
		}
		if excluded(record.Status, filter.StatusNotIn) {
			continue
		}
		if filter.LoggedBefore != nil && !record.LoggedAt.Before(*filter.LoggedBefore) {
			continue
		}
		if filter.AssignedTo != nil && record.AssignedTo != *filter.AssignedTo {
			continue
		}
		result = append(result, *record)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

func (m *mockComplaintRepository) Summary(_ context.Context, slaCutoff time.Time) (*domain.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := &domain.Summary{}
	for _, record := range m.records {
		summary.Total++
		switch {
		case record.Status == domain.ComplaintStatusResolved:
			summary.Resolved++
		case record.LoggedAt.Before(slaCutoff):
			summary.PendingOverSLA++
		default:
			summary.PendingUnderSLA++
		}
	}
	return summary, nil
}

func excluded(status domain.ComplaintStatus, notIn []domain.ComplaintStatus) bool {
	for _, candidate := range notIn {
		if status == candidate {
			return true
		}
	}
	return false
}

type mockEscalationRepository struct {
	mu        sync.Mutex
	records   []domain.Escalation
	appendErr error
	lastSince *time.Time
}

func (m *mockEscalationRepository) Append(_ context.Context, escalation *domain.Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	escalation.ID = uuid.NewString()
	m.records = append(m.records, *escalation)
	return nil
}

func (m *mockEscalationRepository) List(_ context.Context, since *time.Time) ([]domain.Escalation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSince = since
	var result []domain.Escalation
	for _, record := range m.records {
		if since != nil && !record.EscalatedAt.After(*since) {
			continue
		}
		result = append(result, record)
	}
	return result, nil
}

func newTestService(repo *mockComplaintRepository, escalations *mockEscalationRepository, now func() time.Time) *ComplaintService {
	if escalations == nil {
		escalations = &mockEscalationRepository{}
	}
	return NewComplaintService(ComplaintDependencies{
		ComplaintRepo:  repo,
		EscalationRepo: escalations,
		Sequencer:      NewSequenceService(repo),
		PrepaidHandler: "John Migeni",
		RecentWindow:   20 * time.Minute,
		Now:            now,
	})
}

func validInput() ComplaintCreateInput {
	return ComplaintCreateInput{
		CustomerName: "Jane Wanjiku",
		MeterNo:      "MTR-1001",
		MeterType:    domain.MeterTypePostpaid,
		IssueType:    "No Power",
		Description:  "Meter shows error code E2",
		AssignedTo:   "Peter Otieno",
		Supervisor:   "Grace Kilonzo",
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	return domainErr.Code
}

func TestCreateAssignsSequentialIDsPerYear(t *testing.T) {
	repo := newMockComplaintRepository()
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	svc := newTestService(repo, nil, fixedClock(now))

	first, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if first.ComplaintID != "2026-0001" {
		t.Fatalf("expected 2026-0001, got %s", first.ComplaintID)
	}
	if first.Status != domain.ComplaintStatusNew {
		t.Fatalf("expected status New, got %s", first.Status)
	}
	if !first.LoggedAt.Equal(now) {
		t.Fatalf("expected loggedAt %v, got %v", now, first.LoggedAt)
	}
	if first.ResolvedAt != nil {
		t.Fatalf("expected nil resolvedAt on creation")
	}

	second, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if second.ComplaintID != "2026-0002" {
		t.Fatalf("expected 2026-0002, got %s", second.ComplaintID)
	}
}

func TestCreateNumberingRestartsEachYear(t *testing.T) {
	repo := newMockComplaintRepository()
	svc := newTestService(repo, nil, fixedClock(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)))

	if _, err := svc.Create(context.Background(), validInput()); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	svc = newTestService(repo, nil, fixedClock(time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)))
	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ComplaintID != "2026-0001" {
		t.Fatalf("expected 2026-0001 after year rollover, got %s", created.ComplaintID)
	}
}

func TestCreateRejectsMissingFields(t *testing.T) {
	repo := newMockComplaintRepository()
	svc := newTestService(repo, nil, nil)

	input := validInput()
	input.Description = "   "
	_, err := svc.Create(context.Background(), input)
	if code := domainCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %s", code)
	}
	if len(repo.records) != 0 {
		t.Fatalf("no complaint should be stored on validation failure")
	}
}

func TestCreatePrepaidForcesHandlerAssignment(t *testing.T) {
	repo := newMockComplaintRepository()
	svc := newTestService(repo, nil, nil)

	input := validInput()
	input.MeterType = domain.MeterTypePrepaid
	input.AssignedTo = "Somebody Else"

	created, err := svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.AssignedTo != "John Migeni" {
		t.Fatalf("prepaid complaint must go to the prepaid handler, got %s", created.AssignedTo)
	}
}

func TestCreateRetriesOnIDConflict(t *testing.T) {
	repo := newMockComplaintRepository()
	repo.insertErrs = []error{repository.ErrConflict, repository.ErrConflict}
	svc := newTestService(repo, nil, fixedClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create should succeed after retries: %v", err)
	}
	if created.ComplaintID != "2026-0001" {
		t.Fatalf("unexpected id %s", created.ComplaintID)
	}
}

func TestCreateGivesUpAfterRetryBudget(t *testing.T) {
	repo := newMockComplaintRepository()
	for i := 0; i < maxIDAttempts; i++ {
		repo.insertErrs = append(repo.insertErrs, repository.ErrConflict)
	}
	svc := newTestService(repo, nil, nil)

	_, err := svc.Create(context.Background(), validInput())
	if code := domainCode(t, err); code != "SEQUENCE_EXHAUSTED" {
		t.Fatalf("expected SEQUENCE_EXHAUSTED, got %s", code)
	}
}

func TestResolveStampsResolvedAt(t *testing.T) {
	repo := newMockComplaintRepository()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, nil, fixedClock(now))

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	resolved, err := svc.Resolve(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Status != domain.ComplaintStatusResolved {
		t.Fatalf("expected Resolved, got %s", resolved.Status)
	}
	if resolved.ResolvedAt == nil || !resolved.ResolvedAt.Equal(now) {
		t.Fatalf("expected resolvedAt %v, got %v", now, resolved.ResolvedAt)
	}
}

func TestResolveAllowedFromEscalated(t *testing.T) {
	repo := newMockComplaintRepository()
	svc := newTestService(repo, nil, nil)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Escalate(context.Background(), created.ID); err != nil {
		t.Fatalf("escalate failed: %v", err)
	}

	resolved, err := svc.Resolve(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("resolving an escalated complaint must succeed: %v", err)
	}
	if resolved.Status != domain.ComplaintStatusResolved {
		t.Fatalf("expected Resolved, got %s", resolved.Status)
	}
}

func TestMarkInProgressRejectedAfterResolve(t *testing.T) {
	repo := newMockComplaintRepository()
	svc := newTestService(repo, nil, nil)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), created.ID); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	_, err = svc.MarkInProgress(context.Background(), created.ID)
	if code := domainCode(t, err); code != "INVALID_TRANSITION" {
		t.Fatalf("expected INVALID_TRANSITION, got %s", code)
	}
}

func TestTransitionOnUnknownComplaintReturnsNotFound(t *testing.T) {
	repo := newMockComplaintRepository()
	svc := newTestService(repo, nil, nil)

	_, err := svc.MarkInProgress(context.Background(), uuid.NewString())
	if code := domainCode(t, err); code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %s", code)
	}
}

func TestEscalateSupersededByConcurrentTransition(t *testing.T) {
	repo := newMockComplaintRepository()
	svc := newTestService(repo, nil, nil)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), created.ID); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	_, err = svc.Escalate(context.Background(), created.ID)
	if !errors.Is(err, ErrTransitionSuperseded) {
		t.Fatalf("expected ErrTransitionSuperseded, got %v", err)
	}

	record, err := repo.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if record.Status != domain.ComplaintStatusResolved {
		t.Fatalf("resolved status must stand, got %s", record.Status)
	}
}

func TestConcurrentCreatesIssueDistinctIDs(t *testing.T) {
	repo := newMockComplaintRepository()
	svc := newTestService(repo, nil, fixedClock(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))

	// Each conflict a creator hits is caused by a distinct competing insert,
	// so with workers <= maxIDAttempts every creator is guaranteed to land.
	const workers = maxIDAttempts
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(context.Background(), validInput()); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent create failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, record := range repo.records {
		if seen[record.ComplaintID] {
			t.Fatalf("duplicate complaint id issued: %s", record.ComplaintID)
		}
		seen[record.ComplaintID] = true
	}
	if len(seen) != workers {
		t.Fatalf("expected %d complaints, got %d", workers, len(seen))
	}
}

func TestListEscalationsRecentWindow(t *testing.T) {
	repo := newMockComplaintRepository()
	escalations := &mockEscalationRepository{}
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, escalations, fixedClock(now))

	old := domain.Escalation{ComplaintID: "2026-0001", EscalatedAt: now.Add(-time.Hour)}
	fresh := domain.Escalation{ComplaintID: "2026-0002", EscalatedAt: now.Add(-5 * time.Minute)}
	_ = escalations.Append(context.Background(), &old)
	_ = escalations.Append(context.Background(), &fresh)

	records, err := svc.ListEscalations(context.Background(), true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 || records[0].ComplaintID != "2026-0002" {
		t.Fatalf("recent listing should contain only the fresh record, got %+v", records)
	}

	all, err := svc.ListEscalations(context.Background(), false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
}
