package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
)

const sweepLockKey = "escalation:sweep:lock"

// sweepBatchLimit caps how many candidates one run processes; leftovers are
// picked up on the next tick.
const sweepBatchLimit = 1000

// EscalationWorker runs the periodic SLA sweep. Each tick it queries open
// complaints past the SLA threshold, escalates them through the lifecycle
// engine's compare-and-set transition, appends an escalation record and emits
// a notification event per success.
//
// Failure isolation: a failed candidate read aborts the run until the next
// tick; a failure on one record never aborts the rest of the run. Overlapping
// runs are harmless because the store transition is atomic per record; the
// redis lock only avoids duplicate work across replicas.
type EscalationWorker struct {
	complaints  repository.ComplaintRepository
	escalations repository.EscalationRepository
	engine      *service.ComplaintService
	dispatcher  events.Dispatcher
	locker      *redis.Client
	logger      *zap.Logger
	metrics     *observability.Metrics
	cfg         config.EscalationConfig
	now         func() time.Time
}

// EscalationDependencies bundles collaborators for the worker.
type EscalationDependencies struct {
	ComplaintRepo  repository.ComplaintRepository
	EscalationRepo repository.EscalationRepository
	Engine         *service.ComplaintService
	Dispatcher     events.Dispatcher
	Locker         *redis.Client
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Config         config.EscalationConfig
	Now            func() time.Time
}

// NewEscalationWorker constructs the worker.
func NewEscalationWorker(deps EscalationDependencies) *EscalationWorker {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &EscalationWorker{
		complaints:  deps.ComplaintRepo,
		escalations: deps.EscalationRepo,
		engine:      deps.Engine,
		dispatcher:  deps.Dispatcher,
		locker:      deps.Locker,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		cfg:         deps.Config,
		now:         now,
	}
}

// Run loops until the context is cancelled, sweeping on every tick.
func (w *EscalationWorker) Run(ctx context.Context) {
	interval := w.cfg.SweepInterval()
	w.logger.Info("escalation worker started",
		zap.Duration("interval", interval),
		zap.Int("sla_threshold_days", w.cfg.SLAThresholdDays))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("escalation worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep executes one escalation run with a per-run deadline.
func (w *EscalationWorker) Sweep(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, w.cfg.RunTimeout())
	defer cancel()

	release, acquired := w.acquireLock(ctx)
	if !acquired {
		w.logger.Debug("sweep skipped; another replica holds the lock")
		return
	}
	defer release()

	now := w.now().UTC()
	cutoff := now.Add(-w.cfg.SLAThreshold())

	candidates, err := w.complaints.List(ctx, repository.ComplaintFilter{
		StatusNotIn:  []domain.ComplaintStatus{domain.ComplaintStatusResolved, domain.ComplaintStatusEscalated},
		LoggedBefore: &cutoff,
		Limit:        sweepBatchLimit,
	})
	if err != nil {
		// Aborts the whole run; retried on the next scheduled tick.
		w.logger.Error("sweep candidate query failed", zap.Error(err))
		return
	}

	escalated := 0
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			w.logger.Warn("sweep deadline reached", zap.Int("remaining", len(candidates)-escalated))
			break
		}
		if w.escalateOne(ctx, candidate, now) {
			escalated++
		}
	}

	w.metrics.RecordSweep(escalated)
	if escalated > 0 {
		w.logger.Info("sweep escalated complaints", zap.Int("count", escalated))
	}
}

// escalateOne transitions a single candidate and appends its escalation
// record. Returns true only for a successful, newly applied escalation.
func (w *EscalationWorker) escalateOne(ctx context.Context, candidate domain.Complaint, now time.Time) bool {
	updated, err := w.engine.Escalate(ctx, candidate.ID)
	if err != nil {
		if errors.Is(err, service.ErrTransitionSuperseded) {
			// Concurrent resolution or an overlapping run won the race.
			return false
		}
		w.logger.Warn("escalation transition failed",
			zap.String("complaint_id", candidate.ComplaintID), zap.Error(err))
		return false
	}

	record := &domain.Escalation{
		ComplaintID:  updated.ComplaintID,
		EscalatedAt:  now,
		LoggedAt:     updated.LoggedAt,
		AssignedTo:   updated.AssignedTo,
		CustomerName: updated.CustomerName,
		IssueType:    updated.IssueType,
	}
	if err := w.escalations.Append(ctx, record); err != nil {
		// The status transition stands; the append failure must not abort
		// the remaining records in this run.
		w.logger.Error("escalation record append failed",
			zap.String("complaint_id", updated.ComplaintID), zap.Error(err))
		return true
	}

	w.publishEscalated(ctx, updated, now)
	return true
}

func (w *EscalationWorker) publishEscalated(ctx context.Context, complaint *domain.Complaint, now time.Time) {
	if w.dispatcher == nil {
		return
	}
	daysPending := int(now.Sub(complaint.LoggedAt) / (24 * time.Hour))
	_ = w.dispatcher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        events.EventComplaintEscalated,
		ComplaintID: complaint.ComplaintID,
		Timestamp:   now,
		Payload: events.ComplaintEscalatedPayload{
			Complaint:   *complaint,
			EscalatedAt: now,
			DaysPending: daysPending,
		},
	})
}

// acquireLock takes the cross-replica sweep lock. The lock is best-effort: if
// redis is unreachable the sweep proceeds anyway, since per-record
// compare-and-set already makes overlapping runs safe.
func (w *EscalationWorker) acquireLock(ctx context.Context) (func(), bool) {
	if w.locker == nil {
		return func() {}, true
	}
	ok, err := w.locker.SetNX(ctx, sweepLockKey, "1", w.cfg.SweepInterval()).Result()
	if err != nil {
		w.logger.Warn("sweep lock unavailable; proceeding without it", zap.Error(err))
		return func() {}, true
	}
	if !ok {
		return func() {}, false
	}
	return func() {
		if err := w.locker.Del(context.Background(), sweepLockKey).Err(); err != nil {
			w.logger.Warn("sweep lock release failed", zap.Error(err))
		}
	}, true
}
