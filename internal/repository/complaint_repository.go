package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// ErrConflict reports a store-level collision: a duplicate complaint id on
// insert, or a status update whose expected-state precondition failed.
var ErrConflict = errors.New("storage conflict")

const uniqueViolationCode = "23505"

// ComplaintFilter captures listing parameters. All predicates compose conjunctively.
type ComplaintFilter struct {
	SearchTerm   *string
	Status       *domain.ComplaintStatus
	AssignedTo   *string
	LoggedFrom   *time.Time
	LoggedTo     *time.Time
	StatusNotIn  []domain.ComplaintStatus
	LoggedBefore *time.Time
	Limit        int
}

// ComplaintRepository encapsulates complaint persistence.
type ComplaintRepository interface {
	Insert(ctx context.Context, complaint *domain.Complaint) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	CountByIDPrefix(ctx context.Context, prefix string) (int, error)
	UpdateStatus(ctx context.Context, id string, expected []domain.ComplaintStatus, next domain.ComplaintStatus, resolvedAt *time.Time) (*domain.Complaint, error)
	List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
	Summary(ctx context.Context, slaCutoff time.Time) (*domain.Summary, error)
}

type complaintRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(pool *pgxpool.Pool) ComplaintRepository {
	return &complaintRepository{pool: pool}
}

func (r *complaintRepository) Insert(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (complaint_id, customer_name, meter_no, meter_type, issue_type, description, assigned_to, supervisor, status, logged_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		complaint.ComplaintID,
		complaint.CustomerName,
		complaint.MeterNo,
		complaint.MeterType,
		complaint.IssueType,
		complaint.Description,
		complaint.AssignedTo,
		complaint.Supervisor,
		complaint.Status,
		complaint.LoggedAt,
	).Scan(&complaint.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	const query = `
        SELECT id, complaint_id, customer_name, meter_no, meter_type, issue_type, description,
               assigned_to, supervisor, status, logged_at, resolved_at
        FROM complaints WHERE id=$1`
	var complaint domain.Complaint
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&complaint.ID,
		&complaint.ComplaintID,
		&complaint.CustomerName,
		&complaint.MeterNo,
		&complaint.MeterType,
		&complaint.IssueType,
		&complaint.Description,
		&complaint.AssignedTo,
		&complaint.Supervisor,
		&complaint.Status,
		&complaint.LoggedAt,
		&complaint.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *complaintRepository) CountByIDPrefix(ctx context.Context, prefix string) (int, error) {
	const query = `SELECT COUNT(*) FROM complaints WHERE complaint_id LIKE $1`
	var count int
	if err := r.pool.QueryRow(ctx, query, prefix+"%").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateStatus applies a single-record compare-and-set transition. It returns
// pgx.ErrNoRows when the id does not exist and ErrConflict when the record
// exists but its current status is outside the expected set.
func (r *complaintRepository) UpdateStatus(ctx context.Context, id string, expected []domain.ComplaintStatus, next domain.ComplaintStatus, resolvedAt *time.Time) (*domain.Complaint, error) {
	const query = `
        UPDATE complaints SET status=$1, resolved_at=COALESCE($2, resolved_at)
        WHERE id=$3 AND status = ANY($4)
        RETURNING id, complaint_id, customer_name, meter_no, meter_type, issue_type, description,
                  assigned_to, supervisor, status, logged_at, resolved_at`

	expectedStrs := make([]string, len(expected))
	for i, status := range expected {
		expectedStrs[i] = string(status)
	}

	var complaint domain.Complaint
	err := r.pool.QueryRow(ctx, query, next, resolvedAt, id, expectedStrs).Scan(
		&complaint.ID,
		&complaint.ComplaintID,
		&complaint.CustomerName,
		&complaint.MeterNo,
		&complaint.MeterType,
		&complaint.IssueType,
		&complaint.Description,
		&complaint.AssignedTo,
		&complaint.Supervisor,
		&complaint.Status,
		&complaint.LoggedAt,
		&complaint.ResolvedAt,
	)
	if err == nil {
		return &complaint, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Zero rows: missing record vs. precondition failure.
	var current string
	existsErr := r.pool.QueryRow(ctx, `SELECT status FROM complaints WHERE id=$1`, id).Scan(&current)
	if errors.Is(existsErr, pgx.ErrNoRows) {
		return nil, pgx.ErrNoRows
	}
	if existsErr != nil {
		return nil, existsErr
	}
	return nil, ErrConflict
}

func (r *complaintRepository) List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	base := `SELECT id, complaint_id, customer_name, meter_no, meter_type, issue_type, description,
                    assigned_to, supervisor, status, logged_at, resolved_at
             FROM complaints`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(customer_name) LIKE %s OR LOWER(meter_no) LIKE %s OR LOWER(complaint_id) LIKE %s)", placeholder, placeholder, placeholder))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.LoggedFrom != nil {
		args = append(args, *filter.LoggedFrom)
		clauses = append(clauses, fmt.Sprintf("logged_at >= $%d", len(args)))
	}
	if filter.LoggedTo != nil {
		args = append(args, *filter.LoggedTo)
		clauses = append(clauses, fmt.Sprintf("logged_at <= $%d", len(args)))
	}
	if len(filter.StatusNotIn) > 0 {
		placeholders := make([]string, len(filter.StatusNotIn))
		for i, status := range filter.StatusNotIn {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status NOT IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.LoggedBefore != nil {
		args = append(args, *filter.LoggedBefore)
		clauses = append(clauses, fmt.Sprintf("logged_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY logged_at DESC LIMIT %d`,
		base, strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (r *complaintRepository) Summary(ctx context.Context, slaCutoff time.Time) (*domain.Summary, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status = 'Resolved'),
               COUNT(*) FILTER (WHERE status <> 'Resolved' AND logged_at > $1),
               COUNT(*) FILTER (WHERE status <> 'Resolved' AND logged_at <= $1)
        FROM complaints`
	var summary domain.Summary
	if err := r.pool.QueryRow(ctx, query, slaCutoff).Scan(
		&summary.Total,
		&summary.Resolved,
		&summary.PendingUnderSLA,
		&summary.PendingOverSLA,
	); err != nil {
		return nil, err
	}
	return &summary, nil
}

func scanComplaints(rows pgx.Rows) ([]domain.Complaint, error) {
	var result []domain.Complaint
	for rows.Next() {
		var complaint domain.Complaint
		if err := rows.Scan(
			&complaint.ID,
			&complaint.ComplaintID,
			&complaint.CustomerName,
			&complaint.MeterNo,
			&complaint.MeterType,
			&complaint.IssueType,
			&complaint.Description,
			&complaint.AssignedTo,
			&complaint.Supervisor,
			&complaint.Status,
			&complaint.LoggedAt,
			&complaint.ResolvedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, complaint)
	}
	return result, rows.Err()
}
