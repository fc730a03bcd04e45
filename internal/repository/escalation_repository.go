package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// EscalationRepository encapsulates append-only escalation records.
type EscalationRepository interface {
	Append(ctx context.Context, escalation *domain.Escalation) error
	List(ctx context.Context, since *time.Time) ([]domain.Escalation, error)
}

type escalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRepository instantiates repository.
func NewEscalationRepository(pool *pgxpool.Pool) EscalationRepository {
	return &escalationRepository{pool: pool}
}

func (r *escalationRepository) Append(ctx context.Context, escalation *domain.Escalation) error {
	const query = `
        INSERT INTO escalations (complaint_id, escalated_at, logged_at, assigned_to, customer_name, issue_type)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		escalation.ComplaintID,
		escalation.EscalatedAt,
		escalation.LoggedAt,
		escalation.AssignedTo,
		escalation.CustomerName,
		escalation.IssueType,
	).Scan(&escalation.ID)
}

func (r *escalationRepository) List(ctx context.Context, since *time.Time) ([]domain.Escalation, error) {
	base := `SELECT id, complaint_id, escalated_at, logged_at, assigned_to, customer_name, issue_type
             FROM escalations`
	args := []any{}
	query := base
	if since != nil {
		args = append(args, *since)
		query += ` WHERE escalated_at > $1`
	}
	query += ` ORDER BY escalated_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEscalations(rows)
}

func scanEscalations(rows pgx.Rows) ([]domain.Escalation, error) {
	var result []domain.Escalation
	for rows.Next() {
		var escalation domain.Escalation
		if err := rows.Scan(
			&escalation.ID,
			&escalation.ComplaintID,
			&escalation.EscalatedAt,
			&escalation.LoggedAt,
			&escalation.AssignedTo,
			&escalation.CustomerName,
			&escalation.IssueType,
		); err != nil {
			return nil, err
		}
		result = append(result, escalation)
	}
	return result, rows.Err()
}
