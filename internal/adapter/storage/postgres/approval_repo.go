package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agentpay/payguard/internal/core/domain"
)

// ApprovalRepo implements ports.ApprovalRepository. The one-way lifecycle is
// enforced here with status-guarded updates, so concurrent approve/reject
// calls cannot both win.
type ApprovalRepo struct {
	pool Pool
}

// NewApprovalRepo creates a new ApprovalRepo.
func NewApprovalRepo(pool Pool) *ApprovalRepo {
	return &ApprovalRepo{pool: pool}
}

// Create inserts a new pending approval.
func (r *ApprovalRepo) Create(ctx context.Context, a *domain.PendingApproval) error {
	query := `INSERT INTO pending_approvals (id, account_id, url, method, amount, requirement,
		status, signature, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.AccountID, a.URL, a.Method, a.Amount, a.RequirementJSON,
		a.Status, a.Signature, a.CreatedAt, a.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert pending approval: %w", err)
	}
	return nil
}

// GetByID fetches a pending approval by id, or nil when absent.
func (r *ApprovalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PendingApproval, error) {
	query := `SELECT id, account_id, url, method, amount, requirement, status, signature, created_at, expires_at
		FROM pending_approvals WHERE id = $1`

	a := &domain.PendingApproval{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.AccountID, &a.URL, &a.Method, &a.Amount, &a.RequirementJSON,
		&a.Status, &a.Signature, &a.CreatedAt, &a.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan pending approval: %w", err)
	}
	return a, nil
}

// TransitionFromPending moves a pending approval to a terminal status.
// Returns false when the record was no longer pending.
func (r *ApprovalRepo) TransitionFromPending(ctx context.Context, id uuid.UUID, status domain.ApprovalStatus, signature *string) (bool, error) {
	query := `UPDATE pending_approvals SET status = $1, signature = COALESCE($2, signature)
		WHERE id = $3 AND status = 'pending'`

	tag, err := r.pool.Exec(ctx, query, status, signature, id)
	if err != nil {
		return false, fmt.Errorf("transition pending approval: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListExpired returns pending approvals whose TTL elapsed before now,
// oldest first. Indexed on expires_at.
func (r *ApprovalRepo) ListExpired(ctx context.Context, now time.Time) ([]domain.PendingApproval, error) {
	query := `SELECT id, account_id, url, method, amount, requirement, status, signature, created_at, expires_at
		FROM pending_approvals WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at ASC`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list expired approvals: %w", err)
	}
	defer rows.Close()

	var approvals []domain.PendingApproval
	for rows.Next() {
		a := domain.PendingApproval{}
		err := rows.Scan(
			&a.ID, &a.AccountID, &a.URL, &a.Method, &a.Amount, &a.RequirementJSON,
			&a.Status, &a.Signature, &a.CreatedAt, &a.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pending approval row: %w", err)
		}
		approvals = append(approvals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approval rows: %w", err)
	}
	return approvals, nil
}
