package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agentpay/payguard/internal/core/domain"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Ensure inserts the account if it does not exist. Idempotent.
func (r *AccountRepo) Ensure(ctx context.Context, id uuid.UUID) error {
	query := `INSERT INTO accounts (id, created_at) VALUES ($1, now()) ON CONFLICT (id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}
	return nil
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT id, created_at FROM accounts WHERE id = $1`

	a := &domain.Account{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}
