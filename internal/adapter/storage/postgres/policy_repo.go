package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agentpay/payguard/internal/core/domain"
)

// PolicyRepo implements ports.PolicyRepository.
type PolicyRepo struct {
	pool Pool
}

// NewPolicyRepo creates a new PolicyRepo.
func NewPolicyRepo(pool Pool) *PolicyRepo {
	return &PolicyRepo{pool: pool}
}

// GetByAccount fetches the account's policy, or nil when none is configured.
func (r *PolicyRepo) GetByAccount(ctx context.Context, accountID uuid.UUID) (*domain.Policy, error) {
	query := `SELECT account_id, per_request_limit, hourly_limit, daily_limit, absolute_cap,
		allowed_endpoints, blocked_endpoints, updated_at
		FROM policies WHERE account_id = $1`

	p := &domain.Policy{}
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&p.AccountID, &p.PerRequestLimit, &p.HourlyLimit, &p.DailyLimit, &p.AbsoluteCap,
		&p.AllowedEndpoints, &p.BlockedEndpoints, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan policy: %w", err)
	}
	return p, nil
}

// Upsert writes the account's policy, replacing any existing one.
func (r *PolicyRepo) Upsert(ctx context.Context, p *domain.Policy) error {
	query := `INSERT INTO policies (account_id, per_request_limit, hourly_limit, daily_limit,
		absolute_cap, allowed_endpoints, blocked_endpoints, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_id) DO UPDATE SET
			per_request_limit = EXCLUDED.per_request_limit,
			hourly_limit = EXCLUDED.hourly_limit,
			daily_limit = EXCLUDED.daily_limit,
			absolute_cap = EXCLUDED.absolute_cap,
			allowed_endpoints = EXCLUDED.allowed_endpoints,
			blocked_endpoints = EXCLUDED.blocked_endpoints,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		p.AccountID, p.PerRequestLimit, p.HourlyLimit, p.DailyLimit, p.AbsoluteCap,
		p.AllowedEndpoints, p.BlockedEndpoints, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert policy: %w", err)
	}
	return nil
}
