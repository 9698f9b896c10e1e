// Package service implements the core payment engine: policy evaluation,
// custodial key vault, and the payment orchestrator.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentpay/payguard/internal/core/domain"
	"github.com/agentpay/payguard/internal/core/ports"
	"github.com/agentpay/payguard/pkg/apperror"
)

// PolicyService evaluates proposed charges against an account's spend policy
// and rolling transaction history.
type PolicyService struct {
	accounts ports.AccountRepository
	policies ports.PolicyRepository
	txs      ports.TransactionRepository
	log      zerolog.Logger

	// now is injectable for window-boundary tests.
	now func() time.Time
}

var _ ports.PolicyService = (*PolicyService)(nil)

// NewPolicyService creates a policy service.
func NewPolicyService(accounts ports.AccountRepository, policies ports.PolicyRepository, txs ports.TransactionRepository, log zerolog.Logger) *PolicyService {
	return &PolicyService{
		accounts: accounts,
		policies: policies,
		txs:      txs,
		log:      log.With().Str("component", "policy").Logger(),
		now:      time.Now,
	}
}

// Evaluate decides whether the account may be charged amount for endpoint.
// Checks run in fixed order: missing policy, absolute cap, deny list, allow
// list, then rolling hourly and daily windows. Denial reports the first
// failing check only.
func (s *PolicyService) Evaluate(ctx context.Context, accountID uuid.UUID, amount float64, endpoint string) (*ports.Decision, error) {
	policy, err := s.policies.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.Infrastructure("loading policy", err)
	}
	if policy == nil {
		return deny("no policy configured for account", nil), nil
	}

	decision := &ports.Decision{
		Allowed:         true,
		PerRequestLimit: policy.PerRequestLimit,
		AbsoluteCap:     policy.AbsoluteCap,
	}

	if amount > policy.AbsoluteCap {
		return deny(fmt.Sprintf("amount %.6f exceeds absolute cap %.2f", amount, policy.AbsoluteCap), policy), nil
	}

	if policy.MatchesBlocked(endpoint) {
		return deny("endpoint is blocked by policy", policy), nil
	}

	if len(policy.AllowedEndpoints) > 0 && !policy.MatchesAllowed(endpoint) {
		return deny("endpoint not in allow list", policy), nil
	}

	now := s.now()
	history, err := s.txs.ListRecent(ctx, accountID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, apperror.Infrastructure("loading transaction history", err)
	}

	hourCutoff := now.Add(-time.Hour)
	var hourlySpend, dailySpend float64
	for i := range history {
		tx := &history[i]
		if !tx.CountsTowardSpend() {
			continue
		}
		dailySpend += tx.Amount
		if !tx.CreatedAt.Before(hourCutoff) {
			hourlySpend += tx.Amount
		}
	}

	if hourlySpend+amount > policy.HourlyLimit {
		return deny(fmt.Sprintf("hourly spend %.6f would exceed limit %.2f", hourlySpend+amount, policy.HourlyLimit), policy), nil
	}
	if dailySpend+amount > policy.DailyLimit {
		return deny(fmt.Sprintf("daily spend %.6f would exceed limit %.2f", dailySpend+amount, policy.DailyLimit), policy), nil
	}

	s.log.Debug().
		Str("account_id", accountID.String()).
		Float64("amount", amount).
		Float64("hourly_spend", hourlySpend).
		Float64("daily_spend", dailySpend).
		Msg("Charge allowed by policy")
	return decision, nil
}

// GetPolicy returns the account's policy, creating the documented defaults
// on first read.
func (s *PolicyService) GetPolicy(ctx context.Context, accountID uuid.UUID) (*domain.Policy, error) {
	policy, err := s.policies.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.Infrastructure("loading policy", err)
	}
	if policy != nil {
		return policy, nil
	}

	if err := s.accounts.Ensure(ctx, accountID); err != nil {
		return nil, apperror.Infrastructure("ensuring account", err)
	}
	policy = domain.DefaultPolicy(accountID)
	if err := s.policies.Upsert(ctx, policy); err != nil {
		return nil, apperror.Infrastructure("creating default policy", err)
	}
	s.log.Info().Str("account_id", accountID.String()).Msg("Default policy created")
	return policy, nil
}

// UpdatePolicy validates and stores a policy update.
func (s *PolicyService) UpdatePolicy(ctx context.Context, policy *domain.Policy) (*domain.Policy, error) {
	if policy.PerRequestLimit < 0 || policy.HourlyLimit < 0 || policy.DailyLimit < 0 || policy.AbsoluteCap < 0 {
		return nil, apperror.Validation("policy limits must not be negative")
	}
	if policy.PerRequestLimit > policy.AbsoluteCap {
		return nil, apperror.Validation("per-request limit must not exceed absolute cap")
	}

	if err := s.accounts.Ensure(ctx, policy.AccountID); err != nil {
		return nil, apperror.Infrastructure("ensuring account", err)
	}
	policy.UpdatedAt = s.now().UTC()
	if err := s.policies.Upsert(ctx, policy); err != nil {
		return nil, apperror.Infrastructure("storing policy", err)
	}
	s.log.Info().Str("account_id", policy.AccountID.String()).Msg("Policy updated")
	return policy, nil
}

func deny(reason string, policy *domain.Policy) *ports.Decision {
	d := &ports.Decision{Allowed: false, Reason: reason}
	if policy != nil {
		d.PerRequestLimit = policy.PerRequestLimit
		d.AbsoluteCap = policy.AbsoluteCap
	}
	return d
}
