package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpay/payguard/internal/core/domain"
)

func newPolicyFixture(t *testing.T) (*PolicyService, *fakeAccountRepo, *fakePolicyRepo, *fakeTransactionRepo) {
	t.Helper()
	accounts := newFakeAccountRepo()
	policies := newFakePolicyRepo()
	txs := newFakeTransactionRepo()
	svc := NewPolicyService(accounts, policies, txs, zerolog.Nop())
	return svc, accounts, policies, txs
}

func storedPolicy(policies *fakePolicyRepo, accountID uuid.UUID) *domain.Policy {
	policy := &domain.Policy{
		AccountID:       accountID,
		PerRequestLimit: 0.10,
		HourlyLimit:     1.00,
		DailyLimit:      10.00,
		AbsoluteCap:     5.00,
	}
	_ = policies.Upsert(context.Background(), policy)
	return policy
}

func spend(txs *fakeTransactionRepo, accountID uuid.UUID, amount float64, age time.Duration, status domain.TransactionStatus) {
	_ = txs.Create(context.Background(), &domain.Transaction{
		ID:        uuid.New(),
		AccountID: accountID,
		Amount:    amount,
		Status:    status,
		Type:      domain.TransactionTypePayment,
		CreatedAt: time.Now().Add(-age),
	})
}

func TestEvaluateNoPolicy(t *testing.T) {
	svc, _, _, _ := newPolicyFixture(t)

	decision, err := svc.Evaluate(context.Background(), uuid.New(), 0.000001, "https://api.example.com/")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "no policy")
}

func TestEvaluateAbsoluteCap(t *testing.T) {
	svc, _, policies, _ := newPolicyFixture(t)
	accountID := uuid.New()
	storedPolicy(policies, accountID)

	// Denied regardless of empty history
	decision, err := svc.Evaluate(context.Background(), accountID, 5.01, "https://api.example.com/")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "absolute cap")

	// Exactly at the cap is not a cap violation
	decision, err = svc.Evaluate(context.Background(), accountID, 5.00, "https://api.example.com/")
	require.NoError(t, err)
	assert.NotContains(t, decision.Reason, "absolute cap")
}

func TestEvaluateDenyListWins(t *testing.T) {
	svc, _, policies, _ := newPolicyFixture(t)
	accountID := uuid.New()
	policy := storedPolicy(policies, accountID)
	policy.AllowedEndpoints = []string{"https://api.example.com/"}
	policy.BlockedEndpoints = []string{"https://api.example.com/admin"}

	// Deny list beats allow list even for a tiny amount
	decision, err := svc.Evaluate(context.Background(), accountID, 0.000001, "https://api.example.com/admin/users")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "blocked")

	decision, err = svc.Evaluate(context.Background(), accountID, 0.05, "https://api.example.com/data")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestEvaluateAllowList(t *testing.T) {
	svc, _, policies, _ := newPolicyFixture(t)
	accountID := uuid.New()
	policy := storedPolicy(policies, accountID)
	policy.AllowedEndpoints = []string{"https://api.example.com/"}

	decision, err := svc.Evaluate(context.Background(), accountID, 0.05, "https://other.example.com/data")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "allow list")
}

func TestEvaluateHourlyWindow(t *testing.T) {
	svc, _, policies, txs := newPolicyFixture(t)
	accountID := uuid.New()
	storedPolicy(policies, accountID)

	// Scenario: 0.96 spent within the hour, requesting 0.06 more
	spend(txs, accountID, 0.96, 10*time.Minute, domain.TransactionStatusCompleted)

	decision, err := svc.Evaluate(context.Background(), accountID, 0.06, "https://api.example.com/")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "hourly spend")

	// 0.04 more stays exactly at the limit and passes
	decision, err = svc.Evaluate(context.Background(), accountID, 0.04, "https://api.example.com/")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestEvaluateWindowBoundaries(t *testing.T) {
	svc, _, policies, txs := newPolicyFixture(t)
	accountID := uuid.New()
	storedPolicy(policies, accountID)

	// 61 minutes old: outside hourly, inside daily
	spend(txs, accountID, 0.96, 61*time.Minute, domain.TransactionStatusCompleted)

	decision, err := svc.Evaluate(context.Background(), accountID, 0.06, "https://api.example.com/")
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "61-minute-old spend must not count against the hourly window")

	// Push daily near its cap with old spend; 9.5 + 0.96 + 0.06 > 10.00
	spend(txs, accountID, 9.5, 20*time.Hour, domain.TransactionStatusCompleted)
	decision, err = svc.Evaluate(context.Background(), accountID, 0.06, "https://api.example.com/")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "daily spend")
}

func TestEvaluateFailedAndStaleExcluded(t *testing.T) {
	svc, _, policies, txs := newPolicyFixture(t)
	accountID := uuid.New()
	storedPolicy(policies, accountID)

	// 25 hours old: outside both windows
	spend(txs, accountID, 9.99, 25*time.Hour, domain.TransactionStatusCompleted)
	// Failed attempts never consume budget
	spend(txs, accountID, 0.99, 5*time.Minute, domain.TransactionStatusFailed)

	decision, err := svc.Evaluate(context.Background(), accountID, 0.05, "https://api.example.com/")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestGetPolicyCreatesDefaults(t *testing.T) {
	svc, accounts, policies, _ := newPolicyFixture(t)
	accountID := uuid.New()

	policy, err := svc.GetPolicy(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, 0.10, policy.PerRequestLimit)
	assert.Equal(t, 5.00, policy.AbsoluteCap)

	// Defaults are persisted, not synthesized per read
	stored, err := policies.GetByAccount(context.Background(), accountID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	// The account row is created alongside: policies.account_id carries a
	// foreign key, so a first-ever read must not depend on a prior wallet call
	account, err := accounts.GetByID(context.Background(), accountID)
	require.NoError(t, err)
	require.NotNil(t, account)

	// But a missing policy still denies evaluation until this first read
	other := uuid.New()
	decision, err := svc.Evaluate(context.Background(), other, 0.01, "https://api.example.com/")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestUpdatePolicy(t *testing.T) {
	svc, accounts, _, _ := newPolicyFixture(t)
	accountID := uuid.New()

	updated, err := svc.UpdatePolicy(context.Background(), &domain.Policy{
		AccountID:       accountID,
		PerRequestLimit: 0.50,
		HourlyLimit:     2.00,
		DailyLimit:      20.00,
		AbsoluteCap:     10.00,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.50, updated.PerRequestLimit)
	assert.False(t, updated.UpdatedAt.IsZero())

	// Updating as the first-ever call for the account creates its row
	account, err := accounts.GetByID(context.Background(), accountID)
	require.NoError(t, err)
	require.NotNil(t, account)

	// Negative limits rejected
	_, err = svc.UpdatePolicy(context.Background(), &domain.Policy{AccountID: accountID, HourlyLimit: -1})
	assert.Error(t, err)

	// Auto-sign ceiling above the absolute cap is incoherent
	_, err = svc.UpdatePolicy(context.Background(), &domain.Policy{AccountID: accountID, PerRequestLimit: 6, AbsoluteCap: 5})
	assert.Error(t, err)
}
