// Package ports defines the interfaces between the payment engine's core
// services and its adapters (storage, chain RPC, HTTP, rate limiting).
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agentpay/payguard/internal/core/domain"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	// Ensure creates the account if it does not exist yet. Idempotent.
	Ensure(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

// WalletRepository defines persistence operations for custodial wallets.
// Repositories return (nil, nil) when a record does not exist.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByAccount(ctx context.Context, accountID uuid.UUID) (*domain.Wallet, error)
}

// PolicyRepository defines persistence operations for spend policies.
type PolicyRepository interface {
	GetByAccount(ctx context.Context, accountID uuid.UUID) (*domain.Policy, error)
	Upsert(ctx context.Context, policy *domain.Policy) error
}

// TransactionRepository defines persistence for the append-only ledger.
type TransactionRepository interface {
	Create(ctx context.Context, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// ListRecent returns the account's transactions created at or after
	// since, newest first. The policy evaluator computes rolling sums from
	// this window.
	ListRecent(ctx context.Context, accountID uuid.UUID, since time.Time) ([]domain.Transaction, error)
}

// ApprovalRepository defines persistence for deferred payment approvals.
type ApprovalRepository interface {
	Create(ctx context.Context, approval *domain.PendingApproval) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PendingApproval, error)
	// TransitionFromPending atomically moves a pending approval to a
	// terminal status, optionally attaching the external signature. Returns
	// false when the record was not pending anymore, enforcing the one-way
	// lifecycle at the storage layer.
	TransitionFromPending(ctx context.Context, id uuid.UUID, status domain.ApprovalStatus, signature *string) (bool, error)
	// ListExpired returns pending approvals whose TTL elapsed before now.
	// Used for reporting only; expiry itself stays lazy.
	ListExpired(ctx context.Context, now time.Time) ([]domain.PendingApproval, error)
}
