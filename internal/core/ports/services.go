package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/agentpay/payguard"
	"github.com/agentpay/payguard/internal/core/domain"
)

// Decision is the policy evaluator's verdict on a proposed charge. The
// limits are returned so the orchestrator can pick the signing path.
type Decision struct {
	Allowed         bool    `json:"allowed"`
	Reason          string  `json:"reason,omitempty"`
	PerRequestLimit float64 `json:"per_request_limit"`
	AbsoluteCap     float64 `json:"absolute_cap"`
}

// PolicyService evaluates proposed charges against an account's spend policy.
type PolicyService interface {
	Evaluate(ctx context.Context, accountID uuid.UUID, amount float64, endpoint string) (*Decision, error)
	GetPolicy(ctx context.Context, accountID uuid.UUID) (*domain.Policy, error)
	UpdatePolicy(ctx context.Context, policy *domain.Policy) (*domain.Policy, error)
}

// VaultService manages custodial wallets: key generation, encryption at
// rest, balance reads, and withdrawals.
type VaultService interface {
	// EnsureWallet returns the account's wallet, creating it on first use.
	EnsureWallet(ctx context.Context, accountID uuid.UUID) (*domain.Wallet, error)
	Balance(ctx context.Context, accountID uuid.UUID) (*WalletBalance, error)
	Withdraw(ctx context.Context, accountID uuid.UUID, amount float64, destination string) (*domain.Transaction, error)
}

// WalletBalance is a wallet's address with its current on-chain balance.
type WalletBalance struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
	Network string  `json:"network"`
}

// PayRequest describes an outgoing paid request on behalf of an account.
type PayRequest struct {
	AccountID uuid.UUID
	URL       string
	Method    string
	Body      []byte
	Headers   map[string]string
}

// PayOutcome classifies how a payment flow ended.
type PayOutcome string

const (
	// OutcomeCompleted means the resource responded, paid or unpaid.
	OutcomeCompleted PayOutcome = "completed"
	// OutcomeFailed means a payment was sent but settlement did not succeed.
	OutcomeFailed PayOutcome = "failed"
	// OutcomeRejected means no payment was attempted (validation, policy,
	// or negotiation stopped the flow).
	OutcomeRejected PayOutcome = "rejected"
	// OutcomeAwaitingApproval means the amount requires human sign-off and
	// a PendingApproval was created instead of a payment.
	OutcomeAwaitingApproval PayOutcome = "awaiting_approval"
)

// ReasonNoValidRequirements is the rejection reason when 402 negotiation
// yields nothing the signer supports. Transport adapters use it to tell
// negotiation rejections apart from policy denials.
const ReasonNoValidRequirements = "no valid payment requirements"

// PayResult is the terminal state of one payment flow.
type PayResult struct {
	Outcome PayOutcome `json:"outcome"`
	Reason  string     `json:"reason,omitempty"`

	// Status and Body mirror the resource server's final response when one
	// was obtained.
	Status int    `json:"status,omitempty"`
	Body   []byte `json:"-"`

	// Paid is true when a payment proof was attached to the final request.
	Paid    bool    `json:"paid"`
	Amount  float64 `json:"amount,omitempty"`
	Network string  `json:"network,omitempty"`
	TxHash  string  `json:"tx_hash,omitempty"`

	// ApprovalID references the PendingApproval on the deferred path.
	ApprovalID *uuid.UUID `json:"approval_id,omitempty"`

	// SigningRequest carries the unsigned authorization descriptor for the
	// caller's external wallet on the deferred path.
	SigningRequest interface{} `json:"signing_request,omitempty"`
}

// ApprovalState is the polled view of a deferred approval.
type ApprovalState struct {
	ID           uuid.UUID             `json:"id"`
	Status       domain.ApprovalStatus `json:"status"`
	Amount       float64               `json:"amount"`
	URL          string                `json:"url"`
	RemainingTTL int64                 `json:"remaining_ttl_seconds"`
}

// PaymentService drives the request -> negotiate -> evaluate -> sign-or-defer
// -> retry -> record sequence, and resolves deferred approvals.
type PaymentService interface {
	Pay(ctx context.Context, req PayRequest) (*PayResult, error)
	Approve(ctx context.Context, id uuid.UUID, signature string, authorization payguard.EVMAuthorization) (*PayResult, error)
	Reject(ctx context.Context, id uuid.UUID) error
	CheckPending(ctx context.Context, id uuid.UUID) (*ApprovalState, error)
}
