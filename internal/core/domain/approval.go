package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalTTL is the fixed lifetime of a pending approval from creation.
const ApprovalTTL = 30 * time.Minute

// ApprovalStatus is the lifecycle state of a deferred payment request.
// Transitions are one-way: pending -> approved | rejected | expired.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
	ApprovalStatusExpired  ApprovalStatus = "expired"
)

// PendingApproval is a deferred, human-gated payment request, created when a
// negotiated amount exceeds the auto-sign ceiling but stays within the
// absolute cap. Expiry is derived lazily at read time; no background sweep
// cancels these.
type PendingApproval struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Amount    float64   `json:"amount"`

	// RequirementJSON is the serialized payment-requirement snapshot the
	// original 402 negotiation produced.
	RequirementJSON string `json:"requirement"`

	Status ApprovalStatus `json:"status"`

	// Signature is the external wallet's signature, set once fulfilled.
	Signature *string `json:"signature,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsTerminal reports whether the approval can no longer change state.
func (a *PendingApproval) IsTerminal() bool {
	return a.Status != ApprovalStatusPending
}

// Expired reports whether the TTL has elapsed at the given instant. A
// pending record past its TTL lingers in storage until a read stamps it.
func (a *PendingApproval) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// RemainingTTL returns the seconds until expiry, clamped at zero.
func (a *PendingApproval) RemainingTTL(now time.Time) int64 {
	remaining := a.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int64(remaining.Seconds())
}
