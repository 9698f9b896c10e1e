package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies the money movement.
type TransactionType string

const (
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeFunding    TransactionType = "funding"
)

// TransactionStatus is the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is an append-only ledger entry, written when a payment attempt
// settles (success or failure) or by the withdrawal path. Terminal entries
// are never updated. Amount is in decimal currency units.
type Transaction struct {
	ID        uuid.UUID         `json:"id"`
	AccountID uuid.UUID         `json:"account_id"`
	Amount    float64           `json:"amount"`
	Endpoint  string            `json:"endpoint"`
	TxHash    *string           `json:"tx_hash,omitempty"` // nil until observed on chain
	Network   string            `json:"network"`
	Status    TransactionStatus `json:"status"`
	Type      TransactionType   `json:"type"`
	CreatedAt time.Time         `json:"created_at"`
}

// IsTerminal reports whether the transaction reached a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusFailed
}

// CountsTowardSpend reports whether the entry counts against rolling spend
// windows. Failed attempts must never consume budget.
func (t *Transaction) CountsTowardSpend() bool {
	return t.Status != TransactionStatusFailed
}
