// Package domain holds the persistent entities of the payment engine.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account represents the paying entity. Created at first authentication,
// never deleted in-band. It exclusively owns one Wallet and one Policy, and
// any number of Transactions and PendingApprovals.
type Account struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
