package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is an account's custodial signing wallet. The private key is only
// ever stored encrypted (AES-256-GCM with a random nonce per encryption);
// the decrypted key must always re-derive Address. Created lazily on first
// authentication and immutable afterwards — key rotation is out of scope.
type Wallet struct {
	ID           uuid.UUID `json:"id"`
	AccountID    uuid.UUID `json:"account_id"`
	Address      string    `json:"address"`
	EncryptedKey string    `json:"-"` // never expose key material
	CreatedAt    time.Time `json:"created_at"`
}
