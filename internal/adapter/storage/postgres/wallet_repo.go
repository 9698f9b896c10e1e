package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agentpay/payguard/internal/core/domain"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new custodial wallet. Wallets are immutable after
// creation; there is no update path.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, account_id, address, encrypted_key, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query, w.ID, w.AccountID, w.Address, w.EncryptedKey, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByAccount fetches the account's wallet, or nil when none exists yet.
func (r *WalletRepo) GetByAccount(ctx context.Context, accountID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, account_id, address, encrypted_key, created_at
		FROM wallets WHERE account_id = $1`

	w := &domain.Wallet{}
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&w.ID, &w.AccountID, &w.Address, &w.EncryptedKey, &w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
