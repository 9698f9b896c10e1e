package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agentpay/payguard/internal/core/domain"
)

// TransactionRepo implements ports.TransactionRepository. The ledger is
// append-only: there is deliberately no update path.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new ledger entry.
func (r *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, account_id, amount, endpoint, tx_hash, network, status, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.AccountID, t.Amount, t.Endpoint, t.TxHash, t.Network, t.Status, t.Type, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by id.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT id, account_id, amount, endpoint, tx_hash, network, status, type, created_at
		FROM transactions WHERE id = $1`

	return scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// ListRecent returns the account's transactions created at or after since,
// newest first. Indexed on (account_id, created_at).
func (r *TransactionRepo) ListRecent(ctx context.Context, accountID uuid.UUID, since time.Time) ([]domain.Transaction, error) {
	query := `SELECT id, account_id, amount, endpoint, tx_hash, network, status, type, created_at
		FROM transactions WHERE account_id = $1 AND created_at >= $2
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, accountID, since)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(
			&t.ID, &t.AccountID, &t.Amount, &t.Endpoint, &t.TxHash,
			&t.Network, &t.Status, &t.Type, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.AccountID, &t.Amount, &t.Endpoint, &t.TxHash,
		&t.Network, &t.Status, &t.Type, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
