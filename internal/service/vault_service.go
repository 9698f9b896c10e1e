package service

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentpay/payguard"
	"github.com/agentpay/payguard/evm"
	"github.com/agentpay/payguard/internal/core/domain"
	"github.com/agentpay/payguard/internal/core/ports"
	"github.com/agentpay/payguard/pkg/apperror"
	"github.com/agentpay/payguard/validation"
)

// VaultService manages custodial wallets. Private keys exist in plaintext
// only inside a single call frame; at rest they are AES-256-GCM ciphertext
// under the process master key.
type VaultService struct {
	accounts ports.AccountRepository
	wallets  ports.WalletRepository
	txs      ports.TransactionRepository
	chain    ports.ChainClient

	chainCfg  payguard.ChainConfig
	masterKey []byte
	mnemonic  string
	log       zerolog.Logger
}

var _ ports.VaultService = (*VaultService)(nil)

// NewVaultService creates a vault service. masterKey must be the 64-char hex
// encoding of a 32-byte AES key.
func NewVaultService(
	accounts ports.AccountRepository,
	wallets ports.WalletRepository,
	txs ports.TransactionRepository,
	chain ports.ChainClient,
	chainCfg payguard.ChainConfig,
	masterKeyHex string,
	mnemonic string,
	log zerolog.Logger,
) (*VaultService, error) {
	masterKey, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("master key is not valid hex: %w", err)
	}
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(masterKey))
	}
	return &VaultService{
		accounts:  accounts,
		wallets:   wallets,
		txs:       txs,
		chain:     chain,
		chainCfg:  chainCfg,
		masterKey: masterKey,
		mnemonic:  mnemonic,
		log:       log.With().Str("component", "vault").Logger(),
	}, nil
}

// EnsureWallet returns the account's custodial wallet, creating account and
// wallet on first use.
func (s *VaultService) EnsureWallet(ctx context.Context, accountID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.wallets.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.Infrastructure("loading wallet", err)
	}
	if wallet != nil {
		return wallet, nil
	}

	if err := s.accounts.Ensure(ctx, accountID); err != nil {
		return nil, apperror.Infrastructure("ensuring account", err)
	}

	key, err := s.newKey(accountID)
	if err != nil {
		return nil, apperror.ErrVault(err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	encrypted, err := encryptKeyHex(s.masterKey, crypto.FromECDSA(key))
	if err != nil {
		return nil, apperror.ErrVault(err)
	}

	wallet = &domain.Wallet{
		ID:           uuid.New(),
		AccountID:    accountID,
		Address:      address,
		EncryptedKey: encrypted,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.wallets.Create(ctx, wallet); err != nil {
		return nil, apperror.Infrastructure("storing wallet", err)
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("address", address).
		Msg("Custodial wallet created")
	return wallet, nil
}

// newKey generates the account's signing key. With a treasury mnemonic
// configured, keys are HD-derived at an index folded from the account id so
// the vault can be rebuilt from the phrase; otherwise keys are random.
func (s *VaultService) newKey(accountID uuid.UUID) (*ecdsa.PrivateKey, error) {
	if s.mnemonic == "" {
		return crypto.GenerateKey()
	}
	index := binary.BigEndian.Uint32(accountID[:4]) & 0x7FFFFFFF
	return evm.DeriveKey(s.mnemonic, index)
}

// SigningKey decrypts the wallet's private key and verifies it re-derives
// the stored address. A mismatch means the master key changed or the record
// was tampered with, and the key must not be used.
func (s *VaultService) SigningKey(wallet *domain.Wallet) (*ecdsa.PrivateKey, error) {
	raw, err := decryptKeyHex(s.masterKey, wallet.EncryptedKey)
	if err != nil {
		return nil, apperror.ErrVault(err)
	}
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, apperror.ErrVault(err)
	}

	derived := crypto.PubkeyToAddress(key.PublicKey).Hex()
	if !strings.EqualFold(derived, wallet.Address) {
		return nil, apperror.ErrVault(fmt.Errorf("decrypted key derives %s, wallet records %s", derived, wallet.Address))
	}
	return key, nil
}

// Balance reads the wallet's on-chain token balance.
func (s *VaultService) Balance(ctx context.Context, accountID uuid.UUID) (*ports.WalletBalance, error) {
	wallet, err := s.wallets.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.Infrastructure("loading wallet", err)
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	atomic, err := s.chain.BalanceOf(ctx, common.HexToAddress(s.chainCfg.USDCAddress), common.HexToAddress(wallet.Address))
	if err != nil {
		return nil, err
	}
	balance, err := payguard.AtomicToDecimal(atomic.String(), s.chainCfg.Decimals)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	return &ports.WalletBalance{
		Address: wallet.Address,
		Balance: balance,
		Network: s.chainCfg.NetworkID,
	}, nil
}

// Withdraw moves amount from the custodial wallet to destination and records
// a withdrawal ledger entry. All preconditions fail before any chain write.
func (s *VaultService) Withdraw(ctx context.Context, accountID uuid.UUID, amount float64, destination string) (*domain.Transaction, error) {
	if err := validation.ValidateAddress(destination); err != nil {
		return nil, apperror.ErrInvalidDestination()
	}
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	wallet, err := s.wallets.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.Infrastructure("loading wallet", err)
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	atomicAmount, err := payguard.DecimalToAtomic(strconv.FormatFloat(amount, 'f', -1, 64), s.chainCfg.Decimals)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}

	token := common.HexToAddress(s.chainCfg.USDCAddress)
	balance, err := s.chain.BalanceOf(ctx, token, common.HexToAddress(wallet.Address))
	if err != nil {
		return nil, err
	}
	if balance.Cmp(atomicAmount) < 0 {
		return nil, apperror.ErrInsufficientBalance()
	}

	key, err := s.SigningKey(wallet)
	if err != nil {
		return nil, err
	}

	txHash, err := s.chain.Transfer(ctx, key, token, common.HexToAddress(destination), atomicAmount)
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:        uuid.New(),
		AccountID: accountID,
		Amount:    amount,
		Endpoint:  destination,
		TxHash:    &txHash,
		Network:   s.chainCfg.NetworkID,
		Status:    domain.TransactionStatusCompleted,
		Type:      domain.TransactionTypeWithdrawal,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.txs.Create(ctx, tx); err != nil {
		// The transfer already broadcast; surface the ledger failure loudly.
		s.log.Error().Err(err).Str("tx_hash", txHash).Msg("Withdrawal broadcast but ledger write failed")
		return nil, apperror.Infrastructure("recording withdrawal", err)
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Float64("amount", amount).
		Str("destination", destination).
		Str("tx_hash", txHash).
		Msg("Withdrawal complete")
	return tx, nil
}
