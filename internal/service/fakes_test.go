package service

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/agentpay/payguard/internal/core/domain"
)

// In-memory repository fakes. Simpler than mocks for flow tests: the
// services exercise real data, and assertions read the stores directly.

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *fakeAccountRepo) Ensure(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		r.accounts[id] = &domain.Account{ID: id, CreatedAt: time.Now().UTC()}
	}
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[id], nil
}

type fakeWalletRepo struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *fakeWalletRepo) Create(_ context.Context, wallet *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[wallet.AccountID] = wallet
	return nil
}

func (r *fakeWalletRepo) GetByAccount(_ context.Context, accountID uuid.UUID) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wallets[accountID], nil
}

type fakePolicyRepo struct {
	mu       sync.Mutex
	policies map[uuid.UUID]*domain.Policy
}

func newFakePolicyRepo() *fakePolicyRepo {
	return &fakePolicyRepo{policies: make(map[uuid.UUID]*domain.Policy)}
}

func (r *fakePolicyRepo) GetByAccount(_ context.Context, accountID uuid.UUID) (*domain.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.policies[accountID], nil
}

func (r *fakePolicyRepo) Upsert(_ context.Context, policy *domain.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[policy.AccountID] = policy
	return nil
}

type fakeTransactionRepo struct {
	mu  sync.Mutex
	txs []domain.Transaction
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{}
}

func (r *fakeTransactionRepo) Create(_ context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = append(r.txs, *tx)
	return nil
}

func (r *fakeTransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.txs {
		if r.txs[i].ID == id {
			tx := r.txs[i]
			return &tx, nil
		}
	}
	return nil, nil
}

func (r *fakeTransactionRepo) ListRecent(_ context.Context, accountID uuid.UUID, since time.Time) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range r.txs {
		if tx.AccountID == accountID && !tx.CreatedAt.Before(since) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *fakeTransactionRepo) all() []domain.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Transaction(nil), r.txs...)
}

type fakeApprovalRepo struct {
	mu        sync.Mutex
	approvals map[uuid.UUID]*domain.PendingApproval
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{approvals: make(map[uuid.UUID]*domain.PendingApproval)}
}

func (r *fakeApprovalRepo) Create(_ context.Context, approval *domain.PendingApproval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *approval
	r.approvals[approval.ID] = &copied
	return nil
}

func (r *fakeApprovalRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.PendingApproval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	approval, ok := r.approvals[id]
	if !ok {
		return nil, nil
	}
	copied := *approval
	return &copied, nil
}

func (r *fakeApprovalRepo) TransitionFromPending(_ context.Context, id uuid.UUID, status domain.ApprovalStatus, signature *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	approval, ok := r.approvals[id]
	if !ok || approval.Status != domain.ApprovalStatusPending {
		return false, nil
	}
	approval.Status = status
	if signature != nil {
		approval.Signature = signature
	}
	return true, nil
}

func (r *fakeApprovalRepo) ListExpired(_ context.Context, now time.Time) ([]domain.PendingApproval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PendingApproval
	for _, approval := range r.approvals {
		if approval.Status == domain.ApprovalStatusPending && now.After(approval.ExpiresAt) {
			out = append(out, *approval)
		}
	}
	return out, nil
}

// fakeChain is an in-memory chain client with settable balances.
type fakeChain struct {
	mu        sync.Mutex
	balances  map[common.Address]*big.Int
	transfers []fakeTransfer
	err       error
}

type fakeTransfer struct {
	To     common.Address
	Amount *big.Int
}

func newFakeChain() *fakeChain {
	return &fakeChain{balances: make(map[common.Address]*big.Int)}
}

func (c *fakeChain) setBalance(owner common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[owner] = amount
}

func (c *fakeChain) BalanceOf(_ context.Context, _ common.Address, owner common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if balance, ok := c.balances[owner]; ok {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (c *fakeChain) Transfer(_ context.Context, _ *ecdsa.PrivateKey, _ common.Address, to common.Address, amount *big.Int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	c.transfers = append(c.transfers, fakeTransfer{To: to, Amount: new(big.Int).Set(amount)})
	return "0xfaketxhash", nil
}

// staticLimiter always answers the same verdict.
type staticLimiter struct{ allowed bool }

func (l staticLimiter) Allow(context.Context, string) (bool, error) {
	return l.allowed, nil
}

// scriptedTransport answers HTTP requests from a queue of canned responses
// and records every request it saw. Lets payment flow tests use public
// hostnames without real network I/O.
type scriptedTransport struct {
	mu        sync.Mutex
	responses []*http.Response
	requests  []*http.Request
}

func (t *scriptedTransport) push(resp *http.Response) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses = append(t.responses, resp)
}

func (t *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req)
	if len(t.responses) == 0 {
		return nil, http.ErrHandlerTimeout
	}
	resp := t.responses[0]
	t.responses = t.responses[1:]
	resp.Request = req
	return resp, nil
}
