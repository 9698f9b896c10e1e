package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentpay/payguard"
	"github.com/agentpay/payguard/encoding"
	"github.com/agentpay/payguard/evm"
	"github.com/agentpay/payguard/internal/core/domain"
	"github.com/agentpay/payguard/internal/core/ports"
	"github.com/agentpay/payguard/negotiate"
	"github.com/agentpay/payguard/pkg/apperror"
	"github.com/agentpay/payguard/validation"
)

const (
	// HeaderPayment carries the base64 payment proof on the paid retry.
	HeaderPayment = "X-PAYMENT"
	// HeaderPaymentResponse carries the base64 settlement receipt.
	HeaderPaymentResponse = "X-PAYMENT-RESPONSE"
	// HeaderTransactionHash is the legacy plain-text settlement header some
	// servers still send instead of the receipt.
	HeaderTransactionHash = "X-Transaction-Hash"

	// maxResponseBody caps how much of a resource response is buffered.
	maxResponseBody = 1 << 20

	requestTimeout = 30 * time.Second
)

// PaymentService drives the probe -> negotiate -> evaluate -> sign-or-defer
// -> retry -> record sequence and resolves deferred approvals.
type PaymentService struct {
	vault     *VaultService
	policy    ports.PolicyService
	txs       ports.TransactionRepository
	approvals ports.ApprovalRepository
	limiter   ports.RequestLimiter

	client   *http.Client
	chainCfg payguard.ChainConfig
	log      zerolog.Logger
	now      func() time.Time

	// accountLocks serializes evaluate-then-record per account so two
	// concurrent flows cannot both pass the window check before either
	// records its spend.
	mu           sync.Mutex
	accountLocks map[uuid.UUID]*sync.Mutex
}

var _ ports.PaymentService = (*PaymentService)(nil)

// NewPaymentService creates the payment orchestrator.
func NewPaymentService(
	vault *VaultService,
	policy ports.PolicyService,
	txs ports.TransactionRepository,
	approvals ports.ApprovalRepository,
	limiter ports.RequestLimiter,
	chainCfg payguard.ChainConfig,
	log zerolog.Logger,
) *PaymentService {
	return &PaymentService{
		vault:        vault,
		policy:       policy,
		txs:          txs,
		approvals:    approvals,
		limiter:      limiter,
		client:       &http.Client{Timeout: requestTimeout},
		chainCfg:     chainCfg,
		log:          log.With().Str("component", "payment").Logger(),
		now:          time.Now,
		accountLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *PaymentService) accountLock(accountID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.accountLocks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.accountLocks[accountID] = lock
	}
	return lock
}

// Pay performs one paid request flow on behalf of an account.
func (s *PaymentService) Pay(ctx context.Context, req ports.PayRequest) (*ports.PayResult, error) {
	if err := validation.ValidateResourceURL(req.URL); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	allowed, err := s.limiter.Allow(ctx, req.AccountID.String())
	if err != nil {
		return nil, apperror.Infrastructure("checking rate limit", err)
	}
	if !allowed {
		return nil, apperror.ErrRateLimitExceeded()
	}

	wallet, err := s.vault.EnsureWallet(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	status, headers, body, err := s.doRequest(ctx, method, req.URL, req.Body, req.Headers, "")
	if err != nil {
		return nil, apperror.Infrastructure("probing resource", err)
	}

	if status != http.StatusPaymentRequired {
		return &ports.PayResult{
			Outcome: ports.OutcomeCompleted,
			Status:  status,
			Body:    body,
			Paid:    false,
		}, nil
	}

	requirement := s.negotiate(headers, body)
	if requirement == nil {
		return &ports.PayResult{
			Outcome: ports.OutcomeRejected,
			Reason:  ports.ReasonNoValidRequirements,
			Status:  status,
		}, nil
	}

	amount, err := payguard.AtomicToDecimal(requirement.MaxAmountRequired, s.chainCfg.Decimals)
	if err != nil {
		return &ports.PayResult{
			Outcome: ports.OutcomeRejected,
			Reason:  ports.ReasonNoValidRequirements,
			Status:  status,
		}, nil
	}

	lock := s.accountLock(req.AccountID)
	lock.Lock()
	defer lock.Unlock()

	decision, err := s.policy.Evaluate(ctx, req.AccountID, amount, req.URL)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		s.log.Info().
			Str("account_id", req.AccountID.String()).
			Float64("amount", amount).
			Str("reason", decision.Reason).
			Msg("Payment denied by policy")
		return &ports.PayResult{
			Outcome: ports.OutcomeRejected,
			Reason:  decision.Reason,
		}, nil
	}

	if amount > decision.PerRequestLimit {
		return s.defer402(ctx, req, method, wallet, requirement, amount)
	}
	return s.payHot(ctx, req, method, wallet, requirement, amount)
}

// payHot signs with the custodial key and retries the request with proof.
func (s *PaymentService) payHot(ctx context.Context, req ports.PayRequest, method string, wallet *domain.Wallet, requirement *payguard.PaymentRequirement, amount float64) (*ports.PayResult, error) {
	key, err := s.vault.SigningKey(wallet)
	if err != nil {
		return nil, err
	}

	value, ok := new(big.Int).SetString(requirement.MaxAmountRequired, 10)
	if !ok || value.Sign() <= 0 {
		return &ports.PayResult{Outcome: ports.OutcomeRejected, Reason: ports.ReasonNoValidRequirements}, nil
	}

	auth, err := evm.NewTransferAuthorization(
		common.HexToAddress(wallet.Address),
		common.HexToAddress(requirement.PayTo),
		value,
	)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	token := common.HexToAddress(requirement.Asset)
	name, version := s.chainCfg.DomainParams(requirement)
	signature, err := evm.SignTransferAuthorization(key, token, s.chainCfg.ChainIDBig(), name, version, auth)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	payment := payguard.PaymentPayload{
		X402Version: payguard.X402Version,
		Scheme:      payguard.SchemeExact,
		Network:     requirement.Network,
		Payload: payguard.EVMPayload{
			Signature:     signature,
			Authorization: auth.Wire(),
		},
	}

	return s.settle(ctx, req.AccountID, method, req.URL, req.Body, req.Headers, payment, amount)
}

// settle sends the paid retry, extracts the settlement hash, and records the
// ledger entry for the attempt.
func (s *PaymentService) settle(ctx context.Context, accountID uuid.UUID, method, url string, body []byte, headers map[string]string, payment payguard.PaymentPayload, amount float64) (*ports.PayResult, error) {
	proof, err := encoding.EncodePayment(payment)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	status, respHeaders, respBody, err := s.doRequest(ctx, method, url, body, headers, proof)

	txHash := ""
	success := err == nil && status < http.StatusBadRequest
	if err == nil {
		txHash = extractTxHash(respHeaders, respBody)
	}

	tx := &domain.Transaction{
		ID:        uuid.New(),
		AccountID: accountID,
		Amount:    amount,
		Endpoint:  url,
		Network:   payment.Network,
		Type:      domain.TransactionTypePayment,
		CreatedAt: s.now().UTC(),
	}
	if success {
		tx.Status = domain.TransactionStatusCompleted
	} else {
		tx.Status = domain.TransactionStatusFailed
	}
	if txHash != "" {
		tx.TxHash = &txHash
	}
	if createErr := s.txs.Create(ctx, tx); createErr != nil {
		return nil, apperror.Infrastructure("recording payment", createErr)
	}

	// The proof left the building but no response came back. The failed
	// attempt is already on the ledger; surface the transport error.
	if err != nil {
		s.log.Warn().Err(err).Str("url", url).Msg("Paid retry failed to reach resource")
		return nil, apperror.SettlementFailed(fmt.Errorf("%w: %v", payguard.ErrSettlementFailed, err))
	}

	result := &ports.PayResult{
		Status:  status,
		Body:    respBody,
		Paid:    true,
		Amount:  amount,
		Network: payment.Network,
		TxHash:  txHash,
	}
	if success {
		result.Outcome = ports.OutcomeCompleted
	} else {
		result.Outcome = ports.OutcomeFailed
		result.Reason = fmt.Sprintf("resource rejected payment with status %d", status)
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("url", url).
		Float64("amount", amount).
		Int("status", status).
		Str("tx_hash", txHash).
		Bool("success", success).
		Msg("Payment settled")
	return result, nil
}

// defer402 persists a pending approval instead of paying. No transaction is
// written and the resource is not retried until a human approves.
func (s *PaymentService) defer402(ctx context.Context, req ports.PayRequest, method string, wallet *domain.Wallet, requirement *payguard.PaymentRequirement, amount float64) (*ports.PayResult, error) {
	snapshot, err := json.Marshal(requirement)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	now := s.now().UTC()
	approval := &domain.PendingApproval{
		ID:              uuid.New(),
		AccountID:       req.AccountID,
		URL:             req.URL,
		Method:          method,
		Amount:          amount,
		RequirementJSON: string(snapshot),
		Status:          domain.ApprovalStatusPending,
		CreatedAt:       now,
		ExpiresAt:       now.Add(domain.ApprovalTTL),
	}
	if err := s.approvals.Create(ctx, approval); err != nil {
		return nil, apperror.Infrastructure("storing pending approval", err)
	}

	value, ok := new(big.Int).SetString(requirement.MaxAmountRequired, 10)
	if !ok {
		return nil, apperror.InternalError(fmt.Errorf("unparseable requirement amount %q", requirement.MaxAmountRequired))
	}
	auth, err := evm.NewTransferAuthorization(
		common.HexToAddress(wallet.Address),
		common.HexToAddress(requirement.PayTo),
		value,
	)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	name, version := s.chainCfg.DomainParams(requirement)
	signing := evm.NewSigningRequest(auth, common.HexToAddress(requirement.Asset), s.chainCfg.ChainIDBig(), name, version)

	s.log.Info().
		Str("account_id", req.AccountID.String()).
		Str("approval_id", approval.ID.String()).
		Float64("amount", amount).
		Str("url", req.URL).
		Msg("Payment deferred for approval")

	return &ports.PayResult{
		Outcome:        ports.OutcomeAwaitingApproval,
		Reason:         fmt.Sprintf("amount %.6f exceeds auto-sign limit", amount),
		Amount:         amount,
		Network:        requirement.Network,
		ApprovalID:     &approval.ID,
		SigningRequest: signing,
	}, nil
}

// Approve resolves a pending approval with an externally produced signature
// and completes the deferred payment.
func (s *PaymentService) Approve(ctx context.Context, id uuid.UUID, signature string, authorization payguard.EVMAuthorization) (*ports.PayResult, error) {
	approval, err := s.guardPending(ctx, id)
	if err != nil {
		return nil, err
	}

	var requirement payguard.PaymentRequirement
	if err := json.Unmarshal([]byte(approval.RequirementJSON), &requirement); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("corrupt requirement snapshot: %w", err))
	}

	auth, err := evm.AuthorizationFromWire(authorization)
	if err != nil {
		return nil, apperror.Validation(fmt.Sprintf("invalid authorization: %v", err))
	}

	name, version := s.chainCfg.DomainParams(&requirement)
	token := common.HexToAddress(requirement.Asset)
	signer, err := evm.RecoverSigner(signature, token, s.chainCfg.ChainIDBig(), name, version, auth)
	if err != nil || signer != auth.From {
		return nil, apperror.Validation("signature does not match authorization")
	}

	updated, err := s.approvals.TransitionFromPending(ctx, id, domain.ApprovalStatusApproved, &signature)
	if err != nil {
		return nil, apperror.Infrastructure("updating approval", err)
	}
	if !updated {
		// Lost the race against a concurrent resolve.
		return nil, apperror.ErrApprovalConflict("resolved")
	}

	payment := payguard.PaymentPayload{
		X402Version: payguard.X402Version,
		Scheme:      payguard.SchemeExact,
		Network:     requirement.Network,
		Payload: payguard.EVMPayload{
			Signature:     signature,
			Authorization: authorization,
		},
	}

	lock := s.accountLock(approval.AccountID)
	lock.Lock()
	defer lock.Unlock()

	result, err := s.settle(ctx, approval.AccountID, approval.Method, approval.URL, nil, nil, payment, approval.Amount)
	if err != nil {
		return nil, err
	}
	result.ApprovalID = &approval.ID
	return result, nil
}

// Reject resolves a pending approval without paying.
func (s *PaymentService) Reject(ctx context.Context, id uuid.UUID) error {
	if _, err := s.guardPending(ctx, id); err != nil {
		return err
	}

	updated, err := s.approvals.TransitionFromPending(ctx, id, domain.ApprovalStatusRejected, nil)
	if err != nil {
		return apperror.Infrastructure("updating approval", err)
	}
	if !updated {
		return apperror.ErrApprovalConflict("resolved")
	}

	s.log.Info().Str("approval_id", id.String()).Msg("Approval rejected")
	return nil
}

// CheckPending reports an approval's status and remaining TTL, stamping
// expiry lazily when the TTL has elapsed.
func (s *PaymentService) CheckPending(ctx context.Context, id uuid.UUID) (*ports.ApprovalState, error) {
	approval, err := s.approvals.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Infrastructure("loading approval", err)
	}
	if approval == nil {
		return nil, apperror.ErrApprovalNotFound()
	}

	now := s.now()
	if !approval.IsTerminal() && approval.Expired(now) {
		stamped, err := s.approvals.TransitionFromPending(ctx, id, domain.ApprovalStatusExpired, nil)
		if err != nil {
			return nil, apperror.Infrastructure("expiring approval", err)
		}
		if stamped {
			approval.Status = domain.ApprovalStatusExpired
		} else {
			// A concurrent resolve won the transition; report its outcome.
			approval, err = s.approvals.GetByID(ctx, id)
			if err != nil {
				return nil, apperror.Infrastructure("loading approval", err)
			}
			if approval == nil {
				return nil, apperror.ErrApprovalNotFound()
			}
		}
	}

	return &ports.ApprovalState{
		ID:           approval.ID,
		Status:       approval.Status,
		Amount:       approval.Amount,
		URL:          approval.URL,
		RemainingTTL: approval.RemainingTTL(now),
	}, nil
}

// guardPending loads an approval and enforces the one-way lifecycle:
// missing, terminal, and TTL-expired records each fail with their own error.
// Expiry is stamped here as a side effect of the read.
func (s *PaymentService) guardPending(ctx context.Context, id uuid.UUID) (*domain.PendingApproval, error) {
	approval, err := s.approvals.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Infrastructure("loading approval", err)
	}
	if approval == nil {
		return nil, apperror.ErrApprovalNotFound()
	}
	if approval.IsTerminal() {
		return nil, apperror.ErrApprovalConflict(string(approval.Status))
	}
	if approval.Expired(s.now()) {
		stamped, err := s.approvals.TransitionFromPending(ctx, id, domain.ApprovalStatusExpired, nil)
		if err != nil {
			return nil, apperror.Infrastructure("expiring approval", err)
		}
		if !stamped {
			// Lost the race to a concurrent resolve; surface the settled status.
			resolved, err := s.approvals.GetByID(ctx, id)
			if err != nil {
				return nil, apperror.Infrastructure("loading approval", err)
			}
			if resolved != nil && resolved.IsTerminal() && resolved.Status != domain.ApprovalStatusExpired {
				return nil, apperror.ErrApprovalConflict(string(resolved.Status))
			}
		}
		return nil, apperror.ErrApprovalExpired()
	}
	return approval, nil
}

// negotiate parses the 402 response parts and selects a usable requirement.
func (s *PaymentService) negotiate(headers http.Header, body []byte) *payguard.PaymentRequirement {
	resp := &http.Response{
		Header: headers,
		Body:   io.NopCloser(bytes.NewReader(body)),
	}
	parsed, err := negotiate.Parse(resp)
	if err != nil {
		s.log.Debug().Err(err).Msg("402 negotiation failed")
		return nil
	}
	return negotiate.Select(parsed.Required.Accepts, s.chainCfg.NetworkID)
}

// doRequest performs one HTTP exchange and returns status, headers, and a
// capped copy of the body.
func (s *PaymentService) doRequest(ctx context.Context, method, url string, body []byte, headers map[string]string, paymentProof string) (int, http.Header, []byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("building request: %w", err)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	if paymentProof != "" {
		httpReq.Header.Set(HeaderPayment, paymentProof)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("reading response body: %w", err)
	}
	return resp.StatusCode, resp.Header, respBody, nil
}

// extractTxHash pulls the settlement transaction hash out of a paid
// response. Priority: X-PAYMENT-RESPONSE receipt, then the legacy
// X-Transaction-Hash header, then a txHash field in the JSON body.
func extractTxHash(headers http.Header, body []byte) string {
	if receipt := headers.Get(HeaderPaymentResponse); receipt != "" {
		if settlement, err := encoding.DecodeSettlement(receipt); err == nil && settlement.Transaction != "" {
			return settlement.Transaction
		}
	}
	if legacy := strings.TrimSpace(headers.Get(HeaderTransactionHash)); legacy != "" {
		return legacy
	}
	var envelope struct {
		TxHash string `json:"txHash"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		return envelope.TxHash
	}
	return ""
}
