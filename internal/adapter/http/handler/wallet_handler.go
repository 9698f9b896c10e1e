package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/agentpay/payguard/internal/adapter/http/dto"
	"github.com/agentpay/payguard/internal/core/ports"
	"github.com/agentpay/payguard/pkg/apperror"
	"github.com/agentpay/payguard/pkg/response"
)

// WalletHandler handles custodial wallet endpoints.
type WalletHandler struct {
	vaultSvc ports.VaultService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(vaultSvc ports.VaultService) *WalletHandler {
	return &WalletHandler{vaultSvc: vaultSvc}
}

// Get handles GET /api/v1/wallet. It creates the wallet on first call so an
// agent can learn its funding address before any payment.
func (h *WalletHandler) Get(c *gin.Context) {
	accountID, ok := accountFrom(c)
	if !ok {
		return
	}

	if _, err := h.vaultSvc.EnsureWallet(c.Request.Context(), accountID); err != nil {
		response.Error(c, err)
		return
	}

	balance, err := h.vaultSvc.Balance(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletResponse{
		Address: balance.Address,
		Balance: balance.Balance,
		Network: balance.Network,
	})
}

// Withdraw handles POST /api/v1/wallet/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	accountID, ok := accountFrom(c)
	if !ok {
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	tx, err := h.vaultSvc.Withdraw(c.Request.Context(), accountID, req.Amount, req.Destination)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.WithdrawResponse{
		TransactionID: tx.ID.String(),
		Amount:        tx.Amount,
		Destination:   tx.Endpoint,
		Status:        string(tx.Status),
	}
	if tx.TxHash != nil {
		resp.TxHash = *tx.TxHash
	}
	response.Created(c, resp)
}
