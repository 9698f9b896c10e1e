package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agentpay/payguard"
	"github.com/agentpay/payguard/internal/adapter/http/dto"
	"github.com/agentpay/payguard/internal/core/ports"
	"github.com/agentpay/payguard/pkg/apperror"
	"github.com/agentpay/payguard/pkg/response"
)

// ApprovalHandler handles the deferred-approval lifecycle endpoints.
type ApprovalHandler struct {
	paymentSvc ports.PaymentService
}

// NewApprovalHandler creates a new ApprovalHandler.
func NewApprovalHandler(paymentSvc ports.PaymentService) *ApprovalHandler {
	return &ApprovalHandler{paymentSvc: paymentSvc}
}

// Get handles GET /api/v1/approvals/:id.
func (h *ApprovalHandler) Get(c *gin.Context) {
	id, ok := approvalID(c)
	if !ok {
		return
	}

	state, err := h.paymentSvc.CheckPending(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ApprovalStateResponse{
		ID:           state.ID.String(),
		Status:       string(state.Status),
		Amount:       state.Amount,
		URL:          state.URL,
		RemainingTTL: state.RemainingTTL,
	})
}

// Approve handles POST /api/v1/approvals/:id/approve.
func (h *ApprovalHandler) Approve(c *gin.Context) {
	id, ok := approvalID(c)
	if !ok {
		return
	}

	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.paymentSvc.Approve(c.Request.Context(), id, req.Signature, payguard.EVMAuthorization{
		From:        req.Authorization.From,
		To:          req.Authorization.To,
		Value:       req.Authorization.Value,
		ValidAfter:  req.Authorization.ValidAfter,
		ValidBefore: req.Authorization.ValidBefore,
		Nonce:       req.Authorization.Nonce,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPayResponse(result))
}

// Reject handles POST /api/v1/approvals/:id/reject.
func (h *ApprovalHandler) Reject(c *gin.Context) {
	id, ok := approvalID(c)
	if !ok {
		return
	}

	if err := h.paymentSvc.Reject(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"id": id.String(), "status": "rejected"})
}

func approvalID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("approval id must be a UUID"))
		return uuid.UUID{}, false
	}
	return id, true
}
