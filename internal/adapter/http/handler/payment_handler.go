// Package handler wires the REST surface of the payment engine.
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agentpay/payguard/internal/adapter/http/dto"
	"github.com/agentpay/payguard/internal/adapter/http/middleware"
	"github.com/agentpay/payguard/internal/core/ports"
	"github.com/agentpay/payguard/pkg/apperror"
	"github.com/agentpay/payguard/pkg/response"
)

// PaymentHandler handles the paid-request endpoint.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// Pay handles POST /api/v1/pay.
func (h *PaymentHandler) Pay(c *gin.Context) {
	accountID, ok := accountFrom(c)
	if !ok {
		return
	}

	var req dto.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.paymentSvc.Pay(c.Request.Context(), ports.PayRequest{
		AccountID: accountID,
		URL:       req.URL,
		Method:    req.Method,
		Body:      []byte(req.Body),
		Headers:   req.Headers,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	switch result.Outcome {
	case ports.OutcomeAwaitingApproval:
		response.Accepted(c, toPayResponse(result))
	case ports.OutcomeRejected:
		response.Error(c, rejectionError(result))
	default:
		response.OK(c, toPayResponse(result))
	}
}

// rejectionError maps a rejected pay outcome onto the error taxonomy:
// negotiation dead ends are unprocessable, policy denials are forbidden.
func rejectionError(result *ports.PayResult) *apperror.AppError {
	if result.Reason == ports.ReasonNoValidRequirements {
		return apperror.NegotiationFailed(result.Reason)
	}
	return apperror.PolicyDenied(result.Reason)
}

func toPayResponse(result *ports.PayResult) dto.PayResponse {
	resp := dto.PayResponse{
		Outcome:        string(result.Outcome),
		Reason:         result.Reason,
		Status:         result.Status,
		Body:           string(result.Body),
		Paid:           result.Paid,
		Amount:         result.Amount,
		Network:        result.Network,
		TxHash:         result.TxHash,
		SigningRequest: result.SigningRequest,
	}
	if result.ApprovalID != nil {
		s := result.ApprovalID.String()
		resp.ApprovalID = &s
	}
	return resp
}

// accountFrom extracts the authenticated account id set by the middleware.
func accountFrom(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		response.Error(c, apperror.Validation("missing account identity"))
		return uuid.UUID{}, false
	}
	return raw.(uuid.UUID), true
}
