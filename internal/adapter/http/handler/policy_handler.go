package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentpay/payguard/internal/adapter/http/dto"
	"github.com/agentpay/payguard/internal/core/domain"
	"github.com/agentpay/payguard/internal/core/ports"
	"github.com/agentpay/payguard/pkg/apperror"
	"github.com/agentpay/payguard/pkg/response"
)

// PolicyHandler handles spend policy endpoints.
type PolicyHandler struct {
	policySvc ports.PolicyService
}

// NewPolicyHandler creates a new PolicyHandler.
func NewPolicyHandler(policySvc ports.PolicyService) *PolicyHandler {
	return &PolicyHandler{policySvc: policySvc}
}

// Get handles GET /api/v1/policy, creating defaults on first read.
func (h *PolicyHandler) Get(c *gin.Context) {
	accountID, ok := accountFrom(c)
	if !ok {
		return
	}

	policy, err := h.policySvc.GetPolicy(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPolicyResponse(policy))
}

// Update handles PUT /api/v1/policy.
func (h *PolicyHandler) Update(c *gin.Context) {
	accountID, ok := accountFrom(c)
	if !ok {
		return
	}

	var req dto.PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	policy, err := h.policySvc.UpdatePolicy(c.Request.Context(), &domain.Policy{
		AccountID:        accountID,
		PerRequestLimit:  req.PerRequestLimit,
		HourlyLimit:      req.HourlyLimit,
		DailyLimit:       req.DailyLimit,
		AbsoluteCap:      req.AbsoluteCap,
		AllowedEndpoints: req.AllowedEndpoints,
		BlockedEndpoints: req.BlockedEndpoints,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPolicyResponse(policy))
}

func toPolicyResponse(policy *domain.Policy) dto.PolicyResponse {
	return dto.PolicyResponse{
		PerRequestLimit:  policy.PerRequestLimit,
		HourlyLimit:      policy.HourlyLimit,
		DailyLimit:       policy.DailyLimit,
		AbsoluteCap:      policy.AbsoluteCap,
		AllowedEndpoints: policy.AllowedEndpoints,
		BlockedEndpoints: policy.BlockedEndpoints,
		UpdatedAt:        policy.UpdatedAt.Format(time.RFC3339),
	}
}
