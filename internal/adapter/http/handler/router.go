package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/agentpay/payguard/internal/adapter/http/middleware"
	"github.com/agentpay/payguard/internal/core/ports"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PaymentSvc     ports.PaymentService
	VaultSvc       ports.VaultService
	PolicySvc      ports.PolicyService
	HealthCheckers []HealthChecker
	Mode           string
	Logger         zerolog.Logger
}

// SetupRouter initialises the gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	paymentHandler := NewPaymentHandler(deps.PaymentSvc)
	approvalHandler := NewApprovalHandler(deps.PaymentSvc)
	walletHandler := NewWalletHandler(deps.VaultSvc)
	policyHandler := NewPolicyHandler(deps.PolicySvc)

	v1 := r.Group("/api/v1", middleware.AccountID())
	{
		v1.POST("/pay", paymentHandler.Pay)

		v1.GET("/approvals/:id", approvalHandler.Get)
		v1.POST("/approvals/:id/approve", approvalHandler.Approve)
		v1.POST("/approvals/:id/reject", approvalHandler.Reject)

		v1.GET("/wallet", walletHandler.Get)
		v1.POST("/wallet/withdraw", walletHandler.Withdraw)

		v1.GET("/policy", policyHandler.Get)
		v1.PUT("/policy", policyHandler.Update)
	}

	return r
}
