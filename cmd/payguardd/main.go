package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentpay/payguard"
	"github.com/agentpay/payguard/config"
	"github.com/agentpay/payguard/internal/adapter/chain"
	httpHandler "github.com/agentpay/payguard/internal/adapter/http/handler"
	mcpAdapter "github.com/agentpay/payguard/internal/adapter/mcp"
	memStorage "github.com/agentpay/payguard/internal/adapter/storage/memory"
	pgStorage "github.com/agentpay/payguard/internal/adapter/storage/postgres"
	redisStorage "github.com/agentpay/payguard/internal/adapter/storage/redis"
	"github.com/agentpay/payguard/internal/core/ports"
	"github.com/agentpay/payguard/internal/service"
	"github.com/agentpay/payguard/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("network", cfg.Chain.Network).
		Msg("Starting PayGuard payment engine")

	// Signing without a vault key is not possible; refuse to start rather
	// than fail on the first payment.
	if cfg.Vault.MasterKey == "" {
		log.Fatal().Msg("vault.master_key is required (PAYGUARD_VAULT_MASTER_KEY)")
	}

	chainCfg, err := payguard.ChainByNetwork(cfg.Chain.Network)
	if err != nil {
		log.Fatal().Err(err).Str("network", cfg.Chain.Network).Msg("Unsupported network")
	}

	ctx := context.Background()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	chainClient, err := chain.NewClient(ctx, cfg.Chain.RPCURL, chainCfg.ChainIDBig(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to chain RPC")
	}
	defer chainClient.Close()

	// Repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	policyRepo := pgStorage.NewPolicyRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	approvalRepo := pgStorage.NewApprovalRepo(pool)

	// Request limiter: Redis when enabled, in-process otherwise.
	var limiter ports.RequestLimiter
	healthCheckers := []httpHandler.HealthChecker{
		{Name: "postgres", Check: pool.Ping},
	}
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		limiter = redisStorage.NewRateLimiter(rdb, cfg.Limits.RequestsPerMinute, time.Minute, log)
		healthCheckers = append(healthCheckers, httpHandler.HealthChecker{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	} else {
		limiter = memStorage.NewRateLimiter(cfg.Limits.RequestsPerMinute, time.Minute)
	}

	// Core services
	vaultSvc, err := service.NewVaultService(accountRepo, walletRepo, txRepo, chainClient, chainCfg, cfg.Vault.MasterKey, cfg.Vault.Mnemonic, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize vault")
	}
	policySvc := service.NewPolicyService(accountRepo, policyRepo, txRepo, log)
	paymentSvc := service.NewPaymentService(vaultSvc, policySvc, txRepo, approvalRepo, limiter, chainCfg, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PaymentSvc:     paymentSvc,
		VaultSvc:       vaultSvc,
		PolicySvc:      policySvc,
		HealthCheckers: healthCheckers,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	if cfg.Server.MCPEnabled {
		mcpSrv := mcpAdapter.NewServer(paymentSvc, vaultSvc, log)
		router.Any("/mcp", gin.WrapH(mcpSrv.Handler()))
		log.Info().Msg("MCP tool surface mounted at /mcp")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
