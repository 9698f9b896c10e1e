// Package mcp exposes the payment engine to agents as MCP tools, served over
// streamable HTTP alongside the REST API.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/agentpay/payguard/internal/core/ports"
)

// Server wraps an MCP server over the core payment services.
type Server struct {
	mcpServer  *mcpserver.MCPServer
	paymentSvc ports.PaymentService
	vaultSvc   ports.VaultService
	log        zerolog.Logger
}

// NewServer creates the MCP tool surface.
func NewServer(paymentSvc ports.PaymentService, vaultSvc ports.VaultService, log zerolog.Logger) *Server {
	s := &Server{
		mcpServer:  mcpserver.NewMCPServer("payguard", "1.0.0"),
		paymentSvc: paymentSvc,
		vaultSvc:   vaultSvc,
		log:        log.With().Str("component", "mcp").Logger(),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	paidRequest := mcpproto.NewTool(
		"paid_request",
		mcpproto.WithDescription("Fetch an HTTP resource, automatically paying x402 charges within the account's spend policy"),
		mcpproto.WithString("account_id", mcpproto.Required(), mcpproto.Description("Account UUID the payment is charged to")),
		mcpproto.WithString("url", mcpproto.Required(), mcpproto.Description("Resource URL to fetch")),
		mcpproto.WithString("method", mcpproto.Description("HTTP method, default GET")),
		mcpproto.WithString("body", mcpproto.Description("Request body")),
	)
	s.mcpServer.AddTool(paidRequest, s.handlePaidRequest)

	checkApproval := mcpproto.NewTool(
		"check_approval",
		mcpproto.WithDescription("Check the status and remaining TTL of a deferred payment approval"),
		mcpproto.WithString("approval_id", mcpproto.Required(), mcpproto.Description("Approval UUID returned by paid_request")),
	)
	s.mcpServer.AddTool(checkApproval, s.handleCheckApproval)

	walletBalance := mcpproto.NewTool(
		"wallet_balance",
		mcpproto.WithDescription("Read the account's custodial wallet address and on-chain balance"),
		mcpproto.WithString("account_id", mcpproto.Required(), mcpproto.Description("Account UUID")),
	)
	s.mcpServer.AddTool(walletBalance, s.handleWalletBalance)
}

func (s *Server) handlePaidRequest(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	args := req.GetArguments()
	accountID, err := uuidArg(args, "account_id")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	url, _ := args["url"].(string)
	method, _ := args["method"].(string)
	body, _ := args["body"].(string)

	result, err := s.paymentSvc.Pay(ctx, ports.PayRequest{
		AccountID: accountID,
		URL:       url,
		Method:    method,
		Body:      []byte(body),
	})
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	out := map[string]interface{}{
		"outcome": string(result.Outcome),
		"paid":    result.Paid,
	}
	if result.Reason != "" {
		out["reason"] = result.Reason
	}
	if result.Status != 0 {
		out["status"] = result.Status
	}
	if len(result.Body) > 0 {
		out["body"] = string(result.Body)
	}
	if result.Paid {
		out["amount"] = result.Amount
		out["network"] = result.Network
		out["tx_hash"] = result.TxHash
	}
	if result.ApprovalID != nil {
		out["approval_id"] = result.ApprovalID.String()
	}
	return jsonResult(out)
}

func (s *Server) handleCheckApproval(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	id, err := uuidArg(req.GetArguments(), "approval_id")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	state, err := s.paymentSvc.CheckPending(ctx, id)
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	return jsonResult(map[string]interface{}{
		"id":                    state.ID.String(),
		"status":                string(state.Status),
		"amount":                state.Amount,
		"url":                   state.URL,
		"remaining_ttl_seconds": state.RemainingTTL,
	})
}

func (s *Server) handleWalletBalance(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	accountID, err := uuidArg(req.GetArguments(), "account_id")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	if _, err := s.vaultSvc.EnsureWallet(ctx, accountID); err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	balance, err := s.vaultSvc.Balance(ctx, accountID)
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	return jsonResult(map[string]interface{}{
		"address": balance.Address,
		"balance": balance.Balance,
		"network": balance.Network,
	})
}

// Handler returns the streamable HTTP handler, mounted by the main server.
func (s *Server) Handler() http.Handler {
	return mcpserver.NewStreamableHTTPServer(s.mcpServer)
}

func uuidArg(args map[string]interface{}, key string) (uuid.UUID, error) {
	raw, _ := args[key].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("%s must be a UUID", key)
	}
	return id, nil
}

func jsonResult(v interface{}) (*mcpproto.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &mcpproto.CallToolResult{
		Content: []mcpproto.Content{mcpproto.NewTextContent(string(data))},
	}, nil
}
