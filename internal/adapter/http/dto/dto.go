// Package dto defines the HTTP request and response bodies.
package dto

// PayRequest is the request body for a paid resource request.
type PayRequest struct {
	URL     string            `json:"url" binding:"required"`
	Method  string            `json:"method,omitempty"`
	Body    string            `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// PayResponse is the terminal state of one payment flow.
type PayResponse struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`

	Status int    `json:"status,omitempty"`
	Body   string `json:"body,omitempty"`

	Paid    bool    `json:"paid"`
	Amount  float64 `json:"amount,omitempty"`
	Network string  `json:"network,omitempty"`
	TxHash  string  `json:"tx_hash,omitempty"`

	ApprovalID     *string     `json:"approval_id,omitempty"`
	SigningRequest interface{} `json:"signing_request,omitempty"`
}

// ApproveRequest carries the external wallet's signature over the deferred
// authorization.
type ApproveRequest struct {
	Signature     string               `json:"signature" binding:"required"`
	Authorization AuthorizationRequest `json:"authorization" binding:"required"`
}

// AuthorizationRequest mirrors the EIP-3009 wire authorization.
type AuthorizationRequest struct {
	From        string `json:"from" binding:"required"`
	To          string `json:"to" binding:"required"`
	Value       string `json:"value" binding:"required"`
	ValidAfter  string `json:"validAfter" binding:"required"`
	ValidBefore string `json:"validBefore" binding:"required"`
	Nonce       string `json:"nonce" binding:"required"`
}

// ApprovalStateResponse is the polled view of a deferred approval.
type ApprovalStateResponse struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	Amount       float64 `json:"amount"`
	URL          string  `json:"url"`
	RemainingTTL int64   `json:"remaining_ttl_seconds"`
}

// WalletResponse is the custodial wallet view.
type WalletResponse struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
	Network string  `json:"network"`
}

// WithdrawRequest is the request body for a custodial withdrawal.
type WithdrawRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Destination string  `json:"destination" binding:"required"`
}

// WithdrawResponse reports a submitted withdrawal.
type WithdrawResponse struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Destination   string  `json:"destination"`
	TxHash        string  `json:"tx_hash"`
	Status        string  `json:"status"`
}

// PolicyRequest is the request body for a policy update.
type PolicyRequest struct {
	PerRequestLimit  float64  `json:"per_request_limit" binding:"gte=0"`
	HourlyLimit      float64  `json:"hourly_limit" binding:"gte=0"`
	DailyLimit       float64  `json:"daily_limit" binding:"gte=0"`
	AbsoluteCap      float64  `json:"absolute_cap" binding:"gte=0"`
	AllowedEndpoints []string `json:"allowed_endpoints,omitempty"`
	BlockedEndpoints []string `json:"blocked_endpoints,omitempty"`
}

// PolicyResponse is the stored policy view.
type PolicyResponse struct {
	PerRequestLimit  float64  `json:"per_request_limit"`
	HourlyLimit      float64  `json:"hourly_limit"`
	DailyLimit       float64  `json:"daily_limit"`
	AbsoluteCap      float64  `json:"absolute_cap"`
	AllowedEndpoints []string `json:"allowed_endpoints"`
	BlockedEndpoints []string `json:"blocked_endpoints"`
	UpdatedAt        string   `json:"updated_at"`
}
