// Package apperror defines the structured error taxonomy of the payment
// engine and its mapping to HTTP responses.
package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // wrapped internal error, not exposed to clients
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL): fails fast, before any I/O ----

func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrInvalidDestination() *AppError {
	return New("VAL_002", "Invalid destination address", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("VAL_003", "Amount must be greater than zero", http.StatusBadRequest)
}

// ---- Policy (POL): business rejection, no side effects ----

func PolicyDenied(reason string) *AppError {
	return New("POL_001", reason, http.StatusForbidden)
}

// ---- Negotiation (NEG): the remote 402 was unusable ----

func NegotiationFailed(message string) *AppError {
	return New("NEG_001", message, http.StatusUnprocessableEntity)
}

// ---- Settlement (SET): payment sent, remote did not confirm ----

func SettlementFailed(err error) *AppError {
	return Wrap("SET_001", "Payment settlement failed", http.StatusBadGateway, err)
}

// ---- Approvals (APR): deferred lifecycle violations ----

func ErrApprovalNotFound() *AppError {
	return New("APR_001", "Pending approval not found", http.StatusNotFound)
}

func ErrApprovalExpired() *AppError {
	return New("APR_002", "Pending approval has expired", http.StatusGone)
}

func ErrApprovalConflict(status string) *AppError {
	return New("APR_003", fmt.Sprintf("Approval already %s", status), http.StatusConflict)
}

// ---- Wallet (WLT) ----

func ErrWalletNotFound() *AppError {
	return New("WLT_001", "Wallet not found for account", http.StatusNotFound)
}

func ErrInsufficientBalance() *AppError {
	return New("WLT_002", "Insufficient wallet balance", http.StatusUnprocessableEntity)
}

// ---- Rate limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Too many payment attempts", http.StatusTooManyRequests)
}

// ---- Infrastructure (INF): fatal for the current operation ----

func Infrastructure(message string, err error) *AppError {
	return Wrap("INF_001", message, http.StatusInternalServerError, err)
}

func ErrChainRPC(err error) *AppError {
	return Wrap("INF_002", "Chain RPC call failed", http.StatusBadGateway, err)
}

func ErrVault(err error) *AppError {
	return Wrap("INF_003", "Key vault operation failed", http.StatusInternalServerError, err)
}

// InternalError wraps an unclassified internal error.
func InternalError(err error) *AppError {
	return Wrap("INF_001", "Internal server error", http.StatusInternalServerError, err)
}
