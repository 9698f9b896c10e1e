// Package encoding provides utilities for encoding and decoding x402 payment
// data. It handles base64 and JSON marshaling for payment payloads,
// settlements, and requirements carried in HTTP headers.
package encoding

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/agentpay/payguard"
)

// EncodePayment converts a PaymentPayload to a base64-encoded JSON string.
// This is the value of the X-PAYMENT request header.
func EncodePayment(payment payguard.PaymentPayload) (string, error) {
	paymentJSON, err := json.Marshal(payment)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment: %w", err)
	}
	return base64.StdEncoding.EncodeToString(paymentJSON), nil
}

// DecodePayment converts a base64-encoded JSON string to a PaymentPayload.
// The decoded payload is checked against the protocol version and the
// supported scheme before it is returned.
func DecodePayment(encoded string) (payguard.PaymentPayload, error) {
	var payment payguard.PaymentPayload

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return payment, fmt.Errorf("%w: %v", payguard.ErrMalformedHeader, err)
	}

	if err := json.Unmarshal(decoded, &payment); err != nil {
		return payment, fmt.Errorf("%w: %v", payguard.ErrMalformedHeader, err)
	}

	if payment.X402Version != payguard.X402Version {
		return payment, fmt.Errorf("%w: %d", payguard.ErrUnsupportedVersion, payment.X402Version)
	}
	if payment.Scheme != payguard.SchemeExact {
		return payment, fmt.Errorf("%w: %q", payguard.ErrUnsupportedScheme, payment.Scheme)
	}

	return payment, nil
}

// EncodeSettlement converts a SettlementResponse to a base64-encoded JSON
// string for the X-PAYMENT-RESPONSE header.
func EncodeSettlement(settlement payguard.SettlementResponse) (string, error) {
	settlementJSON, err := json.Marshal(settlement)
	if err != nil {
		return "", fmt.Errorf("failed to marshal settlement: %w", err)
	}
	return base64.StdEncoding.EncodeToString(settlementJSON), nil
}

// DecodeSettlement converts a base64-encoded JSON string to a SettlementResponse.
func DecodeSettlement(encoded string) (payguard.SettlementResponse, error) {
	var settlement payguard.SettlementResponse

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return settlement, fmt.Errorf("%w: %v", payguard.ErrMalformedHeader, err)
	}

	if err := json.Unmarshal(decoded, &settlement); err != nil {
		return settlement, fmt.Errorf("%w: %v", payguard.ErrMalformedHeader, err)
	}

	return settlement, nil
}

// EncodeRequirements converts a PaymentRequired announcement to base64 JSON.
// Servers on the header-based wire format carry this in X-Payment-Required.
func EncodeRequirements(required payguard.PaymentRequired) (string, error) {
	reqJSON, err := json.Marshal(required)
	if err != nil {
		return "", fmt.Errorf("failed to marshal requirements: %w", err)
	}
	return base64.StdEncoding.EncodeToString(reqJSON), nil
}

// DecodeRequirements converts base64-encoded JSON to a PaymentRequired announcement.
func DecodeRequirements(encoded string) (payguard.PaymentRequired, error) {
	var required payguard.PaymentRequired

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return required, fmt.Errorf("failed to decode base64: %w", err)
	}

	if err := json.Unmarshal(decoded, &required); err != nil {
		return required, fmt.Errorf("failed to unmarshal requirements: %w", err)
	}

	return required, nil
}
