// Package payguard defines the wire types and chain registry for the x402
// payment-authorization engine. A 402 response advertises payment
// requirements; the engine answers with a signed EIP-3009 authorization
// carried in the X-PAYMENT header.
package payguard

import "math/big"

// X402Version is the protocol version this engine speaks.
const X402Version = 1

// SchemeExact is the only payment scheme the custodial signer supports.
const SchemeExact = "exact"

// PaymentRequirement represents a single payment option from a 402 response.
type PaymentRequirement struct {
	// Scheme is the payment scheme identifier (e.g., "exact").
	Scheme string `json:"scheme"`

	// Network is the blockchain network identifier (e.g., "base").
	Network string `json:"network"`

	// MaxAmountRequired is the payment amount in atomic units (e.g., 1000000 = 1 USDC).
	MaxAmountRequired string `json:"maxAmountRequired"`

	// Asset is the token contract address.
	Asset string `json:"asset"`

	// PayTo is the recipient address for the payment.
	PayTo string `json:"payTo"`

	// Resource is the URL of the protected resource.
	Resource string `json:"resource"`

	// Description is an optional human-readable payment description.
	Description string `json:"description,omitempty"`

	// MimeType is the content type of the protected resource.
	MimeType string `json:"mimeType,omitempty"`

	// MaxTimeoutSeconds is the validity period for the payment authorization.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds"`

	// Extra carries scheme-specific data; for EVM chains the EIP-712 domain
	// "name" and "version" of the token contract.
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// PaymentRequired represents the full payment-terms announcement of a 402
// response, normalized across wire formats.
type PaymentRequired struct {
	// X402Version is the protocol version (currently 1).
	X402Version int `json:"x402Version"`

	// Error is a human-readable message from the resource server.
	Error string `json:"error,omitempty"`

	// Accepts is an array of payment options the server will accept.
	Accepts []PaymentRequirement `json:"accepts"`
}

// PaymentPayload is a signed payment sent back to the resource server.
type PaymentPayload struct {
	// X402Version is the protocol version (currently 1).
	X402Version int `json:"x402Version"`

	// Scheme is the payment scheme identifier (e.g., "exact").
	Scheme string `json:"scheme"`

	// Network is the blockchain network identifier.
	Network string `json:"network"`

	// Payload contains the chain-specific signed payment data.
	Payload EVMPayload `json:"payload"`
}

// EVMPayload is an EVM payment proof: an EIP-3009 authorization plus its
// EIP-712 signature.
type EVMPayload struct {
	// Signature is the hex-encoded 65-byte ECDSA signature.
	Signature string `json:"signature"`

	// Authorization contains the transferWithAuthorization parameters.
	Authorization EVMAuthorization `json:"authorization"`
}

// EVMAuthorization represents EIP-3009 transferWithAuthorization parameters.
type EVMAuthorization struct {
	// From is the payer's address.
	From string `json:"from"`

	// To is the recipient's address.
	To string `json:"to"`

	// Value is the payment amount in atomic units.
	Value string `json:"value"`

	// ValidAfter is the unix timestamp after which the authorization is valid.
	ValidAfter string `json:"validAfter"`

	// ValidBefore is the unix timestamp before which the authorization is valid.
	ValidBefore string `json:"validBefore"`

	// Nonce is a unique 32-byte hex string to prevent replay attacks.
	Nonce string `json:"nonce"`
}

// SettlementResponse represents the server's response after payment settlement.
type SettlementResponse struct {
	// Success indicates whether the payment was successfully settled.
	Success bool `json:"success"`

	// ErrorReason provides details if the payment failed.
	ErrorReason string `json:"errorReason,omitempty"`

	// Transaction is the blockchain transaction hash.
	Transaction string `json:"transaction,omitempty"`

	// Network is the blockchain network where the payment was settled.
	Network string `json:"network"`

	// Payer is the address that made the payment.
	Payer string `json:"payer,omitempty"`
}

// DecimalToAtomic converts a decimal amount string to *big.Int in atomic
// units. For example, "1.5" with 6 decimals becomes 1500000.
func DecimalToAtomic(amount string, decimals int) (*big.Int, error) {
	value := new(big.Float)
	if _, ok := value.SetString(amount); !ok {
		return nil, ErrInvalidAmount
	}

	multiplier := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value.Mul(value, multiplier)

	result, accuracy := value.Int(nil)
	if accuracy != big.Exact {
		return nil, ErrInvalidAmount
	}
	return result, nil
}

// AtomicToDecimal converts an atomic-units string to a decimal amount.
// For example, "1500000" with 6 decimals becomes 1.5. The policy layer
// works in decimal currency units.
func AtomicToDecimal(atomic string, decimals int) (float64, error) {
	value, ok := new(big.Int).SetString(atomic, 10)
	if !ok || value.Sign() < 0 {
		return 0, ErrInvalidAmount
	}

	f := new(big.Float).SetInt(value)
	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	f.Quo(f, divisor)

	out, _ := f.Float64()
	return out, nil
}
