package payguard

import "errors"

// Protocol-level error definitions.

var (
	// ErrNoRequirements indicates a 402 response carried no usable payment requirements.
	ErrNoRequirements = errors.New("no payment requirements in response")

	// ErrMalformedRequirements indicates the 402 payment terms could not be parsed.
	ErrMalformedRequirements = errors.New("malformed payment requirements")

	// ErrMalformedHeader indicates that a payment header is malformed.
	ErrMalformedHeader = errors.New("malformed payment header")

	// ErrUnsupportedVersion indicates an unsupported x402 protocol version.
	ErrUnsupportedVersion = errors.New("unsupported x402 version")

	// ErrUnsupportedScheme indicates an unsupported payment scheme.
	ErrUnsupportedScheme = errors.New("unsupported payment scheme")

	// ErrUnsupportedNetwork indicates an unsupported blockchain network.
	ErrUnsupportedNetwork = errors.New("unsupported network")

	// ErrInvalidAmount indicates a malformed or out-of-range amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidAddress indicates a malformed chain address.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidKey indicates invalid signing key material.
	ErrInvalidKey = errors.New("invalid private key")

	// ErrInvalidMnemonic indicates an invalid BIP-39 mnemonic phrase.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")

	// ErrInvalidSignature indicates an invalid cryptographic signature.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrSettlementFailed indicates the signed retry did not settle.
	ErrSettlementFailed = errors.New("settlement failed")
)
