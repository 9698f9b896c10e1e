// Package evm builds and signs EIP-3009 transfer authorizations for the
// custodial hot wallet, and recovers signer addresses for verification.
package evm

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/agentpay/payguard"
)

// AuthorizationValidity is the lifetime of a transfer authorization from the
// moment it is built.
const AuthorizationValidity = 300 * time.Second

// TransferAuthorization represents the parameters for EIP-3009
// transferWithAuthorization.
type TransferAuthorization struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	ValidAfter  *big.Int
	ValidBefore *big.Int
	Nonce       common.Hash
}

// SigningRequest is an unsigned authorization together with the complete
// EIP-712 descriptor, handed to an external wallet on the deferred-approval
// path. The custodial key never signs these.
type SigningRequest struct {
	Authorization TransferAuthorization `json:"authorization"`
	TypedData     apitypes.TypedData    `json:"typedData"`
}

// NewTransferAuthorization creates an authorization valid immediately
// (validAfter 0) and for five minutes, with a cryptographically random
// 32-byte nonce. Nonce collision would permit replay, so crypto/rand is the
// only acceptable entropy source.
func NewTransferAuthorization(from, to common.Address, value *big.Int) (*TransferAuthorization, error) {
	nonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &TransferAuthorization{
		From:        from,
		To:          to,
		Value:       value,
		ValidAfter:  big.NewInt(0),
		ValidBefore: big.NewInt(time.Now().Add(AuthorizationValidity).Unix()),
		Nonce:       nonce,
	}, nil
}

// TypedData builds the EIP-712 typed data for an authorization, domain-
// separated by the token's name, version, chain ID, and contract address.
func (a *TransferAuthorization) TypedData(token common.Address, chainID *big.Int, name, version string) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"TransferWithAuthorization": []apitypes.Type{
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "TransferWithAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              name,
			Version:           version,
			ChainId:           (*math.HexOrDecimal256)(chainID),
			VerifyingContract: token.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"from":        a.From.Hex(),
			"to":          a.To.Hex(),
			"value":       (*math.HexOrDecimal256)(a.Value),
			"validAfter":  (*math.HexOrDecimal256)(a.ValidAfter),
			"validBefore": (*math.HexOrDecimal256)(a.ValidBefore),
			"nonce":       a.Nonce.Hex(),
		},
	}
}

// Wire converts the authorization to its JSON wire representation.
func (a *TransferAuthorization) Wire() payguard.EVMAuthorization {
	return payguard.EVMAuthorization{
		From:        a.From.Hex(),
		To:          a.To.Hex(),
		Value:       a.Value.String(),
		ValidAfter:  a.ValidAfter.String(),
		ValidBefore: a.ValidBefore.String(),
		Nonce:       a.Nonce.Hex(),
	}
}

// SignTransferAuthorization signs an authorization with the custodial key
// using EIP-712. Returns a 0x-prefixed 65-byte signature with v in {27, 28}.
func SignTransferAuthorization(privateKey *ecdsa.PrivateKey, token common.Address, chainID *big.Int, name, version string, auth *TransferAuthorization) (string, error) {
	digest, err := authorizationDigest(token, chainID, name, version, auth)
	if err != nil {
		return "", err
	}

	signature, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign authorization: %w", err)
	}

	// Adjust v value for Ethereum (27 or 28)
	signature[64] += 27

	return "0x" + hex.EncodeToString(signature), nil
}

// RecoverSigner recovers the address that produced a signature over the
// given authorization, allowing verification against the payer address
// without the private key.
func RecoverSigner(signature string, token common.Address, chainID *big.Int, name, version string, auth *TransferAuthorization) (common.Address, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil || len(sig) != 65 {
		return common.Address{}, payguard.ErrInvalidSignature
	}

	digest, err := authorizationDigest(token, chainID, name, version, auth)
	if err != nil {
		return common.Address{}, err
	}

	// Normalize v back to {0, 1} for recovery
	recSig := make([]byte, 65)
	copy(recSig, sig)
	if recSig[64] >= 27 {
		recSig[64] -= 27
	}

	pub, err := crypto.SigToPub(digest, recSig)
	if err != nil {
		return common.Address{}, payguard.ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// AuthorizationFromWire parses the JSON wire representation back into a
// TransferAuthorization. All numeric fields must be base-10 strings.
func AuthorizationFromWire(wire payguard.EVMAuthorization) (*TransferAuthorization, error) {
	if !common.IsHexAddress(wire.From) || !common.IsHexAddress(wire.To) {
		return nil, payguard.ErrInvalidAddress
	}
	value, ok := new(big.Int).SetString(wire.Value, 10)
	if !ok || value.Sign() <= 0 {
		return nil, payguard.ErrInvalidAmount
	}
	validAfter, ok := new(big.Int).SetString(wire.ValidAfter, 10)
	if !ok {
		return nil, fmt.Errorf("invalid validAfter %q", wire.ValidAfter)
	}
	validBefore, ok := new(big.Int).SetString(wire.ValidBefore, 10)
	if !ok {
		return nil, fmt.Errorf("invalid validBefore %q", wire.ValidBefore)
	}
	nonceRaw, err := hex.DecodeString(strings.TrimPrefix(wire.Nonce, "0x"))
	if err != nil || len(nonceRaw) != 32 {
		return nil, fmt.Errorf("invalid nonce %q", wire.Nonce)
	}

	return &TransferAuthorization{
		From:        common.HexToAddress(wire.From),
		To:          common.HexToAddress(wire.To),
		Value:       value,
		ValidAfter:  validAfter,
		ValidBefore: validBefore,
		Nonce:       common.BytesToHash(nonceRaw),
	}, nil
}

// NewSigningRequest builds the deferred-path handoff: the unsigned
// authorization plus the full EIP-712 descriptor an external wallet needs.
func NewSigningRequest(auth *TransferAuthorization, token common.Address, chainID *big.Int, name, version string) *SigningRequest {
	return &SigningRequest{
		Authorization: *auth,
		TypedData:     auth.TypedData(token, chainID, name, version),
	}
}

// authorizationDigest computes keccak256("\x19\x01" || domainSeparator || messageHash).
func authorizationDigest(token common.Address, chainID *big.Int, name, version string, auth *TransferAuthorization) ([]byte, error) {
	typedData := auth.TypedData(token, chainID, name, version)

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	messageHash, err := typedData.HashStruct("TransferWithAuthorization", typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	rawData := append([]byte{0x19, 0x01}, append(domainSeparator, messageHash...)...)
	return crypto.Keccak256(rawData), nil
}

// generateNonce generates a cryptographically secure 32-byte random nonce.
func generateNonce() (common.Hash, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(nonce[:]), nil
}
