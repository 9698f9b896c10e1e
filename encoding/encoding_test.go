package encoding

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/agentpay/payguard"
)

func samplePayment() payguard.PaymentPayload {
	return payguard.PaymentPayload{
		X402Version: 1,
		Scheme:      "exact",
		Network:     "base-sepolia",
		Payload: payguard.EVMPayload{
			Signature: "0xdeadbeef",
			Authorization: payguard.EVMAuthorization{
				From:        "0x1111111111111111111111111111111111111111",
				To:          "0x2222222222222222222222222222222222222222",
				Value:       "50000",
				ValidAfter:  "0",
				ValidBefore: "1700000300",
				Nonce:       "0x0000000000000000000000000000000000000000000000000000000000000001",
			},
		},
	}
}

func TestEncodeDecodePayment(t *testing.T) {
	encoded, err := EncodePayment(samplePayment())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Header value must be valid base64 of JSON
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("header value is not base64: %v", err)
	}
	if !strings.Contains(string(raw), `"x402Version":1`) {
		t.Errorf("expected x402Version in JSON, got %s", raw)
	}

	decoded, err := DecodePayment(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Payload.Authorization.Value != "50000" {
		t.Errorf("expected value 50000, got %s", decoded.Payload.Authorization.Value)
	}
	if decoded.Network != "base-sepolia" {
		t.Errorf("expected network base-sepolia, got %s", decoded.Network)
	}
}

func TestDecodePaymentErrors(t *testing.T) {
	if _, err := DecodePayment("not-base64!!!"); !errors.Is(err, payguard.ErrMalformedHeader) {
		t.Errorf("invalid base64: got %v, want ErrMalformedHeader", err)
	}
	notJSON := base64.StdEncoding.EncodeToString([]byte("not json"))
	if _, err := DecodePayment(notJSON); !errors.Is(err, payguard.ErrMalformedHeader) {
		t.Errorf("invalid JSON: got %v, want ErrMalformedHeader", err)
	}

	futureVersion := samplePayment()
	futureVersion.X402Version = 2
	encoded, err := EncodePayment(futureVersion)
	if err != nil {
		t.Fatalf("EncodePayment: %v", err)
	}
	if _, err := DecodePayment(encoded); !errors.Is(err, payguard.ErrUnsupportedVersion) {
		t.Errorf("version 2: got %v, want ErrUnsupportedVersion", err)
	}

	streamScheme := samplePayment()
	streamScheme.Scheme = "stream"
	encoded, err = EncodePayment(streamScheme)
	if err != nil {
		t.Fatalf("EncodePayment: %v", err)
	}
	if _, err := DecodePayment(encoded); !errors.Is(err, payguard.ErrUnsupportedScheme) {
		t.Errorf("stream scheme: got %v, want ErrUnsupportedScheme", err)
	}
}

func TestEncodeDecodeSettlement(t *testing.T) {
	settlement := payguard.SettlementResponse{
		Success:     true,
		Transaction: "0xabc123",
		Network:     "base-sepolia",
		Payer:       "0x1111111111111111111111111111111111111111",
	}

	encoded, err := EncodeSettlement(settlement)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := DecodeSettlement(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decoded.Success || decoded.Transaction != "0xabc123" {
		t.Errorf("settlement did not survive round trip: %+v", decoded)
	}

	if _, err := DecodeSettlement("not-base64!!!"); !errors.Is(err, payguard.ErrMalformedHeader) {
		t.Errorf("invalid base64: got %v, want ErrMalformedHeader", err)
	}
}

func TestEncodeDecodeRequirements(t *testing.T) {
	required := payguard.PaymentRequired{
		X402Version: 1,
		Accepts: []payguard.PaymentRequirement{
			{
				Scheme:            "exact",
				Network:           "base-sepolia",
				MaxAmountRequired: "10000",
				Asset:             "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
				PayTo:             "0x2222222222222222222222222222222222222222",
				Resource:          "https://api.example.com/data",
			},
		},
	}

	encoded, err := EncodeRequirements(required)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := DecodeRequirements(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded.Accepts) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(decoded.Accepts))
	}
	if decoded.Accepts[0].MaxAmountRequired != "10000" {
		t.Errorf("expected amount 10000, got %s", decoded.Accepts[0].MaxAmountRequired)
	}
}
