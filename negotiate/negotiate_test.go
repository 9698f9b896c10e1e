package negotiate

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/agentpay/payguard"
	"github.com/agentpay/payguard/encoding"
)

func requirement(scheme, network string) payguard.PaymentRequirement {
	return payguard.PaymentRequirement{
		Scheme:            scheme,
		Network:           network,
		MaxAmountRequired: "50000",
		Asset:             "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		PayTo:             "0x2222222222222222222222222222222222222222",
		Resource:          "https://api.example.com/data",
	}
}

func response402(header string, body []byte) *http.Response {
	resp := &http.Response{
		StatusCode: http.StatusPaymentRequired,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
	if header != "" {
		resp.Header.Set(HeaderPaymentRequired, header)
	}
	return resp
}

func TestParseBodyFormat(t *testing.T) {
	body := []byte(`{"x402Version":1,"accepts":[{"scheme":"exact","network":"base-sepolia","maxAmountRequired":"50000","asset":"0x036CbD53842c5426634e7929541eC2318f3dCF7e","payTo":"0x2222222222222222222222222222222222222222","resource":"https://api.example.com/data","maxTimeoutSeconds":300}]}`)

	result, err := Parse(response402("", body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Format != FormatBody {
		t.Errorf("expected FormatBody, got %v", result.Format)
	}
	if len(result.Required.Accepts) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(result.Required.Accepts))
	}
	if result.Required.Accepts[0].MaxAmountRequired != "50000" {
		t.Errorf("expected amount 50000, got %s", result.Required.Accepts[0].MaxAmountRequired)
	}
}

func TestParseHeaderFormat(t *testing.T) {
	header, err := encoding.EncodeRequirements(payguard.PaymentRequired{
		X402Version: 1,
		Accepts:     []payguard.PaymentRequirement{requirement("exact", "base")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := Parse(response402(header, []byte("Payment Required")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Format != FormatHeader {
		t.Errorf("expected FormatHeader, got %v", result.Format)
	}
	if result.Required.Accepts[0].Network != "base" {
		t.Errorf("expected network base, got %s", result.Required.Accepts[0].Network)
	}
}

func TestParseHeaderWinsOverBody(t *testing.T) {
	header, _ := encoding.EncodeRequirements(payguard.PaymentRequired{
		X402Version: 1,
		Accepts:     []payguard.PaymentRequirement{requirement("exact", "base")},
	})
	body := []byte(`{"x402Version":1,"accepts":[{"scheme":"exact","network":"polygon","maxAmountRequired":"1"}]}`)

	result, err := Parse(response402(header, body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Format != FormatHeader {
		t.Errorf("expected header format to win, got %v", result.Format)
	}
	if result.Required.Accepts[0].Network != "base" {
		t.Errorf("expected header requirements, got network %s", result.Required.Accepts[0].Network)
	}
}

func TestParseErrors(t *testing.T) {
	// Malformed header
	if _, err := Parse(response402("%%%not-base64%%%", nil)); !errors.Is(err, payguard.ErrMalformedRequirements) {
		t.Errorf("expected ErrMalformedRequirements for bad header, got %v", err)
	}

	// Malformed body
	if _, err := Parse(response402("", []byte("Payment Required"))); !errors.Is(err, payguard.ErrMalformedRequirements) {
		t.Errorf("expected ErrMalformedRequirements for bad body, got %v", err)
	}

	// Empty accepts
	if _, err := Parse(response402("", []byte(`{"x402Version":1,"accepts":[]}`))); !errors.Is(err, payguard.ErrNoRequirements) {
		t.Errorf("expected ErrNoRequirements, got %v", err)
	}
}

func TestSelect(t *testing.T) {
	reqs := []payguard.PaymentRequirement{
		requirement("subscription", "base-sepolia"),
		requirement("exact", "polygon"),
		requirement("exact", "base-sepolia"),
		requirement("exact", "base-sepolia"),
	}

	selected := Select(reqs, "base-sepolia")
	if selected == nil {
		t.Fatal("expected a requirement to be selected")
	}
	// First matching requirement wins
	if selected != &reqs[2] {
		t.Errorf("expected first exact/base-sepolia match, got %+v", selected)
	}

	// Network matching is case-insensitive
	if Select(reqs, "Base-Sepolia") == nil {
		t.Error("expected case-insensitive network match")
	}

	if Select(reqs, "avalanche") != nil {
		t.Error("expected nil for unmatched network")
	}
	if Select(nil, "base-sepolia") != nil {
		t.Error("expected nil for empty requirements")
	}
}
