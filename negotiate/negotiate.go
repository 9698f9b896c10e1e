// Package negotiate parses the payment terms of an HTTP 402 response and
// selects the one requirement the custodial signer supports.
//
// Two wire formats exist side by side in deployed x402 servers: the original
// JSON response body and the newer base64-encoded X-Payment-Required header.
// Parse is the single entry point; it detects the format and returns the
// normalized PaymentRequired shape so callers never sniff formats themselves.
package negotiate

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/agentpay/payguard"
	"github.com/agentpay/payguard/encoding"
)

// HeaderPaymentRequired is the response header carrying base64 payment terms
// on the header-based wire format.
const HeaderPaymentRequired = "X-Payment-Required"

// Format identifies which wire format a 402 response used.
type Format int

const (
	// FormatUnknown means no recognizable payment terms were present.
	FormatUnknown Format = iota
	// FormatBody is the original JSON-body wire format.
	FormatBody
	// FormatHeader is the base64 X-Payment-Required header wire format.
	FormatHeader
)

// Result is a parsed 402 announcement plus the format it arrived in.
type Result struct {
	Required payguard.PaymentRequired
	Format   Format
}

// Parse extracts payment requirements from a 402 response. The header format
// is checked first; the JSON body is the fallback. The response body is
// consumed either way.
func Parse(resp *http.Response) (*Result, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read 402 response body: %w", err)
	}

	if header := resp.Header.Get(HeaderPaymentRequired); header != "" {
		required, err := encoding.DecodeRequirements(header)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", payguard.ErrMalformedRequirements, err)
		}
		if len(required.Accepts) == 0 {
			return nil, payguard.ErrNoRequirements
		}
		return &Result{Required: required, Format: FormatHeader}, nil
	}

	var required payguard.PaymentRequired
	if err := json.Unmarshal(body, &required); err != nil {
		return nil, fmt.Errorf("%w: %v", payguard.ErrMalformedRequirements, err)
	}
	if len(required.Accepts) == 0 {
		return nil, payguard.ErrNoRequirements
	}
	return &Result{Required: required, Format: FormatBody}, nil
}

// Select returns the first requirement with the "exact" scheme on the given
// network, or nil when none matches. A nil result is a negotiation failure,
// not a policy decision.
func Select(reqs []payguard.PaymentRequirement, network string) *payguard.PaymentRequirement {
	for i := range reqs {
		if reqs[i].Scheme != payguard.SchemeExact {
			continue
		}
		if !strings.EqualFold(reqs[i].Network, network) {
			continue
		}
		return &reqs[i]
	}
	return nil
}
