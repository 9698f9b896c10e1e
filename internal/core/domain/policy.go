package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Policy governs how much an account may spend and where. Amounts are in
// decimal currency units (USDC). The deny-list, when non-empty, is checked
// before the allow-list; both are URL-prefix patterns and independently
// optional. An account with no stored policy is denied outright — there is
// no implicit "unlimited" default.
type Policy struct {
	AccountID uuid.UUID `json:"account_id"`

	// PerRequestLimit is the auto-sign ceiling: amounts at or below it are
	// signed by the hot wallet without human review.
	PerRequestLimit float64 `json:"per_request_limit"`

	// HourlyLimit caps spend over a sliding 60-minute window.
	HourlyLimit float64 `json:"hourly_limit"`

	// DailyLimit caps spend over a sliding 24-hour window.
	DailyLimit float64 `json:"daily_limit"`

	// AbsoluteCap is the maximum amount eligible for any signing path,
	// deferred approval included.
	AbsoluteCap float64 `json:"absolute_cap"`

	AllowedEndpoints []string  `json:"allowed_endpoints"`
	BlockedEndpoints []string  `json:"blocked_endpoints"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultPolicy returns the documented defaults applied when an account's
// policy is first created.
func DefaultPolicy(accountID uuid.UUID) *Policy {
	return &Policy{
		AccountID:       accountID,
		PerRequestLimit: 0.10,
		HourlyLimit:     1.00,
		DailyLimit:      10.00,
		AbsoluteCap:     5.00,
		UpdatedAt:       time.Now().UTC(),
	}
}

// MatchesBlocked reports whether the endpoint matches any deny-list prefix.
func (p *Policy) MatchesBlocked(endpoint string) bool {
	return matchesAnyPrefix(endpoint, p.BlockedEndpoints)
}

// MatchesAllowed reports whether the endpoint matches any allow-list prefix.
func (p *Policy) MatchesAllowed(endpoint string) bool {
	return matchesAnyPrefix(endpoint, p.AllowedEndpoints)
}

func matchesAnyPrefix(endpoint string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(endpoint, prefix) {
			return true
		}
	}
	return false
}
