// Package validation holds fail-fast input checks: chain addresses, atomic
// amounts, and the resource-URL safety rules applied before any network I/O.
package validation

import (
	"fmt"
	"math/big"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// evmAddressRegex matches Ethereum-style addresses (0x followed by 40 hex chars).
var evmAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// blockedHostSuffixes are internal-name suffixes a paid request may never target.
var blockedHostSuffixes = []string{".local", ".internal", ".localhost"}

// ValidateAmount validates that an amount string is a valid positive integer
// in atomic units.
func ValidateAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("amount cannot be empty")
	}

	amt, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return fmt.Errorf("invalid amount format: %s", amount)
	}

	if amt.Sign() <= 0 {
		return fmt.Errorf("amount must be greater than 0, got: %s", amount)
	}

	return nil
}

// ValidateAddress validates an EVM address.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if !evmAddressRegex.MatchString(address) {
		return fmt.Errorf("invalid EVM address format: %s (expected 0x followed by 40 hex characters)", address)
	}
	return nil
}

// ValidateResourceURL checks that a URL is safe to pay for. Only http and
// https are allowed, and the host may not be a loopback, link-local, or
// private-range address, nor an internal hostname. Violations are reported
// before any request is issued.
func ValidateResourceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("URL validation failed: %v", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL validation failed: scheme %q is not allowed", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("URL validation failed: missing host")
	}

	lower := strings.ToLower(host)
	if lower == "localhost" {
		return fmt.Errorf("URL validation failed: host %q is not allowed", host)
	}
	for _, suffix := range blockedHostSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return fmt.Errorf("URL validation failed: host %q is not allowed", host)
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsPrivate() || ip.IsUnspecified() {
			return fmt.Errorf("URL validation failed: address %q is not routable for payments", host)
		}
	}

	return nil
}
