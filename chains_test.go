package payguard

import (
	"errors"
	"testing"
)

func TestChainByNetwork(t *testing.T) {
	cfg, err := ChainByNetwork("base-sepolia")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ChainID != 84532 {
		t.Errorf("expected chain ID 84532, got %d", cfg.ChainID)
	}
	if cfg.Decimals != 6 {
		t.Errorf("expected 6 decimals, got %d", cfg.Decimals)
	}

	// Lookup is case-insensitive
	if _, err := ChainByNetwork("Base"); err != nil {
		t.Errorf("expected case-insensitive lookup, got error: %v", err)
	}

	_, err = ChainByNetwork("dogecoin")
	if !errors.Is(err, ErrUnsupportedNetwork) {
		t.Errorf("expected ErrUnsupportedNetwork, got %v", err)
	}
}

func TestChainRegistryComplete(t *testing.T) {
	for _, network := range []string{
		"ethereum", "sepolia", "base", "base-sepolia",
		"polygon", "polygon-amoy", "avalanche", "avalanche-fuji",
	} {
		cfg, err := ChainByNetwork(network)
		if err != nil {
			t.Errorf("network %s missing from registry: %v", network, err)
			continue
		}
		if cfg.USDCAddress == "" || cfg.EIP3009Name == "" || cfg.EIP3009Version == "" {
			t.Errorf("network %s has incomplete config: %+v", network, cfg)
		}
	}
}

func TestDomainParams(t *testing.T) {
	cfg := BaseSepolia

	// Defaults from the chain config
	name, version := cfg.DomainParams(nil)
	if name != "USDC" || version != "2" {
		t.Errorf("expected chain defaults, got %s/%s", name, version)
	}

	// Server-advertised values win
	req := &PaymentRequirement{
		Extra: map[string]interface{}{"name": "Custom Token", "version": "1"},
	}
	name, version = cfg.DomainParams(req)
	if name != "Custom Token" || version != "1" {
		t.Errorf("expected Extra override, got %s/%s", name, version)
	}

	// Empty Extra values fall back to defaults
	req = &PaymentRequirement{Extra: map[string]interface{}{"name": ""}}
	name, _ = cfg.DomainParams(req)
	if name != "USDC" {
		t.Errorf("expected fallback on empty name, got %s", name)
	}
}
