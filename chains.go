package payguard

import (
	"math/big"
	"strings"
)

// ChainConfig contains chain-specific parameters for USDC payments:
// the chain ID for EIP-712 domain separation, the token contract, and the
// EIP-3009 domain name/version published by that deployment of USDC.
type ChainConfig struct {
	// NetworkID is the x402 protocol network identifier (e.g., "base").
	NetworkID string

	// ChainID is the EVM chain ID used in the EIP-712 signing domain.
	ChainID int64

	// USDCAddress is the official Circle USDC contract address.
	USDCAddress string

	// Decimals is the number of decimal places for USDC (always 6).
	Decimals int

	// EIP3009Name is the EIP-712 domain parameter "name".
	EIP3009Name string

	// EIP3009Version is the EIP-712 domain parameter "version".
	EIP3009Version string
}

// Supported EVM chain configurations. USDC addresses and EIP-3009
// parameters verified against on-chain contract reads.
var (
	EthereumMainnet = ChainConfig{
		NetworkID:      "ethereum",
		ChainID:        1,
		USDCAddress:    "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	}

	Sepolia = ChainConfig{
		NetworkID:      "sepolia",
		ChainID:        11155111,
		USDCAddress:    "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
		Decimals:       6,
		EIP3009Name:    "USDC",
		EIP3009Version: "2",
	}

	BaseMainnet = ChainConfig{
		NetworkID:      "base",
		ChainID:        8453,
		USDCAddress:    "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	}

	BaseSepolia = ChainConfig{
		NetworkID:      "base-sepolia",
		ChainID:        84532,
		USDCAddress:    "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		Decimals:       6,
		EIP3009Name:    "USDC",
		EIP3009Version: "2",
	}

	PolygonMainnet = ChainConfig{
		NetworkID:      "polygon",
		ChainID:        137,
		USDCAddress:    "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	}

	PolygonAmoy = ChainConfig{
		NetworkID:      "polygon-amoy",
		ChainID:        80002,
		USDCAddress:    "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582",
		Decimals:       6,
		EIP3009Name:    "USDC",
		EIP3009Version: "2",
	}

	AvalancheMainnet = ChainConfig{
		NetworkID:      "avalanche",
		ChainID:        43114,
		USDCAddress:    "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	}

	AvalancheFuji = ChainConfig{
		NetworkID:      "avalanche-fuji",
		ChainID:        43113,
		USDCAddress:    "0x5425890298aed601595a70AB815c96711a31Bc65",
		Decimals:       6,
		EIP3009Name:    "USDC",
		EIP3009Version: "2",
	}
)

var chains = map[string]ChainConfig{
	EthereumMainnet.NetworkID:  EthereumMainnet,
	Sepolia.NetworkID:          Sepolia,
	BaseMainnet.NetworkID:      BaseMainnet,
	BaseSepolia.NetworkID:      BaseSepolia,
	PolygonMainnet.NetworkID:   PolygonMainnet,
	PolygonAmoy.NetworkID:      PolygonAmoy,
	AvalancheMainnet.NetworkID: AvalancheMainnet,
	AvalancheFuji.NetworkID:    AvalancheFuji,
}

// ChainByNetwork returns the chain configuration for a network identifier.
func ChainByNetwork(networkID string) (ChainConfig, error) {
	cfg, ok := chains[strings.ToLower(networkID)]
	if !ok {
		return ChainConfig{}, ErrUnsupportedNetwork
	}
	return cfg, nil
}

// ChainIDBig returns the chain ID as a *big.Int for signing APIs.
func (c ChainConfig) ChainIDBig() *big.Int {
	return big.NewInt(c.ChainID)
}

// DomainParams resolves the EIP-712 domain name and version for a
// requirement. The server-advertised values in Extra win over the chain
// defaults, since the token deployment is authoritative.
func (c ChainConfig) DomainParams(req *PaymentRequirement) (name, version string) {
	name, version = c.EIP3009Name, c.EIP3009Version
	if req == nil || req.Extra == nil {
		return name, version
	}
	if n, ok := req.Extra["name"].(string); ok && n != "" {
		name = n
	}
	if v, ok := req.Extra["version"].(string); ok && v != "" {
		version = v
	}
	return name, version
}
