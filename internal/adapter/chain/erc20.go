// Package chain implements the on-chain client over a JSON-RPC endpoint.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/agentpay/payguard/internal/core/ports"
	"github.com/agentpay/payguard/pkg/apperror"
	"github.com/agentpay/payguard/retry"
)

// ERC-20 function selectors, keccak256 of the canonical signatures.
var (
	balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	transferSelector  = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]
)

// Client reads balances and submits transfers against an EVM chain.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	log     zerolog.Logger
}

var _ ports.ChainClient = (*Client)(nil)

// NewClient dials the RPC endpoint and pins the expected chain id. A
// mismatch between the endpoint's chain and chainID is a configuration
// error and fails fast.
func NewClient(ctx context.Context, rpcURL string, chainID *big.Int, log zerolog.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing rpc endpoint: %w", err)
	}

	remote, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("querying chain id: %w", err)
	}
	if remote.Cmp(chainID) != 0 {
		eth.Close()
		return nil, fmt.Errorf("rpc endpoint serves chain %s, expected %s", remote, chainID)
	}

	log.Info().Str("rpc", rpcURL).Str("chain_id", chainID.String()).Msg("Chain client connected")
	return &Client{eth: eth, chainID: chainID, log: log}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// BalanceOf returns the token balance of owner in atomic units. The read is
// idempotent, so transient RPC failures are retried with backoff.
func (c *Client) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data := make([]byte, 0, 36)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)

	out, err := retry.Do(ctx, retry.DefaultPolicy, retry.Transient, func() ([]byte, error) {
		return c.eth.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	})
	if err != nil {
		return nil, apperror.ErrChainRPC(fmt.Errorf("balanceOf call: %w", err))
	}
	if len(out) < 32 {
		return nil, apperror.ErrChainRPC(fmt.Errorf("balanceOf returned %d bytes", len(out)))
	}
	return new(big.Int).SetBytes(out[:32]), nil
}

// Transfer submits an ERC-20 transfer signed with key and returns the
// transaction hash. It does not wait for inclusion.
func (c *Client) Transfer(ctx context.Context, key *ecdsa.PrivateKey, token, to common.Address, amount *big.Int) (string, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return "", apperror.ErrChainRPC(fmt.Errorf("fetching nonce: %w", err))
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", apperror.ErrChainRPC(fmt.Errorf("fetching gas price: %w", err))
	}

	data := make([]byte, 0, 68)
	data = append(data, transferSelector...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &token,
		Data: data,
	})
	if err != nil {
		return "", apperror.ErrChainRPC(fmt.Errorf("estimating gas: %w", err))
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &token,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return "", fmt.Errorf("signing transfer: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", apperror.ErrChainRPC(fmt.Errorf("broadcasting transfer: %w", err))
	}

	hash := signed.Hash().Hex()
	c.log.Info().
		Str("tx_hash", hash).
		Str("token", token.Hex()).
		Str("to", to.Hex()).
		Str("amount", amount.String()).
		Msg("Transfer broadcast")
	return hash, nil
}
