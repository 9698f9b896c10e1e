package ports

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainClient is the fixed-contract blockchain collaborator: ERC-20
// balanceOf reads and transfer submissions. Implemented against a JSON-RPC
// endpoint in production and faked in tests.
type ChainClient interface {
	// BalanceOf reads the ERC-20 token balance of owner.
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)

	// Transfer submits an ERC-20 transfer signed with key and returns the
	// transaction hash.
	Transfer(ctx context.Context, key *ecdsa.PrivateKey, token, to common.Address, amount *big.Int) (string, error)
}
