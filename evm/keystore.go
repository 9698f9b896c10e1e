package evm

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/agentpay/payguard"
)

// DeriveKey derives a custodial private key from a BIP-39 mnemonic at
// BIP-44 path m/44'/60'/0'/0/{index}. Deployments that fund wallets from a
// single treasury phrase assign one index per account.
func DeriveKey(mnemonic string, index uint32) (*ecdsa.PrivateKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, payguard.ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")

	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payguard.ErrInvalidMnemonic, err)
	}

	// m/44'/60'/0'/0/{index}
	path := []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + 60,
		bip32.FirstHardenedChild + 0,
		0,
		index,
	}

	key := masterKey
	for _, segment := range path {
		key, err = key.NewChildKey(segment)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", payguard.ErrInvalidMnemonic, err)
		}
	}

	privateKey, err := crypto.ToECDSA(key.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payguard.ErrInvalidKey, err)
	}

	return privateKey, nil
}
