// Package address canonicalizes EVM and Solana addresses.
package address

import (
	"fmt"
	"strings"

	"walletscope/internal/application"
	"walletscope/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

// EVM canonicalizes hex addresses to their EIP-55 checksummed form.
type EVM struct{}

func (EVM) Canonicalize(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	if !common.IsHexAddress(trimmed) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidAddress, address)
	}
	return common.HexToAddress(trimmed).Hex(), nil
}

// Solana canonicalizes base58 public keys.
type Solana struct{}

func (Solana) Canonicalize(address string) (string, error) {
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(address))
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidAddress, address)
	}
	return key.String(), nil
}

// ForChain returns the canonicalizer matching the chain's address format.
func ForChain(chain domain.Chain) application.Canonicalizer {
	if chain.Kind == domain.ChainKindSolana {
		return Solana{}
	}
	return EVM{}
}
