package application

import (
	"errors"
	"fmt"
	"sync"

	"walletscope/internal/domain"
)

// Canonicalizer normalizes an address to the single form used for
// comparison. Invalid input yields domain.ErrInvalidAddress.
type Canonicalizer interface {
	Canonicalize(address string) (string, error)
}

// DefaultProtocols holds the built-in contract attributions per chain.
var DefaultProtocols = map[string]map[string]string{
	domain.Ethereum.ID: {
		"0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D": "UniswapV2Router02",
		"0xE592427A0AEce92De3Edee1F18E0157C05861564": "UniswapV3SwapRouter",
		"0xEf1c6E67703c7BD7107eed8303Fbe6EC2554BF6B": "UniswapUniversalRouter",
		"0x3d9819210A31b4961b30EF54bE2aeD79B9c9Cd3B": "CompoundV2Comptroller",
	},
	domain.BSC.ID: {
		"0x10ED43C718714eb63d5aA57B78B54704E256024E": "PancakeSwapV2Router",
		"0x1b81D678ffb9C0263b24A97847620C99d213eB14": "PancakeSwapV3Router",
		"0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6": "BiswapRouter",
		"0x05fF2B0DB69458A0750badebc4f9e13aDd608C7F": "PancakeSwapMasterChef",
	},
	domain.Solana.ID: {
		"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4": "Jupiter",
		"whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc": "OrcaWhirlpool",
		"675kPX9MHTjS2zt1qfr1NYHiPAPGHzHdTUAjLBDXhkJ8": "RaydiumAMM",
		"So1endDq2YkqhipRh3WViPa8hdiSpxWy6z3Z6tMCpAE": "Solend",
	},
}

type chainProtocols struct {
	canon Canonicalizer
	names map[string]string
}

// ProtocolRegistry maps canonical contract addresses to protocol names per
// chain. Keys and lookups go through the same canonicalizer.
type ProtocolRegistry struct {
	mu     sync.RWMutex
	chains map[string]*chainProtocols
}

func NewProtocolRegistry() *ProtocolRegistry {
	return &ProtocolRegistry{chains: make(map[string]*chainProtocols)}
}

// Register adds entries for a chain. The first registration for a chain fixes
// its canonicalizer; later calls may pass nil to reuse it.
func (r *ProtocolRegistry) Register(chainID string, canon Canonicalizer, entries map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	protocols, ok := r.chains[chainID]
	if !ok {
		if canon == nil {
			return fmt.Errorf("canonicalizer required for chain %s", chainID)
		}
		protocols = &chainProtocols{canon: canon, names: make(map[string]string)}
		r.chains[chainID] = protocols
	}
	for address, name := range entries {
		canonical, err := protocols.canon.Canonicalize(address)
		if err != nil {
			return fmt.Errorf("protocol %q on %s: %w", name, chainID, err)
		}
		if name == "" {
			return errors.New("protocol name is required")
		}
		protocols.names[canonical] = name
	}
	return nil
}

// Lookup returns the protocol name for an address. Unknown chains, unknown
// addresses and addresses that fail canonicalization yield no attribution.
func (r *ProtocolRegistry) Lookup(chainID, address string) (string, bool) {
	if address == "" {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	protocols, ok := r.chains[chainID]
	if !ok {
		return "", false
	}
	canonical, err := protocols.canon.Canonicalize(address)
	if err != nil {
		return "", false
	}
	name, ok := protocols.names[canonical]
	return name, ok
}

// Canonicalizer returns the canonicalizer registered for a chain.
func (r *ProtocolRegistry) Canonicalizer(chainID string) (Canonicalizer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	protocols, ok := r.chains[chainID]
	if !ok {
		return nil, false
	}
	return protocols.canon, true
}

// Len returns the number of registered entries for a chain.
func (r *ProtocolRegistry) Len(chainID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if protocols, ok := r.chains[chainID]; ok {
		return len(protocols.names)
	}
	return 0
}
