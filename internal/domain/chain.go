package domain

import (
	"errors"
	"strings"
)

// ChainKind selects the address format and fetch path for a chain.
type ChainKind string

const (
	ChainKindEVM    ChainKind = "evm"
	ChainKindSolana ChainKind = "solana"
)

// Chain describes one analyzable network.
type Chain struct {
	ID              string
	Kind            ChainKind
	NativeSymbol    string
	NativeDecimals  int
	ExplorerChainID string
	PricePrefix     string
	NativePriceKey  string
}

var (
	Ethereum = Chain{
		ID:              "eth",
		Kind:            ChainKindEVM,
		NativeSymbol:    "ETH",
		NativeDecimals:  18,
		ExplorerChainID: "1",
		PricePrefix:     "ethereum",
		NativePriceKey:  "coingecko:ethereum",
	}
	BSC = Chain{
		ID:              "bsc",
		Kind:            ChainKindEVM,
		NativeSymbol:    "BNB",
		NativeDecimals:  18,
		ExplorerChainID: "56",
		PricePrefix:     "bsc",
		NativePriceKey:  "coingecko:binancecoin",
	}
	Solana = Chain{
		ID:             "sol",
		Kind:           ChainKindSolana,
		NativeSymbol:   "SOL",
		NativeDecimals: 9,
		PricePrefix:    "solana",
		NativePriceKey: "coingecko:solana",
	}
)

// Chains lists the supported chains in analysis order.
var Chains = []Chain{Ethereum, BSC, Solana}

// ErrUnknownChain is returned by ChainByID for unsupported identifiers.
var ErrUnknownChain = errors.New("unknown chain")

func ChainByID(id string) (Chain, error) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	for _, chain := range Chains {
		if chain.ID == normalized {
			return chain, nil
		}
	}
	return Chain{}, ErrUnknownChain
}
