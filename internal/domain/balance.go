package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// UnknownSymbol is shown for tokens whose symbol could not be read.
const UnknownSymbol = "UNKNOWN"

// TokenBalance is a raw token balance read from chain state.
type TokenBalance struct {
	Contract string
	Symbol   string
	Decimals int
	Raw      *big.Int
}

// Holding represents a non-zero balance of one asset for the analyzed address.
type Holding struct {
	Symbol   string          `json:"symbol"`
	Contract string          `json:"contract,omitempty"`
	Decimals int             `json:"decimals"`
	Balance  decimal.Decimal `json:"balance"`
	Chain    string          `json:"chain"`
	USD      *float64        `json:"usd,omitempty"`
}

// Native reports whether the holding is the chain's native asset.
func (h Holding) Native() bool {
	return h.Contract == ""
}

// ScaleAmount converts a raw integer amount into display units rounded to
// eight decimal places.
func ScaleAmount(raw *big.Int, decimals int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).Round(8)
}
