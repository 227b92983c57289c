package application

import (
	"context"
	"log/slog"
	"strings"

	"walletscope/internal/domain"

	"github.com/shopspring/decimal"
)

// PriceSource returns current USD prices keyed by price key. Keys without a
// known price are omitted from the result.
type PriceSource interface {
	Prices(ctx context.Context, keys []string) (map[string]float64, error)
}

// PriceKey returns the lookup key for a holding on a chain.
func PriceKey(chain domain.Chain, holding domain.Holding) string {
	if holding.Native() {
		return chain.NativePriceKey
	}
	contract := holding.Contract
	if chain.Kind == domain.ChainKindEVM {
		contract = strings.ToLower(contract)
	}
	return chain.PricePrefix + ":" + contract
}

// ApplyPrices sets the USD value of every priced holding in place and returns
// the total. A failed price lookup leaves holdings unpriced.
func ApplyPrices(ctx context.Context, source PriceSource, records []domain.ChainRecord) float64 {
	if source == nil {
		return 0
	}
	var keys []string
	seen := make(map[string]struct{})
	for _, record := range records {
		chain, err := domain.ChainByID(record.Chain)
		if err != nil {
			continue
		}
		for _, holding := range record.Holdings {
			key := PriceKey(chain, holding)
			if _, ok := seen[key]; ok || key == "" {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return 0
	}

	prices, err := source.Prices(ctx, keys)
	if err != nil {
		slog.Warn("price lookup failed", "keys", len(keys), "err", err)
	}

	total := decimal.Zero
	for i := range records {
		chain, err := domain.ChainByID(records[i].Chain)
		if err != nil {
			continue
		}
		for j := range records[i].Holdings {
			holding := &records[i].Holdings[j]
			price, ok := prices[PriceKey(chain, *holding)]
			if !ok {
				holding.USD = nil
				continue
			}
			value := holding.Balance.Mul(decimal.NewFromFloat(price))
			usd := value.Round(2).InexactFloat64()
			holding.USD = &usd
			total = total.Add(value)
		}
	}
	return total.Round(2).InexactFloat64()
}
