package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"walletscope/internal/domain"
)

const (
	topHoldings   = 10
	recentActions = 3
)

// WriteConsole prints the human-readable run summary.
func WriteConsole(w io.Writer, report domain.Report) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "WalletScope multi-chain report")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Address:   %s\n", report.Profile.Address)

	ids := make([]string, 0, len(report.Chains))
	for _, chain := range report.Chains {
		ids = append(ids, strings.ToUpper(chain.Chain))
	}
	fmt.Fprintf(w, "Chains:    %s\n", strings.Join(ids, ", "))
	if report.TotalNetWorthUSD > 0 {
		fmt.Fprintf(w, "Net worth: $%.2f\n", report.TotalNetWorthUSD)
	} else {
		fmt.Fprintln(w, "Net worth: unknown")
	}

	holdings := SortedHoldings(report)
	if len(holdings) > topHoldings {
		holdings = holdings[:topHoldings]
	}
	fmt.Fprintf(w, "\nTop holdings (%d):\n", len(holdings))
	for i, holding := range holdings {
		value := "price unknown"
		if holding.USD != nil {
			value = fmt.Sprintf("$%.2f", *holding.USD)
		}
		fmt.Fprintf(w, "  %d. [%s] %s: %s (~%s)\n", i+1, strings.ToUpper(holding.Chain), holding.Symbol, holding.Balance.String(), value)
	}

	total := 0
	for _, chain := range report.Chains {
		total += len(chain.Actions)
	}
	fmt.Fprintf(w, "\nActions: %d\n", total)
	for _, chain := range report.Chains {
		if len(chain.Actions) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n  %s latest %d:\n", strings.ToUpper(chain.Chain), min(recentActions, len(chain.Actions)))
		for i, action := range chain.Actions {
			if i == recentActions {
				break
			}
			fmt.Fprintf(w, "    %d. %s | %s | %s | %s\n", i+1, shortTime(action.Timestamp), action.Kind, orDefault(action.Protocol, "-"), shortAddress(action.To))
		}
	}

	if report.Analysis != "" {
		fmt.Fprintln(w, "\nAnalysis:")
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintln(w, report.Analysis)
	}
}

// SortedHoldings returns every holding ordered by USD value, highest first.
// Unpriced holdings sort last and keep their relative order.
func SortedHoldings(report domain.Report) []domain.Holding {
	holdings := report.Holdings()
	sort.SliceStable(holdings, func(i, j int) bool {
		return usd(holdings[i]) > usd(holdings[j])
	})
	return holdings
}

func usd(holding domain.Holding) float64 {
	if holding.USD == nil {
		return 0
	}
	return *holding.USD
}

func shortTime(ts string) string {
	if len(ts) < 16 {
		return orDefault(ts, "unknown time")
	}
	return strings.Replace(ts[:16], "T", " ", 1)
}

func shortAddress(address string) string {
	if address == "" {
		return "unknown"
	}
	if len(address) <= 10 {
		return address
	}
	return address[:10] + "..."
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
