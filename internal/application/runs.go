package application

import (
	"context"
	"strings"

	"walletscope/internal/domain"
)

// RunStore persists finished reports.
type RunStore interface {
	ReportSink
	LatestRun(ctx context.Context, address string) (domain.Report, bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// RunKey normalizes an address for run lookups. Hex addresses are matched
// case-insensitively; base58 keys are case-sensitive and kept as is.
func RunKey(address string) string {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X") {
		return strings.ToLower(address)
	}
	return address
}
