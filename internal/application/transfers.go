package application

import (
	"strings"

	"walletscope/internal/domain"
)

// TransferIndex groups token transfers by lowercase transaction hash.
type TransferIndex map[string][]domain.TokenTransferEvent

func IndexTransfers(events []domain.TokenTransferEvent) TransferIndex {
	index := make(TransferIndex, len(events))
	for _, event := range events {
		key := strings.ToLower(event.Hash)
		index[key] = append(index[key], event)
	}
	return index
}

func (idx TransferIndex) ForHash(hash string) []domain.TokenTransferEvent {
	return idx[strings.ToLower(hash)]
}

// CountDirections returns how many events credit and debit the holder. A
// self-transfer counts in both directions.
func CountDirections(events []domain.TokenTransferEvent, holder string) (incoming, outgoing int) {
	for _, event := range events {
		if sameAddress(event.To, holder) {
			incoming++
		}
		if sameAddress(event.From, holder) {
			outgoing++
		}
	}
	return incoming, outgoing
}

// DiscoverTokenContracts returns up to limit distinct token contracts from the
// transfer log in first-seen order, deduplicated by canonical address.
// Contracts that fail canonicalization are skipped.
func DiscoverTokenContracts(events []domain.TokenTransferEvent, canon Canonicalizer, limit int) []string {
	if limit <= 0 {
		return nil
	}
	seen := make(map[string]struct{})
	contracts := make([]string, 0, limit)
	for _, event := range events {
		if event.Contract == "" {
			continue
		}
		canonical := event.Contract
		if canon != nil {
			normalized, err := canon.Canonicalize(event.Contract)
			if err != nil {
				continue
			}
			canonical = normalized
		}
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		contracts = append(contracts, canonical)
		if len(contracts) >= limit {
			break
		}
	}
	return contracts
}

func sameAddress(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
