package domain

import "math/big"

// NativeTransaction is a transaction as reported by a chain's explorer feed.
type NativeTransaction struct {
	Hash      string
	Timestamp int64
	From      string
	To        string
	Value     *big.Int
	Input     string
	// Method carries intent text already decoded by the source. When set the
	// selector in Input is not resolved.
	Method string
}

// HasValue reports whether the transaction moved a positive native amount.
func (t NativeTransaction) HasValue() bool {
	return t.Value != nil && t.Value.Sign() > 0
}

// TokenTransferEvent is a single fungible token movement inside a transaction.
type TokenTransferEvent struct {
	Hash     string
	Contract string
	From     string
	To       string
	Symbol   string
	Value    string
	Decimals int
}

// Activity bundles the raw feeds fetched for one address on one chain.
type Activity struct {
	Transactions []NativeTransaction
	Transfers    []TokenTransferEvent
}

func (a Activity) Empty() bool {
	return len(a.Transactions) == 0 && len(a.Transfers) == 0
}
