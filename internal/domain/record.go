package domain

import (
	"errors"
	"time"
)

// ErrInvalidAddress is returned when an address cannot be canonicalized.
var ErrInvalidAddress = errors.New("invalid address")

// ChainRecord is the normalized per-chain bundle handed to pricing, storage
// and summarization.
type ChainRecord struct {
	Chain    string             `json:"chain"`
	Holdings []Holding          `json:"holdings"`
	Actions  []ClassifiedAction `json:"actions"`
	Features FeatureSummary     `json:"features"`
}

// Empty reports whether the record carries neither holdings nor actions.
func (r ChainRecord) Empty() bool {
	return len(r.Holdings) == 0 && len(r.Actions) == 0
}

// Profile identifies the analyzed address.
type Profile struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
}

// Report is the result of one multi-chain analysis run.
type Report struct {
	RunID            string        `json:"run_id"`
	Profile          Profile       `json:"profile"`
	Chains           []ChainRecord `json:"chains"`
	TotalNetWorthUSD float64       `json:"total_net_worth_usd"`
	Analysis         string        `json:"ai_analysis,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Holdings returns every holding across chains in chain order.
func (r Report) Holdings() []Holding {
	var out []Holding
	for _, chain := range r.Chains {
		out = append(out, chain.Holdings...)
	}
	return out
}
