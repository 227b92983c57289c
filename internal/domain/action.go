package domain

// ActionKind is the inferred intent of a transaction.
type ActionKind string

const (
	ActionApprove        ActionKind = "approve"
	ActionSwap           ActionKind = "swap"
	ActionDeposit        ActionKind = "deposit"
	ActionWithdraw       ActionKind = "withdraw"
	ActionBorrow         ActionKind = "borrow"
	ActionRepay          ActionKind = "repay"
	ActionContractCall   ActionKind = "contract_call"
	ActionNativeTransfer ActionKind = "eth_transfer"
	ActionUnknown        ActionKind = "unknown"
)

// ClassifiedAction is one transaction after reconciliation and classification.
// Empty Protocol and Method mean no attribution and no resolved method.
type ClassifiedAction struct {
	Timestamp string     `json:"ts"`
	Hash      string     `json:"hash"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Protocol  string     `json:"protocol,omitempty"`
	Kind      ActionKind `json:"type"`
	Method    string     `json:"method,omitempty"`
	TokenIn   int        `json:"erc20_in_cnt"`
	TokenOut  int        `json:"erc20_out_cnt"`
}

// FeatureSummary holds aggregate counters derived from a list of actions.
type FeatureSummary struct {
	UnknownCalls    int `json:"unknown_calls"`
	Approvals       int `json:"approvals"`
	Swaps           int `json:"swaps"`
	UniqueProtocols int `json:"unique_protocols"`
}
