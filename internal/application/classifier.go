package application

import (
	"context"
	"strings"
	"time"

	"walletscope/internal/domain"
)

// DisplayZone is the fixed UTC+9 zone used for action timestamps.
var DisplayZone = time.FixedZone("JST", 9*60*60)

// MethodResolver turns calldata into readable method text.
type MethodResolver interface {
	Resolve(ctx context.Context, input string) (string, bool)
}

type kindRule struct {
	kind    domain.ActionKind
	needles []string
}

// Order matters: the first matching rule wins.
var kindRules = []kindRule{
	{domain.ActionApprove, []string{"approve("}},
	{domain.ActionSwap, []string{"swap"}},
	{domain.ActionDeposit, []string{"deposit", "supply", "addliquidity"}},
	{domain.ActionWithdraw, []string{"withdraw", "removeliquidity"}},
	{domain.ActionBorrow, []string{"borrow("}},
	{domain.ActionRepay, []string{"repay("}},
}

// GuessAction infers the action kind from resolved method text and the
// native value moved by the transaction.
func GuessAction(method string, hasValue bool) domain.ActionKind {
	if method == "" {
		if hasValue {
			return domain.ActionNativeTransfer
		}
		return domain.ActionUnknown
	}
	low := strings.ToLower(method)
	for _, rule := range kindRules {
		for _, needle := range rule.needles {
			if strings.Contains(low, needle) {
				return rule.kind
			}
		}
	}
	return domain.ActionContractCall
}

// FormatTimestamp renders unix seconds as RFC 3339 in DisplayZone.
func FormatTimestamp(unix int64) string {
	return time.Unix(unix, 0).In(DisplayZone).Format(time.RFC3339)
}

// Classifier turns native transactions into classified actions.
type Classifier struct {
	methods   MethodResolver
	protocols *ProtocolRegistry
}

func NewClassifier(methods MethodResolver, protocols *ProtocolRegistry) *Classifier {
	if protocols == nil {
		protocols = NewProtocolRegistry()
	}
	return &Classifier{methods: methods, protocols: protocols}
}

// Classify builds the action for one transaction. events are the token
// transfers sharing the transaction's hash.
func (c *Classifier) Classify(ctx context.Context, chainID, holder string, tx domain.NativeTransaction, events []domain.TokenTransferEvent) domain.ClassifiedAction {
	method := tx.Method
	if method == "" && c.methods != nil {
		if text, ok := c.methods.Resolve(ctx, tx.Input); ok {
			method = text
		}
	}
	protocol, _ := c.protocols.Lookup(chainID, tx.To)
	incoming, outgoing := CountDirections(events, holder)

	return domain.ClassifiedAction{
		Timestamp: FormatTimestamp(tx.Timestamp),
		Hash:      tx.Hash,
		From:      tx.From,
		To:        tx.To,
		Protocol:  protocol,
		Kind:      GuessAction(method, tx.HasValue()),
		Method:    method,
		TokenIn:   incoming,
		TokenOut:  outgoing,
	}
}

// ClassifyAll classifies transactions in input order. Later duplicates of a
// hash are dropped.
func (c *Classifier) ClassifyAll(ctx context.Context, chainID, holder string, txs []domain.NativeTransaction, index TransferIndex) []domain.ClassifiedAction {
	actions := make([]domain.ClassifiedAction, 0, len(txs))
	seen := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		key := strings.ToLower(tx.Hash)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		actions = append(actions, c.Classify(ctx, chainID, holder, tx, index.ForHash(tx.Hash)))
	}
	return actions
}
