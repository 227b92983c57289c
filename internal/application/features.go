package application

import "walletscope/internal/domain"

// ComputeFeatures reduces actions to summary counters.
func ComputeFeatures(actions []domain.ClassifiedAction) domain.FeatureSummary {
	var summary domain.FeatureSummary
	protocols := make(map[string]struct{})
	for _, action := range actions {
		switch action.Kind {
		case domain.ActionUnknown, domain.ActionContractCall:
			if action.Method == "" {
				summary.UnknownCalls++
			}
		case domain.ActionApprove:
			summary.Approvals++
		case domain.ActionSwap:
			summary.Swaps++
		}
		if action.Protocol != "" {
			protocols[action.Protocol] = struct{}{}
		}
	}
	summary.UniqueProtocols = len(protocols)
	return summary
}
