package inbound

import (
	"context"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

// AccountHandler recomputes an organization's onboarding state from the full
// connected-account payload on every update.
type AccountHandler struct {
	deps Dependencies
}

func (*AccountHandler) Kinds() []core.EventKind {
	return []core.EventKind{core.EventAccountUpdated}
}

func (h *AccountHandler) Handle(ctx context.Context, event core.ExternalEvent) (core.HandleResult, error) {
	var account core.Account
	if err := event.Decode(&account); err != nil {
		return core.HandleResult{}, err
	}
	if err := account.Validate(); err != nil {
		return core.HandleResult{}, err
	}
	flags := account.Flags()
	org, found, err := h.deps.Ledger.RecomputeOnboarding(ctx, account.ID, flags)
	if err != nil {
		return core.HandleResult{}, err
	}
	if !found {
		return core.HandleResult{}, missingCorrelation(event, "organization for account")
	}
	return core.HandleResult{
		Outcome: core.OutcomeProcessed,
		Metadata: map[string]any{
			"organization_id":      org.ID,
			"account_id":           account.ID,
			"onboarding_completed": org.OnboardingCompleted,
		},
	}, nil
}
