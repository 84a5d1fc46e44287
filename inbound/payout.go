package inbound

import (
	"context"
	"time"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

type PayoutHandler struct {
	deps Dependencies
}

func (*PayoutHandler) Kinds() []core.EventKind {
	return []core.EventKind{core.EventPayoutPaid}
}

func (h *PayoutHandler) Handle(ctx context.Context, event core.ExternalEvent) (core.HandleResult, error) {
	var payout core.Payout
	if err := event.Decode(&payout); err != nil {
		return core.HandleResult{}, err
	}
	if err := payout.Validate(); err != nil {
		return core.HandleResult{}, err
	}

	check, err := h.deps.Guard.PayoutRecorded(ctx, payout.ID)
	if err != nil {
		return core.HandleResult{}, err
	}
	if check.Duplicate {
		return duplicate(check.Fields())
	}

	organizationID := payout.Metadata.Get(core.MetaOrganizationID)
	if event.Account != "" {
		org, found, err := h.deps.Stores.Organizations.GetByExternalAccountID(ctx, event.Account)
		if err != nil {
			return core.HandleResult{}, core.PersistenceError(err, "inbound: load organization for payout", map[string]any{
				"account_id": event.Account,
			})
		}
		if found {
			organizationID = org.ID
		}
	}
	if organizationID == "" {
		return core.HandleResult{}, missingCorrelation(event, core.MetaOrganizationID)
	}

	currency, _ := core.NormalizeCurrency(payout.Currency)
	record := core.PayoutRecord{
		ExternalPayoutID: payout.ID,
		OrganizationID:   organizationID,
		AccountID:        event.Account,
		AmountCents:      payout.Amount,
		Currency:         currency,
		Status:           payout.Status,
	}
	if payout.ArrivalDate > 0 {
		arrival := time.Unix(payout.ArrivalDate, 0).UTC()
		record.ArrivalDate = &arrival
	}
	stored, created, err := h.deps.Ledger.RecordPayout(ctx, record)
	if err != nil {
		return core.HandleResult{}, err
	}
	metadata := mergeFields(map[string]any{"payout_record_id": stored.ID}, check.Fields())
	if !created {
		return duplicate(metadata)
	}
	h.deps.notifier().PayoutProcessed(ctx, stored)
	return core.HandleResult{Outcome: core.OutcomeProcessed, Metadata: metadata}, nil
}
