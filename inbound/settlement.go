package inbound

import (
	"context"

	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/idempotency"
	"github.com/Chriskfigures777/give-app-sub003/split"
)

// settlement is a confirmed payment ready to be written: one-time payments
// and paid invoices share the same pipeline.
type settlement struct {
	event    core.ExternalEvent
	check    idempotency.Check
	donation core.Donation
	split    split.Input

	// receiptURL is the processor's receipt link when the payload carries it.
	receiptURL string
}

// settle runs split, donation, aggregates, endowment, notifications in that
// order. Every step before the aggregate claim is idempotent on its own, so a
// failure anywhere leaves state a redelivery can resume from. A split that
// cannot be planned skips only the split; the donation is still recorded.
func settle(ctx context.Context, deps Dependencies, s settlement) (core.HandleResult, error) {
	metadata := mergeFields(nil, s.check.Fields())

	splitResult, err := deps.Splits.Execute(ctx, s.split)
	switch {
	case err == nil:
	case core.IsValidation(err):
		deps.Observer.Warn(ctx, "split skipped", core.EventFields(s.event, map[string]any{
			"payment_id": s.split.PaymentID,
			"error":      err.Error(),
		}))
		metadata["split_error"] = err.Error()
	default:
		return core.HandleResult{Metadata: metadata}, err
	}
	if splitResult.Mode != core.SplitModeNone {
		metadata["split_mode"] = string(splitResult.Mode)
		metadata["split_legs"] = len(splitResult.Legs)
		metadata["split_failed"] = splitResult.Failed
		metadata["split_already_done"] = splitResult.AlreadyDone
	}

	donation, created, err := deps.Ledger.RecordDonation(ctx, s.donation, s.check.Donation)
	if err != nil {
		return core.HandleResult{Metadata: metadata}, err
	}
	metadata["donation_id"] = donation.ID
	metadata["donation_created"] = created

	aggregates, err := deps.Ledger.ApplyAggregates(ctx, donation)
	if err != nil {
		deps.Observer.Error(ctx, "donation aggregates not applied", core.EventFields(s.event, map[string]any{
			"donation_id": donation.ID,
			"error":       err.Error(),
		}))
		metadata["aggregates_error"] = err.Error()
		return core.HandleResult{Outcome: core.OutcomeProcessed, Metadata: metadata}, nil
	}
	if !aggregates.Claimed {
		// Another delivery reconciled this donation first.
		return duplicate(metadata)
	}
	metadata["campaign_updated"] = aggregates.CampaignUpdated
	metadata["fund_request_updated"] = aggregates.FundRequestUpdated
	metadata["fund_request_fulfilled"] = aggregates.BecameFulfilled

	metadata = mergeFields(metadata, CompleteDonation(ctx, deps, donation, s.receiptURL))
	return core.HandleResult{Outcome: core.OutcomeProcessed, Metadata: metadata}, nil
}

// CompleteDonation runs what follows a won aggregate claim: the endowment
// share of the fee, then the donor and owner notifications. Callers must only
// invoke it after ApplyAggregates reported Claimed, so it runs once per
// donation whether the claim came from an event or an operator repair.
func CompleteDonation(ctx context.Context, deps Dependencies, donation core.Donation, receiptURL string) map[string]any {
	metadata := map[string]any{}
	if deps.Splits != nil {
		allocation := deps.Splits.AllocateEndowment(ctx, donation.ExternalPaymentID, donation.EndowmentFundID, donation.PlatformFeeCents, donation.Currency)
		if allocation.FundID != "" {
			metadata["endowment_amount_cents"] = allocation.AmountCents
			if allocation.Err != nil {
				metadata["endowment_error"] = allocation.Err.Error()
			}
		}
	}

	notifier := deps.notifier()
	notifier.DonationReceived(ctx, donation)
	if receiptURL != "" && donation.ExternalChargeID != "" {
		notifier.ReceiptAttached(ctx, donation, receiptURL)
	}
	return metadata
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
