package inbound

import (
	"context"

	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/split"
)

// PaymentHandler handles one-time payment outcomes. A succeeded payment may
// create or adopt a donation; a failed payment only ever updates one.
type PaymentHandler struct {
	deps Dependencies
}

func (*PaymentHandler) Kinds() []core.EventKind {
	return []core.EventKind{core.EventPaymentIntentSucceeded, core.EventPaymentIntentPaymentFailed}
}

func (h *PaymentHandler) Handle(ctx context.Context, event core.ExternalEvent) (core.HandleResult, error) {
	var payment core.PaymentIntent
	if err := event.Decode(&payment); err != nil {
		return core.HandleResult{}, err
	}
	if err := payment.Validate(); err != nil {
		return core.HandleResult{}, err
	}
	if event.Kind == core.EventPaymentIntentPaymentFailed {
		return h.failed(ctx, payment)
	}
	return h.succeeded(ctx, event, payment)
}

func (h *PaymentHandler) succeeded(ctx context.Context, event core.ExternalEvent, payment core.PaymentIntent) (core.HandleResult, error) {
	if payment.Invoice != "" {
		return skipped("recorded by invoice.paid", map[string]any{"invoice_id": payment.Invoice})
	}
	organizationID := payment.Metadata.Get(core.MetaOrganizationID)
	if organizationID == "" {
		return core.HandleResult{}, missingCorrelation(event, core.MetaOrganizationID)
	}

	check, err := h.deps.Guard.PaymentSettled(ctx, payment.ID)
	if err != nil {
		return core.HandleResult{}, err
	}
	if check.Duplicate {
		return duplicate(check.Fields())
	}

	currency, _ := core.NormalizeCurrency(payment.Currency)
	gross := payment.GrossCents()
	fee := payment.PlatformFeeCents()
	source := event.Account
	if source == "" && payment.TransferData != nil {
		source = payment.TransferData.Destination
	}

	return settle(ctx, h.deps, settlement{
		event: event,
		check: check,
		donation: core.Donation{
			OrganizationID:    organizationID,
			CampaignID:        payment.Metadata.Get(core.MetaCampaignID),
			EndowmentFundID:   payment.Metadata.Get(core.MetaEndowmentFundID),
			FundRequestID:     payment.Metadata.Get(core.MetaFundRequestID),
			UserID:            payment.Metadata.Get(core.MetaUserID),
			AmountCents:       gross,
			Currency:          currency,
			PlatformFeeCents:  fee,
			ExternalPaymentID: payment.ID,
			ExternalChargeID:  payment.ChargeID(),
			DonorEmail:        firstNonEmpty(payment.Metadata.Get(core.MetaDonorEmail), payment.ReceiptEmail),
			DonorName:         payment.Metadata.Get(core.MetaDonorName),
		},
		split: split.Input{
			PaymentID:        payment.ID,
			OrganizationID:   organizationID,
			SourceAccountID:  source,
			Currency:         currency,
			GrossCents:       gross,
			PlatformFeeCents: fee,
			Metadata:         payment.Metadata,
		},
		receiptURL: payment.ReceiptURL(),
	})
}

func (h *PaymentHandler) failed(ctx context.Context, payment core.PaymentIntent) (core.HandleResult, error) {
	changed, err := h.deps.Ledger.MarkDonationFailed(ctx, payment.ID)
	if err != nil {
		return core.HandleResult{}, err
	}
	metadata := map[string]any{"payment_id": payment.ID, "donation_updated": changed}
	if payment.LastPaymentError != nil {
		metadata["failure_code"] = payment.LastPaymentError.Code
	}
	if !changed {
		return skipped("no pending donation for payment", metadata)
	}
	return core.HandleResult{Outcome: core.OutcomeProcessed, Metadata: metadata}, nil
}
