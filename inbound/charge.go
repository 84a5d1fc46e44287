package inbound

import (
	"context"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

// ChargeHandler links a charge to its donation and sends the processor's
// receipt link to the donor.
type ChargeHandler struct {
	deps Dependencies
}

func (*ChargeHandler) Kinds() []core.EventKind {
	return []core.EventKind{core.EventChargeSucceeded}
}

func (h *ChargeHandler) Handle(ctx context.Context, event core.ExternalEvent) (core.HandleResult, error) {
	var charge core.Charge
	if err := event.Decode(&charge); err != nil {
		return core.HandleResult{}, err
	}
	if err := charge.Validate(); err != nil {
		return core.HandleResult{}, err
	}

	check, err := h.deps.Guard.ChargeAttached(ctx, charge.ID)
	if err != nil {
		return core.HandleResult{}, err
	}
	metadata := mergeFields(map[string]any{"payment_id": charge.PaymentIntent}, check.Fields())
	if check.Duplicate {
		// The payment event may have recorded the charge id first. The
		// dispatch ledger keeps the receipt notice to one send.
		h.sendReceipt(ctx, event, charge)
		return duplicate(check.Fields())
	}

	attached, err := h.deps.Ledger.AttachCharge(ctx, charge.PaymentIntent, charge.ID)
	if err != nil {
		return core.HandleResult{}, err
	}
	if !attached {
		_, found, err := h.deps.Stores.Donations.GetByPaymentID(ctx, charge.PaymentIntent)
		if err != nil {
			return core.HandleResult{}, err
		}
		if !found {
			// Charge beat its payment intent; have the source redeliver later.
			return core.HandleResult{Metadata: metadata}, core.NotFoundError("no donation recorded for charge yet", map[string]any{
				"charge_id":  charge.ID,
				"payment_id": charge.PaymentIntent,
			})
		}
		return skipped("donation already carries another charge", metadata)
	}

	h.sendReceipt(ctx, event, charge)
	return core.HandleResult{Outcome: core.OutcomeProcessed, Metadata: metadata}, nil
}

func (h *ChargeHandler) sendReceipt(ctx context.Context, event core.ExternalEvent, charge core.Charge) {
	if charge.ReceiptURL == "" {
		return
	}
	donation, found, err := h.deps.Stores.Donations.GetByPaymentID(ctx, charge.PaymentIntent)
	if err != nil {
		h.deps.Observer.Warn(ctx, "donation reload after charge attach failed", core.EventFields(event, map[string]any{
			"error": err.Error(),
		}))
		return
	}
	if !found || donation.ExternalChargeID != charge.ID {
		return
	}
	if donation.DonorEmail == "" {
		donation.DonorEmail = firstNonEmpty(charge.BillingDetail.Email, charge.ReceiptEmail)
	}
	h.deps.notifier().ReceiptAttached(ctx, donation, charge.ReceiptURL)
}
