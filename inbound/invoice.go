package inbound

import (
	"context"
	"strings"

	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/split"
)

// InvoiceHandler records recurring donations from paid subscription invoices.
type InvoiceHandler struct {
	deps Dependencies
}

func (*InvoiceHandler) Kinds() []core.EventKind {
	return []core.EventKind{core.EventInvoicePaid}
}

func (h *InvoiceHandler) Handle(ctx context.Context, event core.ExternalEvent) (core.HandleResult, error) {
	var invoice core.Invoice
	if err := event.Decode(&invoice); err != nil {
		return core.HandleResult{}, err
	}
	if err := invoice.Validate(); err != nil {
		return core.HandleResult{}, err
	}
	if invoice.AmountPaid == 0 {
		return skipped("zero-amount invoice", map[string]any{"invoice_id": invoice.ID})
	}

	metadata := invoice.CorrelationMetadata()
	organizationID := metadata.Get(core.MetaOrganizationID)
	campaignID := metadata.Get(core.MetaCampaignID)
	userID := metadata.Get(core.MetaUserID)
	if organizationID == "" && invoice.Subscription != "" {
		stored, found, err := h.deps.Stores.Subscriptions.GetByExternalID(ctx, invoice.Subscription)
		if err != nil {
			return core.HandleResult{}, core.PersistenceError(err, "inbound: load subscription for invoice", map[string]any{
				"invoice_id":      invoice.ID,
				"subscription_id": invoice.Subscription,
			})
		}
		if found {
			organizationID = stored.OrganizationID
			campaignID = firstNonEmpty(campaignID, stored.CampaignID)
			userID = firstNonEmpty(userID, stored.UserID)
		}
	}
	if organizationID == "" {
		return core.HandleResult{}, missingCorrelation(event, core.MetaOrganizationID)
	}

	check, err := h.deps.Guard.InvoicePaid(ctx, invoice)
	if err != nil {
		return core.HandleResult{}, err
	}
	if check.Duplicate {
		return duplicate(check.Fields())
	}

	currency, _ := core.NormalizeCurrency(invoice.Currency)
	fee, _ := metadata.Int64(core.MetaPlatformFeeCents)
	paymentKey := invoice.PaymentKey()

	return settle(ctx, h.deps, settlement{
		event: event,
		check: check,
		donation: core.Donation{
			OrganizationID:    organizationID,
			CampaignID:        campaignID,
			EndowmentFundID:   metadata.Get(core.MetaEndowmentFundID),
			FundRequestID:     metadata.Get(core.MetaFundRequestID),
			UserID:            userID,
			AmountCents:       invoice.AmountPaid,
			Currency:          currency,
			PlatformFeeCents:  fee,
			ExternalPaymentID: paymentKey,
			ExternalInvoiceID: invoice.ID,
			ExternalChargeID:  strings.TrimSpace(invoice.Charge),
			ExternalSubID:     invoice.Subscription,
			DonorEmail:        firstNonEmpty(metadata.Get(core.MetaDonorEmail), invoice.CustomerEmail),
			DonorName:         firstNonEmpty(metadata.Get(core.MetaDonorName), invoice.CustomerName),
		},
		split: split.Input{
			PaymentID:        paymentKey,
			OrganizationID:   organizationID,
			SourceAccountID:  event.Account,
			Currency:         currency,
			GrossCents:       invoice.AmountPaid,
			PlatformFeeCents: fee,
			Metadata:         metadata,
		},
	})
}
