// Package ledger writes the durable consequences of processor events:
// donations, subscriptions, payouts, campaign and fund-request totals, and
// organization onboarding state.
package ledger

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

type Writer struct {
	Stores   core.Stores
	Observer core.Observer
	NewToken func() string
}

func NewWriter(stores core.Stores, observer core.Observer) *Writer {
	return &Writer{
		Stores:   stores,
		Observer: observer,
		NewToken: newReceiptToken,
	}
}

func newReceiptToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// RecordDonation adopts an optimistic row when one exists, otherwise inserts
// a new succeeded donation with a fresh receipt token. A lost insert race is
// resolved by adopting the winner's row.
func (w *Writer) RecordDonation(ctx context.Context, donation core.Donation, existing *core.Donation) (core.Donation, bool, error) {
	donation.Status = core.DonationStatusSucceeded
	fields := map[string]any{"payment_id": donation.ExternalPaymentID}
	if existing != nil {
		adopted, err := w.Stores.Donations.Adopt(ctx, existing.ID, donation)
		if err != nil {
			return core.Donation{}, false, core.PersistenceError(err, "ledger: adopt donation", fields)
		}
		return adopted, false, nil
	}

	if donation.ReceiptToken == "" {
		donation.ReceiptToken = w.token()
	}
	if err := donation.Validate(); err != nil {
		return core.Donation{}, false, core.ValidationError(err.Error(), fields)
	}
	stored, created, err := w.Stores.Donations.Insert(ctx, donation)
	if err != nil {
		return core.Donation{}, false, core.PersistenceError(err, "ledger: insert donation", fields)
	}
	if created || stored.Reconciled() {
		return stored, created, nil
	}
	adopted, err := w.Stores.Donations.Adopt(ctx, stored.ID, donation)
	if err != nil {
		return core.Donation{}, false, core.PersistenceError(err, "ledger: adopt donation", fields)
	}
	return adopted, false, nil
}

// ApplyAggregates claims the donation and increments its campaign and fund
// request. Failures leave the donation unreconciled so a redelivery resumes.
func (w *Writer) ApplyAggregates(ctx context.Context, donation core.Donation) (core.AggregateResult, error) {
	if w.Stores.Aggregates == nil {
		return core.AggregateResult{}, nil
	}
	result, err := w.Stores.Aggregates.ApplyDonation(ctx, core.AggregateInput{
		DonationID:    donation.ID,
		CampaignID:    donation.CampaignID,
		FundRequestID: donation.FundRequestID,
		AmountCents:   donation.AmountCents,
	})
	if err != nil {
		return core.AggregateResult{}, core.PersistenceError(err, "ledger: apply donation aggregates", map[string]any{
			"donation_id":     donation.ID,
			"campaign_id":     donation.CampaignID,
			"fund_request_id": donation.FundRequestID,
		})
	}
	if result.BecameFulfilled && result.FundRequest != nil {
		w.Observer.Info(ctx, "fund request fulfilled", map[string]any{
			"fund_request_id":        result.FundRequest.ID,
			"fulfilled_amount_cents": result.FundRequest.FulfilledAmountCents,
			"target_amount_cents":    result.FundRequest.AmountCents,
		})
	}
	return result, nil
}

func (w *Writer) MarkDonationFailed(ctx context.Context, paymentID string) (bool, error) {
	changed, err := w.Stores.Donations.MarkFailed(ctx, paymentID)
	if err != nil {
		return false, core.PersistenceError(err, "ledger: mark donation failed", map[string]any{"payment_id": paymentID})
	}
	return changed, nil
}

func (w *Writer) AttachCharge(ctx context.Context, paymentID, chargeID string) (bool, error) {
	changed, err := w.Stores.Donations.AttachCharge(ctx, paymentID, chargeID)
	if err != nil {
		return false, core.PersistenceError(err, "ledger: attach charge", map[string]any{
			"payment_id": paymentID,
			"charge_id":  chargeID,
		})
	}
	return changed, nil
}

func (w *Writer) UpsertSubscription(ctx context.Context, subscription core.Subscription) (core.Subscription, error) {
	fields := map[string]any{"subscription_id": subscription.ExternalSubscriptionID}
	if err := subscription.Validate(); err != nil {
		return core.Subscription{}, core.ValidationError(err.Error(), fields)
	}
	stored, err := w.Stores.Subscriptions.Upsert(ctx, subscription)
	if err != nil {
		return core.Subscription{}, core.PersistenceError(err, "ledger: upsert subscription", fields)
	}
	return stored, nil
}

func (w *Writer) CancelSubscription(ctx context.Context, externalID string) (bool, error) {
	changed, err := w.Stores.Subscriptions.MarkCanceled(ctx, externalID)
	if err != nil {
		return false, core.PersistenceError(err, "ledger: cancel subscription", map[string]any{"subscription_id": externalID})
	}
	return changed, nil
}

func (w *Writer) RecordPayout(ctx context.Context, payout core.PayoutRecord) (core.PayoutRecord, bool, error) {
	stored, created, err := w.Stores.Payouts.Insert(ctx, payout)
	if err != nil {
		return core.PayoutRecord{}, false, core.PersistenceError(err, "ledger: insert payout", map[string]any{
			"payout_id": payout.ExternalPayoutID,
		})
	}
	return stored, created, nil
}

// RecomputeOnboarding derives onboarding_completed from the full flag set of
// the account. found is false when no organization owns the account.
func (w *Writer) RecomputeOnboarding(ctx context.Context, accountID string, flags core.AccountFlags) (core.Organization, bool, error) {
	fields := map[string]any{"account_id": accountID}
	org, found, err := w.Stores.Organizations.GetByExternalAccountID(ctx, accountID)
	if err != nil {
		return core.Organization{}, false, core.PersistenceError(err, "ledger: load organization", fields)
	}
	if !found {
		return core.Organization{}, false, nil
	}
	updated, err := w.Stores.Organizations.UpdateOnboarding(ctx, org.ID, flags, flags.OnboardingCompleted())
	if err != nil {
		return core.Organization{}, true, core.PersistenceError(err, "ledger: update onboarding", fields)
	}
	return updated, true, nil
}

func (w *Writer) token() string {
	if w.NewToken != nil {
		return w.NewToken()
	}
	return newReceiptToken()
}
