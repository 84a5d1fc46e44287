package idempotency

import (
	"context"
	"fmt"
	"strings"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

// KeyKind names the natural external id a lookup was keyed on.
type KeyKind string

const (
	KeyPayment      KeyKind = "payment_id"
	KeyCharge       KeyKind = "charge_id"
	KeyInvoice      KeyKind = "invoice_id"
	KeySubscription KeyKind = "subscription_id"
	KeyPayout       KeyKind = "payout_id"
)

// Check is the outcome of a guard lookup. Duplicate means the side effect the
// event asks for is already durable and processing must stop. Donation is set
// when an unreconciled row exists and should be adopted.
type Check struct {
	Duplicate bool
	KeyKind   KeyKind
	Key       string
	Donation  *core.Donation
}

func (c Check) Fields() map[string]any {
	return map[string]any{
		"idempotency_key_kind": string(c.KeyKind),
		"idempotency_key":      c.Key,
		"duplicate":            c.Duplicate,
	}
}

// Guard looks up durable rows by natural key. It holds no state of its own;
// concurrent instances are serialized by the datastore's unique constraints.
type Guard struct {
	Donations     core.DonationStore
	Subscriptions core.SubscriptionStore
	Payouts       core.PayoutStore
	SplitMarkers  core.SplitMarkerStore
}

func NewGuard(stores core.Stores) *Guard {
	return &Guard{
		Donations:     stores.Donations,
		Subscriptions: stores.Subscriptions,
		Payouts:       stores.Payouts,
		SplitMarkers:  stores.SplitMarkers,
	}
}

// PaymentSettled reports a duplicate once a donation for paymentID has been
// reconciled. An optimistic, unreconciled row is returned for adoption.
func (g *Guard) PaymentSettled(ctx context.Context, paymentID string) (Check, error) {
	return g.paymentCheck(ctx, KeyPayment, paymentID)
}

// InvoicePaid keys a recurring payment on the invoice's payment id, falling
// back to the invoice id when the processor reports none.
func (g *Guard) InvoicePaid(ctx context.Context, invoice core.Invoice) (Check, error) {
	kind := KeyPayment
	if strings.TrimSpace(invoice.PaymentIntent) == "" {
		kind = KeyInvoice
	}
	return g.paymentCheck(ctx, kind, invoice.PaymentKey())
}

func (g *Guard) paymentCheck(ctx context.Context, kind KeyKind, key string) (Check, error) {
	check := Check{KeyKind: kind, Key: strings.TrimSpace(key)}
	if err := g.require(check.Key, g.Donations != nil); err != nil {
		return check, err
	}
	donation, found, err := g.Donations.GetByPaymentID(ctx, check.Key)
	if err != nil {
		return check, lookupError(err, check)
	}
	if !found {
		return check, nil
	}
	if donation.Reconciled() {
		check.Duplicate = true
		return check, nil
	}
	check.Donation = &donation
	return check, nil
}

func (g *Guard) ChargeAttached(ctx context.Context, chargeID string) (Check, error) {
	check := Check{KeyKind: KeyCharge, Key: strings.TrimSpace(chargeID)}
	if err := g.require(check.Key, g.Donations != nil); err != nil {
		return check, err
	}
	_, found, err := g.Donations.GetByChargeID(ctx, check.Key)
	if err != nil {
		return check, lookupError(err, check)
	}
	check.Duplicate = found
	return check, nil
}

func (g *Guard) SubscriptionRecorded(ctx context.Context, subscriptionID string) (Check, error) {
	check := Check{KeyKind: KeySubscription, Key: strings.TrimSpace(subscriptionID)}
	if err := g.require(check.Key, g.Subscriptions != nil); err != nil {
		return check, err
	}
	_, found, err := g.Subscriptions.GetByExternalID(ctx, check.Key)
	if err != nil {
		return check, lookupError(err, check)
	}
	check.Duplicate = found
	return check, nil
}

func (g *Guard) PayoutRecorded(ctx context.Context, payoutID string) (Check, error) {
	check := Check{KeyKind: KeyPayout, Key: strings.TrimSpace(payoutID)}
	if err := g.require(check.Key, g.Payouts != nil); err != nil {
		return check, err
	}
	_, found, err := g.Payouts.GetByExternalID(ctx, check.Key)
	if err != nil {
		return check, lookupError(err, check)
	}
	check.Duplicate = found
	return check, nil
}

// SplitTransfersDone is the second, independent marker for processor-native
// split batches.
func (g *Guard) SplitTransfersDone(ctx context.Context, paymentID string) (bool, error) {
	check := Check{KeyKind: KeyPayment, Key: strings.TrimSpace(paymentID)}
	if err := g.require(check.Key, g.SplitMarkers != nil); err != nil {
		return false, err
	}
	_, found, err := g.SplitMarkers.GetSplitTransfer(ctx, check.Key)
	if err != nil {
		return false, lookupError(err, check)
	}
	return found, nil
}

// InternalSplitAttempted is the marker for internal bank-split batches.
func (g *Guard) InternalSplitAttempted(ctx context.Context, paymentID string) (bool, error) {
	check := Check{KeyKind: KeyPayment, Key: strings.TrimSpace(paymentID)}
	if err := g.require(check.Key, g.SplitMarkers != nil); err != nil {
		return false, err
	}
	_, found, err := g.SplitMarkers.GetInternalSplitPayout(ctx, check.Key)
	if err != nil {
		return false, lookupError(err, check)
	}
	return found, nil
}

func (g *Guard) require(key string, hasStore bool) error {
	if g == nil || !hasStore {
		return fmt.Errorf("idempotency: guard store is not configured")
	}
	if key == "" {
		return core.ValidationError("idempotency: natural key is required", nil)
	}
	return nil
}

func lookupError(err error, check Check) error {
	return core.PersistenceError(err, "idempotency lookup failed", map[string]any{
		"key_kind": string(check.KeyKind),
		"key":      check.Key,
	})
}
