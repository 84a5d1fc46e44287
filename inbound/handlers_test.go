package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/idempotency"
	"github.com/Chriskfigures777/give-app-sub003/ledger"
	"github.com/Chriskfigures777/give-app-sub003/memstore"
	"github.com/Chriskfigures777/give-app-sub003/processor/processortest"
	"github.com/Chriskfigures777/give-app-sub003/split"
)

type recordingNotifier struct {
	mu       sync.Mutex
	received []core.Donation
	attached []string
	payouts  []core.PayoutRecord
}

func (n *recordingNotifier) DonationReceived(_ context.Context, donation core.Donation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, donation)
}

func (n *recordingNotifier) ReceiptAttached(_ context.Context, _ core.Donation, receiptURL string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attached = append(n.attached, receiptURL)
}

func (n *recordingNotifier) PayoutProcessed(_ context.Context, payout core.PayoutRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payouts = append(n.payouts, payout)
}

type harness struct {
	store      *memstore.Store
	processor  *processortest.Fake
	notifier   *recordingNotifier
	dispatcher *Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memstore.New()
	fake := processortest.NewFake()
	notifier := &recordingNotifier{}
	stores := store.Stores()
	observer := core.NewObserver(nil, nil)
	guard := idempotency.NewGuard(stores)
	dispatcher, err := NewDefaultDispatcher(Dependencies{
		Stores:    stores,
		Guard:     guard,
		Ledger:    ledger.NewWriter(stores, observer),
		Splits:    split.NewOrchestrator(fake, stores, guard, 30, observer),
		Processor: fake,
		Notifier:  notifier,
		Observer:  observer,
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	store.PutOrganization(core.Organization{ID: "org_1", OwnerEmail: "owner@example.org", ExternalAccountID: "acct_org"})
	store.PutCampaign(core.Campaign{ID: "camp_1", OrganizationID: "org_1", CurrentAmountCents: 0})
	return &harness{store: store, processor: fake, notifier: notifier, dispatcher: dispatcher}
}

func event(t *testing.T, id string, kind core.EventKind, account string, object any) core.ExternalEvent {
	t.Helper()
	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("marshal object: %v", err)
	}
	return core.ExternalEvent{ID: id, Kind: kind, Account: account, Object: raw}
}

func paymentSucceeded(t *testing.T, paymentID string, metadata map[string]string, extra map[string]any) core.ExternalEvent {
	object := map[string]any{
		"id":              paymentID,
		"amount":          10000,
		"amount_received": 10000,
		"currency":        "usd",
		"status":          "succeeded",
		"metadata":        metadata,
	}
	for key, value := range extra {
		object[key] = value
	}
	return event(t, "evt_"+paymentID, core.EventPaymentIntentSucceeded, "", object)
}

func donationMetadata() map[string]string {
	return map[string]string{
		core.MetaOrganizationID: "org_1",
		core.MetaCampaignID:     "camp_1",
		core.MetaDonorEmail:     "donor@example.com",
	}
}

func TestPaymentRedeliveryYieldsOneDonation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	evt := paymentSucceeded(t, "pi_1", donationMetadata(), nil)

	outcomes := make([]core.Outcome, 0, 3)
	for range 3 {
		result, err := h.dispatcher.Route(ctx, evt)
		if err != nil {
			t.Fatalf("route: %v", err)
		}
		outcomes = append(outcomes, result.Outcome)
	}
	if outcomes[0] != core.OutcomeProcessed || outcomes[1] != core.OutcomeDuplicate || outcomes[2] != core.OutcomeDuplicate {
		t.Fatalf("unexpected outcomes %v", outcomes)
	}
	if got := len(h.store.Donations()); got != 1 {
		t.Fatalf("expected one donation, got %d", got)
	}
	campaign, _ := h.store.Campaign("camp_1")
	if campaign.CurrentAmountCents != 10000 {
		t.Fatalf("expected campaign credited once, got %d", campaign.CurrentAmountCents)
	}
	if len(h.notifier.received) != 1 {
		t.Fatalf("expected one notification round, got %d", len(h.notifier.received))
	}
}

func TestConcurrentRedeliveryCreditsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	evt := paymentSucceeded(t, "pi_race", donationMetadata(), nil)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for index := range errs {
		wg.Add(1)
		go func(slot *error) {
			defer wg.Done()
			_, *slot = h.dispatcher.Route(ctx, evt)
		}(&errs[index])
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		t.Fatalf("route: %v", err)
	}
	if got := len(h.store.Donations()); got != 1 {
		t.Fatalf("expected one donation, got %d", got)
	}
	campaign, _ := h.store.Campaign("camp_1")
	if campaign.CurrentAmountCents != 10000 {
		t.Fatalf("expected a single credit, got %d", campaign.CurrentAmountCents)
	}
}

func TestPaymentAdoptsOptimisticDonation(t *testing.T) {
	h := newHarness(t)
	existing := h.store.PutDonation(core.Donation{
		OrganizationID:    "org_1",
		ExternalPaymentID: "pi_opt",
		AmountCents:       10000,
		Currency:          "usd",
		Status:            core.DonationStatusPending,
		ReceiptToken:      "token-from-checkout",
	})

	result, err := h.dispatcher.Route(context.Background(), paymentSucceeded(t, "pi_opt", donationMetadata(), nil))
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if result.Metadata["donation_created"] != false {
		t.Fatalf("expected adoption, got %v", result.Metadata)
	}
	donations := h.store.Donations()
	if len(donations) != 1 || donations[0].ID != existing.ID {
		t.Fatalf("expected the optimistic row reused, got %+v", donations)
	}
	if donations[0].ReceiptToken != "token-from-checkout" || donations[0].Status != core.DonationStatusSucceeded {
		t.Fatalf("unexpected adopted row %+v", donations[0])
	}
}

func TestPaymentWithoutOrganizationIsValidationError(t *testing.T) {
	h := newHarness(t)
	_, err := h.dispatcher.Route(context.Background(), paymentSucceeded(t, "pi_orphan", map[string]string{}, nil))
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(h.store.Donations()) != 0 {
		t.Fatalf("expected no donation written")
	}
}

func TestPaymentWithInvoiceIsLeftToInvoiceHandler(t *testing.T) {
	h := newHarness(t)
	result, err := h.dispatcher.Route(context.Background(), paymentSucceeded(t, "pi_inv", donationMetadata(), map[string]any{"invoice": "in_1"}))
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if result.Outcome != core.OutcomeSkipped || len(h.store.Donations()) != 0 {
		t.Fatalf("expected skip with no donation, got %+v", result)
	}
}

func TestEndowmentShareOnPlatformFee(t *testing.T) {
	h := newHarness(t)
	h.store.PutEndowmentFund(core.EndowmentFund{ID: "fund_1", ExternalAccountID: "acct_fund"})
	metadata := donationMetadata()
	metadata[core.MetaEndowmentFundID] = "fund_1"

	result, err := h.dispatcher.Route(context.Background(), paymentSucceeded(t, "pi_fee", metadata, map[string]any{"application_fee_amount": 100}))
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if got := h.processor.TransferTotal("acct_fund"); got != 30 {
		t.Fatalf("expected 30 cents to the endowment, got %d", got)
	}
	if result.Metadata["endowment_amount_cents"] != int64(30) {
		t.Fatalf("unexpected metadata %v", result.Metadata)
	}
}

func TestEndowmentFailureDoesNotFailEvent(t *testing.T) {
	h := newHarness(t)
	h.store.PutEndowmentFund(core.EndowmentFund{ID: "fund_1", ExternalAccountID: "acct_fund"})
	h.processor.FailTransfersTo["acct_fund"] = errors.New("processor timeout")
	metadata := donationMetadata()
	metadata[core.MetaEndowmentFundID] = "fund_1"

	result, err := h.dispatcher.Route(context.Background(), paymentSucceeded(t, "pi_fee", metadata, map[string]any{"application_fee_amount": 100}))
	if err != nil {
		t.Fatalf("expected endowment failure to be contained, got %v", err)
	}
	if result.Outcome != core.OutcomeProcessed || result.Metadata["endowment_error"] == nil {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestProcessorNativeFailureFailsEventWithoutLedgerWrite(t *testing.T) {
	h := newHarness(t)
	h.processor.FailTransfersTo["acct_b"] = errors.New("destination closed")
	metadata := donationMetadata()
	metadata[core.MetaSplitMode] = string(core.SplitModeProcessorNative)
	metadata[core.MetaSplits] = `[{"percentage":40,"account_id":"acct_a"},{"percentage":25,"account_id":"acct_b"}]`
	evt := paymentSucceeded(t, "pi_split", metadata, nil)
	evt.Account = "acct_recipient"

	_, err := h.dispatcher.Route(context.Background(), evt)
	if !core.IsPartnerCallFailure(err) {
		t.Fatalf("expected partner call failure, got %v", err)
	}
	if _, ok := h.store.SplitTransfer("pi_split"); ok {
		t.Fatalf("expected no transfers-done marker")
	}
	if len(h.store.Donations()) != 0 {
		t.Fatalf("expected donation write to wait for the split batch")
	}

	delete(h.processor.FailTransfersTo, "acct_b")
	result, err := h.dispatcher.Route(context.Background(), evt)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if result.Outcome != core.OutcomeProcessed || len(h.store.Donations()) != 1 {
		t.Fatalf("expected redelivery to complete, got %+v", result)
	}
	if _, ok := h.store.SplitTransfer("pi_split"); !ok {
		t.Fatalf("expected marker after successful batch")
	}
}

func TestUnplannableSplitStillRecordsDonation(t *testing.T) {
	tests := []struct {
		name    string
		mode    core.SplitMode
		splits  string
		account string
	}{
		{
			name:    "percentages above 100",
			mode:    core.SplitModeProcessorNative,
			splits:  `[{"percentage":70,"account_id":"acct_a"},{"percentage":40,"account_id":"acct_b"}]`,
			account: "acct_recipient",
		},
		{
			name:   "processor native without source",
			mode:   core.SplitModeProcessorNative,
			splits: `[{"percentage":40,"account_id":"acct_a"}]`,
		},
		{
			name:   "internal bank without source",
			mode:   core.SplitModeInternalBank,
			splits: `[{"percentage":40,"bank_account_id":"ba_1"}]`,
		},
		{
			name:    "unknown mode",
			mode:    "bogus",
			splits:  `[{"percentage":40,"account_id":"acct_a"}]`,
			account: "acct_recipient",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			metadata := donationMetadata()
			metadata[core.MetaSplitMode] = string(tc.mode)
			metadata[core.MetaSplits] = tc.splits
			evt := paymentSucceeded(t, "pi_bad_split", metadata, nil)
			evt.Account = tc.account

			result, err := h.dispatcher.Route(context.Background(), evt)
			if err != nil {
				t.Fatalf("route: %v", err)
			}
			if result.Outcome != core.OutcomeProcessed || result.Metadata["split_error"] == nil {
				t.Fatalf("expected processed with split_error, got %+v", result)
			}
			if got := len(h.store.Donations()); got != 1 {
				t.Fatalf("expected donation recorded, got %d", got)
			}
			campaign, _ := h.store.Campaign("camp_1")
			if campaign.CurrentAmountCents != 10000 {
				t.Fatalf("expected campaign credited, got %d", campaign.CurrentAmountCents)
			}
			if len(h.processor.Transfers()) != 0 || len(h.processor.Payouts()) != 0 {
				t.Fatalf("expected no money moved for a skipped split")
			}
			if len(h.notifier.received) != 1 {
				t.Fatalf("expected donation notices, got %d", len(h.notifier.received))
			}
		})
	}
}

func TestPaymentFailedNeverCreatesDonation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	failed := event(t, "evt_f1", core.EventPaymentIntentPaymentFailed, "", map[string]any{
		"id": "pi_f", "amount": 500, "currency": "usd", "status": "requires_payment_method",
	})
	result, err := h.dispatcher.Route(ctx, failed)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if result.Outcome != core.OutcomeSkipped || len(h.store.Donations()) != 0 {
		t.Fatalf("expected no row created, got %+v", result)
	}

	h.store.PutDonation(core.Donation{OrganizationID: "org_1", ExternalPaymentID: "pi_f", Currency: "usd", Status: core.DonationStatusPending})
	result, err = h.dispatcher.Route(ctx, failed)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if result.Outcome != core.OutcomeProcessed || h.store.Donations()[0].Status != core.DonationStatusFailed {
		t.Fatalf("expected pending row marked failed, got %+v", h.store.Donations())
	}
}

func TestInvoicePaidUsesStoredSubscription(t *testing.T) {
	h := newHarness(t)
	h.store.PutSubscription(core.Subscription{
		ExternalSubscriptionID: "sub_1",
		OrganizationID:         "org_1",
		CampaignID:             "camp_1",
		AmountCents:            2500,
		Currency:               "usd",
		Interval:               core.SubscriptionIntervalMonth,
		Status:                 core.SubscriptionStatusActive,
	})
	evt := event(t, "evt_in1", core.EventInvoicePaid, "", map[string]any{
		"id": "in_1", "payment_intent": "pi_rec_1", "subscription": "sub_1",
		"amount_paid": 2500, "currency": "usd", "customer_email": "donor@example.com",
	})
	for range 2 {
		if _, err := h.dispatcher.Route(context.Background(), evt); err != nil {
			t.Fatalf("route: %v", err)
		}
	}
	donations := h.store.Donations()
	if len(donations) != 1 {
		t.Fatalf("expected one recurring donation, got %d", len(donations))
	}
	if donations[0].ExternalSubID != "sub_1" || donations[0].ExternalInvoiceID != "in_1" || donations[0].CampaignID != "camp_1" {
		t.Fatalf("unexpected donation %+v", donations[0])
	}
	campaign, _ := h.store.Campaign("camp_1")
	if campaign.CurrentAmountCents != 2500 {
		t.Fatalf("expected campaign credited once, got %d", campaign.CurrentAmountCents)
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	var remote core.SubscriptionObject
	if err := json.Unmarshal([]byte(`{"id":"sub_9","status":"incomplete","customer":"cus_1","currency":"usd",
		"items":{"data":[{"quantity":1,"price":{"unit_amount":2500,"currency":"usd","recurring":{"interval":"month"}}}]}}`), &remote); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	h.processor.Subscriptions["sub_9"] = remote

	checkout := event(t, "evt_c1", core.EventCheckoutSessionCompleted, "", map[string]any{
		"id": "cs_1", "mode": "subscription", "subscription": "sub_9", "customer": "cus_1",
		"metadata": map[string]string{core.MetaOrganizationID: "org_1"},
	})
	if _, err := h.dispatcher.Route(ctx, checkout); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	stored, ok := h.store.Subscription("sub_9")
	if !ok || stored.Status != core.SubscriptionStatusActive || stored.AmountCents != 2500 {
		t.Fatalf("unexpected subscription %+v", stored)
	}
	again, err := h.dispatcher.Route(ctx, checkout)
	if err != nil || again.Outcome != core.OutcomeDuplicate {
		t.Fatalf("expected duplicate checkout, got %+v %v", again, err)
	}
	if len(h.processor.SubscriptionLookups()) != 1 {
		t.Fatalf("expected a single processor lookup")
	}

	pastDue := event(t, "evt_u1", core.EventSubscriptionUpdated, "", map[string]any{"id": "sub_9", "status": "past_due"})
	if _, err := h.dispatcher.Route(ctx, pastDue); err != nil {
		t.Fatalf("update: %v", err)
	}
	if stored, _ := h.store.Subscription("sub_9"); stored.Status != core.SubscriptionStatusPastDue || stored.OrganizationID != "org_1" {
		t.Fatalf("expected mirrored past_due, got %+v", stored)
	}

	deleted := event(t, "evt_d1", core.EventSubscriptionDeleted, "", map[string]any{"id": "sub_9", "status": "canceled"})
	if _, err := h.dispatcher.Route(ctx, deleted); err != nil {
		t.Fatalf("delete: %v", err)
	}
	reactivate := event(t, "evt_u2", core.EventSubscriptionUpdated, "", map[string]any{"id": "sub_9", "status": "active"})
	result, err := h.dispatcher.Route(ctx, reactivate)
	if err != nil {
		t.Fatalf("late update: %v", err)
	}
	if result.Outcome != core.OutcomeSkipped {
		t.Fatalf("expected late update skipped, got %+v", result)
	}
	if stored, _ := h.store.Subscription("sub_9"); stored.Status != core.SubscriptionStatusCanceled {
		t.Fatalf("expected canceled to be terminal, got %q", stored.Status)
	}
}

func TestCheckoutAfterCancelStaysCanceled(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	var remote core.SubscriptionObject
	if err := json.Unmarshal([]byte(`{"id":"sub_10","status":"canceled","customer":"cus_2","currency":"usd",
		"items":{"data":[{"quantity":1,"price":{"unit_amount":1000,"currency":"usd","recurring":{"interval":"month"}}}]}}`), &remote); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	h.processor.Subscriptions["sub_10"] = remote

	deleted := event(t, "evt_d10", core.EventSubscriptionDeleted, "", map[string]any{"id": "sub_10", "status": "canceled"})
	result, err := h.dispatcher.Route(ctx, deleted)
	if err != nil || result.Outcome != core.OutcomeSkipped {
		t.Fatalf("expected early delete skipped, got %+v %v", result, err)
	}

	checkout := event(t, "evt_c10", core.EventCheckoutSessionCompleted, "", map[string]any{
		"id": "cs_10", "mode": "subscription", "subscription": "sub_10", "customer": "cus_2",
		"metadata": map[string]string{core.MetaOrganizationID: "org_1"},
	})
	if _, err := h.dispatcher.Route(ctx, checkout); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	stored, ok := h.store.Subscription("sub_10")
	if !ok || stored.Status != core.SubscriptionStatusCanceled {
		t.Fatalf("expected late checkout to keep canceled, got %+v", stored)
	}

	reactivate := event(t, "evt_u10", core.EventSubscriptionUpdated, "", map[string]any{"id": "sub_10", "status": "active"})
	if result, err := h.dispatcher.Route(ctx, reactivate); err != nil || result.Outcome != core.OutcomeSkipped {
		t.Fatalf("expected update after cancel skipped, got %+v %v", result, err)
	}
}

func TestAccountUpdatedRecomputesOnboarding(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	complete := event(t, "evt_a1", core.EventAccountUpdated, "acct_org", map[string]any{
		"id": "acct_org", "charges_enabled": true, "payouts_enabled": true, "details_submitted": true,
		"requirements": map[string]any{"currently_due": []string{}, "eventually_due": []string{}},
	})
	if _, err := h.dispatcher.Route(ctx, complete); err != nil {
		t.Fatalf("route: %v", err)
	}
	if org, _ := h.store.Organization("org_1"); !org.OnboardingCompleted {
		t.Fatalf("expected onboarding completed")
	}

	due := event(t, "evt_a0", core.EventAccountUpdated, "acct_org", map[string]any{
		"id": "acct_org", "charges_enabled": true, "payouts_enabled": true, "details_submitted": true,
		"requirements": map[string]any{"currently_due": []string{"tos_acceptance.date"}},
	})
	if _, err := h.dispatcher.Route(ctx, due); err != nil {
		t.Fatalf("route: %v", err)
	}
	if org, _ := h.store.Organization("org_1"); org.OnboardingCompleted {
		t.Fatalf("expected outstanding requirement to force incomplete")
	}
}

func TestPayoutRecordedOnce(t *testing.T) {
	h := newHarness(t)
	evt := event(t, "evt_p1", core.EventPayoutPaid, "acct_org", map[string]any{
		"id": "po_1", "amount": 12000, "currency": "usd", "status": "paid", "arrival_date": 1777852800,
	})
	for range 2 {
		if _, err := h.dispatcher.Route(context.Background(), evt); err != nil {
			t.Fatalf("route: %v", err)
		}
	}
	payouts := h.store.Payouts()
	if len(payouts) != 1 || payouts[0].OrganizationID != "org_1" || payouts[0].ArrivalDate == nil {
		t.Fatalf("unexpected payouts %+v", payouts)
	}
	if len(h.notifier.payouts) != 1 {
		t.Fatalf("expected one payout alert, got %d", len(h.notifier.payouts))
	}
}

func TestChargeAttachesAndNotifiesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.dispatcher.Route(ctx, paymentSucceeded(t, "pi_c", donationMetadata(), nil)); err != nil {
		t.Fatalf("payment: %v", err)
	}
	charge := event(t, "evt_ch1", core.EventChargeSucceeded, "", map[string]any{
		"id": "ch_1", "payment_intent": "pi_c", "amount": 10000, "currency": "usd", "paid": true,
		"receipt_url": "https://pay.example/receipts/ch_1",
	})
	first, err := h.dispatcher.Route(ctx, charge)
	if err != nil || first.Outcome != core.OutcomeProcessed {
		t.Fatalf("expected charge attached, got %+v %v", first, err)
	}
	second, err := h.dispatcher.Route(ctx, charge)
	if err != nil || second.Outcome != core.OutcomeDuplicate {
		t.Fatalf("expected duplicate charge, got %+v %v", second, err)
	}
	// Resends are collapsed by the notification dispatch ledger, not here.
	if len(h.notifier.attached) != 2 {
		t.Fatalf("unexpected receipt notices %v", h.notifier.attached)
	}
	for _, url := range h.notifier.attached {
		if url != "https://pay.example/receipts/ch_1" {
			t.Fatalf("unexpected receipt url %q", url)
		}
	}
	if donation := h.store.Donations()[0]; donation.ExternalChargeID != "ch_1" {
		t.Fatalf("expected charge recorded, got %+v", donation)
	}
}

func TestPaymentRecordsLatestCharge(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	payment := paymentSucceeded(t, "pi_lc", donationMetadata(), map[string]any{"latest_charge": "ch_lc"})
	if _, err := h.dispatcher.Route(ctx, payment); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if donation := h.store.Donations()[0]; donation.ExternalChargeID != "ch_lc" {
		t.Fatalf("expected latest charge recorded, got %+v", donation)
	}

	charge := event(t, "evt_ch_lc", core.EventChargeSucceeded, "", map[string]any{
		"id": "ch_lc", "payment_intent": "pi_lc", "amount": 10000, "currency": "usd", "paid": true,
		"receipt_url": "https://pay.example/receipts/ch_lc",
	})
	result, err := h.dispatcher.Route(ctx, charge)
	if err != nil || result.Outcome != core.OutcomeDuplicate {
		t.Fatalf("expected charge already recorded, got %+v %v", result, err)
	}
	if len(h.notifier.attached) != 1 || h.notifier.attached[0] != "https://pay.example/receipts/ch_lc" {
		t.Fatalf("expected receipt notice for a charge recorded by the payment, got %v", h.notifier.attached)
	}
}

func TestChargeBeforePaymentIsRedelivered(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	charge := event(t, "evt_ch_early", core.EventChargeSucceeded, "", map[string]any{
		"id": "ch_early", "payment_intent": "pi_early", "amount": 10000, "currency": "usd", "paid": true,
		"receipt_url": "https://pay.example/receipts/ch_early",
	})
	if _, err := h.dispatcher.Route(ctx, charge); !core.IsNotFound(err) {
		t.Fatalf("expected not found so the charge is redelivered, got %v", err)
	}
	if len(h.notifier.attached) != 0 {
		t.Fatalf("expected no receipt before the donation exists")
	}

	payment := paymentSucceeded(t, "pi_early", donationMetadata(), map[string]any{"latest_charge": "ch_early"})
	if _, err := h.dispatcher.Route(ctx, payment); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if _, err := h.dispatcher.Route(ctx, charge); err != nil {
		t.Fatalf("redelivered charge: %v", err)
	}
	if len(h.notifier.attached) != 1 {
		t.Fatalf("expected receipt notice after redelivery, got %v", h.notifier.attached)
	}
}

func TestPaymentWithEmbeddedChargeSendsReceipt(t *testing.T) {
	h := newHarness(t)
	payment := paymentSucceeded(t, "pi_emb", donationMetadata(), map[string]any{
		"latest_charge": "ch_emb",
		"charges": map[string]any{"data": []map[string]any{{
			"id": "ch_emb", "payment_intent": "pi_emb", "receipt_url": "https://pay.example/receipts/ch_emb",
		}}},
	})
	if _, err := h.dispatcher.Route(context.Background(), payment); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if len(h.notifier.attached) != 1 || h.notifier.attached[0] != "https://pay.example/receipts/ch_emb" {
		t.Fatalf("expected receipt from the embedded charge, got %v", h.notifier.attached)
	}
}

func TestUnknownKindIsIgnored(t *testing.T) {
	h := newHarness(t)
	result, err := h.dispatcher.Route(context.Background(), event(t, "evt_x", "customer.created", "", map[string]any{"id": "cus_1"}))
	if err != nil || result.Outcome != core.OutcomeIgnored {
		t.Fatalf("expected ignored, got %+v %v", result, err)
	}
}

func TestRegisterRejectsDuplicateKinds(t *testing.T) {
	dispatcher := NewDispatcher(core.NewObserver(nil, nil))
	if err := dispatcher.Register(&PayoutHandler{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := dispatcher.Register(&PayoutHandler{}); err == nil {
		t.Fatalf("expected conflict on second registration")
	}
	kinds := dispatcher.Kinds()
	if len(kinds) != 1 || kinds[0] != core.EventPayoutPaid {
		t.Fatalf("unexpected kinds %v", kinds)
	}
}
