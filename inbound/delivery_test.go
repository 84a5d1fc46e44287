package inbound_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/idempotency"
	"github.com/Chriskfigures777/give-app-sub003/inbound"
	"github.com/Chriskfigures777/give-app-sub003/ledger"
	"github.com/Chriskfigures777/give-app-sub003/memstore"
	"github.com/Chriskfigures777/give-app-sub003/processor/processortest"
	"github.com/Chriskfigures777/give-app-sub003/split"
	"github.com/Chriskfigures777/give-app-sub003/webhooks"
)

const testSecret = "whsec_test"

func newPipeline(t *testing.T) (*webhooks.Processor, *memstore.Store, *processortest.Fake) {
	t.Helper()
	store := memstore.New()
	store.PutOrganization(core.Organization{ID: "org_1", OwnerEmail: "owner@example.org"})
	fake := processortest.NewFake()
	stores := store.Stores()
	observer := core.NewObserver(nil, nil)
	guard := idempotency.NewGuard(stores)
	router, err := inbound.NewDefaultDispatcher(inbound.Dependencies{
		Stores:    stores,
		Guard:     guard,
		Ledger:    ledger.NewWriter(stores, observer),
		Splits:    split.NewOrchestrator(fake, stores, guard, 30, observer),
		Processor: fake,
		Observer:  observer,
	})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	verifier := webhooks.NewSignatureVerifier([]string{testSecret}, 0)
	return webhooks.NewProcessor(verifier, router, observer), store, fake
}

func signedDelivery(t *testing.T, id string, kind core.EventKind, object map[string]any) core.Delivery {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":   id,
		"type": string(kind),
		"data": map[string]any{"object": object},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return core.Delivery{Body: body, Signature: webhooks.SignPayload(body, testSecret, time.Now())}
}

func TestDeliveryUncorrelatedPaymentIsAcknowledged(t *testing.T) {
	processor, store, _ := newPipeline(t)
	delivery := signedDelivery(t, "evt_1", core.EventPaymentIntentSucceeded, map[string]any{
		"id": "pi_1", "amount": 1000, "currency": "usd", "status": "succeeded",
	})
	result, err := processor.Process(context.Background(), delivery)
	if err != nil {
		t.Fatalf("expected acknowledgement, got %v", err)
	}
	if result.StatusCode != http.StatusOK || result.Outcome != core.OutcomeSkipped {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(store.Donations()) != 0 {
		t.Fatalf("expected no donation")
	}
}

func TestDeliverySplitFailureAsksForRetry(t *testing.T) {
	processor, store, fake := newPipeline(t)
	fake.FailTransfersTo["acct_a"] = errors.New("account restricted")
	delivery := signedDelivery(t, "evt_2", core.EventPaymentIntentSucceeded, map[string]any{
		"id": "pi_2", "amount": 1000, "currency": "usd", "status": "succeeded",
		"transfer_data": map[string]any{"destination": "acct_org"},
		"metadata": map[string]string{
			core.MetaOrganizationID: "org_1",
			core.MetaSplitMode:      string(core.SplitModeProcessorNative),
			core.MetaSplits:         `[{"percentage":50,"account_id":"acct_a"}]`,
		},
	})
	result, err := processor.Process(context.Background(), delivery)
	if err == nil {
		t.Fatalf("expected failure")
	}
	if result.StatusCode < http.StatusInternalServerError || result.Outcome != core.OutcomeFailed {
		t.Fatalf("expected retryable status, got %+v", result)
	}
	if len(store.Donations()) != 0 {
		t.Fatalf("expected no donation before the split batch completes")
	}
}

func TestDeliveryForgedSignatureHasNoSideEffects(t *testing.T) {
	processor, store, _ := newPipeline(t)
	delivery := signedDelivery(t, "evt_3", core.EventPaymentIntentSucceeded, map[string]any{
		"id": "pi_3", "amount": 1000, "currency": "usd", "status": "succeeded",
		"metadata": map[string]string{core.MetaOrganizationID: "org_1"},
	})
	delivery.Signature = webhooks.SignPayload(delivery.Body, "whsec_other", time.Now())
	result, err := processor.Process(context.Background(), delivery)
	if !core.IsAuthentication(err) || result.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected authentication rejection, got %+v %v", result, err)
	}
	if len(store.Donations()) != 0 {
		t.Fatalf("expected no donation")
	}
}
