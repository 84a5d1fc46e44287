package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/memstore"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []core.Notification
	err  error
}

func (s *recordingSender) Send(_ context.Context, notification core.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, notification)
	return s.err
}

func (s *recordingSender) kinds() []core.NotificationKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.NotificationKind, 0, len(s.sent))
	for _, item := range s.sent {
		out = append(out, item.Kind)
	}
	return out
}

type countingOrganizations struct {
	core.OrganizationStore
	calls int
}

func (c *countingOrganizations) Get(ctx context.Context, id string) (core.Organization, error) {
	c.calls++
	return c.OrganizationStore.Get(ctx, id)
}

func newTestDispatcher(store *memstore.Store, sender core.NotificationSender) *Dispatcher {
	stores := store.Stores()
	return NewDispatcher(
		sender,
		stores.Dispatches,
		NewRecipientDirectory(stores.Organizations, nil),
		core.NotificationConfig{Enabled: true, ReceiptBaseURL: "https://give.example/receipts/"},
		core.NewObserver(nil, nil),
	)
}

func testDonation() core.Donation {
	return core.Donation{
		OrganizationID:    "org_1",
		ExternalPaymentID: "pi_1",
		AmountCents:       10000,
		Currency:          "usd",
		DonorEmail:        "donor@example.com",
		DonorName:         "Ada",
		ReceiptToken:      "tok123",
	}
}

func TestDonationReceivedSendsReceiptAndAlertOnce(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.PutOrganization(core.Organization{ID: "org_1", OwnerEmail: "owner@example.org"})
	sender := &recordingSender{}
	dispatcher := newTestDispatcher(store, sender)

	dispatcher.DonationReceived(ctx, testDonation())
	dispatcher.DonationReceived(ctx, testDonation())

	kinds := sender.kinds()
	if len(kinds) != 2 {
		t.Fatalf("expected receipt and alert exactly once, got %v", kinds)
	}
	if kinds[0] != core.NotificationDonorReceipt || kinds[1] != core.NotificationOrgOwnerAlert {
		t.Fatalf("unexpected kinds %v", kinds)
	}
	receipt := sender.sent[0]
	if receipt.Fields["receipt_url"] != "https://give.example/receipts/tok123" {
		t.Fatalf("unexpected receipt url %q", receipt.Fields["receipt_url"])
	}
	if receipt.Fields["amount"] != "$100.00" {
		t.Fatalf("unexpected amount %q", receipt.Fields["amount"])
	}
	if sender.sent[1].Recipient != "owner@example.org" {
		t.Fatalf("unexpected alert recipient %q", sender.sent[1].Recipient)
	}
}

func TestMissingRecipientIsSkippedSilently(t *testing.T) {
	store := memstore.New()
	store.PutOrganization(core.Organization{ID: "org_1"})
	sender := &recordingSender{}
	dispatcher := newTestDispatcher(store, sender)

	donation := testDonation()
	donation.DonorEmail = ""
	dispatcher.DonationReceived(context.Background(), donation)

	if len(sender.kinds()) != 0 {
		t.Fatalf("expected nothing sent, got %v", sender.kinds())
	}
	if len(store.Dispatches()) != 0 {
		t.Fatalf("expected no dispatch rows for skipped notifications")
	}
}

func TestUnknownOrganizationDoesNotBlockReceipt(t *testing.T) {
	sender := &recordingSender{}
	dispatcher := newTestDispatcher(memstore.New(), sender)
	dispatcher.DonationReceived(context.Background(), testDonation())
	kinds := sender.kinds()
	if len(kinds) != 1 || kinds[0] != core.NotificationDonorReceipt {
		t.Fatalf("expected only the donor receipt, got %v", kinds)
	}
}

func TestSendFailureIsRecordedAndRetried(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	sender := &recordingSender{err: errors.New("smtp down")}
	dispatcher := newTestDispatcher(store, sender)

	payout := core.PayoutRecord{ExternalPayoutID: "po_1", OrganizationID: "org_1", AmountCents: 500, Currency: "usd"}
	store.PutOrganization(core.Organization{ID: "org_1", OwnerEmail: "owner@example.org"})
	dispatcher.PayoutProcessed(ctx, payout)

	dispatches := store.Dispatches()
	if len(dispatches) != 1 || dispatches[0].Status != core.NotificationDispatchFailed {
		t.Fatalf("expected failed dispatch recorded, got %+v", dispatches)
	}
	if !strings.Contains(dispatches[0].Error, "smtp down") {
		t.Fatalf("expected error text recorded, got %q", dispatches[0].Error)
	}

	sender.err = nil
	dispatcher.PayoutProcessed(ctx, payout)
	if len(sender.kinds()) != 2 {
		t.Fatalf("expected a failed dispatch to be retried")
	}
	if got := store.Dispatches()[0].Status; got != core.NotificationDispatchSent {
		t.Fatalf("expected sent after retry, got %q", got)
	}
}

func TestDisabledDispatcherSendsNothing(t *testing.T) {
	store := memstore.New()
	sender := &recordingSender{}
	stores := store.Stores()
	dispatcher := NewDispatcher(sender, stores.Dispatches, nil, core.NotificationConfig{Enabled: false}, core.NewObserver(nil, nil))
	dispatcher.DonationReceived(context.Background(), testDonation())
	if len(sender.kinds()) != 0 {
		t.Fatalf("expected disabled dispatcher to send nothing")
	}
}

func TestRecipientDirectoryCachesOwner(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.PutOrganization(core.Organization{ID: "org_1", OwnerEmail: "owner@example.org"})
	organizations := &countingOrganizations{OrganizationStore: store.Stores().Organizations}

	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	cache, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	directory := NewRecipientDirectory(organizations, cache)

	for range 3 {
		owner, err := directory.OrganizationOwner(ctx, "org_1")
		if err != nil {
			t.Fatalf("owner: %v", err)
		}
		if owner != "owner@example.org" {
			t.Fatalf("unexpected owner %q", owner)
		}
	}
	if organizations.calls != 1 {
		t.Fatalf("expected one store read, got %d", organizations.calls)
	}
	if err := directory.Invalidate(ctx, "org_1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := directory.OrganizationOwner(ctx, "org_1"); err != nil {
		t.Fatalf("owner after invalidate: %v", err)
	}
	if organizations.calls != 2 {
		t.Fatalf("expected a fresh read after invalidation, got %d", organizations.calls)
	}
}

func TestRenderTextListsFields(t *testing.T) {
	text := RenderText(DonorReceipt(testDonation(), ""))
	if !strings.HasPrefix(text, "Thank you for your donation") {
		t.Fatalf("unexpected text %q", text)
	}
	if !strings.Contains(text, "amount: $100.00") || strings.Contains(text, "receipt url") {
		t.Fatalf("unexpected fields in %q", text)
	}
}
