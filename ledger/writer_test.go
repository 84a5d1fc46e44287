package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/memstore"
)

func newTestWriter(store *memstore.Store) *Writer {
	writer := NewWriter(store.Stores(), core.NewObserver(nil, nil))
	writer.NewToken = func() string { return "token-new" }
	return writer
}

func donationFor(paymentID string) core.Donation {
	return core.Donation{
		OrganizationID:    "org_1",
		ExternalPaymentID: paymentID,
		AmountCents:       5000,
		Currency:          "usd",
	}
}

func TestRecordDonationAdoptsOptimisticRow(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	existing := store.PutDonation(core.Donation{
		ExternalPaymentID: "pi_1",
		Status:            core.DonationStatusPending,
		ReceiptToken:      "token-existing",
		Currency:          "usd",
	})
	writer := newTestWriter(store)

	stored, created, err := writer.RecordDonation(ctx, donationFor("pi_1"), &existing)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if created {
		t.Fatalf("expected adoption, not insert")
	}
	if stored.ID != existing.ID || stored.ReceiptToken != "token-existing" {
		t.Fatalf("expected existing id and token reused, got %+v", stored)
	}
	if stored.Status != core.DonationStatusSucceeded || stored.OrganizationID != "org_1" {
		t.Fatalf("expected adopted row filled in, got %+v", stored)
	}
	if len(store.Donations()) != 1 {
		t.Fatalf("expected a single donation row, got %d", len(store.Donations()))
	}
}

func TestRecordDonationInsertsWithFreshToken(t *testing.T) {
	writer := newTestWriter(memstore.New())
	stored, created, err := writer.RecordDonation(context.Background(), donationFor("pi_2"), nil)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !created || stored.ReceiptToken != "token-new" {
		t.Fatalf("expected new row with generated token, got created=%v %+v", created, stored)
	}
}

func TestRecordDonationResolvesInsertRace(t *testing.T) {
	store := memstore.New()
	// Row appears between the guard lookup and the insert.
	winner := store.PutDonation(core.Donation{
		ExternalPaymentID: "pi_3",
		Status:            core.DonationStatusPending,
		ReceiptToken:      "token-winner",
		Currency:          "usd",
	})
	writer := newTestWriter(store)
	stored, created, err := writer.RecordDonation(context.Background(), donationFor("pi_3"), nil)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if created || stored.ID != winner.ID || stored.ReceiptToken != "token-winner" {
		t.Fatalf("expected the existing row adopted, got created=%v %+v", created, stored)
	}
}

func TestRecordDonationRequiresOrganization(t *testing.T) {
	writer := newTestWriter(memstore.New())
	donation := donationFor("pi_4")
	donation.OrganizationID = ""
	_, _, err := writer.RecordDonation(context.Background(), donation, nil)
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyAggregatesFlipsFundRequest(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.Now = func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }
	request := store.PutFundRequest(core.FundRequest{ID: "fr_1", AmountCents: 10000, FulfilledAmountCents: 9000})
	writer := newTestWriter(store)

	donation := donationFor("pi_5")
	donation.FundRequestID = request.ID
	donation.AmountCents = 1500
	stored, _, err := writer.RecordDonation(ctx, donation, nil)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	result, err := writer.ApplyAggregates(ctx, stored)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !result.Claimed || !result.BecameFulfilled {
		t.Fatalf("unexpected result %+v", result)
	}
	got, _ := store.FundRequest(request.ID)
	if got.FulfilledAmountCents != 10500 || got.Status != core.FundRequestStatusFulfilled {
		t.Fatalf("unexpected fund request %+v", got)
	}
}

func TestRecomputeOnboardingUsesFullFlagSet(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.PutOrganization(core.Organization{ID: "org_1", ExternalAccountID: "acct_1", OnboardingCompleted: true})
	writer := newTestWriter(store)

	org, found, err := writer.RecomputeOnboarding(ctx, "acct_1", core.AccountFlags{
		ChargesEnabled:   true,
		PayoutsEnabled:   true,
		DetailsSubmitted: true,
		EventuallyDue:    []string{"external_account"},
	})
	if err != nil || !found {
		t.Fatalf("recompute: found=%v err=%v", found, err)
	}
	if org.OnboardingCompleted {
		t.Fatalf("expected outstanding requirement to force onboarding incomplete")
	}

	_, found, err = writer.RecomputeOnboarding(ctx, "acct_unknown", core.AccountFlags{})
	if err != nil || found {
		t.Fatalf("expected unknown account to be not found, found=%v err=%v", found, err)
	}
}
