package core

import (
	"errors"
	"testing"
	"time"
)

func TestFundRequestApplyDonation_FlipsToFulfilledAtTarget(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	request := FundRequest{ID: "fr_1", AmountCents: 10000, FulfilledAmountCents: 9000, Status: FundRequestStatusOpen}

	updated, err := request.ApplyDonation(1500, now)
	if err != nil {
		t.Fatalf("apply donation: %v", err)
	}
	if updated.FulfilledAmountCents != 10500 {
		t.Fatalf("expected fulfilled 10500, got %d", updated.FulfilledAmountCents)
	}
	if updated.Status != FundRequestStatusFulfilled {
		t.Fatalf("expected fulfilled status, got %q", updated.Status)
	}
	if updated.FulfilledAt == nil || !updated.FulfilledAt.Equal(now) {
		t.Fatalf("expected fulfilled_at to be stamped")
	}
}

func TestFundRequestApplyDonation_StaysOpenBelowTarget(t *testing.T) {
	request := FundRequest{AmountCents: 10000, FulfilledAmountCents: 1000, Status: FundRequestStatusOpen}
	updated, err := request.ApplyDonation(8999, time.Now())
	if err != nil {
		t.Fatalf("apply donation: %v", err)
	}
	if updated.Status != FundRequestStatusOpen {
		t.Fatalf("expected open status, got %q", updated.Status)
	}
}

func TestFundRequestApplyDonation_NeverReverses(t *testing.T) {
	stamped := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	request := FundRequest{
		AmountCents:          100,
		FulfilledAmountCents: 100,
		Status:               FundRequestStatusFulfilled,
		FulfilledAt:          &stamped,
	}
	updated, err := request.ApplyDonation(0, time.Now())
	if err != nil {
		t.Fatalf("apply donation: %v", err)
	}
	if updated.Status != FundRequestStatusFulfilled || !updated.FulfilledAt.Equal(stamped) {
		t.Fatalf("expected fulfilled state to be preserved, got %+v", updated)
	}
	if _, err := request.ApplyDonation(-1, time.Now()); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount error, got %v", err)
	}
}

func TestCampaignApplyDonation_IsMonotonic(t *testing.T) {
	campaign := Campaign{CurrentAmountCents: 500}
	updated, err := campaign.ApplyDonation(250)
	if err != nil {
		t.Fatalf("apply donation: %v", err)
	}
	if updated.CurrentAmountCents != 750 {
		t.Fatalf("expected 750, got %d", updated.CurrentAmountCents)
	}
	if _, err := campaign.ApplyDonation(-10); err == nil {
		t.Fatalf("expected negative increment to be rejected")
	}
}

func TestAccountFlagsOnboardingCompleted(t *testing.T) {
	cases := []struct {
		name  string
		flags AccountFlags
		want  bool
	}{
		{name: "all flags", flags: AccountFlags{ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true}, want: true},
		{name: "payouts disabled", flags: AccountFlags{ChargesEnabled: true, DetailsSubmitted: true}},
		{name: "details missing", flags: AccountFlags{ChargesEnabled: true, PayoutsEnabled: true}},
		{
			name: "currently due forces false",
			flags: AccountFlags{
				ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true,
				CurrentlyDue: []string{"external_account"},
			},
		},
		{
			name: "eventually due forces false",
			flags: AccountFlags{
				ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true,
				EventuallyDue: []string{"individual.id_number"},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.flags.OnboardingCompleted(); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestSubscriptionTransition_CanceledIsTerminal(t *testing.T) {
	sub := Subscription{Status: SubscriptionStatusActive}
	if err := sub.TransitionTo(SubscriptionStatusPastDue, time.Now()); err != nil {
		t.Fatalf("active -> past_due: %v", err)
	}
	if err := sub.TransitionTo(SubscriptionStatusCanceled, time.Now()); err != nil {
		t.Fatalf("past_due -> canceled: %v", err)
	}
	err := sub.TransitionTo(SubscriptionStatusActive, time.Now())
	if !errors.Is(err, ErrInvalidSubscriptionStatusTransition) {
		t.Fatalf("expected terminal transition error, got %v", err)
	}
	if sub.Status != SubscriptionStatusCanceled {
		t.Fatalf("expected canceled to stick, got %q", sub.Status)
	}
}

func TestDonationTransition_ReconciledIsFinal(t *testing.T) {
	reconciled := time.Now()
	donation := Donation{Status: DonationStatusSucceeded, ReconciledAt: &reconciled}
	if err := donation.TransitionTo(DonationStatusFailed, time.Now()); !errors.Is(err, ErrInvalidDonationStatusTransition) {
		t.Fatalf("expected reconciled donation to refuse failed, got %v", err)
	}

	pending := Donation{Status: DonationStatusPending}
	if err := pending.TransitionTo(DonationStatusSucceeded, time.Now()); err != nil {
		t.Fatalf("pending -> succeeded: %v", err)
	}
}

func TestDonationValidate(t *testing.T) {
	valid := Donation{
		ExternalPaymentID: "pi_1",
		OrganizationID:    "org_1",
		AmountCents:       100,
		Currency:          "usd",
		Status:            DonationStatusSucceeded,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid donation, got %v", err)
	}
	invalid := valid
	invalid.Currency = "dollars"
	if err := invalid.Validate(); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected currency error, got %v", err)
	}
	invalid = valid
	invalid.AmountCents = -1
	if err := invalid.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected amount error, got %v", err)
	}
}
