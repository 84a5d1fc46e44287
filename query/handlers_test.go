package query

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

type stubDonationReader struct {
	donations map[string]core.Donation
	err       error
}

func (s stubDonationReader) GetByPaymentID(_ context.Context, paymentID string) (core.Donation, bool, error) {
	if s.err != nil {
		return core.Donation{}, false, s.err
	}
	donation, ok := s.donations[paymentID]
	return donation, ok, nil
}

type stubCampaignStore map[string]core.Campaign

func (s stubCampaignStore) Get(_ context.Context, id string) (core.Campaign, error) {
	campaign, ok := s[id]
	if !ok {
		return core.Campaign{}, core.NotFoundError("campaign not found", nil)
	}
	return campaign, nil
}

type stubFundRequestStore map[string]core.FundRequest

func (s stubFundRequestStore) Get(_ context.Context, id string) (core.FundRequest, error) {
	request, ok := s[id]
	if !ok {
		return core.FundRequest{}, core.NotFoundError("fund request not found", nil)
	}
	return request, nil
}

type stubUnreconciledReader struct {
	limit int
	rows  []core.Donation
}

func (s *stubUnreconciledReader) ListUnreconciled(_ context.Context, limit int) ([]core.Donation, error) {
	s.limit = limit
	return s.rows, nil
}

func TestGetDonationQuery_JoinsLedgerRows(t *testing.T) {
	reader := stubDonationReader{donations: map[string]core.Donation{
		"pi_1": {ID: "don_1", ExternalPaymentID: "pi_1", CampaignID: "camp_1", FundRequestID: "fr_gone"},
	}}
	campaigns := stubCampaignStore{"camp_1": {ID: "camp_1", CurrentAmountCents: 2500}}

	view, err := NewGetDonationQuery(reader, campaigns, stubFundRequestStore{}).Query(context.Background(), GetDonationMessage{PaymentID: " pi_1 "})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if view.Donation.ID != "don_1" {
		t.Fatalf("unexpected donation %#v", view.Donation)
	}
	if view.Campaign == nil || view.Campaign.CurrentAmountCents != 2500 {
		t.Fatalf("expected campaign in view, got %#v", view.Campaign)
	}
	if view.FundRequest != nil {
		t.Fatalf("expected missing fund request to be omitted")
	}
}

func TestGetDonationQuery_MissingDonationIsNotFound(t *testing.T) {
	_, err := NewGetDonationQuery(stubDonationReader{}, nil, nil).Query(context.Background(), GetDonationMessage{PaymentID: "pi_x"})
	if !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	failure := errors.New("db down")
	_, err = NewGetDonationQuery(stubDonationReader{err: failure}, nil, nil).Query(context.Background(), GetDonationMessage{PaymentID: "pi_x"})
	if !errors.Is(err, failure) {
		t.Fatalf("expected reader error, got %v", err)
	}
}

func TestGetCampaignQuery_Delegates(t *testing.T) {
	campaigns := stubCampaignStore{"camp_1": {ID: "camp_1", Name: "Roof"}}
	campaign, err := NewGetCampaignQuery(campaigns).Query(context.Background(), GetCampaignMessage{CampaignID: "camp_1"})
	if err != nil || campaign.Name != "Roof" {
		t.Fatalf("unexpected campaign %#v err=%v", campaign, err)
	}
}

func TestListUnreconciledQuery_PassesLimit(t *testing.T) {
	reader := &stubUnreconciledReader{rows: []core.Donation{{ID: "don_1"}}}
	rows, err := NewListUnreconciledQuery(reader).Query(context.Background(), ListUnreconciledMessage{Limit: 25})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if reader.limit != 25 || len(rows) != 1 {
		t.Fatalf("unexpected delegation: limit=%d rows=%d", reader.limit, len(rows))
	}
}

func TestMessages_ValidateReturnsRichErrors(t *testing.T) {
	for _, err := range []error{
		(GetDonationMessage{}).Validate(),
		(GetCampaignMessage{}).Validate(),
		(ListUnreconciledMessage{Limit: -1}).Validate(),
		(ListUnreconciledMessage{Limit: 501}).Validate(),
	} {
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			t.Fatalf("expected go-errors envelope, got %T", err)
		}
		if rich.TextCode != core.ErrorValidationFailed {
			t.Fatalf("expected %q text code, got %q", core.ErrorValidationFailed, rich.TextCode)
		}
	}
}

func TestQueries_NilDependencies(t *testing.T) {
	if _, err := NewGetDonationQuery(nil, nil, nil).Query(context.Background(), GetDonationMessage{PaymentID: "pi_1"}); err == nil {
		t.Fatalf("expected dependency error")
	}
	if _, err := NewGetCampaignQuery(nil).Query(context.Background(), GetCampaignMessage{CampaignID: "c"}); err == nil {
		t.Fatalf("expected dependency error")
	}
	if _, err := NewListUnreconciledQuery(nil).Query(context.Background(), ListUnreconciledMessage{}); err == nil {
		t.Fatalf("expected dependency error")
	}
}
