package query

import (
	"context"
	"strings"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

type DonationReader interface {
	GetByPaymentID(ctx context.Context, paymentID string) (core.Donation, bool, error)
}

type UnreconciledReader interface {
	ListUnreconciled(ctx context.Context, limit int) ([]core.Donation, error)
}

// DonationView is a donation with the ledger rows it credits.
type DonationView struct {
	Donation    core.Donation
	Campaign    *core.Campaign
	FundRequest *core.FundRequest
}

type GetDonationQuery struct {
	donations    DonationReader
	campaigns    core.CampaignStore
	fundRequests core.FundRequestStore
}

// NewGetDonationQuery requires donations; campaigns and fund requests are
// optional and only widen the view.
func NewGetDonationQuery(donations DonationReader, campaigns core.CampaignStore, fundRequests core.FundRequestStore) *GetDonationQuery {
	return &GetDonationQuery{donations: donations, campaigns: campaigns, fundRequests: fundRequests}
}

func (q *GetDonationQuery) Query(ctx context.Context, msg GetDonationMessage) (DonationView, error) {
	if q == nil || q.donations == nil {
		return DonationView{}, queryDependencyError("query: donation reader is required")
	}
	if err := msg.Validate(); err != nil {
		return DonationView{}, err
	}
	paymentID := strings.TrimSpace(msg.PaymentID)
	donation, found, err := q.donations.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return DonationView{}, err
	}
	if !found {
		return DonationView{}, core.NotFoundError("query: donation not found", map[string]any{"payment_id": paymentID})
	}

	view := DonationView{Donation: donation}
	if donation.CampaignID != "" && q.campaigns != nil {
		campaign, err := q.campaigns.Get(ctx, donation.CampaignID)
		if err != nil && !core.IsNotFound(err) {
			return DonationView{}, err
		}
		if err == nil {
			view.Campaign = &campaign
		}
	}
	if donation.FundRequestID != "" && q.fundRequests != nil {
		request, err := q.fundRequests.Get(ctx, donation.FundRequestID)
		if err != nil && !core.IsNotFound(err) {
			return DonationView{}, err
		}
		if err == nil {
			view.FundRequest = &request
		}
	}
	return view, nil
}

type GetCampaignQuery struct {
	campaigns core.CampaignStore
}

func NewGetCampaignQuery(campaigns core.CampaignStore) *GetCampaignQuery {
	return &GetCampaignQuery{campaigns: campaigns}
}

func (q *GetCampaignQuery) Query(ctx context.Context, msg GetCampaignMessage) (core.Campaign, error) {
	if q == nil || q.campaigns == nil {
		return core.Campaign{}, queryDependencyError("query: campaign store is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Campaign{}, err
	}
	return q.campaigns.Get(ctx, strings.TrimSpace(msg.CampaignID))
}

type ListUnreconciledQuery struct {
	reader UnreconciledReader
}

func NewListUnreconciledQuery(reader UnreconciledReader) *ListUnreconciledQuery {
	return &ListUnreconciledQuery{reader: reader}
}

func (q *ListUnreconciledQuery) Query(ctx context.Context, msg ListUnreconciledMessage) ([]core.Donation, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: unreconciled reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.ListUnreconciled(ctx, msg.Limit)
}
