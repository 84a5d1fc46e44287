package query

import (
	"strings"
)

const (
	TypeGetDonation      = "reconcile.query.donation.get"
	TypeGetCampaign      = "reconcile.query.campaign.get"
	TypeListUnreconciled = "reconcile.query.donation.unreconciled"

	maxUnreconciledLimit = 500
)

type GetDonationMessage struct {
	PaymentID string
}

func (GetDonationMessage) Type() string { return TypeGetDonation }

func (m GetDonationMessage) Validate() error {
	if strings.TrimSpace(m.PaymentID) == "" {
		return queryValidationError("payment_id", "payment id is required")
	}
	return nil
}

type GetCampaignMessage struct {
	CampaignID string
}

func (GetCampaignMessage) Type() string { return TypeGetCampaign }

func (m GetCampaignMessage) Validate() error {
	if strings.TrimSpace(m.CampaignID) == "" {
		return queryValidationError("campaign_id", "campaign id is required")
	}
	return nil
}

type ListUnreconciledMessage struct {
	Limit int
}

func (ListUnreconciledMessage) Type() string { return TypeListUnreconciled }

func (m ListUnreconciledMessage) Validate() error {
	if m.Limit < 0 || m.Limit > maxUnreconciledLimit {
		return queryValidationError("limit", "limit must be within [0,500]")
	}
	return nil
}
