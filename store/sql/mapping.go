package sqlstore

import (
	"fmt"
	"strings"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

func nullableString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func (r *organizationRecord) toDomain() core.Organization {
	return core.Organization{
		ID:                  r.ID,
		Name:                r.Name,
		OwnerEmail:          r.OwnerEmail,
		ExternalAccountID:   stringValue(r.ExternalAccountID),
		OnboardingCompleted: r.OnboardingCompleted,
		ChargesEnabled:      r.ChargesEnabled,
		PayoutsEnabled:      r.PayoutsEnabled,
		DetailsSubmitted:    r.DetailsSubmitted,
		UpdatedAt:           r.UpdatedAt,
	}
}

func newOrganizationRecord(org core.Organization) *organizationRecord {
	return &organizationRecord{
		ID:                  org.ID,
		Name:                org.Name,
		OwnerEmail:          org.OwnerEmail,
		ExternalAccountID:   nullableString(org.ExternalAccountID),
		OnboardingCompleted: org.OnboardingCompleted,
		ChargesEnabled:      org.ChargesEnabled,
		PayoutsEnabled:      org.PayoutsEnabled,
		DetailsSubmitted:    org.DetailsSubmitted,
	}
}

func (r *campaignRecord) toDomain() core.Campaign {
	return core.Campaign{
		ID:                 r.ID,
		OrganizationID:     r.OrganizationID,
		Name:               r.Name,
		GoalAmountCents:    r.GoalAmountCents,
		CurrentAmountCents: r.CurrentAmountCents,
		UpdatedAt:          r.UpdatedAt,
	}
}

func newCampaignRecord(campaign core.Campaign) *campaignRecord {
	return &campaignRecord{
		ID:                 campaign.ID,
		OrganizationID:     campaign.OrganizationID,
		Name:               campaign.Name,
		GoalAmountCents:    campaign.GoalAmountCents,
		CurrentAmountCents: campaign.CurrentAmountCents,
	}
}

func (r *fundRequestRecord) toDomain() (core.FundRequest, error) {
	status, err := core.ParseFundRequestStatus(r.Status)
	if err != nil {
		return core.FundRequest{}, fmt.Errorf("sqlstore: fund request %s: %w", r.ID, err)
	}
	return core.FundRequest{
		ID:                   r.ID,
		OrganizationID:       r.OrganizationID,
		Title:                r.Title,
		AmountCents:          r.AmountCents,
		FulfilledAmountCents: r.FulfilledAmountCents,
		Status:               status,
		FulfilledAt:          r.FulfilledAt,
		UpdatedAt:            r.UpdatedAt,
	}, nil
}

func newFundRequestRecord(request core.FundRequest) *fundRequestRecord {
	status := string(request.Status)
	if status == "" {
		status = string(core.FundRequestStatusOpen)
	}
	return &fundRequestRecord{
		ID:                   request.ID,
		OrganizationID:       request.OrganizationID,
		Title:                request.Title,
		AmountCents:          request.AmountCents,
		FulfilledAmountCents: request.FulfilledAmountCents,
		Status:               status,
		FulfilledAt:          request.FulfilledAt,
	}
}

func (r *endowmentFundRecord) toDomain() core.EndowmentFund {
	return core.EndowmentFund{ID: r.ID, Name: r.Name, ExternalAccountID: r.ExternalAccountID}
}

func (r *donationRecord) toDomain() (core.Donation, error) {
	status, err := core.ParseDonationStatus(r.Status)
	if err != nil {
		return core.Donation{}, fmt.Errorf("sqlstore: donation %s: %w", r.ID, err)
	}
	return core.Donation{
		ID:                r.ID,
		OrganizationID:    r.OrganizationID,
		CampaignID:        stringValue(r.CampaignID),
		EndowmentFundID:   stringValue(r.EndowmentFundID),
		FundRequestID:     stringValue(r.FundRequestID),
		UserID:            stringValue(r.UserID),
		AmountCents:       r.AmountCents,
		Currency:          r.Currency,
		PlatformFeeCents:  r.PlatformFeeCents,
		ExternalPaymentID: r.ExternalPaymentID,
		ExternalChargeID:  stringValue(r.ExternalChargeID),
		ExternalInvoiceID: stringValue(r.ExternalInvoiceID),
		ExternalSubID:     stringValue(r.ExternalSubscriptionID),
		Status:            status,
		DonorEmail:        r.DonorEmail,
		DonorName:         r.DonorName,
		ReceiptToken:      r.ReceiptToken,
		ReconciledAt:      r.ReconciledAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}, nil
}

func newDonationRecord(donation core.Donation) *donationRecord {
	return &donationRecord{
		ID:                     donation.ID,
		OrganizationID:         donation.OrganizationID,
		CampaignID:             nullableString(donation.CampaignID),
		EndowmentFundID:        nullableString(donation.EndowmentFundID),
		FundRequestID:          nullableString(donation.FundRequestID),
		UserID:                 nullableString(donation.UserID),
		AmountCents:            donation.AmountCents,
		Currency:               donation.Currency,
		PlatformFeeCents:       donation.PlatformFeeCents,
		ExternalPaymentID:      strings.TrimSpace(donation.ExternalPaymentID),
		ExternalChargeID:       nullableString(donation.ExternalChargeID),
		ExternalInvoiceID:      nullableString(donation.ExternalInvoiceID),
		ExternalSubscriptionID: nullableString(donation.ExternalSubID),
		Status:                 string(donation.Status),
		DonorEmail:             donation.DonorEmail,
		DonorName:              donation.DonorName,
		ReceiptToken:           donation.ReceiptToken,
		ReconciledAt:           donation.ReconciledAt,
		CreatedAt:              donation.CreatedAt,
		UpdatedAt:              donation.UpdatedAt,
	}
}

func (r *subscriptionRecord) toDomain() (core.Subscription, error) {
	interval, err := core.ParseSubscriptionInterval(r.Interval)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("sqlstore: subscription %s: %w", r.ID, err)
	}
	return core.Subscription{
		ID:                     r.ID,
		ExternalSubscriptionID: r.ExternalSubscriptionID,
		ExternalCustomerID:     r.ExternalCustomerID,
		OrganizationID:         r.OrganizationID,
		UserID:                 stringValue(r.UserID),
		CampaignID:             stringValue(r.CampaignID),
		AmountCents:            r.AmountCents,
		Currency:               r.Currency,
		Interval:               interval,
		Status:                 core.SubscriptionStatus(r.Status),
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}, nil
}

func newSubscriptionRecord(subscription core.Subscription) *subscriptionRecord {
	return &subscriptionRecord{
		ID:                     subscription.ID,
		ExternalSubscriptionID: strings.TrimSpace(subscription.ExternalSubscriptionID),
		ExternalCustomerID:     subscription.ExternalCustomerID,
		OrganizationID:         subscription.OrganizationID,
		UserID:                 nullableString(subscription.UserID),
		CampaignID:             nullableString(subscription.CampaignID),
		AmountCents:            subscription.AmountCents,
		Currency:               subscription.Currency,
		Interval:               string(subscription.Interval),
		Status:                 string(subscription.Status),
		CreatedAt:              subscription.CreatedAt,
		UpdatedAt:              subscription.UpdatedAt,
	}
}

func (r *splitTransferRecord) toDomain() core.SplitTransfer {
	return core.SplitTransfer{
		ID:                r.ID,
		ExternalPaymentID: r.ExternalPaymentID,
		OrganizationID:    r.OrganizationID,
		SourceAccountID:   r.SourceAccountID,
		GrossAmountCents:  r.GrossAmountCents,
		Currency:          r.Currency,
		Transfers:         append([]core.SplitLeg(nil), r.Transfers...),
		CreatedAt:         r.CreatedAt,
	}
}

func (r *internalSplitPayoutRecord) toDomain() core.InternalSplitPayout {
	return core.InternalSplitPayout{
		ID:                 r.ID,
		ExternalPaymentID:  r.ExternalPaymentID,
		OrganizationID:     r.OrganizationID,
		SourceAccountID:    r.SourceAccountID,
		AmountToSplitCents: r.AmountToSplitCents,
		Currency:           r.Currency,
		Payouts:            append([]core.SplitLeg(nil), r.Payouts...),
		CreatedAt:          r.CreatedAt,
	}
}

func (r *payoutRecord) toDomain() core.PayoutRecord {
	return core.PayoutRecord{
		ID:               r.ID,
		ExternalPayoutID: r.ExternalPayoutID,
		OrganizationID:   r.OrganizationID,
		AccountID:        r.AccountID,
		AmountCents:      r.AmountCents,
		Currency:         r.Currency,
		Status:           r.Status,
		ArrivalDate:      r.ArrivalDate,
		CreatedAt:        r.CreatedAt,
	}
}
