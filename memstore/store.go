// Package memstore is an in-process implementation of every datastore
// contract. It honors the same natural-key uniqueness as the SQL schema and
// backs unit tests and the replay command's dry-run mode.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/google/uuid"
)

type Store struct {
	Now func() time.Time

	mu                 sync.Mutex
	donations          map[string]core.Donation
	donationsByPayment map[string]string
	campaigns          map[string]core.Campaign
	fundRequests       map[string]core.FundRequest
	organizations      map[string]core.Organization
	endowmentFunds     map[string]core.EndowmentFund
	subscriptions      map[string]core.Subscription
	splitTransfers     map[string]core.SplitTransfer
	internalSplits     map[string]core.InternalSplitPayout
	payouts            map[string]core.PayoutRecord
	dispatches         map[string]core.NotificationDispatch
}

func New() *Store {
	return &Store{
		Now: func() time.Time {
			return time.Now().UTC()
		},
		donations:          map[string]core.Donation{},
		donationsByPayment: map[string]string{},
		campaigns:          map[string]core.Campaign{},
		fundRequests:       map[string]core.FundRequest{},
		organizations:      map[string]core.Organization{},
		endowmentFunds:     map[string]core.EndowmentFund{},
		subscriptions:      map[string]core.Subscription{},
		splitTransfers:     map[string]core.SplitTransfer{},
		internalSplits:     map[string]core.InternalSplitPayout{},
		payouts:            map[string]core.PayoutRecord{},
		dispatches:         map[string]core.NotificationDispatch{},
	}
}

// Stores exposes the store through the engine's datastore contracts.
func (s *Store) Stores() core.Stores {
	return core.Stores{
		Donations:      donationStore{s},
		Aggregates:     aggregateStore{s},
		Subscriptions:  subscriptionStore{s},
		SplitMarkers:   splitMarkerStore{s},
		Organizations:  organizationStore{s},
		Campaigns:      campaignStore{s},
		FundRequests:   fundRequestStore{s},
		EndowmentFunds: endowmentFundStore{s},
		Payouts:        payoutStore{s},
		Dispatches:     dispatchStore{s},
	}
}

func (s *Store) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func newID() string {
	return uuid.NewString()
}

func notFound(entity, id string) error {
	return core.NotFoundError(fmt.Sprintf("memstore: %s not found", entity), map[string]any{
		"entity": entity,
		"id":     id,
	})
}

func (s *Store) PutOrganization(org core.Organization) core.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	if org.ID == "" {
		org.ID = newID()
	}
	s.organizations[org.ID] = org
	return org
}

func (s *Store) PutCampaign(campaign core.Campaign) core.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	if campaign.ID == "" {
		campaign.ID = newID()
	}
	s.campaigns[campaign.ID] = campaign
	return campaign
}

func (s *Store) PutFundRequest(request core.FundRequest) core.FundRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if request.ID == "" {
		request.ID = newID()
	}
	if request.Status == "" {
		request.Status = core.FundRequestStatusOpen
	}
	s.fundRequests[request.ID] = request
	return request
}

func (s *Store) PutEndowmentFund(fund core.EndowmentFund) core.EndowmentFund {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fund.ID == "" {
		fund.ID = newID()
	}
	s.endowmentFunds[fund.ID] = fund
	return fund
}

// PutDonation seeds a row the way an optimistic write outside the engine would.
func (s *Store) PutDonation(donation core.Donation) core.Donation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if donation.ID == "" {
		donation.ID = newID()
	}
	s.donations[donation.ID] = donation
	s.donationsByPayment[donation.ExternalPaymentID] = donation.ID
	return donation
}

func (s *Store) PutSubscription(subscription core.Subscription) core.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if subscription.ID == "" {
		subscription.ID = newID()
	}
	s.subscriptions[subscription.ExternalSubscriptionID] = subscription
	return subscription
}

func (s *Store) Donations() []core.Donation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Donation, 0, len(s.donations))
	for _, donation := range s.donations {
		out = append(out, donation)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExternalPaymentID < out[j].ExternalPaymentID
	})
	return out
}

func (s *Store) Campaign(id string) (core.Campaign, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	campaign, ok := s.campaigns[id]
	return campaign, ok
}

func (s *Store) FundRequest(id string) (core.FundRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.fundRequests[id]
	return request, ok
}

func (s *Store) Organization(id string) (core.Organization, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.organizations[id]
	return org, ok
}

func (s *Store) Subscription(externalID string) (core.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subscription, ok := s.subscriptions[externalID]
	return subscription, ok
}

func (s *Store) SplitTransfer(paymentID string) (core.SplitTransfer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	marker, ok := s.splitTransfers[paymentID]
	return marker, ok
}

func (s *Store) InternalSplitPayout(paymentID string) (core.InternalSplitPayout, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	marker, ok := s.internalSplits[paymentID]
	return marker, ok
}

func (s *Store) Payouts() []core.PayoutRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.PayoutRecord, 0, len(s.payouts))
	for _, payout := range s.payouts {
		out = append(out, payout)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExternalPayoutID < out[j].ExternalPayoutID
	})
	return out
}

func (s *Store) Dispatches() []core.NotificationDispatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.NotificationDispatch, 0, len(s.dispatches))
	for _, dispatch := range s.dispatches {
		out = append(out, dispatch)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DispatchKey < out[j].DispatchKey
	})
	return out
}

type donationStore struct{ s *Store }

func (d donationStore) GetByPaymentID(_ context.Context, paymentID string) (core.Donation, bool, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	id, ok := d.s.donationsByPayment[strings.TrimSpace(paymentID)]
	if !ok {
		return core.Donation{}, false, nil
	}
	return d.s.donations[id], true, nil
}

// ListUnreconciled mirrors the SQL store: succeeded rows never reconciled,
// oldest first.
func (s *Store) ListUnreconciled(_ context.Context, limit int) ([]core.Donation, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Donation, 0)
	for _, donation := range s.donations {
		if donation.Status == core.DonationStatusSucceeded && !donation.Reconciled() {
			out = append(out, donation)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ExternalPaymentID < out[j].ExternalPaymentID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d donationStore) GetByChargeID(_ context.Context, chargeID string) (core.Donation, bool, error) {
	chargeID = strings.TrimSpace(chargeID)
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	for _, donation := range d.s.donations {
		if chargeID != "" && donation.ExternalChargeID == chargeID {
			return donation, true, nil
		}
	}
	return core.Donation{}, false, nil
}

func (d donationStore) Insert(_ context.Context, donation core.Donation) (core.Donation, bool, error) {
	if err := donation.Validate(); err != nil {
		return core.Donation{}, false, err
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if id, exists := d.s.donationsByPayment[donation.ExternalPaymentID]; exists {
		return d.s.donations[id], false, nil
	}
	now := d.s.now()
	if donation.ID == "" {
		donation.ID = newID()
	}
	donation.CreatedAt = now
	donation.UpdatedAt = now
	d.s.donations[donation.ID] = donation
	d.s.donationsByPayment[donation.ExternalPaymentID] = donation.ID
	return donation, true, nil
}

func (d donationStore) Adopt(_ context.Context, id string, donation core.Donation) (core.Donation, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	existing, ok := d.s.donations[id]
	if !ok {
		return core.Donation{}, notFound("donation", id)
	}
	if existing.Reconciled() {
		return existing, nil
	}
	existing.Status = core.DonationStatusSucceeded
	fillBlank(&existing.OrganizationID, donation.OrganizationID)
	fillBlank(&existing.CampaignID, donation.CampaignID)
	fillBlank(&existing.EndowmentFundID, donation.EndowmentFundID)
	fillBlank(&existing.FundRequestID, donation.FundRequestID)
	fillBlank(&existing.UserID, donation.UserID)
	fillBlank(&existing.ExternalChargeID, donation.ExternalChargeID)
	fillBlank(&existing.ExternalInvoiceID, donation.ExternalInvoiceID)
	fillBlank(&existing.ExternalSubID, donation.ExternalSubID)
	fillBlank(&existing.DonorEmail, donation.DonorEmail)
	fillBlank(&existing.DonorName, donation.DonorName)
	fillBlank(&existing.ReceiptToken, donation.ReceiptToken)
	if existing.AmountCents == 0 {
		existing.AmountCents = donation.AmountCents
	}
	if existing.PlatformFeeCents == 0 {
		existing.PlatformFeeCents = donation.PlatformFeeCents
	}
	fillBlank(&existing.Currency, donation.Currency)
	existing.UpdatedAt = d.s.now()
	d.s.donations[id] = existing
	return existing, nil
}

func (d donationStore) MarkFailed(_ context.Context, paymentID string) (bool, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	id, ok := d.s.donationsByPayment[strings.TrimSpace(paymentID)]
	if !ok {
		return false, nil
	}
	donation := d.s.donations[id]
	if donation.Reconciled() || donation.Status == core.DonationStatusFailed {
		return false, nil
	}
	donation.Status = core.DonationStatusFailed
	donation.UpdatedAt = d.s.now()
	d.s.donations[id] = donation
	return true, nil
}

func (d donationStore) AttachCharge(_ context.Context, paymentID string, chargeID string) (bool, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	id, ok := d.s.donationsByPayment[strings.TrimSpace(paymentID)]
	if !ok {
		return false, nil
	}
	donation := d.s.donations[id]
	if donation.ExternalChargeID != "" {
		return false, nil
	}
	donation.ExternalChargeID = strings.TrimSpace(chargeID)
	donation.UpdatedAt = d.s.now()
	d.s.donations[id] = donation
	return true, nil
}

func fillBlank(target *string, value string) {
	if strings.TrimSpace(*target) == "" {
		*target = value
	}
}

type aggregateStore struct{ s *Store }

func (a aggregateStore) ApplyDonation(_ context.Context, in core.AggregateInput) (core.AggregateResult, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	donation, ok := a.s.donations[in.DonationID]
	if !ok {
		return core.AggregateResult{}, notFound("donation", in.DonationID)
	}
	if donation.Reconciled() {
		return core.AggregateResult{}, nil
	}
	now := a.s.now()
	donation.ReconciledAt = &now
	donation.UpdatedAt = now
	a.s.donations[donation.ID] = donation

	result := core.AggregateResult{Claimed: true}
	if campaign, exists := a.s.campaigns[in.CampaignID]; exists && in.CampaignID != "" {
		updated, err := campaign.ApplyDonation(in.AmountCents)
		if err != nil {
			return core.AggregateResult{}, err
		}
		updated.UpdatedAt = now
		a.s.campaigns[campaign.ID] = updated
		result.CampaignUpdated = true
	}
	if request, exists := a.s.fundRequests[in.FundRequestID]; exists && in.FundRequestID != "" {
		wasFulfilled := request.Status == core.FundRequestStatusFulfilled
		updated, err := request.ApplyDonation(in.AmountCents, now)
		if err != nil {
			return core.AggregateResult{}, err
		}
		a.s.fundRequests[request.ID] = updated
		result.FundRequestUpdated = true
		result.FundRequest = &updated
		result.BecameFulfilled = !wasFulfilled && updated.Status == core.FundRequestStatusFulfilled
	}
	return result, nil
}

type subscriptionStore struct{ s *Store }

func (m subscriptionStore) GetByExternalID(_ context.Context, externalID string) (core.Subscription, bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	subscription, ok := m.s.subscriptions[strings.TrimSpace(externalID)]
	return subscription, ok, nil
}

func (m subscriptionStore) Upsert(_ context.Context, subscription core.Subscription) (core.Subscription, error) {
	if err := subscription.Validate(); err != nil {
		return core.Subscription{}, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	now := m.s.now()
	existing, ok := m.s.subscriptions[subscription.ExternalSubscriptionID]
	if !ok {
		if subscription.ID == "" {
			subscription.ID = newID()
		}
		subscription.CreatedAt = now
		subscription.UpdatedAt = now
		m.s.subscriptions[subscription.ExternalSubscriptionID] = subscription
		return subscription, nil
	}
	if existing.Status.Terminal() {
		return existing, nil
	}
	subscription.ID = existing.ID
	subscription.CreatedAt = existing.CreatedAt
	subscription.UpdatedAt = now
	m.s.subscriptions[subscription.ExternalSubscriptionID] = subscription
	return subscription, nil
}

func (m subscriptionStore) MarkCanceled(_ context.Context, externalID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	subscription, ok := m.s.subscriptions[strings.TrimSpace(externalID)]
	if !ok {
		return false, nil
	}
	if subscription.Status.Terminal() {
		return false, nil
	}
	if err := subscription.TransitionTo(core.SubscriptionStatusCanceled, m.s.now()); err != nil {
		return false, err
	}
	m.s.subscriptions[subscription.ExternalSubscriptionID] = subscription
	return true, nil
}

type splitMarkerStore struct{ s *Store }

func (m splitMarkerStore) GetSplitTransfer(_ context.Context, paymentID string) (core.SplitTransfer, bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	marker, ok := m.s.splitTransfers[paymentID]
	return marker, ok, nil
}

func (m splitMarkerStore) RecordSplitTransfer(_ context.Context, marker core.SplitTransfer) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, exists := m.s.splitTransfers[marker.ExternalPaymentID]; exists {
		return false, nil
	}
	if marker.ID == "" {
		marker.ID = newID()
	}
	marker.CreatedAt = m.s.now()
	marker.Transfers = append([]core.SplitLeg(nil), marker.Transfers...)
	m.s.splitTransfers[marker.ExternalPaymentID] = marker
	return true, nil
}

func (m splitMarkerStore) GetInternalSplitPayout(_ context.Context, paymentID string) (core.InternalSplitPayout, bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	marker, ok := m.s.internalSplits[paymentID]
	return marker, ok, nil
}

func (m splitMarkerStore) RecordInternalSplitPayout(_ context.Context, marker core.InternalSplitPayout) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, exists := m.s.internalSplits[marker.ExternalPaymentID]; exists {
		return false, nil
	}
	if marker.ID == "" {
		marker.ID = newID()
	}
	marker.CreatedAt = m.s.now()
	marker.Payouts = append([]core.SplitLeg(nil), marker.Payouts...)
	m.s.internalSplits[marker.ExternalPaymentID] = marker
	return true, nil
}

type organizationStore struct{ s *Store }

func (o organizationStore) Get(_ context.Context, id string) (core.Organization, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	org, ok := o.s.organizations[id]
	if !ok {
		return core.Organization{}, notFound("organization", id)
	}
	return org, nil
}

func (o organizationStore) GetByExternalAccountID(_ context.Context, accountID string) (core.Organization, bool, error) {
	accountID = strings.TrimSpace(accountID)
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	for _, org := range o.s.organizations {
		if accountID != "" && org.ExternalAccountID == accountID {
			return org, true, nil
		}
	}
	return core.Organization{}, false, nil
}

func (o organizationStore) UpdateOnboarding(_ context.Context, id string, flags core.AccountFlags, completed bool) (core.Organization, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	org, ok := o.s.organizations[id]
	if !ok {
		return core.Organization{}, notFound("organization", id)
	}
	org.ChargesEnabled = flags.ChargesEnabled
	org.PayoutsEnabled = flags.PayoutsEnabled
	org.DetailsSubmitted = flags.DetailsSubmitted
	org.OnboardingCompleted = completed
	org.UpdatedAt = o.s.now()
	o.s.organizations[id] = org
	return org, nil
}

type campaignStore struct{ s *Store }

func (c campaignStore) Get(_ context.Context, id string) (core.Campaign, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	campaign, ok := c.s.campaigns[id]
	if !ok {
		return core.Campaign{}, notFound("campaign", id)
	}
	return campaign, nil
}

type fundRequestStore struct{ s *Store }

func (f fundRequestStore) Get(_ context.Context, id string) (core.FundRequest, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	request, ok := f.s.fundRequests[id]
	if !ok {
		return core.FundRequest{}, notFound("fund_request", id)
	}
	return request, nil
}

type endowmentFundStore struct{ s *Store }

func (e endowmentFundStore) Get(_ context.Context, id string) (core.EndowmentFund, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	fund, ok := e.s.endowmentFunds[id]
	if !ok {
		return core.EndowmentFund{}, notFound("endowment_fund", id)
	}
	return fund, nil
}

type payoutStore struct{ s *Store }

func (p payoutStore) GetByExternalID(_ context.Context, externalID string) (core.PayoutRecord, bool, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	payout, ok := p.s.payouts[strings.TrimSpace(externalID)]
	return payout, ok, nil
}

func (p payoutStore) Insert(_ context.Context, payout core.PayoutRecord) (core.PayoutRecord, bool, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if existing, exists := p.s.payouts[payout.ExternalPayoutID]; exists {
		return existing, false, nil
	}
	if payout.ID == "" {
		payout.ID = newID()
	}
	payout.CreatedAt = p.s.now()
	p.s.payouts[payout.ExternalPayoutID] = payout
	return payout, true, nil
}

type dispatchStore struct{ s *Store }

func (d dispatchStore) Seen(_ context.Context, dispatchKey string) (bool, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	dispatch, ok := d.s.dispatches[dispatchKey]
	return ok && dispatch.Status == core.NotificationDispatchSent, nil
}

func (d dispatchStore) Record(_ context.Context, dispatch core.NotificationDispatch) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if existing, ok := d.s.dispatches[dispatch.DispatchKey]; ok && existing.Status == core.NotificationDispatchSent {
		return nil
	}
	if dispatch.ID == "" {
		dispatch.ID = newID()
	}
	dispatch.CreatedAt = d.s.now()
	d.s.dispatches[dispatch.DispatchKey] = dispatch
	return nil
}
