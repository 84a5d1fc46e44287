package inbound

import (
	"context"
	"strings"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

const checkoutModeSubscription = "subscription"

// SubscriptionHandler keeps the local subscription row in step with the
// processor. Canceled is terminal.
type SubscriptionHandler struct {
	deps Dependencies
}

func (*SubscriptionHandler) Kinds() []core.EventKind {
	return []core.EventKind{
		core.EventCheckoutSessionCompleted,
		core.EventSubscriptionUpdated,
		core.EventSubscriptionDeleted,
	}
}

func (h *SubscriptionHandler) Handle(ctx context.Context, event core.ExternalEvent) (core.HandleResult, error) {
	switch event.Kind {
	case core.EventCheckoutSessionCompleted:
		return h.checkoutCompleted(ctx, event)
	case core.EventSubscriptionDeleted:
		return h.deleted(ctx, event)
	default:
		return h.updated(ctx, event)
	}
}

func (h *SubscriptionHandler) checkoutCompleted(ctx context.Context, event core.ExternalEvent) (core.HandleResult, error) {
	var session core.CheckoutSession
	if err := event.Decode(&session); err != nil {
		return core.HandleResult{}, err
	}
	if session.Mode != checkoutModeSubscription || strings.TrimSpace(session.Subscription) == "" {
		return core.HandleResult{
			Outcome:  core.OutcomeIgnored,
			Metadata: map[string]any{"checkout_mode": session.Mode},
		}, nil
	}

	check, err := h.deps.Guard.SubscriptionRecorded(ctx, session.Subscription)
	if err != nil {
		return core.HandleResult{}, err
	}
	if check.Duplicate {
		return duplicate(check.Fields())
	}

	remote, err := h.deps.Processor.RetrieveSubscription(ctx, session.Subscription)
	if err != nil {
		return core.HandleResult{}, err
	}
	organizationID := firstNonEmpty(session.Metadata.Get(core.MetaOrganizationID), remote.Metadata.Get(core.MetaOrganizationID))
	if organizationID == "" {
		return core.HandleResult{}, missingCorrelation(event, core.MetaOrganizationID)
	}
	subscription, err := subscriptionFromRemote(remote, nil)
	if err != nil {
		return core.HandleResult{}, err
	}
	subscription.OrganizationID = organizationID
	subscription.CampaignID = firstNonEmpty(session.Metadata.Get(core.MetaCampaignID), subscription.CampaignID)
	subscription.UserID = firstNonEmpty(session.Metadata.Get(core.MetaUserID), subscription.UserID)
	subscription.ExternalCustomerID = firstNonEmpty(session.Customer, subscription.ExternalCustomerID)
	// A cancel that overtook the checkout event is already reflected remotely.
	if !subscription.Status.Terminal() {
		subscription.Status = core.SubscriptionStatusActive
	}

	stored, err := h.deps.Ledger.UpsertSubscription(ctx, subscription)
	if err != nil {
		return core.HandleResult{}, err
	}
	return core.HandleResult{
		Outcome:  core.OutcomeProcessed,
		Metadata: mergeFields(map[string]any{"subscription_status": string(stored.Status)}, check.Fields()),
	}, nil
}

// updated mirrors the processor status verbatim.
func (h *SubscriptionHandler) updated(ctx context.Context, event core.ExternalEvent) (core.HandleResult, error) {
	var remote core.SubscriptionObject
	if err := event.Decode(&remote); err != nil {
		return core.HandleResult{}, err
	}
	if err := remote.Validate(); err != nil {
		return core.HandleResult{}, err
	}
	existing, found, err := h.deps.Stores.Subscriptions.GetByExternalID(ctx, remote.ID)
	if err != nil {
		return core.HandleResult{}, core.PersistenceError(err, "inbound: load subscription", map[string]any{"subscription_id": remote.ID})
	}
	metadata := map[string]any{"subscription_id": remote.ID}
	if found && existing.Status.Terminal() {
		return skipped("subscription already canceled", metadata)
	}

	var prior *core.Subscription
	if found {
		prior = &existing
	}
	subscription, err := subscriptionFromRemote(remote, prior)
	if err != nil {
		return core.HandleResult{}, err
	}
	if subscription.OrganizationID == "" {
		return core.HandleResult{}, missingCorrelation(event, core.MetaOrganizationID)
	}
	stored, err := h.deps.Ledger.UpsertSubscription(ctx, subscription)
	if err != nil {
		return core.HandleResult{}, err
	}
	metadata["subscription_status"] = string(stored.Status)
	return core.HandleResult{Outcome: core.OutcomeProcessed, Metadata: metadata}, nil
}

func (h *SubscriptionHandler) deleted(ctx context.Context, event core.ExternalEvent) (core.HandleResult, error) {
	var remote core.SubscriptionObject
	if err := event.Decode(&remote); err != nil {
		return core.HandleResult{}, err
	}
	if strings.TrimSpace(remote.ID) == "" {
		return core.HandleResult{}, core.ValidationError("subscription id is required", core.EventFields(event, nil))
	}
	changed, err := h.deps.Ledger.CancelSubscription(ctx, remote.ID)
	if err != nil {
		return core.HandleResult{}, err
	}
	metadata := map[string]any{"subscription_id": remote.ID, "subscription_canceled": changed}
	if !changed {
		return skipped("no active subscription", metadata)
	}
	return core.HandleResult{Outcome: core.OutcomeProcessed, Metadata: metadata}, nil
}

// subscriptionFromRemote maps the processor object onto a local row, keeping
// correlation fields from prior when the object's metadata lacks them.
func subscriptionFromRemote(remote core.SubscriptionObject, prior *core.Subscription) (core.Subscription, error) {
	subscription := core.Subscription{
		ExternalSubscriptionID: remote.ID,
		ExternalCustomerID:     remote.Customer,
		OrganizationID:         remote.Metadata.Get(core.MetaOrganizationID),
		CampaignID:             remote.Metadata.Get(core.MetaCampaignID),
		UserID:                 remote.Metadata.Get(core.MetaUserID),
		AmountCents:            remote.AmountCents(),
		Status:                 core.SubscriptionStatus(strings.TrimSpace(remote.Status)),
	}
	if prior != nil {
		subscription.ID = prior.ID
		subscription.OrganizationID = firstNonEmpty(subscription.OrganizationID, prior.OrganizationID)
		subscription.CampaignID = firstNonEmpty(subscription.CampaignID, prior.CampaignID)
		subscription.UserID = firstNonEmpty(subscription.UserID, prior.UserID)
		subscription.ExternalCustomerID = firstNonEmpty(subscription.ExternalCustomerID, prior.ExternalCustomerID)
	}

	if currency, err := core.NormalizeCurrency(remote.CurrencyCode()); err == nil {
		subscription.Currency = currency
	} else if prior != nil {
		subscription.Currency = prior.Currency
	}

	interval := remote.Interval()
	if interval == "" && prior != nil {
		interval = string(prior.Interval)
	}
	parsed, err := core.ParseSubscriptionInterval(interval)
	if err != nil {
		return core.Subscription{}, core.ValidationError(err.Error(), map[string]any{"subscription_id": remote.ID})
	}
	subscription.Interval = parsed
	if subscription.AmountCents == 0 && prior != nil {
		subscription.AmountCents = prior.AmountCents
	}
	return subscription, nil
}
