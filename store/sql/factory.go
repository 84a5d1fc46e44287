package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

// RepositoryFactory builds every SQL-backed store over one bun handle.
type RepositoryFactory struct {
	db *bun.DB

	donationStore             *DonationStore
	aggregateStore            *AggregateStore
	subscriptionStore         *SubscriptionStore
	splitMarkerStore          *SplitMarkerStore
	organizationStore         *OrganizationStore
	campaignStore             *CampaignStore
	fundRequestStore          *FundRequestStore
	endowmentFundStore        *EndowmentFundStore
	payoutStore               *PayoutStore
	notificationDispatchStore *NotificationDispatchStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// BuildStores accepts a *bun.DB or anything exposing DB() *bun.DB, such as a
// persistence client.
func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.Stores, error) {
	if f == nil {
		return core.Stores{}, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return core.Stores{}, err
		}
		f.db = db
	}
	if f.donationStore == nil {
		if err := f.initStores(); err != nil {
			return core.Stores{}, err
		}
	}
	return f.Stores(), nil
}

func (f *RepositoryFactory) Stores() core.Stores {
	if f == nil {
		return core.Stores{}
	}
	return core.Stores{
		Donations:      f.donationStore,
		Aggregates:     f.aggregateStore,
		Subscriptions:  f.subscriptionStore,
		SplitMarkers:   f.splitMarkerStore,
		Organizations:  f.organizationStore,
		Campaigns:      f.campaignStore,
		FundRequests:   f.fundRequestStore,
		EndowmentFunds: f.endowmentFundStore,
		Payouts:        f.payoutStore,
		Dispatches:     f.notificationDispatchStore,
	}
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

// DonationStore exposes the concrete store for operator queries that are
// not part of the engine contract.
func (f *RepositoryFactory) DonationStore() *DonationStore {
	if f == nil {
		return nil
	}
	return f.donationStore
}

func (f *RepositoryFactory) OrganizationStore() *OrganizationStore {
	if f == nil {
		return nil
	}
	return f.organizationStore
}

func (f *RepositoryFactory) CampaignStore() *CampaignStore {
	if f == nil {
		return nil
	}
	return f.campaignStore
}

func (f *RepositoryFactory) FundRequestStore() *FundRequestStore {
	if f == nil {
		return nil
	}
	return f.fundRequestStore
}

func (f *RepositoryFactory) EndowmentFundStore() *EndowmentFundStore {
	if f == nil {
		return nil
	}
	return f.endowmentFundStore
}

func (f *RepositoryFactory) initStores() error {
	var err error
	if f.donationStore, err = NewDonationStore(f.db); err != nil {
		return wrapWiring("donation", err)
	}
	if f.aggregateStore, err = NewAggregateStore(f.db); err != nil {
		return wrapWiring("aggregate", err)
	}
	if f.subscriptionStore, err = NewSubscriptionStore(f.db); err != nil {
		return wrapWiring("subscription", err)
	}
	if f.splitMarkerStore, err = NewSplitMarkerStore(f.db); err != nil {
		return wrapWiring("split marker", err)
	}
	if f.organizationStore, err = NewOrganizationStore(f.db); err != nil {
		return wrapWiring("organization", err)
	}
	if f.campaignStore, err = NewCampaignStore(f.db); err != nil {
		return wrapWiring("campaign", err)
	}
	if f.fundRequestStore, err = NewFundRequestStore(f.db); err != nil {
		return wrapWiring("fund request", err)
	}
	if f.endowmentFundStore, err = NewEndowmentFundStore(f.db); err != nil {
		return wrapWiring("endowment fund", err)
	}
	if f.payoutStore, err = NewPayoutStore(f.db); err != nil {
		return wrapWiring("payout", err)
	}
	if f.notificationDispatchStore, err = NewNotificationDispatchStore(f.db); err != nil {
		return wrapWiring("notification dispatch", err)
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
