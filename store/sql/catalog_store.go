package sqlstore

import (
	"context"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

// Campaigns, fund requests and endowment funds are owned by the wider
// application; the engine reads them and only seeds them in tooling.

type CampaignStore struct {
	repo repository.Repository[*campaignRecord]
}

func NewCampaignStore(db *bun.DB) (*CampaignStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*campaignRecord](db, campaignHandlers())
	if err := validateRepository("campaign", repo); err != nil {
		return nil, err
	}
	return &CampaignStore{repo: repo}, nil
}

func (s *CampaignStore) Get(ctx context.Context, id string) (core.Campaign, error) {
	if s == nil || s.repo == nil {
		return core.Campaign{}, notConfigured("campaign")
	}
	record, found, err := findByID(ctx, s.repo, id)
	if err != nil {
		return core.Campaign{}, err
	}
	if !found {
		return core.Campaign{}, notFound("campaign", id)
	}
	return record.toDomain(), nil
}

func (s *CampaignStore) Create(ctx context.Context, campaign core.Campaign) (core.Campaign, error) {
	if s == nil || s.repo == nil {
		return core.Campaign{}, notConfigured("campaign")
	}
	record := newCampaignRecord(campaign)
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := utcNow()
	record.CreatedAt = now
	record.UpdatedAt = now
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Campaign{}, err
	}
	return created.toDomain(), nil
}

type FundRequestStore struct {
	repo repository.Repository[*fundRequestRecord]
}

func NewFundRequestStore(db *bun.DB) (*FundRequestStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*fundRequestRecord](db, fundRequestHandlers())
	if err := validateRepository("fund request", repo); err != nil {
		return nil, err
	}
	return &FundRequestStore{repo: repo}, nil
}

func (s *FundRequestStore) Get(ctx context.Context, id string) (core.FundRequest, error) {
	if s == nil || s.repo == nil {
		return core.FundRequest{}, notConfigured("fund request")
	}
	record, found, err := findByID(ctx, s.repo, id)
	if err != nil {
		return core.FundRequest{}, err
	}
	if !found {
		return core.FundRequest{}, notFound("fund_request", id)
	}
	return record.toDomain()
}

func (s *FundRequestStore) Create(ctx context.Context, request core.FundRequest) (core.FundRequest, error) {
	if s == nil || s.repo == nil {
		return core.FundRequest{}, notConfigured("fund request")
	}
	record := newFundRequestRecord(request)
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := utcNow()
	record.CreatedAt = now
	record.UpdatedAt = now
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.FundRequest{}, err
	}
	return created.toDomain()
}

type EndowmentFundStore struct {
	repo repository.Repository[*endowmentFundRecord]
}

func NewEndowmentFundStore(db *bun.DB) (*EndowmentFundStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*endowmentFundRecord](db, endowmentFundHandlers())
	if err := validateRepository("endowment fund", repo); err != nil {
		return nil, err
	}
	return &EndowmentFundStore{repo: repo}, nil
}

func (s *EndowmentFundStore) Get(ctx context.Context, id string) (core.EndowmentFund, error) {
	if s == nil || s.repo == nil {
		return core.EndowmentFund{}, notConfigured("endowment fund")
	}
	record, found, err := findByID(ctx, s.repo, id)
	if err != nil {
		return core.EndowmentFund{}, err
	}
	if !found {
		return core.EndowmentFund{}, notFound("endowment_fund", id)
	}
	return record.toDomain(), nil
}

func (s *EndowmentFundStore) Create(ctx context.Context, fund core.EndowmentFund) (core.EndowmentFund, error) {
	if s == nil || s.repo == nil {
		return core.EndowmentFund{}, notConfigured("endowment fund")
	}
	record := &endowmentFundRecord{
		ID:                strings.TrimSpace(fund.ID),
		Name:              fund.Name,
		ExternalAccountID: strings.TrimSpace(fund.ExternalAccountID),
		CreatedAt:         utcNow(),
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.EndowmentFund{}, err
	}
	return created.toDomain(), nil
}

func findByID[T any](ctx context.Context, repo repository.Repository[T], id string) (T, bool, error) {
	var zero T
	id = strings.TrimSpace(id)
	if id == "" {
		return zero, false, nil
	}
	records, _, err := repo.List(ctx,
		repository.SelectBy("id", "=", id),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return zero, false, err
	}
	if len(records) == 0 {
		return zero, false, nil
	}
	return records[0], true, nil
}
