package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

type OrganizationStore struct {
	repo repository.Repository[*organizationRecord]
	now  func() time.Time
}

func NewOrganizationStore(db *bun.DB) (*OrganizationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*organizationRecord](db, organizationHandlers())
	if err := validateRepository("organization", repo); err != nil {
		return nil, err
	}
	return &OrganizationStore{repo: repo, now: utcNow}, nil
}

func (s *OrganizationStore) Create(ctx context.Context, org core.Organization) (core.Organization, error) {
	if s == nil || s.repo == nil {
		return core.Organization{}, notConfigured("organization")
	}
	record := newOrganizationRecord(org)
	if strings.TrimSpace(record.ID) == "" {
		record.ID = uuid.NewString()
	}
	now := s.now()
	record.CreatedAt = now
	record.UpdatedAt = now
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Organization{}, err
	}
	return created.toDomain(), nil
}

func (s *OrganizationStore) Get(ctx context.Context, id string) (core.Organization, error) {
	record, found, err := s.findOne(ctx, "id", id)
	if err != nil {
		return core.Organization{}, err
	}
	if !found {
		return core.Organization{}, notFound("organization", id)
	}
	return record.toDomain(), nil
}

func (s *OrganizationStore) GetByExternalAccountID(ctx context.Context, accountID string) (core.Organization, bool, error) {
	record, found, err := s.findOne(ctx, "external_account_id", accountID)
	if err != nil || !found {
		return core.Organization{}, false, err
	}
	return record.toDomain(), true, nil
}

// UpdateOnboarding overwrites the stored flags with the processor's full
// current view; nothing is patched incrementally.
func (s *OrganizationStore) UpdateOnboarding(
	ctx context.Context,
	id string,
	flags core.AccountFlags,
	completed bool,
) (core.Organization, error) {
	record, found, err := s.findOne(ctx, "id", id)
	if err != nil {
		return core.Organization{}, err
	}
	if !found {
		return core.Organization{}, notFound("organization", id)
	}
	record.ChargesEnabled = flags.ChargesEnabled
	record.PayoutsEnabled = flags.PayoutsEnabled
	record.DetailsSubmitted = flags.DetailsSubmitted
	record.OnboardingCompleted = completed
	record.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	if err != nil {
		return core.Organization{}, err
	}
	return updated.toDomain(), nil
}

func (s *OrganizationStore) findOne(ctx context.Context, column, value string) (*organizationRecord, bool, error) {
	if s == nil || s.repo == nil {
		return nil, false, notConfigured("organization")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, false, nil
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy(column, "=", value),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	return records[0], true, nil
}
