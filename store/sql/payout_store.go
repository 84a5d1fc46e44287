package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

type PayoutStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewPayoutStore(db *bun.DB) (*PayoutStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &PayoutStore{db: db, now: utcNow}, nil
}

func (s *PayoutStore) GetByExternalID(ctx context.Context, externalID string) (core.PayoutRecord, bool, error) {
	if s == nil || s.db == nil {
		return core.PayoutRecord{}, false, notConfigured("payout")
	}
	record := &payoutRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.external_payout_id = ?", strings.TrimSpace(externalID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return core.PayoutRecord{}, false, nil
		}
		return core.PayoutRecord{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *PayoutStore) Insert(ctx context.Context, payout core.PayoutRecord) (core.PayoutRecord, bool, error) {
	if s == nil || s.db == nil {
		return core.PayoutRecord{}, false, notConfigured("payout")
	}
	externalID := strings.TrimSpace(payout.ExternalPayoutID)
	if externalID == "" {
		return core.PayoutRecord{}, false, fmt.Errorf("sqlstore: payout external id is required")
	}
	record := &payoutRecord{
		ID:               payout.ID,
		ExternalPayoutID: externalID,
		OrganizationID:   payout.OrganizationID,
		AccountID:        payout.AccountID,
		AmountCents:      payout.AmountCents,
		Currency:         payout.Currency,
		Status:           payout.Status,
		ArrivalDate:      payout.ArrivalDate,
		CreatedAt:        s.now(),
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	result, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (external_payout_id) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil && !isUniqueViolation(err) {
		return core.PayoutRecord{}, false, err
	}
	if err == nil && rowsChanged(result) {
		return record.toDomain(), true, nil
	}
	existing, found, err := s.GetByExternalID(ctx, externalID)
	if err != nil {
		return core.PayoutRecord{}, false, err
	}
	if !found {
		return core.PayoutRecord{}, false, fmt.Errorf("sqlstore: payout %q neither created nor found", externalID)
	}
	return existing, false, nil
}
