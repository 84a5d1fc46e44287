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

// SplitMarkerStore persists the per-payment split markers. Both tables are
// unique on the payment id; a second record for the same payment is a no-op.
type SplitMarkerStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewSplitMarkerStore(db *bun.DB) (*SplitMarkerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &SplitMarkerStore{db: db, now: utcNow}, nil
}

func (s *SplitMarkerStore) GetSplitTransfer(ctx context.Context, paymentID string) (core.SplitTransfer, bool, error) {
	if s == nil || s.db == nil {
		return core.SplitTransfer{}, false, notConfigured("split marker")
	}
	record := &splitTransferRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.external_payment_id = ?", strings.TrimSpace(paymentID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return core.SplitTransfer{}, false, nil
		}
		return core.SplitTransfer{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *SplitMarkerStore) RecordSplitTransfer(ctx context.Context, marker core.SplitTransfer) (bool, error) {
	if s == nil || s.db == nil {
		return false, notConfigured("split marker")
	}
	if strings.TrimSpace(marker.ExternalPaymentID) == "" {
		return false, fmt.Errorf("sqlstore: split transfer payment id is required")
	}
	record := &splitTransferRecord{
		ID:                marker.ID,
		ExternalPaymentID: strings.TrimSpace(marker.ExternalPaymentID),
		OrganizationID:    marker.OrganizationID,
		SourceAccountID:   marker.SourceAccountID,
		GrossAmountCents:  marker.GrossAmountCents,
		Currency:          marker.Currency,
		Transfers:         legsOrEmpty(marker.Transfers),
		CreatedAt:         s.now(),
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	return s.insertOnce(ctx, record)
}

func (s *SplitMarkerStore) GetInternalSplitPayout(ctx context.Context, paymentID string) (core.InternalSplitPayout, bool, error) {
	if s == nil || s.db == nil {
		return core.InternalSplitPayout{}, false, notConfigured("split marker")
	}
	record := &internalSplitPayoutRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.external_payment_id = ?", strings.TrimSpace(paymentID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return core.InternalSplitPayout{}, false, nil
		}
		return core.InternalSplitPayout{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *SplitMarkerStore) RecordInternalSplitPayout(ctx context.Context, marker core.InternalSplitPayout) (bool, error) {
	if s == nil || s.db == nil {
		return false, notConfigured("split marker")
	}
	if strings.TrimSpace(marker.ExternalPaymentID) == "" {
		return false, fmt.Errorf("sqlstore: internal split payment id is required")
	}
	record := &internalSplitPayoutRecord{
		ID:                 marker.ID,
		ExternalPaymentID:  strings.TrimSpace(marker.ExternalPaymentID),
		OrganizationID:     marker.OrganizationID,
		SourceAccountID:    marker.SourceAccountID,
		AmountToSplitCents: marker.AmountToSplitCents,
		Currency:           marker.Currency,
		Payouts:            legsOrEmpty(marker.Payouts),
		CreatedAt:          s.now(),
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	return s.insertOnce(ctx, record)
}

func (s *SplitMarkerStore) insertOnce(ctx context.Context, model any) (bool, error) {
	result, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (external_payment_id) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return rowsChanged(result), nil
}

func legsOrEmpty(legs []core.SplitLeg) []core.SplitLeg {
	if legs == nil {
		return []core.SplitLeg{}
	}
	return append([]core.SplitLeg(nil), legs...)
}
