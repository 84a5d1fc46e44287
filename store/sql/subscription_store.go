package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

type SubscriptionStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewSubscriptionStore(db *bun.DB) (*SubscriptionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &SubscriptionStore{db: db, now: utcNow}, nil
}

func (s *SubscriptionStore) GetByExternalID(ctx context.Context, externalID string) (core.Subscription, bool, error) {
	if s == nil || s.db == nil {
		return core.Subscription{}, false, notConfigured("subscription")
	}
	record, err := s.findByExternalIDTx(ctx, s.db, externalID, false)
	if err != nil || record == nil {
		return core.Subscription{}, false, err
	}
	subscription, err := record.toDomain()
	if err != nil {
		return core.Subscription{}, false, err
	}
	return subscription, true, nil
}

// Upsert inserts or updates by external subscription id. A canceled row is
// returned as stored and never updated.
func (s *SubscriptionStore) Upsert(ctx context.Context, subscription core.Subscription) (core.Subscription, error) {
	if s == nil || s.db == nil {
		return core.Subscription{}, notConfigured("subscription")
	}
	if err := subscription.Validate(); err != nil {
		return core.Subscription{}, err
	}
	now := s.now()

	var out core.Subscription
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := s.findByExternalIDTx(ctx, tx, subscription.ExternalSubscriptionID, true)
		if err != nil {
			return err
		}
		if existing == nil {
			record := newSubscriptionRecord(subscription)
			if record.ID == "" {
				record.ID = uuid.NewString()
			}
			record.CreatedAt = now
			record.UpdatedAt = now
			result, insertErr := tx.NewInsert().
				Model(record).
				On("CONFLICT (external_subscription_id) DO NOTHING").
				Returning("NULL").
				Exec(ctx)
			if insertErr != nil {
				return insertErr
			}
			if rowsChanged(result) {
				out, err = record.toDomain()
				return err
			}
			if existing, err = s.findByExternalIDTx(ctx, tx, subscription.ExternalSubscriptionID, true); err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("sqlstore: subscription %q neither created nor found", subscription.ExternalSubscriptionID)
			}
		}

		if core.SubscriptionStatus(existing.Status).Terminal() {
			out, err = existing.toDomain()
			return err
		}
		record := newSubscriptionRecord(subscription)
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		record.UpdatedAt = now
		if _, err := tx.NewUpdate().
			Model(record).
			ExcludeColumn("id", "created_at").
			Where("id = ?", existing.ID).
			Exec(ctx); err != nil {
			return err
		}
		out, err = record.toDomain()
		return err
	})
	if err != nil {
		return core.Subscription{}, err
	}
	return out, nil
}

func (s *SubscriptionStore) MarkCanceled(ctx context.Context, externalID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, notConfigured("subscription")
	}
	canceled := string(core.SubscriptionStatusCanceled)
	result, err := s.db.NewUpdate().
		Model((*subscriptionRecord)(nil)).
		Set("status = ?", canceled).
		Set("updated_at = ?", s.now()).
		Where("external_subscription_id = ?", strings.TrimSpace(externalID)).
		Where("status <> ?", canceled).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return rowsChanged(result), nil
}

func (s *SubscriptionStore) findByExternalIDTx(
	ctx context.Context,
	db bun.IDB,
	externalID string,
	lock bool,
) (*subscriptionRecord, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, nil
	}
	record := &subscriptionRecord{}
	query := db.NewSelect().
		Model(record).
		Where("?TableAlias.external_subscription_id = ?", externalID).
		Limit(1)
	if lock && db.Dialect().Name() == dialect.PG {
		query = query.For("UPDATE")
	}
	if err := query.Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
