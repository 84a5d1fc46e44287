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

// NotificationDispatchStore is the sent/failed ledger keyed by dispatch key.
// Only a sent row suppresses a later send.
type NotificationDispatchStore struct {
	repo repository.Repository[*notificationDispatchRecord]
	now  func() time.Time
}

func NewNotificationDispatchStore(db *bun.DB) (*NotificationDispatchStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*notificationDispatchRecord](db, notificationDispatchHandlers())
	if err := validateRepository("notification dispatch", repo); err != nil {
		return nil, err
	}
	return &NotificationDispatchStore{repo: repo, now: utcNow}, nil
}

func (s *NotificationDispatchStore) Seen(ctx context.Context, dispatchKey string) (bool, error) {
	record, err := s.find(ctx, dispatchKey)
	if err != nil || record == nil {
		return false, err
	}
	return record.Status == core.NotificationDispatchSent, nil
}

func (s *NotificationDispatchStore) Record(ctx context.Context, dispatch core.NotificationDispatch) error {
	existing, err := s.find(ctx, dispatch.DispatchKey)
	if err != nil {
		return err
	}
	status := strings.TrimSpace(dispatch.Status)
	if status == "" {
		status = core.NotificationDispatchSent
	}
	now := s.now()

	if existing != nil {
		if existing.Status == core.NotificationDispatchSent {
			return nil
		}
		existing.Status = status
		existing.Error = strings.TrimSpace(dispatch.Error)
		existing.Recipient = strings.TrimSpace(dispatch.Recipient)
		existing.UpdatedAt = now
		_, err := s.repo.Update(ctx, existing, repository.UpdateByID(existing.ID))
		return err
	}

	record := &notificationDispatchRecord{
		ID:          uuid.NewString(),
		DispatchKey: strings.TrimSpace(dispatch.DispatchKey),
		Kind:        string(dispatch.Kind),
		Recipient:   strings.TrimSpace(dispatch.Recipient),
		Status:      status,
		Error:       strings.TrimSpace(dispatch.Error),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.repo.Create(ctx, record); err != nil && !isUniqueViolation(err) {
		return err
	}
	return nil
}

func (s *NotificationDispatchStore) find(ctx context.Context, dispatchKey string) (*notificationDispatchRecord, error) {
	if s == nil || s.repo == nil {
		return nil, notConfigured("notification dispatch")
	}
	key := strings.TrimSpace(dispatchKey)
	if key == "" {
		return nil, fmt.Errorf("sqlstore: dispatch key is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("dispatch_key", "=", key),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}
