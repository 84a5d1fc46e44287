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

type DonationStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewDonationStore(db *bun.DB) (*DonationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &DonationStore{db: db, now: utcNow}, nil
}

func (s *DonationStore) GetByPaymentID(ctx context.Context, paymentID string) (core.Donation, bool, error) {
	return s.findOne(ctx, s.db, "external_payment_id", paymentID)
}

func (s *DonationStore) GetByChargeID(ctx context.Context, chargeID string) (core.Donation, bool, error) {
	return s.findOne(ctx, s.db, "external_charge_id", chargeID)
}

// Insert writes a new donation unless the payment id is already taken, in
// which case the stored row is returned with created=false.
func (s *DonationStore) Insert(ctx context.Context, donation core.Donation) (core.Donation, bool, error) {
	if s == nil || s.db == nil {
		return core.Donation{}, false, notConfigured("donation")
	}
	if err := donation.Validate(); err != nil {
		return core.Donation{}, false, err
	}
	now := s.now()
	record := newDonationRecord(donation)
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = now
	record.UpdatedAt = now

	result, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (external_payment_id) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil && !isUniqueViolation(err) {
		return core.Donation{}, false, err
	}
	if err == nil {
		if affected, rowsErr := result.RowsAffected(); rowsErr == nil && affected == 1 {
			stored, toDomainErr := record.toDomain()
			return stored, true, toDomainErr
		}
	}

	existing, found, err := s.GetByPaymentID(ctx, record.ExternalPaymentID)
	if err != nil {
		return core.Donation{}, false, err
	}
	if !found {
		return core.Donation{}, false, fmt.Errorf("sqlstore: donation insert for payment %q neither created nor found", record.ExternalPaymentID)
	}
	return existing, false, nil
}

// Adopt promotes an unreconciled row to succeeded, filling any blank
// correlation fields. A reconciled row is returned unchanged.
func (s *DonationStore) Adopt(ctx context.Context, id string, donation core.Donation) (core.Donation, error) {
	if s == nil || s.db == nil {
		return core.Donation{}, notConfigured("donation")
	}
	id = strings.TrimSpace(id)
	var out core.Donation
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, found, err := s.findOne(ctx, tx, "id", id)
		if err != nil {
			return err
		}
		if !found {
			return notFound("donation", id)
		}
		if existing.Reconciled() {
			out = existing
			return nil
		}

		if err := existing.TransitionTo(core.DonationStatusSucceeded, s.now()); err != nil {
			return err
		}
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
		fillBlank(&existing.Currency, donation.Currency)
		if existing.AmountCents == 0 {
			existing.AmountCents = donation.AmountCents
		}
		if existing.PlatformFeeCents == 0 {
			existing.PlatformFeeCents = donation.PlatformFeeCents
		}

		record := newDonationRecord(existing)
		if _, err := tx.NewUpdate().
			Model(record).
			ExcludeColumn("id", "created_at", "reconciled_at").
			Where("id = ?", record.ID).
			Where("reconciled_at IS NULL").
			Exec(ctx); err != nil {
			return err
		}
		out = existing
		return nil
	})
	if err != nil {
		return core.Donation{}, err
	}
	return out, nil
}

// MarkFailed only ever touches an existing, unreconciled row.
func (s *DonationStore) MarkFailed(ctx context.Context, paymentID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, notConfigured("donation")
	}
	result, err := s.db.NewUpdate().
		Model((*donationRecord)(nil)).
		Set("status = ?", string(core.DonationStatusFailed)).
		Set("updated_at = ?", s.now()).
		Where("external_payment_id = ?", strings.TrimSpace(paymentID)).
		Where("reconciled_at IS NULL").
		Where("status <> ?", string(core.DonationStatusFailed)).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return rowsChanged(result), nil
}

func (s *DonationStore) AttachCharge(ctx context.Context, paymentID string, chargeID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, notConfigured("donation")
	}
	result, err := s.db.NewUpdate().
		Model((*donationRecord)(nil)).
		Set("external_charge_id = ?", strings.TrimSpace(chargeID)).
		Set("updated_at = ?", s.now()).
		Where("external_payment_id = ?", strings.TrimSpace(paymentID)).
		Where("(external_charge_id IS NULL OR external_charge_id = '')").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return rowsChanged(result), nil
}

// ListUnreconciled returns succeeded donations whose aggregates were never
// applied, oldest first.
func (s *DonationStore) ListUnreconciled(ctx context.Context, limit int) ([]core.Donation, error) {
	if s == nil || s.db == nil {
		return nil, notConfigured("donation")
	}
	if limit <= 0 {
		limit = 50
	}
	var records []donationRecord
	if err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.reconciled_at IS NULL").
		Where("?TableAlias.status = ?", string(core.DonationStatusSucceeded)).
		OrderExpr("?TableAlias.created_at ASC").
		Limit(limit).
		Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]core.Donation, 0, len(records))
	for i := range records {
		donation, err := records[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, donation)
	}
	return out, nil
}

func (s *DonationStore) findOne(ctx context.Context, db bun.IDB, column, value string) (core.Donation, bool, error) {
	if s == nil || db == nil {
		return core.Donation{}, false, notConfigured("donation")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return core.Donation{}, false, nil
	}
	record := &donationRecord{}
	err := db.NewSelect().
		Model(record).
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return core.Donation{}, false, nil
		}
		return core.Donation{}, false, err
	}
	donation, err := record.toDomain()
	if err != nil {
		return core.Donation{}, false, err
	}
	return donation, true, nil
}

func fillBlank(target *string, value string) {
	if strings.TrimSpace(*target) == "" {
		*target = value
	}
}

func rowsChanged(result interface{ RowsAffected() (int64, error) }) bool {
	affected, err := result.RowsAffected()
	return err == nil && affected > 0
}

func utcNow() time.Time {
	return time.Now().UTC()
}
