package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

// AggregateStore applies a donation to campaign and fund-request totals in
// one transaction, guarded by the donation's reconciliation claim.
type AggregateStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewAggregateStore(db *bun.DB) (*AggregateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &AggregateStore{db: db, now: utcNow}, nil
}

func (s *AggregateStore) ApplyDonation(ctx context.Context, in core.AggregateInput) (core.AggregateResult, error) {
	if s == nil || s.db == nil {
		return core.AggregateResult{}, notConfigured("aggregate")
	}
	if in.AmountCents < 0 {
		return core.AggregateResult{}, fmt.Errorf("%w: aggregate increment %d", core.ErrInvalidAmount, in.AmountCents)
	}
	donationID := strings.TrimSpace(in.DonationID)
	now := s.now()

	var result core.AggregateResult
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		claim, err := tx.NewUpdate().
			Model((*donationRecord)(nil)).
			Set("reconciled_at = ?", now).
			Set("updated_at = ?", now).
			Where("id = ?", donationID).
			Where("reconciled_at IS NULL").
			Exec(ctx)
		if err != nil {
			return err
		}
		if !rowsChanged(claim) {
			exists, err := tx.NewSelect().Model((*donationRecord)(nil)).Where("id = ?", donationID).Exists(ctx)
			if err != nil {
				return err
			}
			if !exists {
				return notFound("donation", donationID)
			}
			return nil
		}
		result.Claimed = true

		if campaignID := strings.TrimSpace(in.CampaignID); campaignID != "" {
			updated, err := tx.NewUpdate().
				Model((*campaignRecord)(nil)).
				Set("current_amount_cents = current_amount_cents + ?", in.AmountCents).
				Set("updated_at = ?", now).
				Where("id = ?", campaignID).
				Exec(ctx)
			if err != nil {
				return err
			}
			result.CampaignUpdated = rowsChanged(updated)
		}

		if requestID := strings.TrimSpace(in.FundRequestID); requestID != "" {
			return s.applyFundRequest(ctx, tx, requestID, in.AmountCents, now, &result)
		}
		return nil
	})
	if err != nil {
		return core.AggregateResult{}, err
	}
	return result, nil
}

// applyFundRequest increments in place and flips the status in the same
// statement; the prior status is read under a row lock where supported.
func (s *AggregateStore) applyFundRequest(
	ctx context.Context,
	tx bun.Tx,
	requestID string,
	amountCents int64,
	now time.Time,
	result *core.AggregateResult,
) error {
	before := &fundRequestRecord{}
	query := tx.NewSelect().Model(before).Where("?TableAlias.id = ?", requestID)
	if tx.Dialect().Name() == dialect.PG {
		query = query.For("UPDATE")
	}
	if err := query.Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil
		}
		return err
	}

	fulfilled := string(core.FundRequestStatusFulfilled)
	if _, err := tx.NewUpdate().
		Model((*fundRequestRecord)(nil)).
		Set("fulfilled_amount_cents = fulfilled_amount_cents + ?", amountCents).
		Set("status = CASE WHEN status <> ? AND fulfilled_amount_cents + ? >= amount_cents THEN ? ELSE status END",
			fulfilled, amountCents, fulfilled).
		Set("fulfilled_at = CASE WHEN status <> ? AND fulfilled_amount_cents + ? >= amount_cents THEN ? ELSE fulfilled_at END",
			fulfilled, amountCents, now).
		Set("updated_at = ?", now).
		Where("id = ?", requestID).
		Exec(ctx); err != nil {
		return err
	}

	after := &fundRequestRecord{}
	if err := tx.NewSelect().Model(after).Where("?TableAlias.id = ?", requestID).Scan(ctx); err != nil {
		return err
	}
	request, err := after.toDomain()
	if err != nil {
		return err
	}
	result.FundRequestUpdated = true
	result.FundRequest = &request
	result.BecameFulfilled = before.Status != fulfilled && request.Status == core.FundRequestStatusFulfilled
	return nil
}
