// Package split moves donated funds between accounts after a payment lands:
// processor-native peer transfers, internal bank payouts, and the endowment
// share of the platform fee.
package split

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/idempotency"
)

type Input struct {
	PaymentID        string
	OrganizationID   string
	SourceAccountID  string
	Currency         string
	GrossCents       int64
	PlatformFeeCents int64
	Metadata         core.Metadata
}

type Result struct {
	Mode        core.SplitMode
	AlreadyDone bool
	Legs        []core.SplitLeg
	Failed      int
}

type Allocation struct {
	FundID      string
	AmountCents int64
	TransferID  string
	Skipped     string
	Err         error
}

type Orchestrator struct {
	Processor      core.ProcessorClient
	Markers        core.SplitMarkerStore
	EndowmentFunds core.EndowmentFundStore
	Guard          *idempotency.Guard
	Observer       core.Observer
	// EndowmentShare is the percentage of the platform fee sent to a fund.
	EndowmentShare decimal.Decimal
}

func NewOrchestrator(
	processor core.ProcessorClient,
	stores core.Stores,
	guard *idempotency.Guard,
	endowmentSharePercent float64,
	observer core.Observer,
) *Orchestrator {
	return &Orchestrator{
		Processor:      processor,
		Markers:        stores.SplitMarkers,
		EndowmentFunds: stores.EndowmentFunds,
		Guard:          guard,
		Observer:       observer,
		EndowmentShare: decimal.NewFromFloat(endowmentSharePercent),
	}
}

// Execute runs whichever split mode the payment's metadata selects.
func (o *Orchestrator) Execute(ctx context.Context, in Input) (Result, error) {
	mode, err := ModeFromMetadata(in.Metadata)
	if err != nil {
		return Result{}, err
	}
	result := Result{Mode: mode}
	if mode == core.SplitModeNone {
		return result, nil
	}
	entries, err := ParseEntries(in.Metadata.Get(core.MetaSplits))
	if err != nil {
		return result, err
	}
	if len(entries) == 0 {
		return result, nil
	}
	if o == nil || o.Processor == nil || o.Markers == nil || o.Guard == nil {
		return result, errors.New("split: orchestrator is not configured")
	}
	switch mode {
	case core.SplitModeProcessorNative:
		return o.executeProcessorNative(ctx, in, entries)
	default:
		return o.executeInternalBank(ctx, in, entries)
	}
}

// executeProcessorNative fans transfers out concurrently. The batch is all or
// nothing: any failure fails the event and leaves no marker.
func (o *Orchestrator) executeProcessorNative(ctx context.Context, in Input, entries []Entry) (Result, error) {
	result := Result{Mode: core.SplitModeProcessorNative}
	done, err := o.Guard.SplitTransfersDone(ctx, in.PaymentID)
	if err != nil {
		return result, err
	}
	if done {
		result.AlreadyDone = true
		return result, nil
	}
	source := strings.TrimSpace(in.SourceAccountID)
	if source == "" {
		source = in.Metadata.Get(core.MetaSplitSourceAccount)
	}
	if source == "" {
		return result, core.ValidationError("split: processor-native split needs a source account", map[string]any{
			"payment_id": in.PaymentID,
		})
	}

	startedAt := time.Now()
	legs := ComputeLegs(entries, in.GrossCents)
	errs := make([]error, len(legs))
	var wg sync.WaitGroup
	for index := range legs {
		wg.Add(1)
		go func(leg *core.SplitLeg, slot *error) {
			defer wg.Done()
			transfer, err := o.Processor.CreateTransfer(ctx, core.TransferRequest{
				AmountCents:     leg.AmountCents,
				Currency:        in.Currency,
				Destination:     leg.Destination,
				SourceAccountID: source,
				TransferGroup:   in.PaymentID,
				Description:     "split " + leg.Percentage + "%",
				Metadata: map[string]string{
					"payment_id":      in.PaymentID,
					"organization_id": in.OrganizationID,
				},
			})
			if err != nil {
				leg.Status = core.SplitLegFailed
				leg.Error = err.Error()
				*slot = err
				return
			}
			leg.Status = core.SplitLegSucceeded
			leg.ExternalID = transfer.ID
		}(&legs[index], &errs[index])
	}
	wg.Wait()
	result.Legs = legs

	if joined := errors.Join(errs...); joined != nil {
		for _, leg := range legs {
			if leg.Status == core.SplitLegFailed {
				result.Failed++
			}
		}
		err := core.PartnerCallError(joined, "split: processor-native transfer batch failed", map[string]any{
			"payment_id": in.PaymentID,
			"failed":     result.Failed,
			"attempted":  len(legs),
		})
		o.Observer.ObserveOperation(ctx, startedAt, "split.processor_native", err, map[string]any{"payment_id": in.PaymentID})
		return result, err
	}

	if _, err := o.Markers.RecordSplitTransfer(ctx, core.SplitTransfer{
		ExternalPaymentID: in.PaymentID,
		OrganizationID:    in.OrganizationID,
		SourceAccountID:   source,
		GrossAmountCents:  in.GrossCents,
		Currency:          in.Currency,
		Transfers:         legs,
	}); err != nil {
		return result, core.PersistenceError(err, "split: record transfer marker", map[string]any{"payment_id": in.PaymentID})
	}
	o.Observer.ObserveOperation(ctx, startedAt, "split.processor_native", nil, map[string]any{
		"payment_id": in.PaymentID,
		"transfers":  len(legs),
	})
	return result, nil
}

// executeInternalBank issues payouts one at a time. Entry failures are logged
// and the attempted marker is written regardless, with per-entry outcomes.
func (o *Orchestrator) executeInternalBank(ctx context.Context, in Input, entries []Entry) (Result, error) {
	result := Result{Mode: core.SplitModeInternalBank}
	attempted, err := o.Guard.InternalSplitAttempted(ctx, in.PaymentID)
	if err != nil {
		return result, err
	}
	if attempted {
		result.AlreadyDone = true
		return result, nil
	}

	source := strings.TrimSpace(in.SourceAccountID)
	if source == "" {
		source = in.Metadata.Get(core.MetaSplitSourceAccount)
	}
	if source == "" {
		return result, core.ValidationError("split: internal bank split needs a source account", map[string]any{
			"payment_id": in.PaymentID,
		})
	}
	amountToSplit := in.GrossCents - in.PlatformFeeCents
	if amountToSplit < 0 {
		amountToSplit = 0
	}
	legs := ComputeLegs(entries, amountToSplit)
	for index := range legs {
		leg := &legs[index]
		payout, err := o.Processor.CreatePayout(ctx, core.PayoutRequest{
			AmountCents:     leg.AmountCents,
			Currency:        in.Currency,
			Destination:     leg.Destination,
			SourceAccountID: source,
			Description:     "internal split " + leg.Percentage + "%",
			Metadata: map[string]string{
				"payment_id":      in.PaymentID,
				"organization_id": in.OrganizationID,
			},
		})
		if err != nil {
			leg.Status = core.SplitLegFailed
			leg.Error = err.Error()
			result.Failed++
			o.Observer.Warn(ctx, "internal split payout failed", map[string]any{
				"payment_id":   in.PaymentID,
				"destination":  leg.Destination,
				"amount_cents": leg.AmountCents,
				"error":        err.Error(),
			})
			continue
		}
		leg.Status = core.SplitLegSucceeded
		leg.ExternalID = payout.ID
	}
	result.Legs = legs

	if _, err := o.Markers.RecordInternalSplitPayout(ctx, core.InternalSplitPayout{
		ExternalPaymentID:  in.PaymentID,
		OrganizationID:     in.OrganizationID,
		SourceAccountID:    source,
		AmountToSplitCents: amountToSplit,
		Currency:           in.Currency,
		Payouts:            legs,
	}); err != nil {
		o.Observer.Error(ctx, "internal split marker not recorded", map[string]any{
			"payment_id": in.PaymentID,
			"error":      err.Error(),
		})
	}
	return result, nil
}

// AllocateEndowment sends the fund's share of the platform fee. It never
// fails the caller; problems are logged and reported in the Allocation.
func (o *Orchestrator) AllocateEndowment(ctx context.Context, paymentID, fundID string, feeCents int64, currency string) Allocation {
	allocation := Allocation{FundID: strings.TrimSpace(fundID)}
	switch {
	case allocation.FundID == "":
		allocation.Skipped = "no endowment fund"
		return allocation
	case feeCents <= 0:
		allocation.Skipped = "no platform fee"
		return allocation
	case o == nil || o.Processor == nil || o.EndowmentFunds == nil:
		allocation.Skipped = "not configured"
		return allocation
	}
	allocation.AmountCents = core.PercentOfCents(feeCents, o.EndowmentShare)
	if allocation.AmountCents <= 0 {
		allocation.Skipped = "share rounds to zero"
		return allocation
	}

	fund, err := o.EndowmentFunds.Get(ctx, allocation.FundID)
	if err == nil && strings.TrimSpace(fund.ExternalAccountID) == "" {
		err = core.ValidationError("split: endowment fund has no sub-account", map[string]any{"fund_id": fund.ID})
	}
	if err == nil {
		var transfer core.TransferResult
		transfer, err = o.Processor.CreateTransfer(ctx, core.TransferRequest{
			AmountCents:   allocation.AmountCents,
			Currency:      currency,
			Destination:   fund.ExternalAccountID,
			TransferGroup: paymentID + ":endowment",
			Description:   "endowment share",
			Metadata: map[string]string{
				"payment_id":        paymentID,
				"endowment_fund_id": fund.ID,
			},
		})
		allocation.TransferID = transfer.ID
	}
	if err != nil {
		allocation.Err = err
		o.Observer.Warn(ctx, "endowment allocation failed", map[string]any{
			"payment_id":   paymentID,
			"fund_id":      allocation.FundID,
			"amount_cents": allocation.AmountCents,
			"error":        err.Error(),
		})
	}
	return allocation
}
