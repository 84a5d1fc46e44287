// Package processortest provides a scripted in-memory processor client.
package processortest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

// Fake records every call. Failures are scripted per destination so
// concurrent fan-out stays deterministic.
type Fake struct {
	mu sync.Mutex

	Subscriptions       map[string]core.SubscriptionObject
	SubscriptionErr     error
	FailTransfersTo     map[string]error
	FailPayoutsTo       map[string]error
	transfers           []core.TransferRequest
	payouts             []core.PayoutRequest
	subscriptionLookups []string
	nextID              int
}

func NewFake() *Fake {
	return &Fake{
		Subscriptions:   map[string]core.SubscriptionObject{},
		FailTransfersTo: map[string]error{},
		FailPayoutsTo:   map[string]error{},
	}
}

func (f *Fake) RetrieveSubscription(_ context.Context, id string) (core.SubscriptionObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscriptionLookups = append(f.subscriptionLookups, id)
	if f.SubscriptionErr != nil {
		return core.SubscriptionObject{}, f.SubscriptionErr
	}
	subscription, ok := f.Subscriptions[id]
	if !ok {
		return core.SubscriptionObject{}, core.PartnerCallError(nil, "processortest: no such subscription", map[string]any{
			"subscription_id": id,
		})
	}
	return subscription, nil
}

func (f *Fake) CreateTransfer(_ context.Context, req core.TransferRequest) (core.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers = append(f.transfers, cloneTransfer(req))
	if err := f.FailTransfersTo[strings.TrimSpace(req.Destination)]; err != nil {
		return core.TransferResult{}, err
	}
	f.nextID++
	return core.TransferResult{
		ID:          fmt.Sprintf("tr_%d", f.nextID),
		AmountCents: req.AmountCents,
		Destination: req.Destination,
	}, nil
}

func (f *Fake) CreatePayout(_ context.Context, req core.PayoutRequest) (core.PayoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payouts = append(f.payouts, clonePayout(req))
	if err := f.FailPayoutsTo[strings.TrimSpace(req.Destination)]; err != nil {
		return core.PayoutResult{}, err
	}
	f.nextID++
	return core.PayoutResult{
		ID:          fmt.Sprintf("po_%d", f.nextID),
		AmountCents: req.AmountCents,
		Destination: req.Destination,
		Status:      "pending",
	}, nil
}

func (f *Fake) Transfers() []core.TransferRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.TransferRequest, 0, len(f.transfers))
	for _, item := range f.transfers {
		out = append(out, cloneTransfer(item))
	}
	return out
}

func (f *Fake) Payouts() []core.PayoutRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.PayoutRequest, 0, len(f.payouts))
	for _, item := range f.payouts {
		out = append(out, clonePayout(item))
	}
	return out
}

func (f *Fake) SubscriptionLookups() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subscriptionLookups...)
}

// TransferTotal sums the amount sent to destination across all calls.
func (f *Fake) TransferTotal(destination string) int64 {
	var total int64
	for _, transfer := range f.Transfers() {
		if transfer.Destination == destination {
			total += transfer.AmountCents
		}
	}
	return total
}

func cloneTransfer(in core.TransferRequest) core.TransferRequest {
	out := in
	out.Metadata = cloneStrings(in.Metadata)
	return out
}

func clonePayout(in core.PayoutRequest) core.PayoutRequest {
	out := in
	out.Metadata = cloneStrings(in.Metadata)
	return out
}

func cloneStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var _ core.ProcessorClient = (*Fake)(nil)
