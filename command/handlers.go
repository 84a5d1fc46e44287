package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

type DeliveryProcessor interface {
	Process(ctx context.Context, delivery core.Delivery) (core.DeliveryResult, error)
}

type DonationReconciler interface {
	ReconcileDonation(ctx context.Context, paymentID string) (core.AggregateResult, error)
}

type ProcessDeliveryCommand struct {
	processor DeliveryProcessor
}

func NewProcessDeliveryCommand(processor DeliveryProcessor) *ProcessDeliveryCommand {
	return &ProcessDeliveryCommand{processor: processor}
}

// Execute stores the delivery result even when processing fails, so callers
// can always answer the event source with a status code.
func (c *ProcessDeliveryCommand) Execute(ctx context.Context, msg ProcessDeliveryMessage) error {
	if c == nil || c.processor == nil {
		return commandDependencyError("command: delivery processor is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.processor.Process(ctx, msg.Delivery)
	storeResult(ctx, out)
	return err
}

type ReconcileDonationCommand struct {
	reconciler DonationReconciler
}

func NewReconcileDonationCommand(reconciler DonationReconciler) *ReconcileDonationCommand {
	return &ReconcileDonationCommand{reconciler: reconciler}
}

func (c *ReconcileDonationCommand) Execute(ctx context.Context, msg ReconcileDonationMessage) error {
	if c == nil || c.reconciler == nil {
		return commandDependencyError("command: donation reconciler is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.reconciler.ReconcileDonation(ctx, msg.PaymentID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
