package command

import (
	"strings"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

const (
	TypeProcessDelivery   = "reconcile.command.delivery.process"
	TypeReconcileDonation = "reconcile.command.donation.reconcile"
)

// ProcessDeliveryMessage carries one raw inbound delivery, exactly as the
// HTTP endpoint received it.
type ProcessDeliveryMessage struct {
	Delivery core.Delivery
}

func (ProcessDeliveryMessage) Type() string { return TypeProcessDelivery }

func (m ProcessDeliveryMessage) Validate() error {
	if len(m.Delivery.Body) == 0 {
		return commandValidationError("delivery.body", "delivery body is required")
	}
	return nil
}

// ReconcileDonationMessage asks for the aggregates of one stored donation to
// be applied if they never were.
type ReconcileDonationMessage struct {
	PaymentID string
}

func (ReconcileDonationMessage) Type() string { return TypeReconcileDonation }

func (m ReconcileDonationMessage) Validate() error {
	if strings.TrimSpace(m.PaymentID) == "" {
		return commandValidationError("payment_id", "payment id is required")
	}
	return nil
}
