package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ProcessDeliveryMessage]   = (*ProcessDeliveryCommand)(nil)
	_ gocmd.Commander[ReconcileDonationMessage] = (*ReconcileDonationCommand)(nil)
)
