package inbound

import (
	"context"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

type noopNotifier struct{}

func (noopNotifier) DonationReceived(context.Context, core.Donation) {}

func (noopNotifier) ReceiptAttached(context.Context, core.Donation, string) {}

func (noopNotifier) PayoutProcessed(context.Context, core.PayoutRecord) {}
