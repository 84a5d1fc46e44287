// Package notify delivers donor receipts and organization alerts. Delivery
// is fire-and-forget: failures are logged and counted, never returned, and
// each dispatch key is sent at most once.
package notify

import (
	"context"
	"strings"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

const (
	statusSkipped   = "skipped"
	statusDuplicate = "duplicate"
)

type Dispatcher struct {
	Sender         core.NotificationSender
	Dispatches     core.NotificationDispatchStore
	Recipients     *RecipientDirectory
	Observer       core.Observer
	ReceiptBaseURL string
	Disabled       bool
}

func NewDispatcher(
	sender core.NotificationSender,
	dispatches core.NotificationDispatchStore,
	recipients *RecipientDirectory,
	cfg core.NotificationConfig,
	observer core.Observer,
) *Dispatcher {
	return &Dispatcher{
		Sender:         sender,
		Dispatches:     dispatches,
		Recipients:     recipients,
		Observer:       observer,
		ReceiptBaseURL: strings.TrimSpace(cfg.ReceiptBaseURL),
		Disabled:       !cfg.Enabled,
	}
}

func (d *Dispatcher) DonationReceived(ctx context.Context, donation core.Donation) {
	if d == nil {
		return
	}
	d.deliver(ctx, DonorReceipt(donation, d.ReceiptBaseURL))
	d.deliver(ctx, OrgOwnerAlert(donation, d.ownerEmail(ctx, donation.OrganizationID)))
}

func (d *Dispatcher) ReceiptAttached(ctx context.Context, donation core.Donation, receiptURL string) {
	if d == nil {
		return
	}
	d.deliver(ctx, ReceiptAttached(donation, receiptURL))
}

func (d *Dispatcher) PayoutProcessed(ctx context.Context, payout core.PayoutRecord) {
	if d == nil {
		return
	}
	d.deliver(ctx, PayoutProcessed(payout, d.ownerEmail(ctx, payout.OrganizationID)))
}

func (d *Dispatcher) ownerEmail(ctx context.Context, organizationID string) string {
	owner, err := d.Recipients.OrganizationOwner(ctx, organizationID)
	if err != nil {
		d.Observer.Warn(ctx, "notification recipient lookup failed", map[string]any{
			"organization_id": organizationID,
			"error":           err.Error(),
		})
		return ""
	}
	return owner
}

func (d *Dispatcher) deliver(ctx context.Context, notification core.Notification) {
	if d.Disabled || d.Sender == nil {
		return
	}
	fields := map[string]any{
		"kind":         string(notification.Kind),
		"dispatch_key": notification.DispatchKey,
	}
	if notification.Recipient == "" {
		d.count(ctx, notification.Kind, statusSkipped)
		d.Observer.Debug(ctx, "notification skipped: no recipient", fields)
		return
	}
	if d.Dispatches != nil {
		seen, err := d.Dispatches.Seen(ctx, notification.DispatchKey)
		if err != nil {
			d.Observer.Warn(ctx, "notification dispatch lookup failed", withError(fields, err))
		}
		if seen {
			d.count(ctx, notification.Kind, statusDuplicate)
			return
		}
	}

	status := core.NotificationDispatchSent
	sendErr := d.Sender.Send(ctx, notification)
	if sendErr != nil {
		status = core.NotificationDispatchFailed
		d.Observer.Error(ctx, "notification send failed", withError(fields, sendErr))
	}
	d.count(ctx, notification.Kind, status)

	if d.Dispatches == nil {
		return
	}
	if err := d.Dispatches.Record(ctx, core.NotificationDispatch{
		DispatchKey: notification.DispatchKey,
		Kind:        notification.Kind,
		Recipient:   notification.Recipient,
		Status:      status,
		Error:       core.ErrorString(sendErr),
	}); err != nil {
		d.Observer.Warn(ctx, "notification dispatch not recorded", withError(fields, err))
	}
}

func (d *Dispatcher) count(ctx context.Context, kind core.NotificationKind, status string) {
	d.Observer.IncCounter(ctx, core.MetricNotificationsTotal, map[string]string{
		"kind":   string(kind),
		"status": status,
	})
}

func withError(fields map[string]any, err error) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		out[key] = value
	}
	out["error"] = err.Error()
	return out
}

var _ core.Notifier = (*Dispatcher)(nil)
