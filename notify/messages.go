package notify

import (
	"sort"
	"strings"
	"time"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

// DispatchKey is the natural key a notification is sent under at most once.
func DispatchKey(kind core.NotificationKind, naturalID string) string {
	return string(kind) + ":" + strings.TrimSpace(naturalID)
}

func DonorReceipt(donation core.Donation, receiptBaseURL string) core.Notification {
	return core.Notification{
		Kind:        core.NotificationDonorReceipt,
		DispatchKey: DispatchKey(core.NotificationDonorReceipt, donation.ExternalPaymentID),
		Recipient:   strings.TrimSpace(donation.DonorEmail),
		Subject:     "Thank you for your donation",
		Fields: compactFields(map[string]string{
			"amount":      core.FormatCents(donation.AmountCents, donation.Currency),
			"donor_name":  donation.DonorName,
			"receipt_url": receiptURL(receiptBaseURL, donation.ReceiptToken),
			"reference":   donation.ExternalPaymentID,
		}),
	}
}

func ReceiptAttached(donation core.Donation, processorReceiptURL string) core.Notification {
	naturalID := donation.ExternalChargeID
	if strings.TrimSpace(naturalID) == "" {
		naturalID = donation.ExternalPaymentID
	}
	return core.Notification{
		Kind:        core.NotificationDonorReceiptAttached,
		DispatchKey: DispatchKey(core.NotificationDonorReceiptAttached, naturalID),
		Recipient:   strings.TrimSpace(donation.DonorEmail),
		Subject:     "Your donation receipt",
		Fields: compactFields(map[string]string{
			"amount":      core.FormatCents(donation.AmountCents, donation.Currency),
			"donor_name":  donation.DonorName,
			"receipt_url": processorReceiptURL,
			"reference":   donation.ExternalPaymentID,
		}),
	}
}

func OrgOwnerAlert(donation core.Donation, ownerEmail string) core.Notification {
	donor := strings.TrimSpace(donation.DonorName)
	if donor == "" {
		donor = "Anonymous"
	}
	return core.Notification{
		Kind:        core.NotificationOrgOwnerAlert,
		DispatchKey: DispatchKey(core.NotificationOrgOwnerAlert, donation.ExternalPaymentID),
		Recipient:   strings.TrimSpace(ownerEmail),
		Subject:     "New donation received",
		Fields: compactFields(map[string]string{
			"amount":    core.FormatCents(donation.AmountCents, donation.Currency),
			"donor":     donor,
			"campaign":  donation.CampaignID,
			"recurring": yesNo(donation.ExternalSubID != ""),
			"reference": donation.ExternalPaymentID,
		}),
	}
}

func PayoutProcessed(payout core.PayoutRecord, ownerEmail string) core.Notification {
	arrival := ""
	if payout.ArrivalDate != nil {
		arrival = payout.ArrivalDate.UTC().Format(time.DateOnly)
	}
	return core.Notification{
		Kind:        core.NotificationPayoutProcessed,
		DispatchKey: DispatchKey(core.NotificationPayoutProcessed, payout.ExternalPayoutID),
		Recipient:   strings.TrimSpace(ownerEmail),
		Subject:     "Payout sent to your bank",
		Fields: compactFields(map[string]string{
			"amount":       core.FormatCents(payout.AmountCents, payout.Currency),
			"arrival_date": arrival,
			"reference":    payout.ExternalPayoutID,
		}),
	}
}

// RenderText lays the display fields out one per line, sorted by name.
func RenderText(notification core.Notification) string {
	keys := make([]string, 0, len(notification.Fields))
	for key := range notification.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(notification.Subject)
	b.WriteString("\n\n")
	for _, key := range keys {
		b.WriteString(strings.ReplaceAll(key, "_", " "))
		b.WriteString(": ")
		b.WriteString(notification.Fields[key])
		b.WriteString("\n")
	}
	return b.String()
}

func receiptURL(base, token string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	token = strings.TrimSpace(token)
	if base == "" || token == "" {
		return ""
	}
	return base + "/" + token
}

func compactFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for key, value := range fields {
		if value = strings.TrimSpace(value); value != "" {
			out[key] = value
		}
	}
	return out
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
