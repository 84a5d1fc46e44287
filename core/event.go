package core

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type EventKind string

const (
	EventCheckoutSessionCompleted   EventKind = "checkout.session.completed"
	EventSubscriptionUpdated        EventKind = "customer.subscription.updated"
	EventSubscriptionDeleted        EventKind = "customer.subscription.deleted"
	EventPaymentIntentSucceeded     EventKind = "payment_intent.succeeded"
	EventPaymentIntentPaymentFailed EventKind = "payment_intent.payment_failed"
	EventInvoicePaid                EventKind = "invoice.paid"
	EventChargeSucceeded            EventKind = "charge.succeeded"
	EventAccountUpdated             EventKind = "account.updated"
	EventPayoutPaid                 EventKind = "payout.paid"
)

// ExternalEvent is a verified, parsed processor event. It is never persisted
// on its own; idempotency is enforced through the rows it produces.
type ExternalEvent struct {
	ID        string
	Kind      EventKind
	Account   string
	Created   time.Time
	LiveMode  bool
	Object    json.RawMessage
	RawBody   []byte
	Signature string
}

// Decode unmarshals the event's data object into target.
func (e ExternalEvent) Decode(target any) error {
	if len(e.Object) == 0 {
		return ValidationError("event data object is empty", map[string]any{
			"event_id":   e.ID,
			"event_kind": string(e.Kind),
		})
	}
	if err := json.Unmarshal(e.Object, target); err != nil {
		return MalformedEventError(err, map[string]any{
			"event_id":   e.ID,
			"event_kind": string(e.Kind),
		})
	}
	return nil
}

// Correlation metadata keys carried on payment intents, sessions,
// subscriptions and invoices.
const (
	MetaOrganizationID     = "organization_id"
	MetaCampaignID         = "campaign_id"
	MetaEndowmentFundID    = "endowment_fund_id"
	MetaFundRequestID      = "fund_request_id"
	MetaUserID             = "user_id"
	MetaDonorEmail         = "donor_email"
	MetaDonorName          = "donor_name"
	MetaSplitMode          = "split_mode"
	MetaSplits             = "splits"
	MetaSplitSourceAccount = "split_source_account"
	MetaPlatformFeeCents   = "platform_fee_cents"
)

type Metadata map[string]string

func (m Metadata) Get(key string) string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[key])
}

func (m Metadata) Int64(key string) (int64, bool) {
	raw := m.Get(key)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

type PaymentIntent struct {
	ID                   string `json:"id"`
	Amount               int64  `json:"amount"`
	AmountReceived       int64  `json:"amount_received"`
	Currency             string `json:"currency"`
	Status               string `json:"status"`
	Customer             string `json:"customer"`
	Invoice              string `json:"invoice"`
	LatestCharge         string `json:"latest_charge"`
	ReceiptEmail         string `json:"receipt_email"`
	ApplicationFeeAmount *int64 `json:"application_fee_amount"`
	OnBehalfOf           string `json:"on_behalf_of"`
	TransferData         *struct {
		Destination string `json:"destination"`
	} `json:"transfer_data"`
	LastPaymentError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_payment_error"`
	// Charges is only present on older API versions that embed the charge list.
	Charges *struct {
		Data []Charge `json:"data"`
	} `json:"charges"`
	Metadata Metadata `json:"metadata"`
}

func (p PaymentIntent) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ValidationError("payment intent id is required", nil)
	}
	if p.Amount < 0 {
		return ValidationError("payment intent amount must be nonnegative", map[string]any{"payment_id": p.ID})
	}
	if _, err := NormalizeCurrency(p.Currency); err != nil {
		return ValidationError(err.Error(), map[string]any{"payment_id": p.ID})
	}
	return nil
}

// GrossCents is the amount actually captured, falling back to the requested
// amount when the processor omits it.
func (p PaymentIntent) GrossCents() int64 {
	if p.AmountReceived > 0 {
		return p.AmountReceived
	}
	return p.Amount
}

// ChargeID is the settled charge, from latest_charge or the embedded list.
func (p PaymentIntent) ChargeID() string {
	if id := strings.TrimSpace(p.LatestCharge); id != "" {
		return id
	}
	if charge, ok := p.latestEmbeddedCharge(); ok {
		return strings.TrimSpace(charge.ID)
	}
	return ""
}

// ReceiptURL is only known when the payload embeds the charge.
func (p PaymentIntent) ReceiptURL() string {
	charge, ok := p.latestEmbeddedCharge()
	if !ok {
		return ""
	}
	if id := strings.TrimSpace(p.LatestCharge); id != "" && id != charge.ID {
		return ""
	}
	return strings.TrimSpace(charge.ReceiptURL)
}

func (p PaymentIntent) latestEmbeddedCharge() (Charge, bool) {
	if p.Charges == nil || len(p.Charges.Data) == 0 {
		return Charge{}, false
	}
	if id := strings.TrimSpace(p.LatestCharge); id != "" {
		for _, charge := range p.Charges.Data {
			if charge.ID == id {
				return charge, true
			}
		}
	}
	return p.Charges.Data[0], true
}

// PlatformFeeCents prefers the processor-reported application fee.
func (p PaymentIntent) PlatformFeeCents() int64 {
	if p.ApplicationFeeAmount != nil && *p.ApplicationFeeAmount > 0 {
		return *p.ApplicationFeeAmount
	}
	if fee, ok := p.Metadata.Int64(MetaPlatformFeeCents); ok && fee > 0 {
		return fee
	}
	return 0
}

type CheckoutSession struct {
	ID            string   `json:"id"`
	Mode          string   `json:"mode"`
	Subscription  string   `json:"subscription"`
	Customer      string   `json:"customer"`
	CustomerEmail string   `json:"customer_email"`
	PaymentStatus string   `json:"payment_status"`
	Metadata      Metadata `json:"metadata"`
}

type SubscriptionObject struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Customer string   `json:"customer"`
	Currency string   `json:"currency"`
	Metadata Metadata `json:"metadata"`
	Items    struct {
		Data []struct {
			Quantity int64 `json:"quantity"`
			Price    struct {
				UnitAmount int64  `json:"unit_amount"`
				Currency   string `json:"currency"`
				Recurring  *struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

func (s SubscriptionObject) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ValidationError("subscription id is required", nil)
	}
	if strings.TrimSpace(s.Status) == "" {
		return ValidationError("subscription status is required", map[string]any{"subscription_id": s.ID})
	}
	return nil
}

// AmountCents sums the recurring line items.
func (s SubscriptionObject) AmountCents() int64 {
	var total int64
	for _, item := range s.Items.Data {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		total += item.Price.UnitAmount * quantity
	}
	return total
}

func (s SubscriptionObject) Interval() string {
	for _, item := range s.Items.Data {
		if item.Price.Recurring != nil && strings.TrimSpace(item.Price.Recurring.Interval) != "" {
			return item.Price.Recurring.Interval
		}
	}
	return ""
}

func (s SubscriptionObject) CurrencyCode() string {
	if strings.TrimSpace(s.Currency) != "" {
		return s.Currency
	}
	for _, item := range s.Items.Data {
		if strings.TrimSpace(item.Price.Currency) != "" {
			return item.Price.Currency
		}
	}
	return ""
}

type Invoice struct {
	ID                  string   `json:"id"`
	PaymentIntent       string   `json:"payment_intent"`
	Subscription        string   `json:"subscription"`
	Charge              string   `json:"charge"`
	AmountPaid          int64    `json:"amount_paid"`
	Currency            string   `json:"currency"`
	CustomerEmail       string   `json:"customer_email"`
	CustomerName        string   `json:"customer_name"`
	BillingReason       string   `json:"billing_reason"`
	Metadata            Metadata `json:"metadata"`
	SubscriptionDetails *struct {
		Metadata Metadata `json:"metadata"`
	} `json:"subscription_details"`
}

func (i Invoice) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return ValidationError("invoice id is required", nil)
	}
	if i.AmountPaid < 0 {
		return ValidationError("invoice amount must be nonnegative", map[string]any{"invoice_id": i.ID})
	}
	if _, err := NormalizeCurrency(i.Currency); err != nil {
		return ValidationError(err.Error(), map[string]any{"invoice_id": i.ID})
	}
	return nil
}

// PaymentKey is the natural donation key for a paid invoice.
func (i Invoice) PaymentKey() string {
	if key := strings.TrimSpace(i.PaymentIntent); key != "" {
		return key
	}
	return strings.TrimSpace(i.ID)
}

// CorrelationMetadata merges subscription-level metadata under the invoice's
// own keys.
func (i Invoice) CorrelationMetadata() Metadata {
	merged := Metadata{}
	if i.SubscriptionDetails != nil {
		for key, value := range i.SubscriptionDetails.Metadata {
			merged[key] = value
		}
	}
	for key, value := range i.Metadata {
		merged[key] = value
	}
	return merged
}

type Charge struct {
	ID            string   `json:"id"`
	PaymentIntent string   `json:"payment_intent"`
	Amount        int64    `json:"amount"`
	Currency      string   `json:"currency"`
	ReceiptURL    string   `json:"receipt_url"`
	ReceiptEmail  string   `json:"receipt_email"`
	Paid          bool     `json:"paid"`
	Metadata      Metadata `json:"metadata"`
	BillingDetail struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"billing_details"`
}

func (c Charge) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ValidationError("charge id is required", nil)
	}
	if strings.TrimSpace(c.PaymentIntent) == "" {
		return ValidationError("charge payment intent is required", map[string]any{"charge_id": c.ID})
	}
	return nil
}

type Account struct {
	ID               string `json:"id"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
	Requirements     *struct {
		CurrentlyDue  []string `json:"currently_due"`
		EventuallyDue []string `json:"eventually_due"`
		PastDue       []string `json:"past_due"`
	} `json:"requirements"`
	Metadata Metadata `json:"metadata"`
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ValidationError("account id is required", nil)
	}
	return nil
}

func (a Account) Flags() AccountFlags {
	flags := AccountFlags{
		ChargesEnabled:   a.ChargesEnabled,
		PayoutsEnabled:   a.PayoutsEnabled,
		DetailsSubmitted: a.DetailsSubmitted,
	}
	if a.Requirements != nil {
		flags.CurrentlyDue = append([]string(nil), a.Requirements.CurrentlyDue...)
		flags.EventuallyDue = append([]string(nil), a.Requirements.EventuallyDue...)
		flags.PastDue = append([]string(nil), a.Requirements.PastDue...)
	}
	return flags
}

type Payout struct {
	ID          string   `json:"id"`
	Amount      int64    `json:"amount"`
	Currency    string   `json:"currency"`
	Status      string   `json:"status"`
	ArrivalDate int64    `json:"arrival_date"`
	Destination string   `json:"destination"`
	Metadata    Metadata `json:"metadata"`
}

func (p Payout) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ValidationError("payout id is required", nil)
	}
	if p.Amount < 0 {
		return ValidationError("payout amount must be nonnegative", map[string]any{"payout_id": p.ID})
	}
	if _, err := NormalizeCurrency(p.Currency); err != nil {
		return ValidationError(err.Error(), map[string]any{"payout_id": p.ID})
	}
	return nil
}
