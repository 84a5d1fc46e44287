package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	ErrInvalidDonationStatus               = errors.New("core: invalid donation status")
	ErrInvalidDonationStatusTransition     = errors.New("core: invalid donation status transition")
	ErrInvalidSubscriptionInterval         = errors.New("core: invalid subscription interval")
	ErrInvalidSubscriptionStatusTransition = errors.New("core: invalid subscription status transition")
	ErrInvalidFundRequestStatus            = errors.New("core: invalid fund request status")
	ErrInvalidAmount                       = errors.New("core: invalid amount")
	ErrInvalidCurrency                     = errors.New("core: invalid currency")
)

var currencyPattern = regexp.MustCompile(`^[a-z]{3}$`)

// NormalizeCurrency lowercases and validates an ISO 4217 code.
func NormalizeCurrency(currency string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(currency))
	if !currencyPattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	return normalized, nil
}

type DonationStatus string

const (
	// DonationStatusPending is only ever set by code paths outside the
	// reconciliation engine that create rows optimistically.
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusSucceeded DonationStatus = "succeeded"
	DonationStatusFailed    DonationStatus = "failed"
)

func ParseDonationStatus(value string) (DonationStatus, error) {
	switch status := DonationStatus(strings.TrimSpace(strings.ToLower(value))); status {
	case DonationStatusPending, DonationStatusSucceeded, DonationStatusFailed:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDonationStatus, value)
	}
}

type Donation struct {
	ID                string
	OrganizationID    string
	CampaignID        string
	EndowmentFundID   string
	FundRequestID     string
	UserID            string
	AmountCents       int64
	Currency          string
	PlatformFeeCents  int64
	ExternalPaymentID string
	ExternalChargeID  string
	ExternalInvoiceID string
	ExternalSubID     string
	Status            DonationStatus
	DonorEmail        string
	DonorName         string
	ReceiptToken      string
	ReconciledAt      *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (d Donation) Validate() error {
	if strings.TrimSpace(d.ExternalPaymentID) == "" {
		return fmt.Errorf("core: donation external payment id is required")
	}
	if strings.TrimSpace(d.OrganizationID) == "" {
		return fmt.Errorf("core: donation organization id is required")
	}
	if d.AmountCents < 0 {
		return fmt.Errorf("%w: donation amount %d", ErrInvalidAmount, d.AmountCents)
	}
	if _, err := NormalizeCurrency(d.Currency); err != nil {
		return err
	}
	if _, err := ParseDonationStatus(string(d.Status)); err != nil {
		return err
	}
	return nil
}

func (d Donation) Reconciled() bool {
	return d.ReconciledAt != nil && !d.ReconciledAt.IsZero()
}

// TransitionTo applies a payment outcome. A reconciled donation is final.
func (d *Donation) TransitionTo(status DonationStatus, now time.Time) error {
	if d == nil {
		return fmt.Errorf("core: donation is nil")
	}
	if !donationTransitionAllowed(d.Status, status, d.Reconciled()) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidDonationStatusTransition, d.Status, status)
	}
	d.Status = status
	d.UpdatedAt = now.UTC()
	return nil
}

func donationTransitionAllowed(current, next DonationStatus, reconciled bool) bool {
	if current == next {
		return true
	}
	if reconciled {
		return false
	}
	switch next {
	case DonationStatusSucceeded, DonationStatusFailed:
		return true
	default:
		return false
	}
}

type SubscriptionInterval string

const (
	SubscriptionIntervalMonth SubscriptionInterval = "month"
	SubscriptionIntervalYear  SubscriptionInterval = "year"
)

func ParseSubscriptionInterval(value string) (SubscriptionInterval, error) {
	switch interval := SubscriptionInterval(strings.TrimSpace(strings.ToLower(value))); interval {
	case SubscriptionIntervalMonth, SubscriptionIntervalYear:
		return interval, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSubscriptionInterval, value)
	}
}

// SubscriptionStatus mirrors the processor-reported status verbatim; only
// the values below carry engine semantics.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionStatusCanceled
}

type Subscription struct {
	ID                     string
	ExternalSubscriptionID string
	ExternalCustomerID     string
	OrganizationID         string
	UserID                 string
	CampaignID             string
	AmountCents            int64
	Currency               string
	Interval               SubscriptionInterval
	Status                 SubscriptionStatus
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (s Subscription) Validate() error {
	if strings.TrimSpace(s.ExternalSubscriptionID) == "" {
		return fmt.Errorf("core: subscription external id is required")
	}
	if strings.TrimSpace(s.OrganizationID) == "" {
		return fmt.Errorf("core: subscription organization id is required")
	}
	if s.AmountCents < 0 {
		return fmt.Errorf("%w: subscription amount %d", ErrInvalidAmount, s.AmountCents)
	}
	if _, err := ParseSubscriptionInterval(string(s.Interval)); err != nil {
		return err
	}
	if strings.TrimSpace(string(s.Status)) == "" {
		return fmt.Errorf("core: subscription status is required")
	}
	return nil
}

func (s *Subscription) TransitionTo(status SubscriptionStatus, now time.Time) error {
	if s == nil {
		return fmt.Errorf("core: subscription is nil")
	}
	if s.Status.Terminal() && status != s.Status {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidSubscriptionStatusTransition, s.Status, status)
	}
	s.Status = status
	s.UpdatedAt = now.UTC()
	return nil
}

type SplitMode string

const (
	SplitModeNone            SplitMode = ""
	SplitModeProcessorNative SplitMode = "processor_native"
	SplitModeInternalBank    SplitMode = "internal_bank"
)

type SplitTransfer struct {
	ID                string
	ExternalPaymentID string
	OrganizationID    string
	SourceAccountID   string
	GrossAmountCents  int64
	Currency          string
	Transfers         []SplitLeg
	CreatedAt         time.Time
}

type InternalSplitPayout struct {
	ID                 string
	ExternalPaymentID  string
	OrganizationID     string
	SourceAccountID    string
	AmountToSplitCents int64
	Currency           string
	Payouts            []SplitLeg
	CreatedAt          time.Time
}

// Failed reports how many entries of the attempted batch did not go through.
func (p InternalSplitPayout) Failed() int {
	count := 0
	for _, leg := range p.Payouts {
		if leg.Status == SplitLegFailed {
			count++
		}
	}
	return count
}

type SplitLegStatus string

const (
	SplitLegSucceeded SplitLegStatus = "succeeded"
	SplitLegFailed    SplitLegStatus = "failed"
)

// SplitLeg is one executed (or attempted) entry of a split batch.
type SplitLeg struct {
	Destination string         `json:"destination"`
	Percentage  string         `json:"percentage"`
	AmountCents int64          `json:"amount_cents"`
	ExternalID  string         `json:"external_id,omitempty"`
	Status      SplitLegStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
}

type Campaign struct {
	ID                 string
	OrganizationID     string
	Name               string
	GoalAmountCents    int64
	CurrentAmountCents int64
	UpdatedAt          time.Time
}

// ApplyDonation returns the campaign after a confirmed donation of amount.
func (c Campaign) ApplyDonation(amountCents int64) (Campaign, error) {
	if amountCents < 0 {
		return c, fmt.Errorf("%w: campaign increment %d", ErrInvalidAmount, amountCents)
	}
	c.CurrentAmountCents += amountCents
	return c, nil
}

type FundRequestStatus string

const (
	FundRequestStatusOpen      FundRequestStatus = "open"
	FundRequestStatusFulfilled FundRequestStatus = "fulfilled"
)

func ParseFundRequestStatus(value string) (FundRequestStatus, error) {
	switch status := FundRequestStatus(strings.TrimSpace(strings.ToLower(value))); status {
	case FundRequestStatusOpen, FundRequestStatusFulfilled:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFundRequestStatus, value)
	}
}

type FundRequest struct {
	ID                   string
	OrganizationID       string
	Title                string
	AmountCents          int64
	FulfilledAmountCents int64
	Status               FundRequestStatus
	FulfilledAt          *time.Time
	UpdatedAt            time.Time
}

// ApplyDonation adds a confirmed donation and flips the request to fulfilled
// once the target is met. Fulfillment never reverses.
func (f FundRequest) ApplyDonation(amountCents int64, now time.Time) (FundRequest, error) {
	if amountCents < 0 {
		return f, fmt.Errorf("%w: fund request increment %d", ErrInvalidAmount, amountCents)
	}
	f.FulfilledAmountCents += amountCents
	if f.Status != FundRequestStatusFulfilled && f.FulfilledAmountCents >= f.AmountCents {
		f.Status = FundRequestStatusFulfilled
		fulfilledAt := now.UTC()
		f.FulfilledAt = &fulfilledAt
	}
	f.UpdatedAt = now.UTC()
	return f, nil
}

type Organization struct {
	ID                  string
	Name                string
	OwnerEmail          string
	ExternalAccountID   string
	OnboardingCompleted bool
	ChargesEnabled      bool
	PayoutsEnabled      bool
	DetailsSubmitted    bool
	UpdatedAt           time.Time
}

// AccountFlags is the connected-account state reported by the processor.
type AccountFlags struct {
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
	CurrentlyDue     []string
	EventuallyDue    []string
	PastDue          []string
}

// OnboardingCompleted is derived from the full current flag set, never
// patched. Any outstanding requirement forces false.
func (f AccountFlags) OnboardingCompleted() bool {
	if len(f.CurrentlyDue) > 0 || len(f.EventuallyDue) > 0 || len(f.PastDue) > 0 {
		return false
	}
	return f.ChargesEnabled && f.PayoutsEnabled && f.DetailsSubmitted
}

type EndowmentFund struct {
	ID                string
	Name              string
	ExternalAccountID string
}

type PayoutRecord struct {
	ID               string
	ExternalPayoutID string
	OrganizationID   string
	AccountID        string
	AmountCents      int64
	Currency         string
	Status           string
	ArrivalDate      *time.Time
	CreatedAt        time.Time
}

type NotificationDispatch struct {
	ID          string
	DispatchKey string
	Kind        NotificationKind
	Recipient   string
	Status      string
	Error       string
	CreatedAt   time.Time
}

const (
	NotificationDispatchSent   = "sent"
	NotificationDispatchFailed = "failed"
)
