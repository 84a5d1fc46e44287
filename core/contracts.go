package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Clock func() time.Time

// Delivery is one inbound HTTP delivery, before verification.
type Delivery struct {
	Body      []byte
	Signature string
	Headers   map[string]string
}

type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// HandleResult is what a router handler reports for one event.
type HandleResult struct {
	Outcome  Outcome
	Metadata map[string]any
}

// DeliveryResult is what the engine reports back to the event source.
type DeliveryResult struct {
	EventID    string
	EventKind  EventKind
	Outcome    Outcome
	StatusCode int
	Metadata   map[string]any
}

type EventHandler interface {
	Kinds() []EventKind
	Handle(ctx context.Context, event ExternalEvent) (HandleResult, error)
}

type EventRouter interface {
	Route(ctx context.Context, event ExternalEvent) (HandleResult, error)
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type TransferRequest struct {
	AmountCents     int64
	Currency        string
	Destination     string
	SourceAccountID string
	TransferGroup   string
	Description     string
	Metadata        map[string]string
}

type PayoutRequest struct {
	AmountCents     int64
	Currency        string
	Destination     string
	SourceAccountID string
	Description     string
	Metadata        map[string]string
}

type TransferResult struct {
	ID          string
	AmountCents int64
	Destination string
}

type PayoutResult struct {
	ID          string
	AmountCents int64
	Destination string
	Status      string
}

// ProcessorClient is the outbound surface of the payment processor.
type ProcessorClient interface {
	RetrieveSubscription(ctx context.Context, id string) (SubscriptionObject, error)
	CreateTransfer(ctx context.Context, req TransferRequest) (TransferResult, error)
	CreatePayout(ctx context.Context, req PayoutRequest) (PayoutResult, error)
}

type DonationStore interface {
	GetByPaymentID(ctx context.Context, paymentID string) (Donation, bool, error)
	GetByChargeID(ctx context.Context, chargeID string) (Donation, bool, error)
	// Insert relies on the payment id unique key. created is false when a row
	// with the same payment id already exists, in which case that row is returned.
	Insert(ctx context.Context, donation Donation) (stored Donation, created bool, err error)
	// Adopt marks an existing, unreconciled row succeeded and fills any blank
	// correlation fields from donation.
	Adopt(ctx context.Context, id string, donation Donation) (Donation, error)
	MarkFailed(ctx context.Context, paymentID string) (bool, error)
	AttachCharge(ctx context.Context, paymentID string, chargeID string) (bool, error)
}

type AggregateInput struct {
	DonationID    string
	CampaignID    string
	FundRequestID string
	AmountCents   int64
}

type AggregateResult struct {
	Claimed            bool
	CampaignUpdated    bool
	FundRequestUpdated bool
	FundRequest        *FundRequest
	BecameFulfilled    bool
}

type AggregateStore interface {
	// ApplyDonation claims the donation's reconciliation and applies the
	// campaign and fund-request increments in a single transaction. A donation
	// that is already reconciled yields Claimed=false and no increments.
	ApplyDonation(ctx context.Context, in AggregateInput) (AggregateResult, error)
}

type SubscriptionStore interface {
	GetByExternalID(ctx context.Context, externalID string) (Subscription, bool, error)
	// Upsert inserts or updates by external subscription id. A stored canceled
	// subscription is never moved out of canceled.
	Upsert(ctx context.Context, subscription Subscription) (Subscription, error)
	MarkCanceled(ctx context.Context, externalID string) (bool, error)
}

type SplitMarkerStore interface {
	GetSplitTransfer(ctx context.Context, paymentID string) (SplitTransfer, bool, error)
	RecordSplitTransfer(ctx context.Context, marker SplitTransfer) (bool, error)
	GetInternalSplitPayout(ctx context.Context, paymentID string) (InternalSplitPayout, bool, error)
	RecordInternalSplitPayout(ctx context.Context, marker InternalSplitPayout) (bool, error)
}

type OrganizationStore interface {
	Get(ctx context.Context, id string) (Organization, error)
	GetByExternalAccountID(ctx context.Context, accountID string) (Organization, bool, error)
	UpdateOnboarding(ctx context.Context, id string, flags AccountFlags, completed bool) (Organization, error)
}

type CampaignStore interface {
	Get(ctx context.Context, id string) (Campaign, error)
}

type FundRequestStore interface {
	Get(ctx context.Context, id string) (FundRequest, error)
}

type EndowmentFundStore interface {
	Get(ctx context.Context, id string) (EndowmentFund, error)
}

type PayoutStore interface {
	GetByExternalID(ctx context.Context, externalID string) (PayoutRecord, bool, error)
	Insert(ctx context.Context, payout PayoutRecord) (PayoutRecord, bool, error)
}

type NotificationDispatchStore interface {
	Seen(ctx context.Context, dispatchKey string) (bool, error)
	Record(ctx context.Context, dispatch NotificationDispatch) error
}

// Stores groups every datastore handle the engine needs.
type Stores struct {
	Donations      DonationStore
	Aggregates     AggregateStore
	Subscriptions  SubscriptionStore
	SplitMarkers   SplitMarkerStore
	Organizations  OrganizationStore
	Campaigns      CampaignStore
	FundRequests   FundRequestStore
	EndowmentFunds EndowmentFundStore
	Payouts        PayoutStore
	Dispatches     NotificationDispatchStore
}

type NotificationKind string

const (
	NotificationDonorReceipt         NotificationKind = "donor_receipt"
	NotificationDonorReceiptAttached NotificationKind = "donor_receipt_attached"
	NotificationOrgOwnerAlert        NotificationKind = "org_owner_alert"
	NotificationPayoutProcessed      NotificationKind = "payout_processed"
)

// Notification carries pre-formatted display fields only.
type Notification struct {
	Kind        NotificationKind
	DispatchKey string
	Recipient   string
	Subject     string
	Fields      map[string]string
}

type NotificationSender interface {
	Send(ctx context.Context, notification Notification) error
}

// Notifier is the fire-and-forget surface used by handlers.
type Notifier interface {
	DonationReceived(ctx context.Context, donation Donation)
	ReceiptAttached(ctx context.Context, donation Donation, receiptURL string)
	PayoutProcessed(ctx context.Context, payout PayoutRecord)
}
