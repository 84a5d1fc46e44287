package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

type organizationRecord struct {
	bun.BaseModel `bun:"table:organizations,alias:org"`

	ID                  string    `bun:"id,pk"`
	Name                string    `bun:"name,notnull"`
	OwnerEmail          string    `bun:"owner_email,notnull"`
	ExternalAccountID   *string   `bun:"external_account_id"`
	OnboardingCompleted bool      `bun:"onboarding_completed,notnull"`
	ChargesEnabled      bool      `bun:"charges_enabled,notnull"`
	PayoutsEnabled      bool      `bun:"payouts_enabled,notnull"`
	DetailsSubmitted    bool      `bun:"details_submitted,notnull"`
	CreatedAt           time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt           time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type campaignRecord struct {
	bun.BaseModel `bun:"table:campaigns,alias:cmp"`

	ID                 string    `bun:"id,pk"`
	OrganizationID     string    `bun:"organization_id,notnull"`
	Name               string    `bun:"name,notnull"`
	GoalAmountCents    int64     `bun:"goal_amount_cents,notnull"`
	CurrentAmountCents int64     `bun:"current_amount_cents,notnull"`
	CreatedAt          time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt          time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type fundRequestRecord struct {
	bun.BaseModel `bun:"table:fund_requests,alias:fr"`

	ID                   string     `bun:"id,pk"`
	OrganizationID       string     `bun:"organization_id,notnull"`
	Title                string     `bun:"title,notnull"`
	AmountCents          int64      `bun:"amount_cents,notnull"`
	FulfilledAmountCents int64      `bun:"fulfilled_amount_cents,notnull"`
	Status               string     `bun:"status,notnull"`
	FulfilledAt          *time.Time `bun:"fulfilled_at,nullzero"`
	CreatedAt            time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt            time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type endowmentFundRecord struct {
	bun.BaseModel `bun:"table:endowment_funds,alias:ef"`

	ID                string    `bun:"id,pk"`
	Name              string    `bun:"name,notnull"`
	ExternalAccountID string    `bun:"external_account_id,notnull"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type donationRecord struct {
	bun.BaseModel `bun:"table:donations,alias:d"`

	ID                     string     `bun:"id,pk"`
	OrganizationID         string     `bun:"organization_id,notnull"`
	CampaignID             *string    `bun:"campaign_id"`
	EndowmentFundID        *string    `bun:"endowment_fund_id"`
	FundRequestID          *string    `bun:"fund_request_id"`
	UserID                 *string    `bun:"user_id"`
	AmountCents            int64      `bun:"amount_cents,notnull"`
	Currency               string     `bun:"currency,notnull"`
	PlatformFeeCents       int64      `bun:"platform_fee_cents,notnull"`
	ExternalPaymentID      string     `bun:"external_payment_id,notnull"`
	ExternalChargeID       *string    `bun:"external_charge_id"`
	ExternalInvoiceID      *string    `bun:"external_invoice_id"`
	ExternalSubscriptionID *string    `bun:"external_subscription_id"`
	Status                 string     `bun:"status,notnull"`
	DonorEmail             string     `bun:"donor_email,notnull"`
	DonorName              string     `bun:"donor_name,notnull"`
	ReceiptToken           string     `bun:"receipt_token,notnull"`
	ReconciledAt           *time.Time `bun:"reconciled_at,nullzero"`
	CreatedAt              time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt              time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type subscriptionRecord struct {
	bun.BaseModel `bun:"table:donor_subscriptions,alias:ds"`

	ID                     string    `bun:"id,pk"`
	ExternalSubscriptionID string    `bun:"external_subscription_id,notnull"`
	ExternalCustomerID     string    `bun:"external_customer_id,notnull"`
	OrganizationID         string    `bun:"organization_id,notnull"`
	UserID                 *string   `bun:"user_id"`
	CampaignID             *string   `bun:"campaign_id"`
	AmountCents            int64     `bun:"amount_cents,notnull"`
	Currency               string    `bun:"currency,notnull"`
	Interval               string    `bun:"billing_interval,notnull"`
	Status                 string    `bun:"status,notnull"`
	CreatedAt              time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt              time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type splitTransferRecord struct {
	bun.BaseModel `bun:"table:split_transfers,alias:st"`

	ID                string          `bun:"id,pk"`
	ExternalPaymentID string          `bun:"external_payment_id,notnull"`
	OrganizationID    string          `bun:"organization_id,notnull"`
	SourceAccountID   string          `bun:"source_account_id,notnull"`
	GrossAmountCents  int64           `bun:"gross_amount_cents,notnull"`
	Currency          string          `bun:"currency,notnull"`
	Transfers         []core.SplitLeg `bun:"transfers,type:jsonb,notnull"`
	CreatedAt         time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type internalSplitPayoutRecord struct {
	bun.BaseModel `bun:"table:internal_split_payouts,alias:isp"`

	ID                 string          `bun:"id,pk"`
	ExternalPaymentID  string          `bun:"external_payment_id,notnull"`
	OrganizationID     string          `bun:"organization_id,notnull"`
	SourceAccountID    string          `bun:"source_account_id,notnull"`
	AmountToSplitCents int64           `bun:"amount_to_split_cents,notnull"`
	Currency           string          `bun:"currency,notnull"`
	Payouts            []core.SplitLeg `bun:"payouts,type:jsonb,notnull"`
	CreatedAt          time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type payoutRecord struct {
	bun.BaseModel `bun:"table:payouts,alias:po"`

	ID               string     `bun:"id,pk"`
	ExternalPayoutID string     `bun:"external_payout_id,notnull"`
	OrganizationID   string     `bun:"organization_id,notnull"`
	AccountID        string     `bun:"account_id,notnull"`
	AmountCents      int64      `bun:"amount_cents,notnull"`
	Currency         string     `bun:"currency,notnull"`
	Status           string     `bun:"status,notnull"`
	ArrivalDate      *time.Time `bun:"arrival_date,nullzero"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type notificationDispatchRecord struct {
	bun.BaseModel `bun:"table:notification_dispatches,alias:nd"`

	ID          string    `bun:"id,pk"`
	DispatchKey string    `bun:"dispatch_key,notnull"`
	Kind        string    `bun:"kind,notnull"`
	Recipient   string    `bun:"recipient,notnull"`
	Status      string    `bun:"status,notnull"`
	Error       string    `bun:"error,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
