package giveapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/idempotency"
	"github.com/Chriskfigures777/give-app-sub003/inbound"
	"github.com/Chriskfigures777/give-app-sub003/ledger"
	"github.com/Chriskfigures777/give-app-sub003/notify"
	"github.com/Chriskfigures777/give-app-sub003/processor"
	"github.com/Chriskfigures777/give-app-sub003/query"
	"github.com/Chriskfigures777/give-app-sub003/split"
	"github.com/Chriskfigures777/give-app-sub003/webhooks"
)

// UnreconciledLister is implemented by both datastores.
type UnreconciledLister interface {
	ListUnreconciled(ctx context.Context, limit int) ([]core.Donation, error)
}

type Option func(*engineOptions)

type engineOptions struct {
	logger         glog.Logger
	loggerProvider glog.LoggerProvider
	metrics        core.MetricsRecorder
	stores         *core.Stores
	unreconciled   UnreconciledLister
	processor      core.ProcessorClient
	transport      core.TransportAdapter
	sender         core.NotificationSender
	recipientCache repositorycache.CacheService
	verifier       webhooks.Verifier
	handlers       []core.EventHandler
	now            func() time.Time
}

func WithLogger(logger glog.Logger) Option {
	return func(o *engineOptions) { o.logger = logger }
}

func WithLoggerProvider(provider glog.LoggerProvider) Option {
	return func(o *engineOptions) { o.loggerProvider = provider }
}

func WithMetrics(metrics core.MetricsRecorder) Option {
	return func(o *engineOptions) { o.metrics = metrics }
}

func WithStores(stores core.Stores) Option {
	return func(o *engineOptions) { o.stores = &stores }
}

func WithUnreconciledLister(lister UnreconciledLister) Option {
	return func(o *engineOptions) { o.unreconciled = lister }
}

// WithProcessorClient replaces the REST processor client entirely.
func WithProcessorClient(client core.ProcessorClient) Option {
	return func(o *engineOptions) { o.processor = client }
}

// WithTransport keeps the REST processor client but swaps its transport.
func WithTransport(adapter core.TransportAdapter) Option {
	return func(o *engineOptions) { o.transport = adapter }
}

func WithNotificationSender(sender core.NotificationSender) Option {
	return func(o *engineOptions) { o.sender = sender }
}

func WithRecipientCache(cache repositorycache.CacheService) Option {
	return func(o *engineOptions) { o.recipientCache = cache }
}

func WithVerifier(verifier webhooks.Verifier) Option {
	return func(o *engineOptions) { o.verifier = verifier }
}

// WithEventHandlers registers handlers for event kinds the engine does not
// ship with. Registering a kind twice fails New.
func WithEventHandlers(handlers ...core.EventHandler) Option {
	return func(o *engineOptions) { o.handlers = append(o.handlers, handlers...) }
}

func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.now = now }
}

// Engine is the assembled reconciliation pipeline.
type Engine struct {
	config    core.Config
	observer  core.Observer
	stores    core.Stores
	processor core.ProcessorClient
	guard     *idempotency.Guard
	ledger    *ledger.Writer
	splits    *split.Orchestrator
	notifier  *notify.Dispatcher
	deps      inbound.Dependencies
	router    *inbound.Dispatcher
	webhooks  *webhooks.Processor
	donations *query.GetDonationQuery
	lister    UnreconciledLister
}

func New(cfg core.Config, opts ...Option) (*Engine, error) {
	options := engineOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if options.stores == nil {
		return nil, fmt.Errorf("giveapp: datastore is required")
	}
	stores := *options.stores

	_, logger := glog.Resolve(cfg.ServiceName, options.loggerProvider, options.logger)
	observer := core.NewObserver(logger, options.metrics)

	verifier := options.verifier
	if verifier == nil {
		if err := cfg.ValidateWebhook(); err != nil {
			return nil, err
		}
		signatures := webhooks.NewSignatureVerifier(cfg.Webhook.Secrets, cfg.Webhook.Tolerance())
		if options.now != nil {
			signatures.Now = options.now
		}
		verifier = signatures
	}

	client := options.processor
	if client == nil {
		if err := cfg.ValidateProcessor(); err != nil {
			return nil, err
		}
		client = processor.NewClient(cfg.Processor, options.transport, observer)
	}

	sender, err := resolveSender(cfg.Notifications, options.sender, observer)
	if err != nil {
		return nil, err
	}

	guard := idempotency.NewGuard(stores)
	writer := ledger.NewWriter(stores, observer)
	splits := split.NewOrchestrator(client, stores, guard, cfg.Fees.EndowmentSharePercent, observer)
	notifier := notify.NewDispatcher(
		sender,
		stores.Dispatches,
		notify.NewRecipientDirectory(stores.Organizations, options.recipientCache),
		cfg.Notifications,
		observer,
	)
	deps := inbound.Dependencies{
		Stores:    stores,
		Guard:     guard,
		Ledger:    writer,
		Splits:    splits,
		Processor: client,
		Notifier:  notifier,
		Observer:  observer,
	}
	router, err := inbound.NewDefaultDispatcher(deps)
	if err != nil {
		return nil, err
	}
	for _, handler := range options.handlers {
		if err := router.Register(handler); err != nil {
			return nil, err
		}
	}
	deliveries := webhooks.NewProcessor(verifier, router, observer)
	if options.now != nil {
		deliveries.Now = options.now
	}

	lister := options.unreconciled
	if lister == nil {
		lister, _ = stores.Donations.(UnreconciledLister)
	}

	return &Engine{
		config:    cfg,
		observer:  observer,
		stores:    stores,
		processor: client,
		guard:     guard,
		ledger:    writer,
		splits:    splits,
		notifier:  notifier,
		deps:      deps,
		router:    router,
		webhooks:  deliveries,
		donations: query.NewGetDonationQuery(stores.Donations, stores.Campaigns, stores.FundRequests),
		lister:    lister,
	}, nil
}

func resolveSender(cfg core.NotificationConfig, override core.NotificationSender, observer core.Observer) (core.NotificationSender, error) {
	if override != nil {
		return override, nil
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Sender)) {
	case "", core.NotificationSenderLog:
		return notify.LogSender{Observer: observer}, nil
	case core.NotificationSenderSMTP:
		return notify.NewSMTPSender(cfg), nil
	case core.NotificationSenderJob:
		return nil, fmt.Errorf("giveapp: job notification sender needs a queue; pass WithNotificationSender")
	default:
		return nil, fmt.Errorf("giveapp: unknown notification sender %q", cfg.Sender)
	}
}

func (e *Engine) Config() core.Config { return e.config }

func (e *Engine) Observer() core.Observer { return e.observer }

func (e *Engine) Stores() core.Stores { return e.stores }

func (e *Engine) Router() *inbound.Dispatcher { return e.router }

// Process verifies, routes, and reports one inbound delivery.
func (e *Engine) Process(ctx context.Context, delivery core.Delivery) (core.DeliveryResult, error) {
	if e == nil || e.webhooks == nil {
		return core.DeliveryResult{}, fmt.Errorf("giveapp: engine is not configured")
	}
	return e.webhooks.Process(ctx, delivery)
}

// ReconcileDonation applies aggregates for a recorded donation that never
// got them, e.g. after a crash between the donation write and the totals.
func (e *Engine) ReconcileDonation(ctx context.Context, paymentID string) (core.AggregateResult, error) {
	startedAt := time.Now()
	paymentID = strings.TrimSpace(paymentID)
	fields := map[string]any{"payment_id": paymentID}

	donation, found, err := e.stores.Donations.GetByPaymentID(ctx, paymentID)
	if err != nil {
		err = core.PersistenceError(err, "giveapp: load donation", fields)
		e.observer.ObserveOperation(ctx, startedAt, "donation.reconcile", err, fields)
		return core.AggregateResult{}, err
	}
	if !found {
		return core.AggregateResult{}, core.NotFoundError("donation not found", fields)
	}
	if donation.Status != core.DonationStatusSucceeded {
		return core.AggregateResult{}, core.ValidationError("only succeeded donations can be reconciled", mergeFields(fields, map[string]any{
			"status": string(donation.Status),
		}))
	}
	result, err := e.ledger.ApplyAggregates(ctx, donation)
	if err == nil && result.Claimed {
		// The settling event stopped at the claim; finish what it skipped.
		fields = mergeFields(fields, inbound.CompleteDonation(ctx, e.deps, donation, ""))
	}
	e.observer.ObserveOperation(ctx, startedAt, "donation.reconcile", err, mergeFields(fields, map[string]any{
		"claimed": result.Claimed,
	}))
	return result, err
}

func (e *Engine) GetDonation(ctx context.Context, paymentID string) (query.DonationView, error) {
	return e.donations.Query(ctx, query.GetDonationMessage{PaymentID: paymentID})
}

func (e *Engine) ListUnreconciled(ctx context.Context, limit int) ([]core.Donation, error) {
	if e.lister == nil {
		return nil, fmt.Errorf("giveapp: datastore cannot list unreconciled donations")
	}
	return e.lister.ListUnreconciled(ctx, limit)
}

func mergeFields(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range extra {
		out[key] = value
	}
	return out
}
