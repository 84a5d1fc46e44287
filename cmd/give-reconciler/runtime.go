package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	giveapp "github.com/Chriskfigures777/give-app-sub003"
	"github.com/Chriskfigures777/give-app-sub003/adapters/gocommand"
	"github.com/Chriskfigures777/give-app-sub003/adapters/gojob"
	"github.com/Chriskfigures777/give-app-sub003/adapters/gologger"
	"github.com/Chriskfigures777/give-app-sub003/adapters/prom"
	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/memstore"
	"github.com/Chriskfigures777/give-app-sub003/notify"
	"github.com/Chriskfigures777/give-app-sub003/processor/processortest"
	sqlstore "github.com/Chriskfigures777/give-app-sub003/store/sql"
)

type runtimeOptions struct {
	// dryRun swaps in the in-memory store and a scripted processor.
	dryRun bool
}

// runtime is one assembled engine plus the resources it owns.
type runtime struct {
	cfg      core.Config
	provider *gologger.Provider
	registry *prometheus.Registry
	observer core.Observer
	client   *persistence.Client
	memory   *memstore.Store
	engine   *giveapp.Engine
	bus      *gocommand.Bus
	queue    *gojob.MemoryQueue
	worker   *gojob.Worker
}

func buildRuntime(cfg core.Config, provider *gologger.Provider, opts runtimeOptions) (*runtime, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := prom.NewRecorder(registry)
	logger := provider.GetLogger(cfg.ServiceName)
	observer := core.NewObserver(logger, recorder)

	rt := &runtime{cfg: cfg, provider: provider, registry: registry, observer: observer}
	engineOpts := []giveapp.Option{
		giveapp.WithLoggerProvider(provider),
		giveapp.WithMetrics(recorder),
	}

	if opts.dryRun {
		rt.memory = memstore.New()
		engineOpts = append(engineOpts,
			giveapp.WithStores(rt.memory.Stores()),
			giveapp.WithUnreconciledLister(rt.memory),
			giveapp.WithProcessorClient(processortest.NewFake()),
			giveapp.WithNotificationSender(notify.LogSender{Observer: observer}),
		)
	} else {
		client, err := openDatabase(cfg)
		if err != nil {
			return nil, err
		}
		rt.client = client
		factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
		if err != nil {
			rt.Close()
			return nil, err
		}
		engineOpts = append(engineOpts,
			giveapp.WithStores(factory.Stores()),
			giveapp.WithUnreconciledLister(factory.DonationStore()),
		)
	}

	cache, err := recipientCache(cfg.Notifications)
	if err != nil {
		rt.Close()
		return nil, err
	}
	engineOpts = append(engineOpts, giveapp.WithRecipientCache(cache))

	if !opts.dryRun && strings.EqualFold(cfg.Notifications.Sender, core.NotificationSenderJob) {
		rt.queue = gojob.NewMemoryQueue()
		rt.worker = gojob.NewWorker(rt.queue, deliverySender(cfg.Notifications, observer),
			gojob.WithHook(gojob.ObserverHook{Observer: observer}))
		engineOpts = append(engineOpts, giveapp.WithNotificationSender(gojob.NewEnqueuer(rt.queue)))
	}

	engine, err := giveapp.New(cfg, engineOpts...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.engine = engine

	facade, err := giveapp.NewFacade(engine)
	if err != nil {
		rt.Close()
		return nil, err
	}
	bus, err := facade.Bus(gocommand.NewRegistryAdapter(nil))
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.bus = bus
	if err := bus.Adapter().Initialize(); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// runWorker drains queued notifications until ctx is done.
func (rt *runtime) runWorker(ctx context.Context) {
	if rt.worker == nil {
		return
	}
	go func() {
		if err := rt.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			rt.observer.Error(ctx, "notification worker stopped", map[string]any{"error": err.Error()})
		}
	}()
}

// drain sends whatever is ready in the queue without waiting on retries.
func (rt *runtime) drain(ctx context.Context) {
	if rt.worker == nil {
		return
	}
	for rt.worker.RunOnce(ctx) == nil {
	}
}

func (rt *runtime) Close() {
	if rt == nil {
		return
	}
	if rt.bus != nil {
		rt.bus.Close()
	}
	if rt.client != nil {
		_ = rt.client.Close()
	}
}

func recipientCache(cfg core.NotificationConfig) (repositorycache.CacheService, error) {
	if cfg.RecipientCacheTTLSeconds <= 0 {
		return nil, nil
	}
	cacheConfig := repositorycache.DefaultConfig()
	cacheConfig.TTL = time.Duration(cfg.RecipientCacheTTLSeconds) * time.Second
	cache, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("recipient cache: %w", err)
	}
	return cache, nil
}

// deliverySender is what the job worker finally hands notifications to.
func deliverySender(cfg core.NotificationConfig, observer core.Observer) core.NotificationSender {
	if strings.TrimSpace(cfg.SMTPHost) != "" && strings.TrimSpace(cfg.From) != "" {
		return notify.NewSMTPSender(cfg)
	}
	return notify.LogSender{Observer: observer}
}
