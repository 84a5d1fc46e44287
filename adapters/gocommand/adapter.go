package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	reconcilecommand "github.com/Chriskfigures777/give-app-sub003/command"
	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

// AddQueueResolver mirrors registered commands into a go-job queue registry
// so they can also run from a worker.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry command.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// Handlers are the reconciler's commands and queries. Nil entries are skipped.
type Handlers struct {
	ProcessDelivery   *reconcilecommand.ProcessDeliveryCommand
	ReconcileDonation *reconcilecommand.ReconcileDonationCommand
	GetDonation       *query.GetDonationQuery
	GetCampaign       *query.GetCampaignQuery
	ListUnreconciled  *query.ListUnreconciledQuery
}

// Bus owns the dispatcher subscriptions for one set of handlers.
type Bus struct {
	adapter       *RegistryAdapter
	subscriptions []commanddispatcher.Subscription
}

func NewBus(adapter *RegistryAdapter, handlers Handlers) (*Bus, error) {
	if adapter == nil {
		adapter = NewRegistryAdapter(nil)
	}
	bus := &Bus{adapter: adapter}
	add := func(sub commanddispatcher.Subscription, err error) error {
		if err != nil {
			bus.Close()
			return err
		}
		bus.subscriptions = append(bus.subscriptions, sub)
		return nil
	}
	if handlers.ProcessDelivery != nil {
		if err := add(RegisterAndSubscribe[reconcilecommand.ProcessDeliveryMessage](adapter, handlers.ProcessDelivery)); err != nil {
			return nil, err
		}
	}
	if handlers.ReconcileDonation != nil {
		if err := add(RegisterAndSubscribe[reconcilecommand.ReconcileDonationMessage](adapter, handlers.ReconcileDonation)); err != nil {
			return nil, err
		}
	}
	if handlers.GetDonation != nil {
		if err := add(RegisterAndSubscribeQuery[query.GetDonationMessage, query.DonationView](adapter, handlers.GetDonation)); err != nil {
			return nil, err
		}
	}
	if handlers.GetCampaign != nil {
		if err := add(RegisterAndSubscribeQuery[query.GetCampaignMessage, core.Campaign](adapter, handlers.GetCampaign)); err != nil {
			return nil, err
		}
	}
	if handlers.ListUnreconciled != nil {
		if err := add(RegisterAndSubscribeQuery[query.ListUnreconciledMessage, []core.Donation](adapter, handlers.ListUnreconciled)); err != nil {
			return nil, err
		}
	}
	return bus, nil
}

func (b *Bus) Adapter() *RegistryAdapter {
	if b == nil {
		return nil
	}
	return b.adapter
}

// Close unsubscribes every handler from the dispatcher.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	for _, sub := range b.subscriptions {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
	b.subscriptions = nil
}

// ProcessDelivery dispatches a delivery and returns the stored result, which
// is present even when err is not nil.
func ProcessDelivery(ctx context.Context, delivery core.Delivery) (core.DeliveryResult, error) {
	collector := command.NewResult[core.DeliveryResult]()
	err := Dispatch(command.ContextWithResult(ctx, collector), reconcilecommand.ProcessDeliveryMessage{Delivery: delivery})
	result, _ := collector.Load()
	return result, err
}

func ReconcileDonation(ctx context.Context, paymentID string) (core.AggregateResult, error) {
	collector := command.NewResult[core.AggregateResult]()
	err := Dispatch(command.ContextWithResult(ctx, collector), reconcilecommand.ReconcileDonationMessage{PaymentID: paymentID})
	if err != nil {
		return core.AggregateResult{}, err
	}
	result, _ := collector.Load()
	return result, nil
}
