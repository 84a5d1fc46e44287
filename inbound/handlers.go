package inbound

import (
	"fmt"

	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/idempotency"
	"github.com/Chriskfigures777/give-app-sub003/ledger"
	"github.com/Chriskfigures777/give-app-sub003/split"
)

// Dependencies are the collaborators shared by every handler. All of them
// are injected; handlers keep no state between events.
type Dependencies struct {
	Stores    core.Stores
	Guard     *idempotency.Guard
	Ledger    *ledger.Writer
	Splits    *split.Orchestrator
	Processor core.ProcessorClient
	Notifier  core.Notifier
	Observer  core.Observer
}

func (d Dependencies) validate() error {
	switch {
	case d.Guard == nil:
		return fmt.Errorf("inbound: idempotency guard is required")
	case d.Ledger == nil:
		return fmt.Errorf("inbound: ledger writer is required")
	case d.Splits == nil:
		return fmt.Errorf("inbound: split orchestrator is required")
	case d.Processor == nil:
		return fmt.Errorf("inbound: processor client is required")
	case d.Stores.Subscriptions == nil || d.Stores.Organizations == nil || d.Stores.Donations == nil:
		return fmt.Errorf("inbound: datastore handles are required")
	}
	return nil
}

func (d Dependencies) notifier() core.Notifier {
	if d.Notifier == nil {
		return noopNotifier{}
	}
	return d.Notifier
}

// NewDefaultDispatcher registers every handler the engine ships with.
func NewDefaultDispatcher(deps Dependencies) (*Dispatcher, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	dispatcher := NewDispatcher(deps.Observer)
	for _, handler := range []core.EventHandler{
		&SubscriptionHandler{deps: deps},
		&PaymentHandler{deps: deps},
		&InvoiceHandler{deps: deps},
		&ChargeHandler{deps: deps},
		&AccountHandler{deps: deps},
		&PayoutHandler{deps: deps},
	} {
		if err := dispatcher.Register(handler); err != nil {
			return nil, err
		}
	}
	return dispatcher, nil
}

func mergeFields(target map[string]any, sources ...map[string]any) map[string]any {
	target = ensureMetadata(target)
	for _, source := range sources {
		for key, value := range source {
			target[key] = value
		}
	}
	return target
}
