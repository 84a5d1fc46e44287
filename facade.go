package giveapp

import (
	"context"
	"fmt"

	"github.com/Chriskfigures777/give-app-sub003/adapters/gocommand"
	reconcilecommand "github.com/Chriskfigures777/give-app-sub003/command"
	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/query"
)

type Commands struct {
	ProcessDelivery   *reconcilecommand.ProcessDeliveryCommand
	ReconcileDonation *reconcilecommand.ReconcileDonationCommand
}

type Queries struct {
	GetDonation      *query.GetDonationQuery
	GetCampaign      *query.GetCampaignQuery
	ListUnreconciled *query.ListUnreconciledQuery
}

// Facade exposes the engine as go-command handlers.
type Facade struct {
	engine   *Engine
	commands Commands
	queries  Queries
}

func NewFacade(engine *Engine) (*Facade, error) {
	if engine == nil {
		return nil, fmt.Errorf("giveapp: engine is required")
	}
	stores := engine.Stores()
	facade := &Facade{engine: engine}
	facade.commands = Commands{
		ProcessDelivery:   reconcilecommand.NewProcessDeliveryCommand(engine),
		ReconcileDonation: reconcilecommand.NewReconcileDonationCommand(engine),
	}
	facade.queries = Queries{
		GetDonation: engine.donations,
		GetCampaign: query.NewGetCampaignQuery(stores.Campaigns),
	}
	if engine.lister != nil {
		facade.queries.ListUnreconciled = query.NewListUnreconciledQuery(engine.lister)
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Engine() *Engine {
	if f == nil {
		return nil
	}
	return f.engine
}

// Bus registers every handler with the go-command dispatcher. Callers close
// it to unsubscribe.
func (f *Facade) Bus(adapter *gocommand.RegistryAdapter) (*gocommand.Bus, error) {
	if f == nil {
		return nil, fmt.Errorf("giveapp: facade is required")
	}
	return gocommand.NewBus(adapter, gocommand.Handlers{
		ProcessDelivery:   f.commands.ProcessDelivery,
		ReconcileDonation: f.commands.ReconcileDonation,
		GetDonation:       f.queries.GetDonation,
		GetCampaign:       f.queries.GetCampaign,
		ListUnreconciled:  f.queries.ListUnreconciled,
	})
}

// CommandProcessor routes deliveries through the go-command dispatcher so
// the HTTP endpoint and replay share one path.
type CommandProcessor struct{}

func (CommandProcessor) Process(ctx context.Context, delivery core.Delivery) (core.DeliveryResult, error) {
	return gocommand.ProcessDelivery(ctx, delivery)
}

// CommandDonationLookup reads donations through the go-command dispatcher.
type CommandDonationLookup struct{}

func (CommandDonationLookup) GetDonation(ctx context.Context, paymentID string) (query.DonationView, error) {
	return gocommand.Query[query.GetDonationMessage, query.DonationView](ctx, query.GetDonationMessage{PaymentID: paymentID})
}
