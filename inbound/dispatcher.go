package inbound

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

// Dispatcher is the event router. Each event kind maps to one handler;
// unknown kinds are acknowledged and ignored.
type Dispatcher struct {
	Observer core.Observer

	mu       sync.RWMutex
	handlers map[core.EventKind]core.EventHandler
}

func NewDispatcher(observer core.Observer) *Dispatcher {
	return &Dispatcher{
		Observer: observer,
		handlers: map[core.EventKind]core.EventHandler{},
	}
}

func (d *Dispatcher) Register(handler core.EventHandler) error {
	if d == nil {
		return inboundInternal("inbound: dispatcher is nil", nil)
	}
	if handler == nil {
		return inboundInternal("inbound: handler is nil", nil)
	}
	kinds := handler.Kinds()
	if len(kinds) == 0 {
		return inboundInternal("inbound: handler declares no event kinds", nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, kind := range kinds {
		kind = normalizeKind(kind)
		if _, exists := d.handlers[kind]; exists {
			return inboundError(
				fmt.Sprintf("inbound: handler already registered for %q", kind),
				goerrors.CategoryConflict,
				http.StatusConflict,
				core.ErrorInternal,
				map[string]any{"event_kind": string(kind)},
			)
		}
	}
	for _, kind := range kinds {
		d.handlers[normalizeKind(kind)] = handler
	}
	return nil
}

func (d *Dispatcher) Route(ctx context.Context, event core.ExternalEvent) (core.HandleResult, error) {
	if d == nil {
		return core.HandleResult{}, inboundInternal("inbound: dispatcher is nil", nil)
	}
	handler := d.handlerFor(event.Kind)
	if handler == nil {
		d.Observer.Debug(ctx, "event kind not handled", core.EventFields(event, nil))
		return core.HandleResult{
			Outcome:  core.OutcomeIgnored,
			Metadata: map[string]any{"event_id": event.ID, "event_kind": string(event.Kind)},
		}, nil
	}
	result, err := handler.Handle(ctx, event)
	result.Metadata = ensureMetadata(result.Metadata)
	result.Metadata["event_id"] = event.ID
	result.Metadata["event_kind"] = string(event.Kind)
	if err == nil && result.Outcome == "" {
		result.Outcome = core.OutcomeProcessed
	}
	return result, err
}

// Kinds lists the registered event kinds, sorted.
func (d *Dispatcher) Kinds() []core.EventKind {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	kinds := make([]core.EventKind, 0, len(d.handlers))
	for kind := range d.handlers {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (d *Dispatcher) handlerFor(kind core.EventKind) core.EventHandler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[normalizeKind(kind)]
}

func normalizeKind(kind core.EventKind) core.EventKind {
	return core.EventKind(strings.TrimSpace(strings.ToLower(string(kind))))
}

func ensureMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	return metadata
}

func duplicate(metadata map[string]any) (core.HandleResult, error) {
	metadata = ensureMetadata(metadata)
	metadata["deduped"] = true
	return core.HandleResult{Outcome: core.OutcomeDuplicate, Metadata: metadata}, nil
}

func skipped(reason string, metadata map[string]any) (core.HandleResult, error) {
	metadata = ensureMetadata(metadata)
	metadata["skipped_reason"] = reason
	return core.HandleResult{Outcome: core.OutcomeSkipped, Metadata: metadata}, nil
}

var _ core.EventRouter = (*Dispatcher)(nil)
