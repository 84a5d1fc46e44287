package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

// Processor is the single entry point for an inbound delivery:
// verify, parse, route, and map the outcome to a status for the event source.
type Processor struct {
	Verifier Verifier
	Router   core.EventRouter
	Observer core.Observer
	Now      func() time.Time
}

func NewProcessor(verifier Verifier, router core.EventRouter, observer core.Observer) *Processor {
	return &Processor{
		Verifier: verifier,
		Router:   router,
		Observer: observer,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (p *Processor) Process(ctx context.Context, delivery core.Delivery) (core.DeliveryResult, error) {
	if p == nil || p.Router == nil || p.Verifier == nil {
		return core.DeliveryResult{StatusCode: http.StatusInternalServerError},
			fmt.Errorf("webhooks: processor requires verifier and router")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := p.now()

	signature := strings.TrimSpace(delivery.Signature)
	if signature == "" {
		signature = headerValue(delivery.Headers, SignatureHeader)
	}
	if err := p.Verifier.Verify(delivery.Body, signature); err != nil {
		eventID, eventKind := peekEventIdentity(delivery.Body)
		p.Observer.Warn(ctx, "webhook signature rejected", map[string]any{
			"event_id":      eventID,
			"event_kind":    eventKind,
			"has_signature": signature != "",
			"error":         err.Error(),
		})
		p.Observer.IncCounter(ctx, core.MetricEventsTotal, map[string]string{
			"kind":    eventKind,
			"outcome": string(core.OutcomeRejected),
		})
		return core.DeliveryResult{
			EventID:    eventID,
			EventKind:  core.EventKind(eventKind),
			Outcome:    core.OutcomeRejected,
			StatusCode: http.StatusBadRequest,
			Metadata:   map[string]any{"rejected": true},
		}, err
	}

	event, err := ParseEvent(delivery.Body)
	if err != nil {
		p.Observer.Warn(ctx, "webhook body rejected", map[string]any{"error": err.Error()})
		p.Observer.IncCounter(ctx, core.MetricEventsTotal, map[string]string{
			"kind":    "",
			"outcome": string(core.OutcomeRejected),
		})
		return core.DeliveryResult{
			Outcome:    core.OutcomeRejected,
			StatusCode: http.StatusBadRequest,
			Metadata:   map[string]any{"rejected": true},
		}, err
	}
	event.Signature = signature

	handled, err := p.Router.Route(ctx, event)
	result := core.DeliveryResult{
		EventID:   event.ID,
		EventKind: event.Kind,
		Outcome:   handled.Outcome,
		Metadata:  ensureMetadata(handled.Metadata),
	}
	switch {
	case err == nil:
		result.StatusCode = http.StatusOK
	case core.IsValidation(err):
		// Well-signed but uncorrelated: acknowledge so the source stops retrying.
		result.Outcome = core.OutcomeSkipped
		result.StatusCode = http.StatusOK
		result.Metadata["skipped_reason"] = err.Error()
		err = nil
	default:
		result.Outcome = core.OutcomeFailed
		result.StatusCode = core.ErrorHTTPStatus(err)
	}
	if result.Outcome == "" {
		result.Outcome = core.OutcomeProcessed
	}

	p.Observer.IncCounter(ctx, core.MetricEventsTotal, map[string]string{
		"kind":    string(event.Kind),
		"outcome": string(result.Outcome),
	})
	p.Observer.ObserveOperation(ctx, startedAt, "webhook.process", err, core.EventFields(event, map[string]any{
		"outcome":     string(result.Outcome),
		"status_code": result.StatusCode,
	}))
	return result, err
}

func (p *Processor) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func ensureMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	return metadata
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
