package webhooks

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

type eventEnvelope struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Account  string `json:"account"`
	Created  int64  `json:"created"`
	Livemode bool   `json:"livemode"`
	Data     struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a verified body into an ExternalEvent.
func ParseEvent(body []byte) (core.ExternalEvent, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return core.ExternalEvent{}, core.MalformedEventError(err, nil)
	}
	id := strings.TrimSpace(envelope.ID)
	kind := strings.TrimSpace(envelope.Type)
	if id == "" || kind == "" {
		return core.ExternalEvent{}, core.MalformedEventError(nil, map[string]any{
			"event_id":   id,
			"event_kind": kind,
			"reason":     "event id and type are required",
		})
	}
	if len(envelope.Data.Object) == 0 || string(envelope.Data.Object) == "null" {
		return core.ExternalEvent{}, core.MalformedEventError(nil, map[string]any{
			"event_id":   id,
			"event_kind": kind,
			"reason":     "event data object is required",
		})
	}

	event := core.ExternalEvent{
		ID:       id,
		Kind:     core.EventKind(kind),
		Account:  strings.TrimSpace(envelope.Account),
		LiveMode: envelope.Livemode,
		Object:   append(json.RawMessage(nil), envelope.Data.Object...),
		RawBody:  append([]byte(nil), body...),
	}
	if envelope.Created > 0 {
		event.Created = time.Unix(envelope.Created, 0).UTC()
	}
	return event, nil
}

// peekEventIdentity extracts id and kind from an unverified body for audit
// logging only.
func peekEventIdentity(body []byte) (string, string) {
	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", ""
	}
	return strings.TrimSpace(envelope.ID), strings.TrimSpace(envelope.Type)
}
