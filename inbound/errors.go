package inbound

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

func inboundError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func inboundInternal(message string, metadata map[string]any) error {
	return inboundError(
		message,
		goerrors.CategoryInternal,
		http.StatusInternalServerError,
		core.ErrorInternal,
		metadata,
	)
}

// missingCorrelation is the skip-this-branch error for well-signed events
// that cannot be tied to an organization.
func missingCorrelation(event core.ExternalEvent, what string) error {
	return core.ValidationError("inbound: event has no "+what, core.EventFields(event, map[string]any{
		"missing": what,
	}))
}
