package transport

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

func transportError(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ErrorInternal)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// callError marks a failure talking to the remote side. The engine treats it
// as retryable.
func callError(source error, message string, metadata map[string]any) error {
	return core.PartnerCallError(source, message, metadata)
}
