package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorAuthenticationFailed = "RECONCILE_AUTHENTICATION_FAILED"
	ErrorValidationFailed     = "RECONCILE_VALIDATION_FAILED"
	ErrorMalformedEvent       = "RECONCILE_MALFORMED_EVENT"
	ErrorPartnerCallFailed    = "RECONCILE_PARTNER_CALL_FAILED"
	ErrorPersistenceFailed    = "RECONCILE_PERSISTENCE_FAILED"
	ErrorNotFound             = "RECONCILE_NOT_FOUND"
	ErrorInternal             = "RECONCILE_INTERNAL"
)

func AuthenticationError(message string, metadata map[string]any) error {
	return newReconcileError(message, goerrors.CategoryAuth, ErrorAuthenticationFailed, metadata)
}

func ValidationError(message string, metadata map[string]any) error {
	return newReconcileError(message, goerrors.CategoryValidation, ErrorValidationFailed, metadata)
}

func MalformedEventError(source error, metadata map[string]any) error {
	return wrapReconcileError(source, goerrors.CategoryBadInput, "malformed event payload", ErrorMalformedEvent, metadata)
}

func PartnerCallError(source error, message string, metadata map[string]any) error {
	return wrapReconcileError(source, goerrors.CategoryExternal, message, ErrorPartnerCallFailed, metadata)
}

func PersistenceError(source error, message string, metadata map[string]any) error {
	return wrapReconcileError(source, goerrors.CategoryOperation, message, ErrorPersistenceFailed, metadata)
}

func NotFoundError(message string, metadata map[string]any) error {
	return newReconcileError(message, goerrors.CategoryNotFound, ErrorNotFound, metadata)
}

func newReconcileError(message string, category goerrors.Category, textCode string, metadata map[string]any) error {
	err := goerrors.New(message, category).
		WithCode(ErrorHTTPStatusForCategory(category)).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func wrapReconcileError(
	source error,
	category goerrors.Category,
	message string,
	textCode string,
	metadata map[string]any,
) error {
	if source == nil {
		return newReconcileError(message, category, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message)
	// Wrapping an existing envelope clones it, category included.
	err.Category = category
	err.WithCode(ErrorHTTPStatusForCategory(category)).WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// MapError turns any error into the reconcile envelope.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = ErrorHTTPStatusForCategory(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorAuthenticationFailed
	case goerrors.CategoryValidation:
		return ErrorValidationFailed
	case goerrors.CategoryBadInput:
		return ErrorMalformedEvent
	case goerrors.CategoryExternal:
		return ErrorPartnerCallFailed
	case goerrors.CategoryOperation:
		return ErrorPersistenceFailed
	case goerrors.CategoryNotFound:
		return ErrorNotFound
	default:
		return ErrorInternal
	}
}

// ErrorHTTPStatusForCategory is the status returned to the event source.
// Anything >= 500 triggers redelivery.
func ErrorHTTPStatusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz, goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func ErrorHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return ErrorHTTPStatusForCategory(MapError(err).Category)
}

func hasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

func IsAuthentication(err error) bool { return hasTextCode(err, ErrorAuthenticationFailed) }

func IsValidation(err error) bool { return hasTextCode(err, ErrorValidationFailed) }

func IsMalformedEvent(err error) bool { return hasTextCode(err, ErrorMalformedEvent) }

func IsPartnerCallFailure(err error) bool { return hasTextCode(err, ErrorPartnerCallFailed) }

func IsPersistenceFailure(err error) bool { return hasTextCode(err, ErrorPersistenceFailed) }

func IsNotFound(err error) bool { return hasTextCode(err, ErrorNotFound) }
