package errors

import (
	"errors"
	"net/http"

	"github.com/parleyhq/parley/internal/platform/errors/i18n"
)

// DefaultLocale is the default locale for error messages.
const DefaultLocale = "en-US"

// HTTPError is the wire shape for an API error response body.
type HTTPError struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ToHTTP converts any error into an HTTP status and response body.
// Domain errors carry their code and a user-facing message formatted from the
// i18n catalog; everything else collapses into a generic internal error so
// storage failures never leak details to clients.
func ToHTTP(err error, locale string) (int, HTTPError) {
	if locale == "" {
		locale = DefaultLocale
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		catalog := i18n.GetCatalog(locale)
		return appErr.Code.HTTPStatus(), HTTPError{
			Code:     string(appErr.Code),
			Message:  catalog.Format(string(appErr.Code), appErr.Metadata),
			Metadata: appErr.Metadata,
		}
	}

	return http.StatusInternalServerError, HTTPError{
		Code:    string(CodeUnknown),
		Message: "an unexpected error occurred",
	}
}
