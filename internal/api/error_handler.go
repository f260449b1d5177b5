package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps auth errors to their HTTP status by kind.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"success": false, "message": "..."}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Message: fmt.Sprintf("%v", he.Message)}
	}

	if ae, ok := domain.AsAuthError(err); ok {
		status := statusForKind(ae.Kind)
		if status >= http.StatusInternalServerError {
			logUnexpected(log, c, err)
			return status, errorResponse{Message: "internal server error"}
		}
		body := errorResponse{Message: ae.Message, Code: ae.Code}
		// Credential codes would tell an unknown email from a wrong password.
		if ae.Kind == domain.KindCredential {
			body.Code = ""
		}
		return status, body
	}

	logUnexpected(log, c, err)
	return http.StatusInternalServerError, errorResponse{Message: "internal server error"}
}

func statusForKind(k domain.ErrorKind) int {
	switch k {
	case domain.KindValidation, domain.KindConflict:
		return http.StatusBadRequest
	case domain.KindNotFound, domain.KindCredential:
		return http.StatusUnauthorized
	case domain.KindAccessGate:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func logUnexpected(log zerolog.Logger, c echo.Context, err error) {
	ev := log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path())
	if oe, ok := oops.AsOops(err); ok {
		if code := oe.Code(); code != nil {
			ev = ev.Interface("code", code)
		}
		if ctx := oe.Context(); len(ctx) > 0 {
			ev = ev.Interface("context", ctx)
		}
	}
	ev.Msg("unhandled error")
}
