package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/triage/internal/domain"
)

// ErrorBody is the wire shape of every failure response.
type ErrorBody struct {
	Error string `json:"error"`
}

// HTTPErrorHandler is the global error handler: it maps domain errors onto
// the `{"error": <message>}` contract. Authorization and precondition
// failures intentionally answer 400 rather than 403 for compatibility with
// existing clients.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, message := mapError(err)
	if jsonErr := c.JSON(status, ErrorBody{Error: message}); jsonErr != nil {
		slog.Error("failed to send error response", "error", jsonErr)
	}
}

func mapError(err error) (int, string) {
	// echo's own HTTP errors (404 on unknown routes, 405, bind failures).
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		if msg, ok := echoErr.Message.(string); ok && msg != "" {
			return echoErr.Code, msg
		}
		return echoErr.Code, http.StatusText(echoErr.Code)
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, validationErr.Message
	}
	var authzErr *domain.AuthzError
	if errors.As(err, &authzErr) {
		return http.StatusBadRequest, authzErr.Message
	}
	var preconditionErr *domain.PreconditionError
	if errors.As(err, &preconditionErr) {
		return http.StatusBadRequest, preconditionErr.Message
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "The requested resource was not found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Authentication is required"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "You do not have permission to perform this action"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "The request body is invalid"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "The resource already exists or conflicts with current state"
	default:
		slog.Error("unhandled error", "error", err)
		return http.StatusInternalServerError, "An unexpected error occurred"
	}
}
