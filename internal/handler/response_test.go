package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sumire/triage/internal/domain"
)

func TestMapError(t *testing.T) {
	for _, tt := range []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			"validation",
			&domain.ValidationError{Field: "status", Message: "Invalid status transition"},
			http.StatusBadRequest, "Invalid status transition",
		},
		{
			"authorization answers 400",
			&domain.AuthzError{Message: "You cannot edit inbox issues"},
			http.StatusBadRequest, "You cannot edit inbox issues",
		},
		{
			"precondition answers 400",
			&domain.PreconditionError{Message: "Inbox is not enabled for this Project Board"},
			http.StatusBadRequest, "Inbox is not enabled for this Project Board",
		},
		{
			"not found",
			fmt.Errorf("load inbox: %w", domain.ErrNotFound),
			http.StatusNotFound, "The requested resource was not found",
		},
		{
			"unauthorized",
			domain.ErrUnauthorized,
			http.StatusUnauthorized, "Authentication is required",
		},
		{
			"forbidden",
			domain.ErrForbidden,
			http.StatusForbidden, "You do not have permission to perform this action",
		},
		{
			"echo error passthrough",
			echo.NewHTTPError(http.StatusMethodNotAllowed),
			http.StatusMethodNotAllowed, "Method Not Allowed",
		},
		{
			"unknown",
			errors.New("pq: connection refused"),
			http.StatusInternalServerError, "An unexpected error occurred",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			status, message := mapError(tt.err)
			if status != tt.status {
				t.Fatalf("status = %d, want %d", status, tt.status)
			}
			if message != tt.message {
				t.Fatalf("message = %q, want %q", message, tt.message)
			}
		})
	}
}

func TestHTTPErrorHandlerBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(&domain.AuthzError{Message: "You cannot delete inbox issue"}, c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "You cannot delete inbox issue" {
		t.Fatalf("error = %q", body.Error)
	}
}
