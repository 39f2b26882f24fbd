package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joao-fontenele/canteen/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.Invalid("bad date"), http.StatusBadRequest},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: product p1", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: product p1", domain.ErrInsufficientStock), http.StatusConflict},
		{domain.ErrNoTableAvailable, http.StatusConflict},
		{domain.ErrTokenExhausted, http.StatusConflict},
		{domain.WrapStorage("get order", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, got)
		}
	}
}

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("does not leak unexpected errors", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, logger, errors.New("pq: password authentication failed for user app"))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected status 500, got %d", rec.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["success"] != false {
			t.Errorf("expected success=false, got %v", body["success"])
		}
		if body["message"] != "internal server error" {
			t.Errorf("expected generic message, got %v", body["message"])
		}
	})

	t.Run("reports validation messages", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, logger, domain.Invalid("items must not be empty"))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
		var body map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body["message"] != "validation error: items must not be empty" {
			t.Errorf("unexpected message: %v", body["message"])
		}
	})
}

func TestIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := UserID(req); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}

	req.Header.Set(HeaderUserID, "u-1")
	if err := RequireAdmin(req); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	req.Header.Set(HeaderUserRole, "Admin")
	if err := RequireAdmin(req); err != nil {
		t.Errorf("expected admin to pass, got %v", err)
	}
}
