package email

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandleSend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"to":"alice@example.com","subject":"Order TKN-0001","body":"ready"}`, http.StatusOK},
		{"bad recipient", `{"to":"alice","subject":"x"}`, http.StatusBadRequest},
		{"missing subject", `{"to":"alice@example.com","subject":" "}`, http.StatusBadRequest},
		{"malformed", `{"to":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(logger)
			rec := httptest.NewRecorder()
			h.HandleSend(rec, httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(tt.body)))

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
		})
	}

	t.Run("latency stays in range", func(t *testing.T) {
		var slept []time.Duration
		h := NewHandler(logger, WithLatency(50*time.Millisecond, 200*time.Millisecond))
		h.sleep = func(d time.Duration) { slept = append(slept, d) }

		for i := 0; i < 20; i++ {
			rec := httptest.NewRecorder()
			body := `{"to":"a@example.com","subject":"s"}`
			h.HandleSend(rec, httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(body)))
		}

		if len(slept) != 20 {
			t.Fatalf("expected 20 sleeps, got %d", len(slept))
		}
		for _, d := range slept {
			if d < 50*time.Millisecond || d > 200*time.Millisecond {
				t.Errorf("latency %s out of range", d)
			}
		}
	})
}
