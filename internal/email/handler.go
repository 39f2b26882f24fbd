package email

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/joao-fontenele/canteen/internal/domain"
	"github.com/joao-fontenele/canteen/internal/httpx"
)

// Handler is a stand-in mail relay. It validates the message, optionally
// waits to mimic a real provider, and logs it.
type Handler struct {
	minLatency time.Duration
	maxLatency time.Duration
	sleep      func(time.Duration)
	logger     *slog.Logger
}

type Option func(*Handler)

// WithLatency makes every send take a random duration in [lo, hi].
func WithLatency(lo, hi time.Duration) Option {
	return func(h *Handler) {
		if lo < 0 || hi < lo {
			return
		}
		h.minLatency = lo
		h.maxLatency = hi
	}
}

func NewHandler(logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		sleep:  time.Sleep,
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return domain.Invalid("invalid recipient %q", m.To)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return domain.Invalid("subject is required")
	}
	return nil
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		httpx.WriteError(w, h.logger, domain.Invalid("invalid request body"))
		return
	}

	if err := msg.Validate(); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	if h.maxLatency > 0 {
		spread := int64(h.maxLatency - h.minLatency)
		h.sleep(h.minLatency + time.Duration(rand.Int64N(spread+1)))
	}

	h.logger.Info("email sent", "to", msg.To, "subject", msg.Subject)

	httpx.WriteData(w, h.logger, http.StatusOK, sendResponse{Status: "sent"}, nil)
}
