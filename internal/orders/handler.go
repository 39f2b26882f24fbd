package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/canteen/internal/domain"
	"github.com/joao-fontenele/canteen/internal/httpx"
	"github.com/joao-fontenele/canteen/internal/idempotency"
)

const (
	headerReplayed = "Idempotent-Replayed"
	maxBodyBytes   = 1 << 20
)

// Idempotency is satisfied by *idempotency.Store.
type Idempotency interface {
	Begin(ctx context.Context, owner, key, fingerprint string) (*idempotency.Record, error)
	Complete(ctx context.Context, owner, key string, rec idempotency.Record) error
	Release(ctx context.Context, owner, key string) error
}

type Handler struct {
	service *Service
	idem    Idempotency
	logger  *slog.Logger
}

// NewHandler builds the HTTP surface. idem may be nil, in which case
// Idempotency-Key headers are ignored.
func NewHandler(service *Service, idem Idempotency, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		idem:    idem,
		logger:  logger,
	}
}

type orderMeta struct {
	TokenNumber     string `json:"token_number"`
	TableSecured    bool   `json:"table_secured"`
	ReservationNote string `json:"reservation_note,omitempty"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.UserID(r)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httpx.WriteError(w, h.logger, domain.Invalid("invalid request body"))
		return
	}

	key := strings.TrimSpace(r.Header.Get(httpx.HeaderIdempotencyKey))
	if key == "" || h.idem == nil {
		status, body := h.create(r.Context(), userID, payload)
		httpx.WriteJSON(w, h.logger, status, body)
		return
	}

	fingerprint := idempotency.Fingerprint(payload)
	rec, err := h.idem.Begin(r.Context(), userID, key, fingerprint)
	if err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			h.logger.Error("idempotency lookup failed", "error", err, "user_id", userID)
		}
		httpx.WriteError(w, h.logger, err)
		return
	}
	if rec != nil {
		w.Header().Set(headerReplayed, "true")
		httpx.WriteRaw(w, h.logger, rec.Status, rec.Body)
		return
	}

	status, body := h.create(r.Context(), userID, payload)
	data, err := json.Marshal(body)
	if err != nil {
		h.logger.Error("failed to encode response", "error", err)
		h.release(r.Context(), userID, key)
		httpx.WriteError(w, h.logger, err)
		return
	}

	// Only successes are remembered; a failed attempt may be retried with
	// the same key.
	if status == http.StatusCreated {
		if err := h.idem.Complete(context.WithoutCancel(r.Context()), userID, key, idempotency.Record{
			Status:      status,
			Body:        data,
			Fingerprint: fingerprint,
		}); err != nil {
			h.logger.Error("failed to store idempotency record", "error", err, "user_id", userID)
		}
	} else {
		h.release(r.Context(), userID, key)
	}

	httpx.WriteRaw(w, h.logger, status, data)
}

func (h *Handler) release(ctx context.Context, userID, key string) {
	if err := h.idem.Release(context.WithoutCancel(ctx), userID, key); err != nil {
		h.logger.Error("failed to release idempotency key", "error", err, "user_id", userID)
	}
}

func (h *Handler) create(ctx context.Context, userID string, payload []byte) (int, any) {
	var in CreateOrderInput
	if err := json.Unmarshal(payload, &in); err != nil {
		return httpx.ErrorBody(domain.Invalid("invalid request body"))
	}

	result, err := h.service.CreateOrder(ctx, userID, in)
	if err != nil {
		if httpx.StatusFor(err) >= http.StatusInternalServerError {
			h.logger.Error("failed to create order", "error", err, "user_id", userID)
		}
		return httpx.ErrorBody(err)
	}

	return http.StatusCreated, httpx.DataBody(result.Order, orderMeta{
		TokenNumber:     result.Order.TokenNumber,
		TableSecured:    result.TableSecured,
		ReservationNote: result.ReservationNote,
	})
}

// HandleGet returns an order to its owner or to an admin.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.UserID(r)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		httpx.WriteError(w, h.logger, domain.Invalid("missing order id"))
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.fail(w, "failed to get order", err, "order_id", id)
		return
	}

	if order.UserID != userID && !httpx.IsAdmin(r) {
		// reported as missing to non-owners
		httpx.WriteError(w, h.logger, fmt.Errorf("%w: order %s", domain.ErrNotFound, id))
		return
	}

	httpx.WriteData(w, h.logger, http.StatusOK, order, nil)
}

func (h *Handler) HandleMine(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.UserID(r)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	orders, err := h.service.MyOrders(r.Context(), userID)
	if err != nil {
		h.fail(w, "failed to list user orders", err, "user_id", userID)
		return
	}

	httpx.WriteData(w, h.logger, http.StatusOK, orders, map[string]int{"count": len(orders)})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if err := httpx.RequireAdmin(r); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	orders, err := h.service.AllOrders(r.Context())
	if err != nil {
		h.fail(w, "failed to list orders", err)
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	httpx.WriteData(w, h.logger, http.StatusOK, orders, map[string]int{"count": len(orders)})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if err := httpx.RequireAdmin(r); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		httpx.WriteError(w, h.logger, domain.Invalid("missing order id"))
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, domain.Invalid("invalid request body"))
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.fail(w, "failed to update order status", err, "order_id", id)
		return
	}

	httpx.WriteData(w, h.logger, http.StatusOK, order, nil)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error, args ...any) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, append([]any{"error", err}, args...)...)
	}
	httpx.WriteError(w, h.logger, err)
}
