// Package httpx holds the response envelope and caller identity helpers
// shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/canteen/internal/domain"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Meta    any    `json:"meta,omitempty"`
	Message string `json:"message,omitempty"`
}

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// WriteData writes a success envelope. meta may be nil.
func WriteData(w http.ResponseWriter, logger *slog.Logger, status int, data, meta any) {
	WriteJSON(w, logger, status, DataBody(data, meta))
}

func DataBody(data, meta any) any {
	return envelope{Success: true, Data: data, Meta: meta}
}

// ErrorBody returns the status and failure envelope for err.
func ErrorBody(err error) (int, any) {
	status := StatusFor(err)
	message := err.Error()
	switch status {
	case http.StatusInternalServerError:
		message = "internal server error"
	case http.StatusGatewayTimeout:
		message = "storage timeout"
	}
	return status, envelope{Success: false, Message: message}
}

// WriteRaw writes an already encoded JSON body.
func WriteRaw(w http.ResponseWriter, logger *slog.Logger, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}

func WriteMessage(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	WriteJSON(w, logger, status, envelope{Success: false, Message: message})
}

// WriteError maps err onto a status code. Unexpected errors are reported
// with a generic message.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, body := ErrorBody(err)
	WriteJSON(w, logger, status, body)
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrNoTableAvailable),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStorageTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
