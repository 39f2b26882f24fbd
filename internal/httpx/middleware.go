package httpx

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds the storage work a single request may do.
const DefaultRequestTimeout = 5 * time.Second

// WithTimeout gives the request context a deadline.
func WithTimeout(d time.Duration, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		h(w, r.WithContext(ctx))
	}
}
