package httpx

import (
	"net/http"
	"strings"

	"github.com/joao-fontenele/canteen/internal/domain"
)

// Identity headers are set by the authenticating edge in front of the services.
const (
	HeaderUserID         = "X-User-ID"
	HeaderUserRole       = "X-User-Role"
	HeaderIdempotencyKey = "Idempotency-Key"

	RoleAdmin = "admin"
)

func UserID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if id == "" {
		return "", domain.ErrUnauthenticated
	}
	return id, nil
}

func IsAdmin(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get(HeaderUserRole)), RoleAdmin)
}

// RequireAdmin fails with ErrUnauthenticated or ErrForbidden.
func RequireAdmin(r *http.Request) error {
	if _, err := UserID(r); err != nil {
		return err
	}
	if !IsAdmin(r) {
		return domain.ErrForbidden
	}
	return nil
}
