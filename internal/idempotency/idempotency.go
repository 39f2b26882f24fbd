// Package idempotency remembers the outcome of requests carrying an
// Idempotency-Key so that client retries replay the first response.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/canteen/internal/domain"
)

const (
	keyFormat  = "idem:%s:%s:%s"
	pending    = "pending"
	DefaultTTL = 24 * time.Hour

	// maxClaimAttempts bounds the SETNX/GET race with expiry or release.
	maxClaimAttempts = 3
)

var (
	// ErrInProgress means another request with the same key has not finished.
	ErrInProgress = fmt.Errorf("%w: request with this idempotency key is in progress", domain.ErrConflict)
	// ErrKeyReused means the key already completed for a different request body.
	ErrKeyReused = fmt.Errorf("%w: idempotency key was used for a different request", domain.ErrConflict)
)

// Record is the stored response for a completed request.
type Record struct {
	Status      int             `json:"status"`
	Body        json.RawMessage `json:"body"`
	Fingerprint string          `json:"fingerprint,omitempty"`
}

// Fingerprint identifies a request body. Bodies that differ in any byte
// produce different fingerprints.
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// commands is the subset of *redis.Client the store uses.
type commands interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type Store struct {
	rdb   commands
	scope string
	ttl   time.Duration
}

// NewStore keeps keys for ttl under the given scope, usually the operation
// name such as "order:create".
func NewStore(rdb *redis.Client, scope string, ttl time.Duration) *Store {
	return newStore(rdb, scope, ttl)
}

func newStore(rdb commands, scope string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, scope: scope, ttl: ttl}
}

func (s *Store) key(owner, key string) string {
	return fmt.Sprintf(keyFormat, s.scope, owner, key)
}

// Begin claims key for owner. It returns the stored record when the key
// already completed for the same fingerprint, ErrKeyReused when it completed
// for another one, ErrInProgress when it is claimed but not finished, and
// nil, nil when the caller now holds the claim.
func (s *Store) Begin(ctx context.Context, owner, key, fingerprint string) (*Record, error) {
	k := s.key(owner, key)

	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		claimed, err := s.rdb.SetNX(ctx, k, pending, s.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("claim idempotency key: %w", err)
		}
		if claimed {
			return nil, nil
		}

		raw, err := s.rdb.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			// expired or released between the two calls
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read idempotency key: %w", err)
		}
		if raw == pending {
			return nil, ErrInProgress
		}

		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode idempotency record: %w", err)
		}
		if rec.Fingerprint != "" && rec.Fingerprint != fingerprint {
			return nil, ErrKeyReused
		}
		return &rec, nil
	}
	return nil, ErrInProgress
}

// Complete stores the final response for a claimed key.
func (s *Store) Complete(ctx context.Context, owner, key string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(owner, key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store idempotency record: %w", err)
	}
	return nil
}

// Release drops a claim so the request can be retried.
func (s *Store) Release(ctx context.Context, owner, key string) error {
	if err := s.rdb.Del(ctx, s.key(owner, key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
