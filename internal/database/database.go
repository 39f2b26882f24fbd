// Package database opens the instrumented PostgreSQL pool and classifies
// driver errors.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"

	"github.com/joao-fontenele/canteen/internal/domain"
	"github.com/joao-fontenele/canteen/internal/telemetry"
)

const (
	uniqueViolation = "23505"
	queryCanceled   = "57014"
)

// WithSchema pins search_path on every pooled connection. lib/pq forwards
// unknown connection parameters as run-time settings.
func WithSchema(dsn, schema string) (string, error) {
	if schema == "" {
		return dsn, nil
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	return dsn + " search_path=" + schema, nil
}

// Open returns a traced pool that has answered a ping.
func Open(ctx context.Context, dsn, schema string) (*sql.DB, error) {
	dsn, err := WithSchema(dsn, schema)
	if err != nil {
		return nil, err
	}

	db, err := telemetry.OpenDB("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// UniqueViolation reports the violated constraint when err is a unique-key
// violation.
func UniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// QueryCanceled reports whether the server aborted a statement, which is how
// lib/pq surfaces a context deadline that fires mid-query.
func QueryCanceled(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == queryCanceled
}

// WrapStorage is domain.WrapStorage with cancelled statements reported as
// storage timeouts.
func WrapStorage(op string, err error) error {
	if QueryCanceled(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageTimeout, err)
	}
	return domain.WrapStorage(op, err)
}
