package reservations

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/canteen/internal/database"
	"github.com/joao-fontenele/canteen/internal/domain"
)

const (
	constraintTableSlot = "reservations_table_slot_key"
	constraintOrder     = "reservations_order_id_key"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) TablesInWindow(ctx context.Context, start, end time.Time) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT table_number
		FROM reservations
		WHERE slot_start >= $1 AND slot_start < $2
	`, start.UTC(), end.UTC())
	if err != nil {
		return nil, database.WrapStorage("tables in window", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []int
	for rows.Next() {
		var table int
		if err := rows.Scan(&table); err != nil {
			return nil, database.WrapStorage("scan table", err)
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, database.WrapStorage("tables in window", err)
	}
	return tables, nil
}

// Create inserts r. Unique violations are reported as ErrTableTaken or
// ErrReservationExists depending on the constraint hit.
func (r *Repository) Create(ctx context.Context, res *domain.Reservation) error {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reservations (id, table_number, slot_start, user_id, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, res.ID, res.TableNumber, res.SlotStart.UTC(), res.UserID, res.OrderID, res.CreatedAt)
	if err == nil {
		return nil
	}

	if constraint, ok := database.UniqueViolation(err); ok {
		switch constraint {
		case constraintOrder:
			return domain.ErrReservationExists
		case constraintTableSlot:
			return domain.ErrTableTaken
		}
	}
	return database.WrapStorage("insert reservation", err)
}

func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, table_number, slot_start, user_id, order_id, created_at
		FROM reservations
		WHERE order_id = $1
	`, orderID).Scan(&res.ID, &res.TableNumber, &res.SlotStart, &res.UserID, &res.OrderID, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, database.WrapStorage("get reservation", err)
	}
	return res, nil
}
