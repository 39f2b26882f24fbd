package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/canteen/internal/database"
	"github.com/joao-fontenele/canteen/internal/domain"
)

const constraintToken = "orders_token_number_key"

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, user_id, total_amount, delivery_type, delivery_details,
	order_status, payment_method, payment_status, token_number, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (domain.Order, error) {
	var (
		order   domain.Order
		details []byte
	)
	err := s.Scan(&order.ID, &order.UserID, &order.TotalAmount, &order.DeliveryType, &details,
		&order.Status, &order.PaymentMethod, &order.PaymentStatus, &order.TokenNumber,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return order, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &order.DeliveryDetails); err != nil {
			return order, fmt.Errorf("decode delivery details: %w", err)
		}
	}
	order.Items = []domain.OrderItem{}
	return order, nil
}

// Create inserts the order and its item snapshots in one transaction.
// A token collision is reported as ErrDuplicateToken.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	details, err := json.Marshal(order.DeliveryDetails)
	if err != nil {
		return fmt.Errorf("encode delivery details: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return database.WrapStorage("begin order tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, order.ID, order.UserID, order.TotalAmount, order.DeliveryType, details,
		order.Status, order.PaymentMethod, order.PaymentStatus, order.TokenNumber,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		if constraint, ok := database.UniqueViolation(err); ok && constraint == constraintToken {
			return domain.ErrDuplicateToken
		}
		return database.WrapStorage("insert order", err)
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, name, price, quantity, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.New().String(), order.ID, item.ProductID, item.Name, item.Price, item.Quantity, i)
		if err != nil {
			return database.WrapStorage("insert order item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return database.WrapStorage("commit order", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, database.WrapStorage("get order", err)
	}

	orders := []domain.Order{order}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
}

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC
	`)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.WrapStorage("list orders", err)
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, database.WrapStorage("scan order", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, database.WrapStorage("list orders", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems fills Items for all orders with a single query.
func (r *OrderRepository) loadItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
		ids = append(ids, orders[i].ID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(ids))
	if err != nil {
		return database.WrapStorage("load order items", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return database.WrapStorage("scan order item", err)
		}
		if order, ok := byID[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return database.WrapStorage("load order items", err)
	}
	return nil
}

// UpdateStatus only writes when the stored status still equals from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET order_status = $1, updated_at = NOW()
		WHERE id = $2 AND order_status = $3
	`, to, id, from)
	if err != nil {
		return nil, database.WrapStorage("update order status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, database.WrapStorage("update order status", err)
	}

	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

func (r *OrderRepository) TokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE token_number = $1)
	`, token).Scan(&exists)
	if err != nil {
		return false, database.WrapStorage("check token", err)
	}
	return exists, nil
}
