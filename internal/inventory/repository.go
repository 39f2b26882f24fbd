package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joao-fontenele/canteen/internal/database"
	"github.com/joao-fontenele/canteen/internal/domain"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, price, category, stock, is_veg, rating_average, rating_count`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (domain.Product, error) {
	var p domain.Product
	err := s.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Stock, &p.IsVeg, &p.RatingAverage, &p.RatingCount)
	return p, err
}

func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, database.WrapStorage("list products", err)
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, database.WrapStorage("scan product", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, database.WrapStorage("list products", err)
	}

	return products, nil
}

// GetByID returns nil, nil when the product does not exist.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, database.WrapStorage("get product", err)
	}

	return &p, nil
}

// DecrementStock takes qty units only if that many remain. Concurrent
// callers can never drive stock below zero.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	if qty < 1 {
		return domain.Invalid("stock change for product %s must be positive", id)
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
	`, id, qty)
	if err != nil {
		return database.WrapStorage("decrement stock", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return database.WrapStorage("decrement stock", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: product %s", domain.ErrInsufficientStock, id)
	}

	return nil
}

func (r *ProductRepository) IncrementStock(ctx context.Context, id string, qty int) error {
	if qty < 1 {
		return domain.Invalid("stock change for product %s must be positive", id)
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2
		WHERE id = $1
	`, id, qty)
	if err != nil {
		return database.WrapStorage("increment stock", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return database.WrapStorage("increment stock", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}

	return nil
}
