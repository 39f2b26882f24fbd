// Package memstore is an in-process store with the same conditional-update
// and uniqueness semantics as the PostgreSQL repositories. It backs unit
// tests and the STORAGE_DRIVER=memory mode.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/joao-fontenele/canteen/internal/domain"
)

type ProductStore struct {
	mu       sync.Mutex
	products map[string]domain.Product
}

func NewProductStore(products ...domain.Product) *ProductStore {
	s := &ProductStore{products: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *ProductStore) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapStorage("get product", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *ProductStore) List(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapStorage("list products", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DecrementStock subtracts qty only when at least qty units remain.
func (s *ProductStore) DecrementStock(ctx context.Context, id string, qty int) error {
	if qty < 1 {
		return domain.Invalid("stock change for product %s must be positive", id)
	}
	if err := ctx.Err(); err != nil {
		return domain.WrapStorage("decrement stock", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || p.Stock < qty {
		return fmt.Errorf("%w: product %s", domain.ErrInsufficientStock, id)
	}
	p.Stock -= qty
	s.products[id] = p
	return nil
}

func (s *ProductStore) IncrementStock(ctx context.Context, id string, qty int) error {
	if qty < 1 {
		return domain.Invalid("stock change for product %s must be positive", id)
	}
	if err := ctx.Err(); err != nil {
		return domain.WrapStorage("increment stock", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	p.Stock += qty
	s.products[id] = p
	return nil
}
