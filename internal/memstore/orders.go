package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/canteen/internal/domain"
)

type OrderStore struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	tokens map[string]string
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: make(map[string]domain.Order),
		tokens: make(map[string]string),
	}
}

// Create assigns an ID when missing and enforces token uniqueness.
func (s *OrderStore) Create(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return domain.WrapStorage("create order", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.tokens[order.TokenNumber]; taken {
		return domain.ErrDuplicateToken
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	s.tokens[order.TokenNumber] = order.ID
	s.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapStorage("get order", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	out := cloneOrder(order)
	return &out, nil
}

func (s *OrderStore) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.list(ctx, func(o domain.Order) bool { return o.UserID == userID })
}

func (s *OrderStore) List(ctx context.Context) ([]domain.Order, error) {
	return s.list(ctx, func(domain.Order) bool { return true })
}

func (s *OrderStore) list(ctx context.Context, keep func(domain.Order) bool) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapStorage("list orders", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Order{}
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateStatus sets the status only if the order is still in from.
// It returns nil when no order matched.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapStorage("update order status", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok || order.Status != from {
		return nil, nil
	}
	order.Status = to
	order.UpdatedAt = time.Now().UTC()
	s.orders[id] = order
	out := cloneOrder(order)
	return &out, nil
}

func (s *OrderStore) TokenExists(ctx context.Context, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, domain.WrapStorage("check token", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tokens[token]
	return ok, nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	o.Reservation = nil
	return o
}
