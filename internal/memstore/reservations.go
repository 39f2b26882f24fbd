package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/canteen/internal/domain"
)

type tableSlot struct {
	table int
	start int64
}

type ReservationStore struct {
	mu      sync.Mutex
	byOrder map[string]domain.Reservation
	bySlot  map[tableSlot]string
}

func NewReservationStore() *ReservationStore {
	return &ReservationStore{
		byOrder: make(map[string]domain.Reservation),
		bySlot:  make(map[tableSlot]string),
	}
}

// TablesInWindow returns the table number of every reservation whose slot
// start lies in [start, end).
func (s *ReservationStore) TablesInWindow(ctx context.Context, start, end time.Time) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapStorage("tables in window", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	window := domain.Slot{Start: start, End: end}
	var tables []int
	for _, r := range s.byOrder {
		if window.Contains(r.SlotStart) {
			tables = append(tables, r.TableNumber)
		}
	}
	return tables, nil
}

// Create enforces UNIQUE(order_id) and UNIQUE(table_number, slot_start).
func (s *ReservationStore) Create(ctx context.Context, r *domain.Reservation) error {
	if err := ctx.Err(); err != nil {
		return domain.WrapStorage("create reservation", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byOrder[r.OrderID]; ok {
		return domain.ErrReservationExists
	}
	key := tableSlot{table: r.TableNumber, start: r.SlotStart.UnixNano()}
	if _, ok := s.bySlot[key]; ok {
		return domain.ErrTableTaken
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.bySlot[key] = r.OrderID
	s.byOrder[r.OrderID] = *r
	return nil
}

func (s *ReservationStore) GetByOrderID(ctx context.Context, orderID string) (*domain.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapStorage("get reservation", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byOrder[orderID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}
