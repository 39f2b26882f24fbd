package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/canteen/internal/domain"
	"github.com/joao-fontenele/canteen/internal/slots"
)

var tracer = otel.Tracer("reservations")

type Store interface {
	OccupancyReader
	Create(ctx context.Context, r *domain.Reservation) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.Reservation, error)
}

type Service struct {
	cfg    slots.Config
	store  Store
	index  *TableIndex
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(cfg slots.Config, store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		store:  store,
		index:  NewTableIndex(store, cfg.TotalTables),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Config() slots.Config {
	return s.cfg
}

func (s *Service) clock() time.Time {
	now := s.now()
	return now.In(s.cfg.StartOfDay(now).Location())
}

type TableAvailability struct {
	SlotStart       time.Time `json:"slot_start"`
	SlotEnd         time.Time `json:"slot_end"`
	Label           string    `json:"label"`
	AvailableTables []int     `json:"available_tables"`
	TakenTables     []int     `json:"taken_tables"`
}

type NextSlot struct {
	domain.Slot
	NextDay bool `json:"next_day"`
}

// AvailableSlots lists today's slots that have not started yet and still
// have at least one free table.
func (s *Service) AvailableSlots(ctx context.Context, day time.Time) ([]domain.Slot, error) {
	now := s.clock()
	if !s.cfg.SameDay(day, now) {
		return nil, domain.Invalid("reservations are only available for today")
	}

	out := []domain.Slot{}
	for _, start := range s.cfg.SlotsForDay(now) {
		if start.Before(now) {
			continue
		}
		slot := s.cfg.Slot(start)
		n, err := s.index.CountOccupied(ctx, slot)
		if err != nil {
			return nil, fmt.Errorf("count occupied %s: %w", slot.Label, err)
		}
		if n < s.cfg.TotalTables {
			out = append(out, slot)
		}
	}
	return out, nil
}

// ValidateSlot checks that start is a slot boundary of the current day
// that has not started yet.
func (s *Service) ValidateSlot(start time.Time) (domain.Slot, error) {
	now := s.clock()
	if !s.cfg.SameDay(start, now) {
		return domain.Slot{}, domain.Invalid("slot must be on the current day")
	}
	if !s.cfg.IsSlotStart(start) {
		return domain.Slot{}, domain.Invalid("%s is not a slot boundary", start.Format(time.RFC3339))
	}
	if start.Before(now) {
		return domain.Slot{}, domain.Invalid("slot %s has already started", start.Format("15:04"))
	}
	return s.cfg.Slot(start), nil
}

func (s *Service) ValidateTable(table int) error {
	if table < 1 || table > s.cfg.TotalTables {
		return domain.Invalid("table number must be between 1 and %d", s.cfg.TotalTables)
	}
	return nil
}

func (s *Service) TablesForSlot(ctx context.Context, start time.Time) (*TableAvailability, error) {
	slot, err := s.ValidateSlot(start)
	if err != nil {
		return nil, err
	}

	taken, err := s.index.OccupiedTables(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("occupied tables %s: %w", slot.Label, err)
	}

	takenSet := make(map[int]struct{}, len(taken))
	for _, t := range taken {
		takenSet[t] = struct{}{}
	}
	available := []int{}
	for _, t := range s.cfg.Tables() {
		if _, ok := takenSet[t]; !ok {
			available = append(available, t)
		}
	}

	return &TableAvailability{
		SlotStart:       slot.Start,
		SlotEnd:         slot.End,
		Label:           slot.Label,
		AvailableTables: available,
		TakenTables:     taken,
	}, nil
}

// NextAvailableSlot returns the first slot starting at or after from (never
// earlier than now) that still has a free table. When today is fully booked
// it returns tomorrow's opening slot with NextDay set.
func (s *Service) NextAvailableSlot(ctx context.Context, from time.Time) (*NextSlot, error) {
	now := s.clock()
	if from.IsZero() || from.Before(now) {
		from = now
	}
	if s.cfg.StartOfDay(from).After(s.cfg.StartOfDay(now)) {
		return nil, domain.Invalid("reservations are only available for today")
	}

	for _, start := range s.cfg.SlotsForDay(now) {
		if start.Before(from) {
			continue
		}
		slot := s.cfg.Slot(start)
		n, err := s.index.CountOccupied(ctx, slot)
		if err != nil {
			return nil, fmt.Errorf("count occupied %s: %w", slot.Label, err)
		}
		if n < s.cfg.TotalTables {
			return &NextSlot{Slot: slot}, nil
		}
	}

	tomorrow := s.cfg.SlotsForDay(s.cfg.StartOfDay(now).AddDate(0, 0, 1))
	if len(tomorrow) == 0 {
		return nil, fmt.Errorf("%w: schedule has no slots", domain.ErrNoTableAvailable)
	}
	return &NextSlot{Slot: s.cfg.Slot(tomorrow[0]), NextDay: true}, nil
}

type outcome int

const (
	assigned outcome = iota
	noneFree
	contended
)

// assignment is the result of a single optimistic attempt.
type assignment struct {
	outcome     outcome
	table       int
	reservation *domain.Reservation
}

// CreateForOrder books a table in the slot starting at slotStart for the
// given order. A requested table is validated and tried once. Otherwise the
// lowest free table is picked, and a table lost to a concurrent insert is
// excluded before the next attempt. It returns ErrNoTableAvailable when no
// table can be secured.
func (s *Service) CreateForOrder(ctx context.Context, userID, orderID string, slotStart time.Time, requestedTable *int) (*domain.Reservation, error) {
	ctx, span := tracer.Start(ctx, "reservations.CreateForOrder", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("slot.start", slotStart.Format(time.RFC3339)),
	))
	defer span.End()

	slot, err := s.ValidateSlot(slotStart)
	if err != nil {
		return nil, err
	}
	if requestedTable != nil {
		if err := s.ValidateTable(*requestedTable); err != nil {
			return nil, err
		}
	}

	var excluded []int
	// Every contended attempt removes one table from the candidates, so
	// TotalTables+1 attempts always reach a definite answer.
	for attempt := 1; attempt <= s.cfg.TotalTables+1; attempt++ {
		a, err := s.assign(ctx, userID, orderID, slot, requestedTable, excluded)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		switch a.outcome {
		case assigned:
			span.SetAttributes(attribute.Int("table.number", a.reservation.TableNumber))
			s.logger.Info("table reserved", "order_id", orderID, "table", a.reservation.TableNumber, "slot", slot.Label, "attempt", attempt)
			return a.reservation, nil
		case noneFree:
			return nil, fmt.Errorf("%w: slot %s", domain.ErrNoTableAvailable, slot.Label)
		case contended:
			if requestedTable != nil {
				return nil, fmt.Errorf("%w: table %d is already reserved for %s", domain.ErrNoTableAvailable, a.table, slot.Label)
			}
			s.logger.Info("table taken concurrently, retrying", "order_id", orderID, "table", a.table, "slot", slot.Label, "attempt", attempt)
			excluded = append(excluded, a.table)
		}
	}

	return nil, fmt.Errorf("%w: slot %s, retry budget exhausted", domain.ErrNoTableAvailable, slot.Label)
}

func (s *Service) assign(ctx context.Context, userID, orderID string, slot domain.Slot, requestedTable *int, excluded []int) (assignment, error) {
	var table int
	if requestedTable != nil {
		free, err := s.index.IsTableFree(ctx, *requestedTable, slot)
		if err != nil {
			return assignment{}, err
		}
		if !free {
			return assignment{outcome: contended, table: *requestedTable}, nil
		}
		table = *requestedTable
	} else {
		free, ok, err := s.index.FirstFreeTable(ctx, slot, excluded...)
		if err != nil {
			return assignment{}, err
		}
		if !ok {
			return assignment{outcome: noneFree}, nil
		}
		table = free
	}

	r := &domain.Reservation{
		TableNumber: table,
		SlotStart:   slot.Start,
		UserID:      userID,
		OrderID:     orderID,
		CreatedAt:   s.now().UTC(),
	}

	err := s.store.Create(ctx, r)
	switch {
	case err == nil:
		return assignment{outcome: assigned, table: table, reservation: r}, nil
	case errors.Is(err, domain.ErrTableTaken):
		return assignment{outcome: contended, table: table}, nil
	case errors.Is(err, domain.ErrReservationExists):
		existing, err := s.store.GetByOrderID(ctx, orderID)
		if err != nil {
			return assignment{}, err
		}
		if existing == nil {
			return assignment{}, fmt.Errorf("reservation for order %s vanished", orderID)
		}
		return assignment{outcome: assigned, table: existing.TableNumber, reservation: existing}, nil
	default:
		return assignment{}, fmt.Errorf("create reservation: %w", err)
	}
}

// ForOrder returns the order's reservation, or nil when it has none.
func (s *Service) ForOrder(ctx context.Context, orderID string) (*domain.Reservation, error) {
	return s.store.GetByOrderID(ctx, orderID)
}
