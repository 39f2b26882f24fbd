package reservations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/joao-fontenele/canteen/internal/domain"
	"github.com/joao-fontenele/canteen/internal/memstore"
	"github.com/joao-fontenele/canteen/internal/slots"
)

func testConfig() slots.Config {
	cfg := slots.DefaultConfig()
	cfg.Location = time.UTC
	return cfg
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func newTestService(store Store, now time.Time) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(testConfig(), store, logger, WithClock(func() time.Time { return now }))
}

// racingStore simulates a concurrent writer that grabs the chosen table
// right before the insert lands, for the first n inserts.
type racingStore struct {
	*memstore.ReservationStore
	mu     sync.Mutex
	steals int
}

func (s *racingStore) Create(ctx context.Context, r *domain.Reservation) error {
	s.mu.Lock()
	steal := s.steals > 0
	if steal {
		s.steals--
	}
	s.mu.Unlock()

	if steal {
		rival := &domain.Reservation{
			TableNumber: r.TableNumber,
			SlotStart:   r.SlotStart,
			UserID:      "rival",
			OrderID:     fmt.Sprintf("rival-%d", r.TableNumber),
		}
		if err := s.ReservationStore.Create(ctx, rival); err != nil {
			return err
		}
	}
	return s.ReservationStore.Create(ctx, r)
}

func TestCreateForOrder(t *testing.T) {
	t.Run("fills tables in ascending order", func(t *testing.T) {
		svc := newTestService(memstore.NewReservationStore(), at(9, 0))

		for i := 1; i <= 3; i++ {
			res, err := svc.CreateForOrder(context.Background(), "u1", fmt.Sprintf("o%d", i), at(14, 0), nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.TableNumber != i {
				t.Errorf("expected table %d, got %d", i, res.TableNumber)
			}
		}
	})

	t.Run("sixth request for a full slot gets no table", func(t *testing.T) {
		svc := newTestService(memstore.NewReservationStore(), at(9, 0))
		ctx := context.Background()

		for i := 1; i <= 5; i++ {
			if _, err := svc.CreateForOrder(ctx, "u1", fmt.Sprintf("o%d", i), at(14, 0), nil); err != nil {
				t.Fatalf("reservation %d: unexpected error: %v", i, err)
			}
		}

		_, err := svc.CreateForOrder(ctx, "u1", "o6", at(14, 0), nil)
		if !errors.Is(err, domain.ErrNoTableAvailable) {
			t.Fatalf("expected ErrNoTableAvailable, got %v", err)
		}

		availability, err := svc.TablesForSlot(ctx, at(14, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(availability.AvailableTables) != 0 {
			t.Errorf("expected no available tables, got %v", availability.AvailableTables)
		}
		if len(availability.TakenTables) != 5 {
			t.Errorf("expected 5 taken tables, got %v", availability.TakenTables)
		}
	})

	t.Run("requested table", func(t *testing.T) {
		svc := newTestService(memstore.NewReservationStore(), at(9, 0))
		ctx := context.Background()
		table := 3

		res, err := svc.CreateForOrder(ctx, "u1", "o1", at(14, 0), &table)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.TableNumber != 3 {
			t.Errorf("expected table 3, got %d", res.TableNumber)
		}

		_, err = svc.CreateForOrder(ctx, "u2", "o2", at(14, 0), &table)
		if !errors.Is(err, domain.ErrNoTableAvailable) {
			t.Errorf("expected ErrNoTableAvailable for a taken table, got %v", err)
		}
	})

	t.Run("requested table out of range", func(t *testing.T) {
		svc := newTestService(memstore.NewReservationStore(), at(9, 0))
		table := 6

		_, err := svc.CreateForOrder(context.Background(), "u1", "o1", at(14, 0), &table)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("rejects invalid slots", func(t *testing.T) {
		svc := newTestService(memstore.NewReservationStore(), at(9, 0))
		cases := map[string]time.Time{
			"misaligned": at(14, 10),
			"past":       at(8, 30),
			"tomorrow":   at(14, 0).AddDate(0, 0, 1),
			"at close":   at(22, 0),
		}
		for name, start := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := svc.CreateForOrder(context.Background(), "u1", "o1", start, nil)
				if !errors.Is(err, domain.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
			})
		}
	})

	t.Run("repeat for the same order returns the existing reservation", func(t *testing.T) {
		svc := newTestService(memstore.NewReservationStore(), at(9, 0))
		ctx := context.Background()

		first, err := svc.CreateForOrder(ctx, "u1", "o1", at(14, 0), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := svc.CreateForOrder(ctx, "u1", "o1", at(14, 0), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first.ID != second.ID || first.TableNumber != second.TableNumber {
			t.Errorf("expected %+v, got %+v", first, second)
		}

		n, err := svc.index.CountOccupied(ctx, svc.cfg.Slot(at(14, 0)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 occupied table, got %d", n)
		}
	})

	t.Run("retries past tables lost to a race", func(t *testing.T) {
		store := &racingStore{ReservationStore: memstore.NewReservationStore(), steals: 2}
		svc := newTestService(store, at(9, 0))

		res, err := svc.CreateForOrder(context.Background(), "u1", "o1", at(14, 0), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.TableNumber != 3 {
			t.Errorf("expected table 3 after losing two races, got %d", res.TableNumber)
		}
	})

	t.Run("race on every table ends with no table", func(t *testing.T) {
		store := &racingStore{ReservationStore: memstore.NewReservationStore(), steals: 5}
		svc := newTestService(store, at(9, 0))

		_, err := svc.CreateForOrder(context.Background(), "u1", "o1", at(14, 0), nil)
		if !errors.Is(err, domain.ErrNoTableAvailable) {
			t.Errorf("expected ErrNoTableAvailable, got %v", err)
		}
	})

	t.Run("requested table lost to a race is not retried", func(t *testing.T) {
		store := &racingStore{ReservationStore: memstore.NewReservationStore(), steals: 1}
		svc := newTestService(store, at(9, 0))
		table := 2

		_, err := svc.CreateForOrder(context.Background(), "u1", "o1", at(14, 0), &table)
		if !errors.Is(err, domain.ErrNoTableAvailable) {
			t.Errorf("expected ErrNoTableAvailable, got %v", err)
		}
	})
}

func TestCreateForOrderConcurrent(t *testing.T) {
	svc := newTestService(memstore.NewReservationStore(), at(9, 0))
	total := svc.cfg.TotalTables
	callers := total * 3

	var wg sync.WaitGroup
	results := make(chan error, callers)
	tables := make(chan int, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.CreateForOrder(context.Background(), "u", fmt.Sprintf("order-%d", i), at(14, 0), nil)
			results <- err
			if err == nil {
				tables <- res.TableNumber
			}
		}(i)
	}
	wg.Wait()
	close(results)
	close(tables)

	var successes, noTable int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrNoTableAvailable):
			noTable++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != total {
		t.Errorf("expected %d successes, got %d", total, successes)
	}
	if noTable != callers-total {
		t.Errorf("expected %d ErrNoTableAvailable, got %d", callers-total, noTable)
	}

	seen := make(map[int]bool)
	for table := range tables {
		if seen[table] {
			t.Errorf("table %d assigned twice", table)
		}
		seen[table] = true
	}
}

func TestAvailableSlots(t *testing.T) {
	t.Run("only future slots of today", func(t *testing.T) {
		svc := newTestService(memstore.NewReservationStore(), at(20, 45))

		got, err := svc.AvailableSlots(context.Background(), at(0, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 21:00 and 21:30
		if len(got) != 2 {
			t.Fatalf("expected 2 slots, got %d", len(got))
		}
		if !got[0].Start.Equal(at(21, 0)) {
			t.Errorf("expected first slot at 21:00, got %s", got[0].Start)
		}
		if got[1].Label != "21:30 - 22:00" {
			t.Errorf("expected label 21:30 - 22:00, got %q", got[1].Label)
		}
	})

	t.Run("a slot starting now is still offered", func(t *testing.T) {
		svc := newTestService(memstore.NewReservationStore(), at(21, 30))

		got, err := svc.AvailableSlots(context.Background(), at(12, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 slot, got %d", len(got))
		}
	})

	t.Run("full slots are omitted", func(t *testing.T) {
		svc := newTestService(memstore.NewReservationStore(), at(20, 45))
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			if _, err := svc.CreateForOrder(ctx, "u", fmt.Sprintf("o%d", i), at(21, 0), nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		got, err := svc.AvailableSlots(ctx, at(20, 45))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || !got[0].Start.Equal(at(21, 30)) {
			t.Errorf("expected only 21:30, got %+v", got)
		}
	})

	t.Run("repeated calls agree", func(t *testing.T) {
		svc := newTestService(memstore.NewReservationStore(), at(9, 0))
		ctx := context.Background()
		first, err := svc.AvailableSlots(ctx, at(9, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := svc.AvailableSlots(ctx, at(9, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(first) != len(second) {
			t.Fatalf("expected %d slots, got %d", len(first), len(second))
		}
		for i := range first {
			if !first[i].Start.Equal(second[i].Start) {
				t.Errorf("slot %d: expected %s, got %s", i, first[i].Start, second[i].Start)
			}
		}
	})

	t.Run("other days are rejected", func(t *testing.T) {
		svc := newTestService(memstore.NewReservationStore(), at(9, 0))
		_, err := svc.AvailableSlots(context.Background(), at(9, 0).AddDate(0, 0, 1))
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestNextAvailableSlot(t *testing.T) {
	t.Run("first free slot at or after from", func(t *testing.T) {
		svc := newTestService(memstore.NewReservationStore(), at(9, 10))

		next, err := svc.NextAvailableSlot(context.Background(), time.Time{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !next.Start.Equal(at(9, 30)) || next.NextDay {
			t.Errorf("expected 09:30 today, got %+v", next)
		}
	})

	t.Run("from in the past is clamped to now", func(t *testing.T) {
		svc := newTestService(memstore.NewReservationStore(), at(15, 0))

		next, err := svc.NextAvailableSlot(context.Background(), at(8, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !next.Start.Equal(at(15, 0)) {
			t.Errorf("expected 15:00, got %s", next.Start)
		}
	})

	t.Run("skips full slots", func(t *testing.T) {
		svc := newTestService(memstore.NewReservationStore(), at(14, 0))
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			if _, err := svc.CreateForOrder(ctx, "u", fmt.Sprintf("o%d", i), at(14, 0), nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		next, err := svc.NextAvailableSlot(ctx, at(14, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !next.Start.Equal(at(14, 30)) {
			t.Errorf("expected 14:30, got %s", next.Start)
		}
	})

	t.Run("rolls over to tomorrow's opening", func(t *testing.T) {
		svc := newTestService(memstore.NewReservationStore(), at(21, 45))

		next, err := svc.NextAvailableSlot(context.Background(), time.Time{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !next.NextDay {
			t.Error("expected next day")
		}
		want := at(8, 0).AddDate(0, 0, 1)
		if !next.Start.Equal(want) {
			t.Errorf("expected %s, got %s", want, next.Start)
		}
	})
}

func TestTablesForSlot(t *testing.T) {
	svc := newTestService(memstore.NewReservationStore(), at(9, 0))
	ctx := context.Background()
	for _, table := range []int{2, 4} {
		if _, err := svc.CreateForOrder(ctx, "u", fmt.Sprintf("o%d", table), at(10, 0), &table); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := svc.TablesForSlot(ctx, at(10, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(got.AvailableTables) != "[1 3 5]" {
		t.Errorf("expected available [1 3 5], got %v", got.AvailableTables)
	}
	if fmt.Sprint(got.TakenTables) != "[2 4]" {
		t.Errorf("expected taken [2 4], got %v", got.TakenTables)
	}
	if !got.SlotEnd.Equal(at(10, 30)) {
		t.Errorf("expected slot end 10:30, got %s", got.SlotEnd)
	}

	// neighbouring slot is unaffected
	other, err := svc.TablesForSlot(ctx, at(10, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(other.AvailableTables) != 5 {
		t.Errorf("expected 5 available tables at 10:30, got %v", other.AvailableTables)
	}
}
