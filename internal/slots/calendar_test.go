package slots

import (
	"testing"
	"time"
)

var day = time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)

func TestSlotsForDay(t *testing.T) {
	t.Run("default schedule yields 28 half-hour slots", func(t *testing.T) {
		starts := SlotsForDay(day, 8, 22, 30*time.Minute)
		if len(starts) != 28 {
			t.Fatalf("expected 28 slots, got %d", len(starts))
		}
		if want := day.Add(8 * time.Hour); !starts[0].Equal(want) {
			t.Errorf("expected first slot %s, got %s", want, starts[0])
		}
		if want := day.Add(21*time.Hour + 30*time.Minute); !starts[27].Equal(want) {
			t.Errorf("expected last slot %s, got %s", want, starts[27])
		}
	})

	t.Run("slots are ordered and evenly spaced", func(t *testing.T) {
		starts := SlotsForDay(day, 8, 22, 30*time.Minute)
		for i := 1; i < len(starts); i++ {
			if gap := starts[i].Sub(starts[i-1]); gap != 30*time.Minute {
				t.Fatalf("slot %d: expected 30m gap, got %s", i, gap)
			}
		}
	})

	t.Run("never emits a slot starting at close", func(t *testing.T) {
		closing := day.Add(22 * time.Hour)
		for _, s := range SlotsForDay(day, 8, 22, 30*time.Minute) {
			if !s.Before(closing) {
				t.Fatalf("slot %s starts at or after close", s)
			}
		}
	})

	t.Run("drops the partial trailing slot", func(t *testing.T) {
		// 14h span, 45m width: 18 full slots (13h30), the 19th would end at 22:15.
		starts := SlotsForDay(day, 8, 22, 45*time.Minute)
		if len(starts) != 18 {
			t.Fatalf("expected 18 slots, got %d", len(starts))
		}
		last := starts[len(starts)-1]
		if end := last.Add(45 * time.Minute); end.After(day.Add(22 * time.Hour)) {
			t.Errorf("last slot ends after close: %s", end)
		}
	})

	t.Run("slot one second before close only when it fits", func(t *testing.T) {
		starts := SlotsForDay(day, 21, 22, time.Hour-time.Second)
		if len(starts) != 1 {
			t.Fatalf("expected exactly 1 slot, got %d", len(starts))
		}
		if starts[0].Equal(day.Add(22*time.Hour - time.Second)) {
			t.Errorf("a slot starting one second before close cannot fit a full width")
		}
	})

	t.Run("degenerate configuration yields nothing", func(t *testing.T) {
		if got := SlotsForDay(day, 22, 8, 30*time.Minute); got != nil {
			t.Errorf("expected no slots, got %d", len(got))
		}
		if got := SlotsForDay(day, 8, 22, 0); got != nil {
			t.Errorf("expected no slots, got %d", len(got))
		}
	})

	t.Run("is deterministic", func(t *testing.T) {
		a := SlotsForDay(day, 8, 22, 30*time.Minute)
		b := SlotsForDay(day, 8, 22, 30*time.Minute)
		for i := range a {
			if !a[i].Equal(b[i]) {
				t.Fatalf("slot %d differs: %s vs %s", i, a[i], b[i])
			}
		}
	})
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Location = time.UTC

	t.Run("validates", func(t *testing.T) {
		if err := cfg.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		bad := cfg
		bad.CloseHour = 7
		bad.TotalTables = 0
		if err := bad.Validate(); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("slots for an arbitrary instant use its calendar day", func(t *testing.T) {
		starts := cfg.SlotsForDay(day.Add(15*time.Hour + 7*time.Minute))
		if len(starts) != 28 || !starts[0].Equal(day.Add(8*time.Hour)) {
			t.Fatalf("unexpected slots: %v", starts)
		}
	})

	t.Run("builds labelled windows", func(t *testing.T) {
		slot := cfg.Slot(day.Add(14 * time.Hour))
		if slot.Label != "14:00 - 14:30" {
			t.Errorf("expected label '14:00 - 14:30', got %q", slot.Label)
		}
		if !slot.Contains(day.Add(14*time.Hour+29*time.Minute)) || slot.Contains(slot.End) {
			t.Error("expected half-open window")
		}
	})

	t.Run("recognizes slot boundaries", func(t *testing.T) {
		if !cfg.IsSlotStart(day.Add(14 * time.Hour)) {
			t.Error("14:00 should be a slot start")
		}
		if cfg.IsSlotStart(day.Add(14*time.Hour + 10*time.Minute)) {
			t.Error("14:10 should not be a slot start")
		}
		if cfg.IsSlotStart(day.Add(22 * time.Hour)) {
			t.Error("22:00 should not be a slot start")
		}
	})

	t.Run("lists tables ascending", func(t *testing.T) {
		tables := cfg.Tables()
		if len(tables) != 5 || tables[0] != 1 || tables[4] != 5 {
			t.Errorf("unexpected tables: %v", tables)
		}
	})
}
