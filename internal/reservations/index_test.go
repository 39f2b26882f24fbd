package reservations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joao-fontenele/canteen/internal/domain"
)

type fakeReader struct {
	tables []int
	err    error
}

func (f fakeReader) TablesInWindow(context.Context, time.Time, time.Time) ([]int, error) {
	return f.tables, f.err
}

func TestTableIndex(t *testing.T) {
	slot := testConfig().Slot(at(12, 0))

	t.Run("occupied tables are distinct and sorted", func(t *testing.T) {
		ix := NewTableIndex(fakeReader{tables: []int{4, 1, 4, 2}}, 5)
		got, err := ix.OccupiedTables(context.Background(), slot)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []int{1, 2, 4}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("expected %v, got %v", want, got)
			}
		}
	})

	t.Run("first free skips occupied and excluded", func(t *testing.T) {
		ix := NewTableIndex(fakeReader{tables: []int{1, 3}}, 5)
		got, ok, err := ix.FirstFreeTable(context.Background(), slot, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok || got != 4 {
			t.Errorf("expected table 4, got %d (ok=%v)", got, ok)
		}
	})

	t.Run("first free on a full slot", func(t *testing.T) {
		ix := NewTableIndex(fakeReader{tables: []int{1, 2, 3}}, 3)
		_, ok, err := ix.FirstFreeTable(context.Background(), slot)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected no free table")
		}
	})

	t.Run("is table free", func(t *testing.T) {
		ix := NewTableIndex(fakeReader{tables: []int{2}}, 5)
		free, err := ix.IsTableFree(context.Background(), 2, slot)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if free {
			t.Error("expected table 2 to be taken")
		}
		free, err = ix.IsTableFree(context.Background(), 3, slot)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !free {
			t.Error("expected table 3 to be free")
		}
	})

	t.Run("reader errors propagate", func(t *testing.T) {
		ix := NewTableIndex(fakeReader{err: domain.ErrStorageTimeout}, 5)
		_, err := ix.CountOccupied(context.Background(), slot)
		if !errors.Is(err, domain.ErrStorageTimeout) {
			t.Errorf("expected ErrStorageTimeout, got %v", err)
		}
	})
}
