package reservations

import (
	"context"
	"sort"
	"time"

	"github.com/joao-fontenele/canteen/internal/domain"
)

// OccupancyReader lists the table number of every reservation whose slot
// start falls in [start, end).
type OccupancyReader interface {
	TablesInWindow(ctx context.Context, start, end time.Time) ([]int, error)
}

// TableIndex answers point-in-time occupancy questions for a slot window.
// Answers may be stale by the time they are used; the store's unique
// (table_number, slot_start) index is what prevents double booking.
type TableIndex struct {
	reader      OccupancyReader
	totalTables int
}

func NewTableIndex(reader OccupancyReader, totalTables int) *TableIndex {
	return &TableIndex{reader: reader, totalTables: totalTables}
}

func (ix *TableIndex) CountOccupied(ctx context.Context, slot domain.Slot) (int, error) {
	tables, err := ix.reader.TablesInWindow(ctx, slot.Start, slot.End)
	if err != nil {
		return 0, err
	}
	return len(tables), nil
}

// OccupiedTables returns the distinct taken table numbers in ascending order.
func (ix *TableIndex) OccupiedTables(ctx context.Context, slot domain.Slot) ([]int, error) {
	tables, err := ix.reader.TablesInWindow(ctx, slot.Start, slot.End)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]struct{}, len(tables))
	out := make([]int, 0, len(tables))
	for _, t := range tables {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Ints(out)
	return out, nil
}

// FirstFreeTable scans 1..totalTables and returns the lowest number that is
// neither occupied nor excluded.
func (ix *TableIndex) FirstFreeTable(ctx context.Context, slot domain.Slot, exclude ...int) (int, bool, error) {
	taken, err := ix.OccupiedTables(ctx, slot)
	if err != nil {
		return 0, false, err
	}

	skip := make(map[int]struct{}, len(taken)+len(exclude))
	for _, t := range taken {
		skip[t] = struct{}{}
	}
	for _, t := range exclude {
		skip[t] = struct{}{}
	}

	for table := 1; table <= ix.totalTables; table++ {
		if _, ok := skip[table]; !ok {
			return table, true, nil
		}
	}
	return 0, false, nil
}

func (ix *TableIndex) IsTableFree(ctx context.Context, table int, slot domain.Slot) (bool, error) {
	taken, err := ix.OccupiedTables(ctx, slot)
	if err != nil {
		return false, err
	}
	for _, t := range taken {
		if t == table {
			return false, nil
		}
	}
	return true, nil
}
