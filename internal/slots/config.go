// Package slots partitions the operating day into fixed-width reservation slots.
package slots

import (
	"errors"
	"fmt"
	"time"

	"github.com/joao-fontenele/canteen/internal/domain"
)

const (
	DefaultOpenHour    = 8
	DefaultCloseHour   = 22
	DefaultSlotWidth   = 30 * time.Minute
	DefaultTotalTables = 5
)

// Config is the fixed daily schedule. It is immutable once built and
// shared by value.
type Config struct {
	OpenHour    int
	CloseHour   int
	SlotWidth   time.Duration
	TotalTables int
	Location    *time.Location
}

func DefaultConfig() Config {
	return Config{
		OpenHour:    DefaultOpenHour,
		CloseHour:   DefaultCloseHour,
		SlotWidth:   DefaultSlotWidth,
		TotalTables: DefaultTotalTables,
		Location:    time.Local,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.OpenHour < 0 || c.OpenHour > 23 {
		errs = append(errs, fmt.Errorf("open hour %d out of range", c.OpenHour))
	}
	if c.CloseHour < 1 || c.CloseHour > 24 {
		errs = append(errs, fmt.Errorf("close hour %d out of range", c.CloseHour))
	}
	if c.CloseHour <= c.OpenHour {
		errs = append(errs, fmt.Errorf("close hour %d must be after open hour %d", c.CloseHour, c.OpenHour))
	}
	if c.SlotWidth <= 0 {
		errs = append(errs, fmt.Errorf("slot width %s must be positive", c.SlotWidth))
	}
	if c.TotalTables < 1 {
		errs = append(errs, fmt.Errorf("total tables %d must be at least 1", c.TotalTables))
	}
	return errors.Join(errs...)
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// StartOfDay returns midnight of t's calendar day in the configured location.
func (c Config) StartOfDay(t time.Time) time.Time {
	t = t.In(c.location())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.location())
}

func (c Config) SameDay(a, b time.Time) bool {
	return c.StartOfDay(a).Equal(c.StartOfDay(b))
}

// SlotsForDay returns the slot starts of day's calendar day.
func (c Config) SlotsForDay(day time.Time) []time.Time {
	return SlotsForDay(c.StartOfDay(day), c.OpenHour, c.CloseHour, c.SlotWidth)
}

// Slot builds the window starting at start.
func (c Config) Slot(start time.Time) domain.Slot {
	start = start.In(c.location())
	end := start.Add(c.SlotWidth)
	return domain.Slot{
		Start: start,
		End:   end,
		Label: start.Format("15:04") + " - " + end.Format("15:04"),
	}
}

// IsSlotStart reports whether t is exactly one of its day's slot boundaries.
func (c Config) IsSlotStart(t time.Time) bool {
	for _, start := range c.SlotsForDay(t) {
		if start.Equal(t) {
			return true
		}
	}
	return false
}

// Tables returns the table numbers 1..TotalTables.
func (c Config) Tables() []int {
	tables := make([]int, c.TotalTables)
	for i := range tables {
		tables[i] = i + 1
	}
	return tables
}
