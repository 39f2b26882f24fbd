package domain

import "time"

// Reservation binds one table to one slot for exactly one order.
type Reservation struct {
	ID          string    `json:"id"`
	TableNumber int       `json:"table_number"`
	SlotStart   time.Time `json:"slot_start"`
	UserID      string    `json:"user_id"`
	OrderID     string    `json:"order_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Slot is a derived half-open window [Start, End).
type Slot struct {
	Start time.Time `json:"slot_start"`
	End   time.Time `json:"slot_end"`
	Label string    `json:"label"`
}

func (s Slot) Contains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}
