package slots

import "time"

// SlotsForDay steps from day@openHour towards day@closeHour in increments of
// width. A start is emitted only when the whole slot fits before close, so
// a width that does not divide the span leaves no partial trailing slot.
func SlotsForDay(day time.Time, openHour, closeHour int, width time.Duration) []time.Time {
	if width <= 0 || closeHour <= openHour {
		return nil
	}

	y, m, d := day.Date()
	loc := day.Location()
	open := time.Date(y, m, d, openHour, 0, 0, 0, loc)
	closing := time.Date(y, m, d, closeHour, 0, 0, 0, loc)

	var starts []time.Time
	for start := open; !start.Add(width).After(closing); start = start.Add(width) {
		starts = append(starts, start)
	}
	return starts
}
