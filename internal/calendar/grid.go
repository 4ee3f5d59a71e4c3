package calendar

import (
	"fmt"
	"time"
)

// BuildHourRows lists every hour from r.Start to r.End inclusive.
func BuildHourRows(r HourRange) []int {
	r = normalizeRange(r)
	rows := make([]int, 0, r.RowCount())
	for h := r.Start; h <= r.End; h++ {
		rows = append(rows, h)
	}
	return rows
}

// MinutesFromRangeStart measures t against the range start hour on t's own
// calendar day. Instants before the range start clamp to 0.
func MinutesFromRangeStart(t time.Time, r HourRange) int {
	y, m, d := t.Date()
	origin := time.Date(y, m, d, r.Start, 0, 0, 0, t.Location())
	mins := int(t.Sub(origin) / time.Minute)
	return max(0, mins)
}

func HourLabel(h int) string {
	return fmt.Sprintf("%02d:00", clampHour(h))
}
