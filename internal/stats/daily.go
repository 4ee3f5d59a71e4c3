package stats

import (
	"time"

	"github.com/agis/bookcal/internal/contract"
)

type DaySummary struct {
	Date      string  `json:"date"`
	Total     int     `json:"total"`
	Confirmed int     `json:"confirmed"`
	Pending   int     `json:"pending"`
	Completed int     `json:"completed"`
	Cancelled int     `json:"cancelled"`
	Other     int     `json:"other"`
	Revenue   float64 `json:"revenue"`
}

// SummarizeByDay buckets bookings by start day in loc and returns one row per
// day from from to to, including days with no bookings.
func SummarizeByDay(bookings []contract.Booking, from, to time.Time, loc *time.Location) []DaySummary {
	if loc == nil {
		loc = time.UTC
	}
	if to.Before(from) {
		return nil
	}
	buckets := map[string]*DaySummary{}
	for _, b := range bookings {
		if !b.HasStart() {
			continue
		}
		day := b.StartTime.In(loc).Format("2006-01-02")
		row, ok := buckets[day]
		if !ok {
			row = &DaySummary{Date: day}
			buckets[day] = row
		}
		row.Total++
		switch b.Status {
		case contract.StatusConfirmed:
			row.Confirmed++
		case contract.StatusPending:
			row.Pending++
		case contract.StatusCompleted:
			row.Completed++
		case contract.StatusCancelled:
			row.Cancelled++
		default:
			row.Other++
		}
		row.Revenue += RealizedAmount(b)
	}

	start := startOfDay(from.In(loc))
	end := startOfDay(to.In(loc))
	rows := make([]DaySummary, 0, int(end.Sub(start)/(24*time.Hour))+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		if row, ok := buckets[key]; ok {
			rows = append(rows, *row)
			continue
		}
		rows = append(rows, DaySummary{Date: key})
	}
	return rows
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
