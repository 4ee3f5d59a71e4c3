package stats

import (
	"time"

	"github.com/agis/bookcal/internal/contract"
)

// BookingsCreatedInMonth selects bookings by when they were booked: their
// createdAt falls in month's calendar month, read in month's location.
func BookingsCreatedInMonth(bookings []contract.Booking, month time.Time) []contract.Booking {
	loc := month.Location()
	y, m, _ := month.Date()
	out := make([]contract.Booking, 0)
	for _, b := range bookings {
		if b.CreatedAt.IsZero() {
			continue
		}
		by, bm, _ := b.CreatedAt.In(loc).Date()
		if by == y && bm == m {
			out = append(out, b)
		}
	}
	return out
}

// BookingsOccurringOnWeekday selects bookings by when they happen: their
// startTime falls on wd in loc.
func BookingsOccurringOnWeekday(bookings []contract.Booking, wd time.Weekday, loc *time.Location) []contract.Booking {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]contract.Booking, 0)
	for _, b := range bookings {
		if !b.HasStart() {
			continue
		}
		if b.StartTime.In(loc).Weekday() == wd {
			out = append(out, b)
		}
	}
	return out
}

const DefaultRevenueMonths = 6

type MonthRevenue struct {
	Month    string  `json:"month"`
	Label    string  `json:"label"`
	Bookings int     `json:"bookings"`
	Revenue  float64 `json:"revenue"`
}

// RevenueByMonth buckets realized revenue over the months months ending with
// now's month, oldest first. Bookings are bucketed by createdAt.
func RevenueByMonth(bookings []contract.Booking, now time.Time, months int) []MonthRevenue {
	if months <= 0 {
		months = DefaultRevenueMonths
	}
	y, m, _ := now.Date()
	current := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	out := make([]MonthRevenue, 0, months)
	for i := months - 1; i >= 0; i-- {
		month := current.AddDate(0, -i, 0)
		row := MonthRevenue{Month: month.Format("2006-01"), Label: month.Format("Jan")}
		for _, b := range BookingsCreatedInMonth(bookings, month) {
			row.Bookings++
			row.Revenue += RealizedAmount(b)
		}
		out = append(out, row)
	}
	return out
}

type WeekdayCount struct {
	Weekday string `json:"weekday"`
	Label   string `json:"label"`
	Count   int    `json:"count"`
}

// AppointmentsByWeekday counts bookings by the weekday they start on, seven
// rows beginning at weekStart.
func AppointmentsByWeekday(bookings []contract.Booking, weekStart time.Weekday, loc *time.Location) []WeekdayCount {
	out := make([]WeekdayCount, 0, 7)
	for i := 0; i < 7; i++ {
		wd := time.Weekday((int(weekStart) + i) % 7)
		out = append(out, WeekdayCount{
			Weekday: contract.DayName(wd),
			Label:   wd.String()[:3],
			Count:   len(BookingsOccurringOnWeekday(bookings, wd, loc)),
		})
	}
	return out
}
