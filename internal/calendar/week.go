package calendar

import (
	"sort"
	"time"

	"github.com/agis/bookcal/internal/contract"
)

type WeekDay struct {
	Date    string  `json:"date"`
	Weekday string  `json:"weekday"`
	Entries []Entry `json:"entries"`
}

type WeekLayout struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	WeekStart string    `json:"week_start"`
	Range     HourRange `json:"range"`
	Rows      []int     `json:"rows"`
	Days      []WeekDay `json:"days"`
	// Overflow lists bookings in the week whose start hour has no row.
	Overflow []string `json:"overflow,omitempty"`
	Skipped  []string `json:"skipped,omitempty"`
}

// PlaceWeek lays out the week containing anchor in anchor's location. Each
// day is a column and each (day, hour) cell holding more than one booking
// becomes a CollapsedGroup.
func (s Settings) PlaceWeek(bookings []contract.Booking, anchor time.Time, weekStart time.Weekday, r HourRange) WeekLayout {
	s = s.withDefaults()
	r = normalizeRange(r)
	loc := anchor.Location()
	from, to := WeekBounds(anchor, weekStart)
	layout := WeekLayout{
		From:      dayKey(from),
		To:        dayKey(to),
		WeekStart: weekStart.String(),
		Range:     r,
		Rows:      BuildHourRows(r),
	}

	var inWeek []contract.Booking
	for _, b := range bookings {
		if !b.HasStart() {
			layout.Skipped = append(layout.Skipped, b.ID)
			continue
		}
		st := b.StartTime.In(loc)
		if st.Before(from) || st.After(to) {
			continue
		}
		inWeek = append(inWeek, b)
	}

	cells := s.PlaceBookings(inWeek, r, PartitionNone, loc)
	for _, day := range WeekDays(anchor, weekStart) {
		wd := WeekDay{Date: dayKey(day), Weekday: contract.DayName(day.Weekday()), Entries: []Entry{}}
		for _, e := range cells[wd.Date] {
			if !r.Contains(e.Hour) {
				for _, pb := range e.Bookings() {
					layout.Overflow = append(layout.Overflow, pb.ID)
				}
				continue
			}
			wd.Entries = append(wd.Entries, e)
		}
		layout.Days = append(layout.Days, wd)
	}
	return layout
}

type MonthCell struct {
	Date     string          `json:"date"`
	InMonth  bool            `json:"in_month"`
	Total    int             `json:"total"`
	Bookings []PlacedBooking `json:"bookings"`
	// More counts the bookings hidden past the visible limit.
	More int `json:"more"`
}

type MonthLayout struct {
	Month     string        `json:"month"`
	WeekStart string        `json:"week_start"`
	Weeks     [][]MonthCell `json:"weeks"`
	Total     int           `json:"total"`
	Skipped   []string      `json:"skipped,omitempty"`
}

// PlaceMonth fills the month grid around anchor. Each cell lists its bookings
// by start then id, truncated to MaxVisible with the remainder in More.
func (s Settings) PlaceMonth(bookings []contract.Booking, anchor time.Time, weekStart time.Weekday) MonthLayout {
	s = s.withDefaults()
	loc := anchor.Location()
	first, _ := MonthBounds(anchor)
	layout := MonthLayout{Month: first.Format("2006-01"), WeekStart: weekStart.String()}

	byDay := map[string][]PlacedBooking{}
	full := HourRange{Start: 0, End: 23}
	for _, b := range bookings {
		if !b.HasStart() {
			layout.Skipped = append(layout.Skipped, b.ID)
			continue
		}
		pb := s.place(b, full, loc)
		byDay[pb.Day] = append(byDay[pb.Day], pb)
	}

	for _, week := range MonthGrid(anchor, weekStart) {
		row := make([]MonthCell, 0, len(week))
		for _, gd := range week {
			key := dayKey(gd.Date)
			items := byDay[key]
			sortPlaced(items)
			cell := MonthCell{Date: key, InMonth: gd.InMonth, Total: len(items), Bookings: items}
			if cell.Bookings == nil {
				cell.Bookings = []PlacedBooking{}
			}
			if s.MaxVisible > 0 && len(items) > s.MaxVisible {
				cell.Bookings = items[:s.MaxVisible]
				cell.More = len(items) - s.MaxVisible
			}
			if gd.InMonth {
				layout.Total += len(items)
			}
			row = append(row, cell)
		}
		layout.Weeks = append(layout.Weeks, row)
	}
	return layout
}

// SortedDays returns the keys of a PlaceBookings result in date order.
func SortedDays(cells map[string][]Entry) []string {
	keys := make([]string, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
