package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DayBounds returns the first and last second of anchor's day.
func DayBounds(anchor time.Time) (time.Time, time.Time) {
	y, m, d := anchor.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, anchor.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Second)
	return start, end
}

func WeekBounds(anchor time.Time, weekStart time.Weekday) (time.Time, time.Time) {
	anchorStart, _ := DayBounds(anchor)
	delta := (int(anchorStart.Weekday()) - int(weekStart) + 7) % 7
	start := anchorStart.AddDate(0, 0, -delta)
	end := start.AddDate(0, 0, 7).Add(-time.Second)
	return start, end
}

func MonthBounds(anchor time.Time) (time.Time, time.Time) {
	y, m, _ := anchor.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, anchor.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// WeekDays returns the seven day starts of anchor's week.
func WeekDays(anchor time.Time, weekStart time.Weekday) []time.Time {
	start, _ := WeekBounds(anchor, weekStart)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

type GridDay struct {
	Date    time.Time `json:"date"`
	InMonth bool      `json:"in_month"`
}

// MonthGrid lays anchor's month out as whole weeks, padding with days from
// the neighbouring months so every row has seven entries.
func MonthGrid(anchor time.Time, weekStart time.Weekday) [][]GridDay {
	first, last := MonthBounds(anchor)
	gridStart, _ := WeekBounds(first, weekStart)
	_, gridEnd := WeekBounds(last, weekStart)

	var rows [][]GridDay
	for week := gridStart; week.Before(gridEnd); week = week.AddDate(0, 0, 7) {
		row := make([]GridDay, 7)
		for i := range row {
			d := week.AddDate(0, 0, i)
			row[i] = GridDay{Date: d, InMonth: d.Month() == first.Month()}
		}
		rows = append(rows, row)
	}
	return rows
}

// GridBounds returns the first and last second covered by MonthGrid.
func GridBounds(anchor time.Time, weekStart time.Weekday) (time.Time, time.Time) {
	first, last := MonthBounds(anchor)
	start, _ := WeekBounds(first, weekStart)
	_, end := WeekBounds(last, weekStart)
	return start, end
}

func ParseWeekStart(v string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "monday", "mon":
		return time.Monday, nil
	case "sunday", "sun":
		return time.Sunday, nil
	case "saturday", "sat":
		return time.Saturday, nil
	default:
		return time.Monday, fmt.Errorf("invalid week start: %s", v)
	}
}

func dayKey(t time.Time) string { return t.Format("2006-01-02") }
