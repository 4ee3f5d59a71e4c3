package calendar

import (
	"strings"
	"time"

	"github.com/agis/bookcal/internal/contract"
)

// HourRange is an inclusive span of whole display hours.
type HourRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// RowCount is the number of hour rows the range renders.
func (r HourRange) RowCount() int {
	return max(1, r.End-r.Start+1)
}

func (r HourRange) Contains(hour int) bool {
	return hour >= r.Start && hour <= r.End
}

func (s Settings) DefaultRange() HourRange {
	s = s.withDefaults()
	return normalizeRange(HourRange{Start: s.DefaultStartHour, End: s.DefaultEndHour})
}

// ResolveHourRange resolves wh with DefaultSettings. A zero date resolves the
// union across the week.
func ResolveHourRange(wh *contract.WorkingHours, date time.Time) HourRange {
	return DefaultSettings().ResolveHourRange(wh, date)
}

// ResolveHourRange picks the display range for date, or the union of every
// usable weekday when date is zero. Missing or malformed hours fall back to
// the configured defaults, component by component.
func (s Settings) ResolveHourRange(wh *contract.WorkingHours, date time.Time) HourRange {
	s = s.withDefaults()
	fallback := s.DefaultRange()
	if wh == nil {
		return fallback
	}
	if !wh.Weekly {
		return s.fromBounds(wh.Start, wh.End)
	}
	if !date.IsZero() {
		day := wh.Day(date.Weekday())
		if !day.Usable() {
			return fallback
		}
		return s.fromBounds(day.Start, day.End)
	}

	found := false
	var out HourRange
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		day := wh.Day(wd)
		if !day.Usable() {
			continue
		}
		start, okStart := parseHour(day.Start)
		end, okEnd := parseHour(day.End)
		if !okStart || !okEnd {
			continue
		}
		if !found {
			out = HourRange{Start: start, End: end}
			found = true
			continue
		}
		out.Start = min(out.Start, start)
		out.End = max(out.End, end)
	}
	if !found {
		return fallback
	}
	return normalizeRange(out)
}

func (s Settings) fromBounds(startS, endS string) HourRange {
	start, ok := parseHour(startS)
	if !ok {
		start = s.DefaultStartHour
	}
	end, ok := parseHour(endS)
	if !ok {
		end = s.DefaultEndHour
	}
	return normalizeRange(HourRange{Start: start, End: end})
}

func normalizeRange(r HourRange) HourRange {
	r.Start = clampHour(r.Start)
	r.End = clampHour(r.End)
	if r.End < r.Start {
		r.End = r.Start
	}
	return r
}

func clampHour(h int) int {
	return min(23, max(0, h))
}

// parseHour reads the hour component of an HH:MM value the way a lenient
// integer parse would: optional sign, then leading digits before any ':'.
func parseHour(v string) (int, bool) {
	s := strings.TrimSpace(v)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	sign := 1
	if s != "" && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	n, digits := 0, 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		n = n*10 + int(s[digits]-'0')
		digits++
		if n > 1000 {
			break
		}
	}
	if digits == 0 {
		return 0, false
	}
	return sign * n, true
}
