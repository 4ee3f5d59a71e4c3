package timeparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agis/bookcal/internal/contract"
)

var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDateTime reads absolute timestamps and the relative forms today,
// tomorrow, yesterday, now, weekday names ("friday", "next friday") and
// signed offsets in days, weeks or months ("+3d", "-2w", "+1m"). Relative
// forms other than now resolve to local midnight.
func ParseDateTime(input string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	raw := strings.TrimSpace(input)
	s := strings.ToLower(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch s {
	case "now":
		return now.In(loc), nil
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	if rest, ok := strings.CutPrefix(s, "next "); ok {
		if wd, ok := contract.WeekdayByName(rest); ok {
			return today.AddDate(0, 0, daysUntil(today.Weekday(), wd, true)), nil
		}
		return time.Time{}, fmt.Errorf("unsupported datetime format: %s", input)
	}
	if wd, ok := contract.WeekdayByName(s); ok {
		return today.AddDate(0, 0, daysUntil(today.Weekday(), wd, false)), nil
	}

	if s[0] == '+' || s[0] == '-' {
		return parseOffset(s, today, input)
	}

	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported datetime format: %s", input)
}

// IsDateOnly reports whether input names a whole day rather than an instant.
func IsDateOnly(input string) bool {
	s := strings.TrimSpace(input)
	if strings.EqualFold(s, "now") {
		return false
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return true
	}
	for _, layout := range layouts[:3] {
		if _, err := time.Parse(layout, s); err == nil {
			return false
		}
	}
	return true
}

func parseOffset(s string, today time.Time, input string) (time.Time, error) {
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	body := s[1:]
	if len(body) < 2 {
		return time.Time{}, fmt.Errorf("invalid relative offset: %s", input)
	}
	unit := body[len(body)-1]
	n, err := strconv.Atoi(body[:len(body)-1])
	if err != nil || n < 0 {
		return time.Time{}, fmt.Errorf("invalid relative offset: %s", input)
	}
	n *= sign
	switch unit {
	case 'd':
		return today.AddDate(0, 0, n), nil
	case 'w':
		return today.AddDate(0, 0, 7*n), nil
	case 'm':
		return today.AddDate(0, n, 0), nil
	default:
		return time.Time{}, fmt.Errorf("invalid relative offset unit: %s", input)
	}
}

func daysUntil(from, to time.Weekday, strict bool) int {
	delta := (int(to) - int(from) + 7) % 7
	if strict && delta == 0 {
		delta = 7
	}
	return delta
}
