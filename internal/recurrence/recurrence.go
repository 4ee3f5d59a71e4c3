// Package recurrence expands a booking's series descriptor into concrete
// occurrence windows.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/agis/bookcal/internal/contract"
)

const DefaultLimit = 52

// maxScan bounds iteration over occurrences that fall before from.
const maxScan = 10000

var (
	ErrNoStart              = errors.New("booking has no start time")
	ErrUnsupportedFrequency = errors.New("unsupported recurrence frequency")
)

type Occurrence struct {
	BookingID string    `json:"booking_id"`
	Index     int       `json:"index"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// Project lists up to limit occurrences of b starting at or after from. A
// booking that is not part of a series projects to itself. The series is
// anchored at b's start, which counts as occurrence CurrentOccurrence.
func Project(b contract.Booking, from time.Time, limit int) ([]Occurrence, error) {
	if !b.HasStart() {
		return nil, ErrNoStart
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	length := time.Duration(0)
	if !b.EndTime.IsZero() && b.EndTime.After(b.StartTime) {
		length = b.EndTime.Sub(b.StartTime)
	}
	first := 1
	if b.Recurrence != nil && b.Recurrence.CurrentOccurrence > 0 {
		first = b.Recurrence.CurrentOccurrence
	}

	if b.Recurrence == nil || !b.Recurrence.IsRecurring {
		if b.StartTime.Before(from) {
			return []Occurrence{}, nil
		}
		return []Occurrence{{BookingID: b.ID, Index: first, Start: b.StartTime, End: b.StartTime.Add(length)}}, nil
	}

	opt, err := Options(*b.Recurrence, b.StartTime)
	if err != nil {
		return nil, err
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("build rule: %w", err)
	}

	out := make([]Occurrence, 0, min(limit, 64))
	next := rule.Iterator()
	index := first
	for scanned := 0; len(out) < limit && scanned < maxScan; scanned++ {
		st, ok := next()
		if !ok {
			break
		}
		if !st.Before(from) {
			out = append(out, Occurrence{BookingID: b.ID, Index: index, Start: st, End: st.Add(length)})
		}
		index++
	}
	return out, nil
}

// Options translates a series descriptor anchored at start into rrule
// options. Remaining occurrences are TotalOccurrences counted from
// CurrentOccurrence.
func Options(rec contract.Recurrence, start time.Time) (rrule.ROption, error) {
	freq, interval, err := parseFrequency(rec.Frequency)
	if err != nil {
		return rrule.ROption{}, err
	}
	if rec.Interval > 0 {
		interval *= rec.Interval
	}
	opt := rrule.ROption{Freq: freq, Interval: interval, Dtstart: start}

	if rec.TotalOccurrences > 0 {
		current := max(1, rec.CurrentOccurrence)
		remaining := rec.TotalOccurrences - current + 1
		if remaining <= 0 {
			remaining = 1
		}
		opt.Count = remaining
	}
	if until, ok := parseUntil(rec.EndDate, start.Location()); ok {
		opt.Until = until
	}
	if freq == rrule.WEEKLY && len(rec.DaysOfWeek) > 0 {
		for _, d := range rec.DaysOfWeek {
			opt.Byweekday = append(opt.Byweekday, weekday(d.Weekday()))
		}
	}
	return opt, nil
}

func parseFrequency(v string) (rrule.Frequency, int, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "daily":
		return rrule.DAILY, 1, nil
	case "weekly", "":
		return rrule.WEEKLY, 1, nil
	case "biweekly", "fortnightly":
		return rrule.WEEKLY, 2, nil
	case "monthly":
		return rrule.MONTHLY, 1, nil
	case "yearly", "annually":
		return rrule.YEARLY, 1, nil
	default:
		return rrule.WEEKLY, 0, fmt.Errorf("%w: %s", ErrUnsupportedFrequency, v)
	}
}

// parseUntil treats a date-only end as inclusive of that whole day.
func parseUntil(v string, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(v)
	if s == "" {
		return time.Time{}, false
	}
	if d, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return d.AddDate(0, 0, 1).Add(-time.Second), true
	}
	return contract.ParseInstant(s)
}

func weekday(wd time.Weekday) rrule.Weekday {
	switch wd {
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	default:
		return rrule.SU
	}
}
