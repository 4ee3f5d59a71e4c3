// Package source loads bookings and working hours from the booking backend
// or from local snapshots of it.
package source

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/agis/bookcal/internal/contract"
)

var (
	ErrNotFound    = errors.New("booking not found")
	ErrUnavailable = errors.New("source unavailable")
	ErrDecode      = errors.New("decode payload")
)

// Filter narrows a booking listing. Range bounds apply to start time and are
// inclusive; bookings without a start only match an unbounded filter.
type Filter struct {
	From          time.Time
	To            time.Time
	Statuses      []contract.Status
	Professionals []string
	Services      []string
	Limit         int
}

type Source interface {
	Doctor(context.Context) ([]contract.DoctorCheck, error)
	ListBookings(context.Context, Filter) ([]contract.Booking, error)
	GetBooking(context.Context, string) (*contract.Booking, error)
	WorkingHours(context.Context) (*contract.WorkingHours, error)
}

func (f Filter) bounded() bool { return !f.From.IsZero() || !f.To.IsZero() }

func (f Filter) Match(b contract.Booking) bool {
	if f.bounded() {
		if !b.HasStart() {
			return false
		}
		if !f.From.IsZero() && b.StartTime.Before(f.From) {
			return false
		}
		if !f.To.IsZero() && b.StartTime.After(f.To) {
			return false
		}
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, b.Status) {
		return false
	}
	if len(f.Professionals) > 0 && !matchesRef(f.Professionals, b.Professional) {
		return false
	}
	if len(f.Services) > 0 && !matchesRef(f.Services, b.Service) {
		return false
	}
	return true
}

// Apply filters items, orders them by start then id and applies the limit.
func (f Filter) Apply(items []contract.Booking) []contract.Booking {
	out := make([]contract.Booking, 0, len(items))
	for _, b := range items {
		if f.Match(b) {
			out = append(out, b)
		}
	}
	SortByStart(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func SortByStart(items []contract.Booking) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].StartTime.Equal(items[j].StartTime) {
			return items[i].StartTime.Before(items[j].StartTime)
		}
		return items[i].ID < items[j].ID
	})
}

func containsStatus(items []contract.Status, s contract.Status) bool {
	for _, it := range items {
		if strings.EqualFold(strings.TrimSpace(string(it)), string(s)) {
			return true
		}
	}
	return false
}

// matchesRef accepts a reference by id or by display name, case-insensitively.
func matchesRef(wanted []string, ref contract.Ref) bool {
	if !ref.Present() {
		return false
	}
	for _, w := range wanted {
		w = strings.TrimSpace(w)
		if strings.EqualFold(w, ref.ID) || (ref.Name != "" && strings.EqualFold(w, ref.Name)) {
			return true
		}
	}
	return false
}

func findByID(items []contract.Booking, id string) (*contract.Booking, error) {
	id = strings.TrimSpace(id)
	for i := range items {
		if items[i].ID == id {
			b := items[i]
			return &b, nil
		}
	}
	return nil, ErrNotFound
}
