package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agis/bookcal/internal/contract"
	"github.com/agis/bookcal/internal/source"
)

type predicate struct {
	field string
	op    string
	value string
}

var predicateOps = []string{"==", "!=", "~", ">=", "<=", ">", "<"}

func parsePredicates(wheres []string) ([]predicate, error) {
	out := make([]predicate, 0, len(wheres))
	for _, w := range wheres {
		s := strings.TrimSpace(w)
		if s == "" {
			continue
		}
		var op string
		idx := -1
		for _, candidate := range predicateOps {
			if i := strings.Index(s, candidate); i > 0 && (idx < 0 || i < idx) {
				op, idx = candidate, i
			}
		}
		if op == "" {
			return nil, fmt.Errorf("invalid where clause: %s", w)
		}
		field := strings.TrimSpace(s[:idx])
		val := strings.Trim(strings.TrimSpace(s[idx+len(op):]), "\"")
		if field == "" || val == "" {
			return nil, fmt.Errorf("invalid where clause: %s", w)
		}
		p := predicate{field: strings.ToLower(field), op: op, value: val}
		if err := p.validate(); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (p predicate) validate() error {
	switch p.field {
	case "id", "status", "payment_status", "client", "service", "professional":
		switch p.op {
		case "==", "!=", "~":
			return nil
		}
		return fmt.Errorf("operator %s not supported for field %s", p.op, p.field)
	case "start", "end", "created_at":
		if p.op == "~" {
			return fmt.Errorf("operator ~ not supported for field %s", p.field)
		}
		_, err := parsePredicateTime(p.value)
		return err
	default:
		return fmt.Errorf("unsupported field in --where: %s", p.field)
	}
}

func applyPredicates(items []contract.Booking, preds []predicate) []contract.Booking {
	filtered := make([]contract.Booking, 0, len(items))
	for _, b := range items {
		if matchesAll(b, preds) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}

func matchesAll(b contract.Booking, preds []predicate) bool {
	for _, p := range preds {
		if !matchesOne(b, p) {
			return false
		}
	}
	return true
}

func matchesOne(b contract.Booking, p predicate) bool {
	switch p.field {
	case "id":
		return compareString([]string{b.ID}, p.op, p.value)
	case "status":
		return compareString([]string{string(b.Status)}, p.op, p.value)
	case "payment_status":
		return compareString([]string{string(b.PaymentStatus)}, p.op, p.value)
	case "client":
		return compareString(refValues(b.Client), p.op, p.value)
	case "service":
		return compareString(refValues(b.Service), p.op, p.value)
	case "professional":
		return compareString(refValues(b.Professional), p.op, p.value)
	case "start":
		return compareTime(b.StartTime, p.op, p.value)
	case "end":
		return compareTime(b.EndTime, p.op, p.value)
	case "created_at":
		return compareTime(b.CreatedAt, p.op, p.value)
	default:
		return false
	}
}

func refValues(r contract.Ref) []string {
	var out []string
	if r.ID != "" {
		out = append(out, r.ID)
	}
	if r.Name != "" {
		out = append(out, r.Name)
	}
	return out
}

// compareString matches when any candidate matches; != holds when none equal.
func compareString(candidates []string, op, expected string) bool {
	e := strings.ToLower(expected)
	equal, contains := false, false
	for _, c := range candidates {
		a := strings.ToLower(c)
		equal = equal || a == e
		contains = contains || strings.Contains(a, e)
	}
	switch op {
	case "==":
		return equal
	case "!=":
		return !equal
	case "~":
		return contains
	default:
		return false
	}
}

func parsePredicateTime(v string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, v); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse("2006-01-02", v); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("time predicate expects RFC3339 or YYYY-MM-DD, got %q", v)
}

// compareTime treats a missing timestamp as matching only !=.
func compareTime(actual time.Time, op, expected string) bool {
	parsed, err := parsePredicateTime(expected)
	if err != nil {
		return false
	}
	if actual.IsZero() {
		return op == "!="
	}
	switch op {
	case "==":
		return actual.Equal(parsed)
	case "!=":
		return !actual.Equal(parsed)
	case ">":
		return actual.After(parsed)
	case ">=":
		return !actual.Before(parsed)
	case "<":
		return actual.Before(parsed)
	case "<=":
		return !actual.After(parsed)
	default:
		return false
	}
}

var sortFields = map[string]bool{
	"start": true, "end": true, "created_at": true, "status": true,
	"client": true, "service": true, "professional": true, "id": true,
}

func validateSort(field, order string) error {
	if field != "" && !sortFields[strings.ToLower(field)] {
		return fmt.Errorf("unsupported sort field: %s", field)
	}
	switch strings.ToLower(order) {
	case "", "asc", "desc":
		return nil
	}
	return fmt.Errorf("invalid order: %s", order)
}

// sortBookings is stable over the source's start-then-id order.
func sortBookings(items []contract.Booking, sortField, order string) {
	field := strings.ToLower(sortField)
	if field == "" {
		field = "start"
	}
	source.SortByStart(items)
	desc := strings.EqualFold(order, "desc")
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if desc {
			a, b = b, a
		}
		switch field {
		case "end":
			return a.EndTime.Before(b.EndTime)
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		case "status":
			return a.Status < b.Status
		case "client":
			return refSortKey(a.Client) < refSortKey(b.Client)
		case "service":
			return refSortKey(a.Service) < refSortKey(b.Service)
		case "professional":
			return refSortKey(a.Professional) < refSortKey(b.Professional)
		case "id":
			return a.ID < b.ID
		default:
			return a.StartTime.Before(b.StartTime)
		}
	})
}

func refSortKey(r contract.Ref) string {
	return strings.ToLower(r.Label(r.ID))
}
