package calendar

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agis/bookcal/internal/contract"
)

// Partition selects the column axis of a layout.
type Partition string

const (
	PartitionNone         Partition = "none"
	PartitionProfessional Partition = "professional"
	PartitionService      Partition = "service"
)

func ParsePartition(v string) (Partition, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "none":
		return PartitionNone, nil
	case "professional", "pro", "staff":
		return PartitionProfessional, nil
	case "service":
		return PartitionService, nil
	default:
		return PartitionNone, fmt.Errorf("invalid partition: %s", v)
	}
}

type PlacedBooking struct {
	ID                string          `json:"id"`
	Status            contract.Status `json:"status"`
	Tone              Tone            `json:"tone"`
	Start             time.Time       `json:"start"`
	End               time.Time       `json:"end"`
	Day               string          `json:"day"`
	Hour              int             `json:"hour"`
	OffsetMin         int             `json:"offset_min"`
	DurationMin       int             `json:"duration_min"`
	Height            int             `json:"height"`
	ClientLabel       string          `json:"client"`
	ServiceLabel      string          `json:"service"`
	ProfessionalLabel string          `json:"professional"`
}

// CollapsedGroup stands in for several bookings sharing one day and hour
// cell. Bookings keep their input order.
type CollapsedGroup struct {
	Count    int             `json:"count"`
	Bookings []PlacedBooking `json:"bookings"`
}

type EntryKind string

const (
	EntryBooking EntryKind = "booking"
	EntryGroup   EntryKind = "group"
)

// Entry is either a single placed booking or a collapsed group.
type Entry struct {
	Kind    EntryKind       `json:"kind"`
	Hour    int             `json:"hour"`
	Booking *PlacedBooking  `json:"booking,omitempty"`
	Group   *CollapsedGroup `json:"group,omitempty"`
}

// Bookings flattens the entry back into the bookings it represents.
func (e Entry) Bookings() []PlacedBooking {
	switch {
	case e.Group != nil:
		return e.Group.Bookings
	case e.Booking != nil:
		return []PlacedBooking{*e.Booking}
	default:
		return nil
	}
}

type Column struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Sentinel bool   `json:"sentinel,omitempty"`
}

// PlaceBookings maps each booking onto its column. With PartitionNone the
// key is the booking's start day and bookings that share a start hour are
// collapsed into one group; otherwise the key is the professional or service
// column and every booking is its own entry, sorted by start then id.
// Bookings without a parseable start are skipped.
func PlaceBookings(bookings []contract.Booking, r HourRange, by Partition) map[string][]Entry {
	return DefaultSettings().PlaceBookings(bookings, r, by, time.UTC)
}

func (s Settings) PlaceBookings(bookings []contract.Booking, r HourRange, by Partition, loc *time.Location) map[string][]Entry {
	s = s.withDefaults()
	r = normalizeRange(r)
	if loc == nil {
		loc = time.UTC
	}
	if by == PartitionNone {
		return s.placeByCell(bookings, r, loc)
	}

	grouped := map[string][]PlacedBooking{}
	for _, b := range bookings {
		if !b.HasStart() {
			continue
		}
		col := s.columnFor(b, by)
		grouped[col.Key] = append(grouped[col.Key], s.place(b, r, loc))
	}
	out := make(map[string][]Entry, len(grouped))
	for key, items := range grouped {
		sortPlaced(items)
		entries := make([]Entry, 0, len(items))
		for i := range items {
			entries = append(entries, Entry{Kind: EntryBooking, Hour: items[i].Hour, Booking: &items[i]})
		}
		out[key] = entries
	}
	return out
}

func (s Settings) placeByCell(bookings []contract.Booking, r HourRange, loc *time.Location) map[string][]Entry {
	type cell struct {
		hour  int
		items []PlacedBooking
	}
	days := map[string]map[int]*cell{}
	for _, b := range bookings {
		if !b.HasStart() {
			continue
		}
		pb := s.place(b, r, loc)
		hours, ok := days[pb.Day]
		if !ok {
			hours = map[int]*cell{}
			days[pb.Day] = hours
		}
		c, ok := hours[pb.Hour]
		if !ok {
			c = &cell{hour: pb.Hour}
			hours[pb.Hour] = c
		}
		c.items = append(c.items, pb)
	}

	out := make(map[string][]Entry, len(days))
	for day, hours := range days {
		cells := make([]*cell, 0, len(hours))
		for _, c := range hours {
			cells = append(cells, c)
		}
		sort.Slice(cells, func(i, j int) bool { return cells[i].hour < cells[j].hour })
		entries := make([]Entry, 0, len(cells))
		for _, c := range cells {
			if len(c.items) == 1 {
				entries = append(entries, Entry{Kind: EntryBooking, Hour: c.hour, Booking: &c.items[0]})
				continue
			}
			entries = append(entries, Entry{
				Kind:  EntryGroup,
				Hour:  c.hour,
				Group: &CollapsedGroup{Count: len(c.items), Bookings: c.items},
			})
		}
		out[day] = entries
	}
	return out
}

func (s Settings) place(b contract.Booking, r HourRange, loc *time.Location) PlacedBooking {
	start := b.StartTime.In(loc)
	end := b.EndTime
	if !end.IsZero() {
		end = end.In(loc)
	}
	duration := 0
	if !end.IsZero() {
		duration = b.DurationMinutes()
	}
	return PlacedBooking{
		ID:                b.ID,
		Status:            b.Status,
		Tone:              StatusTone(b.Status),
		Start:             start,
		End:               end,
		Day:               dayKey(start),
		Hour:              start.Hour(),
		OffsetMin:         MinutesFromRangeStart(start, r),
		DurationMin:       duration,
		Height:            max(s.MinHeight, duration),
		ClientLabel:       b.Client.Label(s.ClientLabel),
		ServiceLabel:      b.Service.Label(s.ServiceLabel),
		ProfessionalLabel: b.Professional.Label(s.ProfessionalLabel),
	}
}

// columnFor labels id-only references with their id so distinct columns stay
// distinguishable.
func (s Settings) columnFor(b contract.Booking, by Partition) Column {
	ref := b.Professional
	sentinel := Column{Key: s.UnassignedKey, Label: s.UnassignedLabel, Sentinel: true}
	if by == PartitionService {
		ref = b.Service
		sentinel = Column{Key: s.NoServiceKey, Label: s.NoServiceLabel, Sentinel: true}
	}
	key := ref.Key()
	if !ref.Present() || key == "" {
		return sentinel
	}
	return Column{Key: key, Label: ref.Label(key)}
}

// Columns lists the distinct columns present in bookings, sorted by label
// then key, with the sentinel column last.
func (s Settings) Columns(bookings []contract.Booking, by Partition) []Column {
	s = s.withDefaults()
	if by == PartitionNone {
		return []Column{{Key: "all", Label: "All"}}
	}
	seen := map[string]Column{}
	for _, b := range bookings {
		if !b.HasStart() {
			continue
		}
		col := s.columnFor(b, by)
		if _, ok := seen[col.Key]; !ok {
			seen[col.Key] = col
		}
	}
	cols := make([]Column, 0, len(seen))
	for _, c := range seen {
		cols = append(cols, c)
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].Sentinel != cols[j].Sentinel {
			return !cols[i].Sentinel
		}
		li, lj := strings.ToLower(cols[i].Label), strings.ToLower(cols[j].Label)
		if li != lj {
			return li < lj
		}
		return cols[i].Key < cols[j].Key
	})
	return cols
}

func sortPlaced(items []PlacedBooking) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Start.Equal(items[j].Start) {
			return items[i].Start.Before(items[j].Start)
		}
		return lessID(items[i].ID, items[j].ID)
	})
}

// lessID orders numeric ids numerically and everything else as text.
func lessID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

type DayColumn struct {
	Column
	Bookings []PlacedBooking `json:"bookings"`
}

type DayLayout struct {
	Date      string      `json:"date"`
	Partition Partition   `json:"partition"`
	Range     HourRange   `json:"range"`
	Rows      []int       `json:"rows"`
	Columns   []DayColumn `json:"columns"`
	Skipped   []string    `json:"skipped,omitempty"`
}

// PlaceDay lays out the bookings starting on day's calendar date.
// Overlapping bookings in a column are all kept as separate entries.
func (s Settings) PlaceDay(bookings []contract.Booking, day time.Time, r HourRange, by Partition) DayLayout {
	s = s.withDefaults()
	loc := day.Location()
	key := dayKey(day)
	layout := DayLayout{Date: key, Partition: by, Range: normalizeRange(r), Rows: BuildHourRows(r)}

	var todays []contract.Booking
	for _, b := range bookings {
		if !b.HasStart() {
			layout.Skipped = append(layout.Skipped, b.ID)
			continue
		}
		if dayKey(b.StartTime.In(loc)) == key {
			todays = append(todays, b)
		}
	}

	if by == PartitionNone {
		items := make([]PlacedBooking, 0, len(todays))
		for _, b := range todays {
			items = append(items, s.place(b, r, loc))
		}
		sortPlaced(items)
		layout.Columns = []DayColumn{{Column: Column{Key: "all", Label: "All"}, Bookings: items}}
		return layout
	}

	placed := s.PlaceBookings(todays, r, by, loc)
	for _, col := range s.Columns(todays, by) {
		dc := DayColumn{Column: col, Bookings: []PlacedBooking{}}
		for _, e := range placed[col.Key] {
			dc.Bookings = append(dc.Bookings, e.Bookings()...)
		}
		layout.Columns = append(layout.Columns, dc)
	}
	return layout
}
