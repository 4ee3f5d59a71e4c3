package app

import (
	"strings"
	"testing"

	"github.com/agis/bookcal/internal/calendar"
	"github.com/agis/bookcal/internal/stats"
)

func TestHoursCommandUnionAndDate(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	out, _, err := runRoot(t, "hours", "--tz", "UTC", "--json")
	if err != nil {
		t.Fatalf("hours failed: %v", err)
	}
	var union hoursResult
	decodeData(t, out, &union)
	if union.Range != (calendar.HourRange{Start: 8, End: 20}) {
		t.Fatalf("union range = %+v, want 8..20", union.Range)
	}
	if len(union.Rows) != 13 || union.Labels[0] != "08:00" {
		t.Fatalf("unexpected rows/labels: %v %v", union.Rows, union.Labels)
	}

	out, _, err = runRoot(t, "hours", "--date", "2026-02-18", "--tz", "UTC", "--json")
	if err != nil {
		t.Fatalf("hours --date failed: %v", err)
	}
	var wed hoursResult
	decodeData(t, out, &wed)
	if wed.Date != "2026-02-18" || wed.Range != (calendar.HourRange{Start: 10, End: 20}) {
		t.Fatalf("wednesday range = %+v", wed)
	}
}

func TestHoursCommandFallsBackWithoutWorkingHours(t *testing.T) {
	isolateConfig(t)
	src := salonFixture(t)
	src.hours = nil
	useSource(t, src)

	out, _, err := runRoot(t, "hours", "--json")
	if err != nil {
		t.Fatalf("hours failed: %v", err)
	}
	var res hoursResult
	decodeData(t, out, &res)
	if res.Range != (calendar.HourRange{Start: 9, End: 18}) {
		t.Fatalf("fallback range = %+v", res.Range)
	}
	if !strings.Contains(out, "default range applies") {
		t.Fatalf("expected fallback warning: %s", out)
	}
}

func TestDayCommandPartitionsByProfessional(t *testing.T) {
	isolateConfig(t)
	src := salonFixture(t)
	useSource(t, src)

	out, _, err := runRoot(t, "day", "--date", "2026-02-16", "--tz", "UTC", "--json")
	if err != nil {
		t.Fatalf("day failed: %v", err)
	}
	var layout calendar.DayLayout
	decodeData(t, out, &layout)
	if layout.Date != "2026-02-16" || layout.Range != (calendar.HourRange{Start: 8, End: 17}) {
		t.Fatalf("unexpected header: %+v", layout)
	}
	if len(layout.Columns) != 2 || layout.Columns[0].Label != "Rita" || layout.Columns[1].Label != "Sofia" {
		t.Fatalf("unexpected columns: %+v", layout.Columns)
	}
	if got := layout.Columns[0].Bookings; len(got) != 1 || got[0].ID != "1" || got[0].OffsetMin != 60 {
		t.Fatalf("unexpected Rita column: %+v", got)
	}
	if len(src.filters) != 1 || src.filters[0].From.Format("2006-01-02") != "2026-02-16" {
		t.Fatalf("expected one day-bounded list call, got %+v", src.filters)
	}
}

func TestDayCommandRejectsBadPartition(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	_, _, err := runRoot(t, "day", "--by", "room", "--json")
	if code := ExitCode(err); code != exitInvalidUsage {
		t.Fatalf("exit code = %d, want %d (err=%v)", code, exitInvalidUsage, err)
	}
}

func TestWeekCommandCollapsesSameHour(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	out, _, err := runRoot(t, "week", "--of", "2026-02-18", "--tz", "UTC", "--json")
	if err != nil {
		t.Fatalf("week failed: %v", err)
	}
	var layout calendar.WeekLayout
	decodeData(t, out, &layout)
	if layout.From != "2026-02-16" || layout.To != "2026-02-22" || len(layout.Days) != 7 {
		t.Fatalf("unexpected week bounds: %s..%s days=%d", layout.From, layout.To, len(layout.Days))
	}
	monday := layout.Days[0].Entries
	if len(monday) != 1 || monday[0].Kind != calendar.EntryGroup || monday[0].Group.Count != 2 {
		t.Fatalf("expected one group of two on monday, got %+v", monday)
	}
	if ids := []string{monday[0].Group.Bookings[0].ID, monday[0].Group.Bookings[1].ID}; ids[0] != "1" || ids[1] != "2" {
		t.Fatalf("group order = %v", ids)
	}
	if len(layout.Days[2].Entries) != 1 || layout.Days[2].Entries[0].Booking.ID != "3" {
		t.Fatalf("unexpected wednesday: %+v", layout.Days[2].Entries)
	}
}

func TestWeekCommandSundayStart(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	out, _, err := runRoot(t, "week", "--of", "2026-02-18", "--week-start", "sunday", "--tz", "UTC", "--json")
	if err != nil {
		t.Fatalf("week failed: %v", err)
	}
	var layout calendar.WeekLayout
	decodeData(t, out, &layout)
	if layout.From != "2026-02-15" || layout.Days[0].Weekday != "sunday" {
		t.Fatalf("unexpected sunday week: %s %s", layout.From, layout.Days[0].Weekday)
	}
}

func TestMonthCommandGrid(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	out, _, err := runRoot(t, "month", "--month", "2026-02", "--tz", "UTC", "--json")
	if err != nil {
		t.Fatalf("month failed: %v", err)
	}
	var layout calendar.MonthLayout
	decodeData(t, out, &layout)
	if layout.Month != "2026-02" || layout.Total != 4 {
		t.Fatalf("unexpected month: %s total=%d", layout.Month, layout.Total)
	}
	if first := layout.Weeks[0][0]; first.Date != "2026-01-26" || first.InMonth {
		t.Fatalf("unexpected first cell: %+v", first)
	}
	var found bool
	for _, week := range layout.Weeks {
		for _, cell := range week {
			if cell.Date == "2026-02-16" {
				found = cell.Total == 2 && len(cell.Bookings) == 2
			}
		}
	}
	if !found {
		t.Fatalf("expected two bookings on 2026-02-16")
	}
}

func TestWeekSummaryCountsPerDay(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	out, _, err := runRoot(t, "view", "week", "--of", "2026-02-16", "--summary", "--tz", "UTC", "--json")
	if err != nil {
		t.Fatalf("view week failed: %v", err)
	}
	var rows []stats.DaySummary
	decodeData(t, out, &rows)
	if len(rows) != 7 {
		t.Fatalf("expected 7 day rows, got %d", len(rows))
	}
	if rows[0].Total != 2 || rows[0].Confirmed != 1 || rows[0].Completed != 1 {
		t.Fatalf("unexpected monday summary: %+v", rows[0])
	}
}

func TestDayPlainOutput(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	out, _, err := runRoot(t, "day", "--date", "2026-02-16", "--tz", "UTC", "--plain")
	if err != nil {
		t.Fatalf("day failed: %v", err)
	}
	for _, want := range []string{"2026-02-16 by professional (08:00-17:00)", "== Rita (1)", "09:00-09:30  Ana  Cut  [confirmed]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in plain output:\n%s", want, out)
		}
	}
}
