package app

import (
	"strings"
	"testing"

	"github.com/agis/bookcal/internal/contract"
	"github.com/agis/bookcal/internal/stats"
)

func TestStatsCommandAll(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	out, _, err := runRoot(t, "stats", "--json")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	var res statsResult
	decodeData(t, out, &res)
	if res.Total != 4 || res.Revenue != 40 {
		t.Fatalf("total=%d revenue=%v, want 4 and 40", res.Total, res.Revenue)
	}
	if len(res.Counts) != 4 {
		t.Fatalf("expected four display statuses, got %+v", res.Counts)
	}
	for _, sc := range res.Counts {
		if sc.Count != 1 {
			t.Fatalf("status %s count = %d, want 1", sc.Status, sc.Count)
		}
	}
}

func TestStatsCommandRangeAndDaily(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	out, _, err := runRoot(t, "stats", "--from", "2026-02-16", "--to", "2026-02-17", "--daily", "--tz", "UTC", "--json")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	var res statsResult
	decodeData(t, out, &res)
	if res.Total != 2 || res.Revenue != 40 || res.From != "2026-02-16" || res.To != "2026-02-17" {
		t.Fatalf("unexpected range stats: %+v", res)
	}
	if len(res.Days) != 2 || res.Days[0].Total != 2 || res.Days[1].Total != 0 {
		t.Fatalf("unexpected daily rows: %+v", res.Days)
	}
	if res.ByStatus[contract.StatusCancelled] != 0 {
		t.Fatalf("cancelled booking is outside the range: %+v", res.ByStatus)
	}
}

func TestStatsDailyRequiresBounds(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	_, stderr, err := runRoot(t, "stats", "--daily", "--json")
	if code := ExitCode(err); code != exitInvalidUsage {
		t.Fatalf("exit code = %d, want %d", code, exitInvalidUsage)
	}
	if !strings.Contains(stderr, "--daily requires") {
		t.Fatalf("unexpected stderr: %s", stderr)
	}
}

func TestStatsPlainOutput(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	out, _, err := runRoot(t, "stats", "--plain")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.HasPrefix(out, "total=4 revenue=40.00\n") {
		t.Fatalf("unexpected plain stats:\n%s", out)
	}
}

func TestRevenueCommandBucketsByCreationMonth(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	out, _, err := runRoot(t, "revenue", "--months", "2", "--as-of", "2026-02", "--tz", "UTC", "--json")
	if err != nil {
		t.Fatalf("revenue failed: %v", err)
	}
	var rows []stats.MonthRevenue
	decodeData(t, out, &rows)
	if len(rows) != 2 {
		t.Fatalf("expected 2 months, got %+v", rows)
	}
	if rows[0].Month != "2026-01" || rows[0].Bookings != 1 || rows[0].Revenue != 0 {
		t.Fatalf("unexpected january: %+v", rows[0])
	}
	if rows[1].Month != "2026-02" || rows[1].Label != "Feb" || rows[1].Bookings != 3 || rows[1].Revenue != 40 {
		t.Fatalf("unexpected february: %+v", rows[1])
	}
}

func TestRevenueCommandRejectsMonths(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	for _, months := range []string{"0", "121"} {
		_, _, err := runRoot(t, "revenue", "--months", months, "--json")
		if code := ExitCode(err); code != exitInvalidUsage {
			t.Fatalf("--months %s: exit code = %d, want %d", months, code, exitInvalidUsage)
		}
	}
}

func TestWeekdaysCommand(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	out, _, err := runRoot(t, "weekdays", "--tz", "UTC", "--json")
	if err != nil {
		t.Fatalf("weekdays failed: %v", err)
	}
	var rows []stats.WeekdayCount
	decodeData(t, out, &rows)
	if len(rows) != 7 || rows[0].Weekday != "monday" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	want := []int{2, 0, 1, 1, 0, 0, 0}
	for i, n := range want {
		if rows[i].Count != n {
			t.Fatalf("%s count = %d, want %d", rows[i].Weekday, rows[i].Count, n)
		}
	}
}
