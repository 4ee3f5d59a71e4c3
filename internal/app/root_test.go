package app

import (
	"testing"
	"time"

	"github.com/agis/bookcal/internal/source"
)

func TestBookingWindowDateOnlyToCoversDay(t *testing.T) {
	now := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)
	from, to, err := bookingWindow("2026-02-16", "2026-02-16", now, time.UTC)
	if err != nil {
		t.Fatalf("bookingWindow error: %v", err)
	}
	if got, want := from.Format(time.RFC3339), "2026-02-16T00:00:00Z"; got != want {
		t.Fatalf("from=%s want=%s", got, want)
	}
	if got, want := to.Format(time.RFC3339), "2026-02-16T23:59:59Z"; got != want {
		t.Fatalf("to=%s want=%s", got, want)
	}
}

func TestBookingWindowOpenAndInverted(t *testing.T) {
	now := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)
	from, to, err := bookingWindow("", "", now, time.UTC)
	if err != nil || !from.IsZero() || !to.IsZero() {
		t.Fatalf("expected open window, got %s..%s err=%v", from, to, err)
	}
	if _, _, err := bookingWindow("2026-02-16", "2026-02-15", now, time.UTC); err == nil {
		t.Fatalf("expected error for inverted window")
	}
	if _, _, err := bookingWindow("someday", "", now, time.UTC); err == nil {
		t.Fatalf("expected error for bad --from")
	}
}

func TestParseMonthOrDate(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 2, 11, 9, 0, 0, 0, loc)
	ts, err := parseMonthOrDate("2026-03", now, loc)
	if err != nil {
		t.Fatalf("parseMonthOrDate month error: %v", err)
	}
	if got, want := ts.Format(time.RFC3339), "2026-03-01T00:00:00Z"; got != want {
		t.Fatalf("got=%s want=%s", got, want)
	}
	ts, err = parseMonthOrDate("+7d", now, loc)
	if err != nil {
		t.Fatalf("parseMonthOrDate relative error: %v", err)
	}
	if got, want := ts.Format(time.RFC3339), "2026-02-18T00:00:00Z"; got != want {
		t.Fatalf("got=%s want=%s", got, want)
	}
}

func TestSplitCSVAndStatuses(t *testing.T) {
	if got := splitCSV(" a, ,b "); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected split: %v", got)
	}
	if got := splitCSV("  "); got != nil {
		t.Fatalf("expected nil for blank input, got %v", got)
	}
	st := parseStatuses("Confirmed,PENDING")
	if len(st) != 2 || st[0] != "confirmed" || st[1] != "pending" {
		t.Fatalf("unexpected statuses: %v", st)
	}
}

func TestWantsStructuredErrorOutput(t *testing.T) {
	cases := []struct {
		args []string
		want bool
	}{
		{[]string{"day", "--json"}, true},
		{[]string{"day", "--jsonl=true"}, true},
		{[]string{"day", "--plain"}, false},
		{[]string{"day", "--", "--json"}, false},
	}
	for _, tc := range cases {
		if got := wantsStructuredErrorOutput(tc.args); got != tc.want {
			t.Fatalf("wantsStructuredErrorOutput(%v) = %v, want %v", tc.args, got, tc.want)
		}
	}
}

func TestResolveLocation(t *testing.T) {
	loc, err := resolveLocation("")
	if err != nil || loc != time.Local {
		t.Fatalf("blank tz should resolve to local, got %v err=%v", loc, err)
	}
	loc, err = resolveLocation("UTC")
	if err != nil || loc.String() != "UTC" {
		t.Fatalf("expected UTC, got %v err=%v", loc, err)
	}
	if _, err := resolveLocation("Mars/Olympus"); err == nil {
		t.Fatalf("expected error for unknown tz")
	}
}

func TestSelectSource(t *testing.T) {
	isolateConfig(t)
	if src, err := selectSource(&globalOptions{Source: "", File: "b.json"}); err != nil {
		t.Fatalf("file source error: %v", err)
	} else if _, ok := src.(*source.FileSource); !ok {
		t.Fatalf("expected file source, got %T", src)
	}
	if src, err := selectSource(&globalOptions{Source: "HTTP", URL: "http://127.0.0.1:1"}); err != nil {
		t.Fatalf("http source error: %v", err)
	} else if _, ok := src.(*source.HTTPSource); !ok {
		t.Fatalf("expected http source, got %T", src)
	}
	src, err := selectSource(&globalOptions{Source: "sqlite", DB: "/tmp/x.db"})
	if err != nil {
		t.Fatalf("sqlite source error: %v", err)
	}
	if s, ok := src.(*source.SQLiteSource); !ok || s.Path != "/tmp/x.db" {
		t.Fatalf("expected sqlite source at --db, got %#v", src)
	}
	if _, err := selectSource(&globalOptions{Source: "mongo"}); err == nil {
		t.Fatalf("expected error for unknown source")
	}
}

func TestUnknownSourceIsUsageError(t *testing.T) {
	isolateConfig(t)
	_, _, err := runRoot(t, "hours", "--source", "mongo", "--json")
	if code := ExitCode(err); code != exitInvalidUsage {
		t.Fatalf("exit code = %d, want %d", code, exitInvalidUsage)
	}
}

func TestConflictingOutputFlags(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))
	_, _, err := runRoot(t, "hours", "--json", "--plain")
	if code := ExitCode(err); code != exitInvalidUsage {
		t.Fatalf("exit code = %d, want %d", code, exitInvalidUsage)
	}
}
