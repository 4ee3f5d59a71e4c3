package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agis/bookcal/internal/calendar"
	"github.com/agis/bookcal/internal/contract"
)

func TestBuildICSContainsCalendarAndBooking(t *testing.T) {
	items := salonFixture(t).bookings
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	got := buildICS(items[:1], calendar.DefaultSettings(), now)
	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"UID:1\r\n",
		"DTSTAMP:20260215T120000Z\r\n",
		"DTSTART:20260216T090000Z\r\n",
		"DTEND:20260216T093000Z\r\n",
		"SUMMARY:Cut - Ana\r\n",
		"X-BOOKCAL-PROFESSIONAL:Rita\r\n",
		"STATUS:CONFIRMED\r\n",
		"END:VCALENDAR\r\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in ICS:\n%s", want, got)
		}
	}
}

func TestBuildICSEdgeCases(t *testing.T) {
	start := time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)
	items := []contract.Booking{
		{ID: "no-start"},
		{ID: "inverted", StartTime: start, EndTime: start.Add(-time.Hour), Status: contract.StatusPending, Notes: "bring photos, please; thanks"},
		{ID: "3", StartTime: start, EndTime: start.Add(time.Hour), Status: contract.StatusCancelled, Professional: contract.RefTo("p9")},
	}
	got := buildICS(items, calendar.DefaultSettings(), start)
	if strings.Contains(got, "UID:no-start") {
		t.Fatalf("bookings without a start must be skipped")
	}
	if !strings.Contains(got, "DTEND:20260220T090000Z") {
		t.Fatalf("inverted end should clamp to start:\n%s", got)
	}
	if !strings.Contains(got, "STATUS:TENTATIVE") || !strings.Contains(got, "STATUS:CANCELLED") {
		t.Fatalf("unexpected status mapping:\n%s", got)
	}
	if !strings.Contains(got, `DESCRIPTION:bring photos\, please\; thanks`) {
		t.Fatalf("notes should be escaped:\n%s", got)
	}
	if !strings.Contains(got, "SUMMARY:Service - Client") || !strings.Contains(got, "X-BOOKCAL-PROFESSIONAL:p9") {
		t.Fatalf("fallback labels expected:\n%s", got)
	}
}

func TestExportWritesFileWithoutCancelled(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	out := filepath.Join(t.TempDir(), "out.ics")
	stdout, _, err := runRoot(t, "export", "--from", "2026-02-16", "--to", "2026-02-22", "--tz", "UTC", "--out", out, "--json")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read file failed: %v", err)
	}
	if n := strings.Count(string(raw), "BEGIN:VEVENT"); n != 3 {
		t.Fatalf("expected 3 events without the cancelled one, got %d", n)
	}
	var res map[string]any
	decodeData(t, stdout, &res)
	if res["bookings"] != float64(3) {
		t.Fatalf("unexpected export result: %+v", res)
	}
}

func TestExportJSONContainsICS(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	stdout, _, err := runRoot(t, "export", "--from", "2026-02-16", "--to", "2026-02-22", "--include-cancelled", "--tz", "UTC", "--json")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	var res struct {
		ICS      string `json:"ics"`
		Bookings int    `json:"bookings"`
	}
	decodeData(t, stdout, &res)
	if res.Bookings != 4 || strings.Count(res.ICS, "BEGIN:VEVENT") != 4 {
		t.Fatalf("expected all four bookings, got %d", res.Bookings)
	}
}
