package timeparse

import (
	"testing"
	"time"
)

func TestParseDateTime(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 2, 8, 15, 0, 0, 0, loc) // Sunday

	cases := []struct {
		in   string
		want string
	}{
		{"today", "2026-02-08T00:00:00Z"},
		{"tomorrow", "2026-02-09T00:00:00Z"},
		{"yesterday", "2026-02-07T00:00:00Z"},
		{"now", "2026-02-08T15:00:00Z"},
		{"+7d", "2026-02-15T00:00:00Z"},
		{"-2d", "2026-02-06T00:00:00Z"},
		{"+1w", "2026-02-15T00:00:00Z"},
		{"+1m", "2026-03-08T00:00:00Z"},
		{"monday", "2026-02-09T00:00:00Z"},
		{"sunday", "2026-02-08T00:00:00Z"},
		{"next sunday", "2026-02-15T00:00:00Z"},
		{"Fri", "2026-02-13T00:00:00Z"},
		{"2026-02-20", "2026-02-20T00:00:00Z"},
		{" 2026-02-20T09:30 ", "2026-02-20T09:30:00Z"},
		{"2026-02-20T09:30:00+02:00", "2026-02-20T07:30:00Z"},
	}

	for _, tc := range cases {
		got, err := ParseDateTime(tc.in, now, loc)
		if err != nil {
			t.Fatalf("ParseDateTime(%q) error: %v", tc.in, err)
		}
		if got.UTC().Format(time.RFC3339) != tc.want {
			t.Fatalf("ParseDateTime(%q) = %s, want %s", tc.in, got.UTC().Format(time.RFC3339), tc.want)
		}
	}
}

func TestParseDateTimeRejects(t *testing.T) {
	now := time.Date(2026, 2, 8, 15, 0, 0, 0, time.UTC)
	for _, in := range []string{"", "+d", "+3y", "next week", "20/02/2026"} {
		if _, err := ParseDateTime(in, now, time.UTC); err == nil {
			t.Fatalf("ParseDateTime(%q) expected error", in)
		}
	}
}

func TestParseDateTimeUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	now := time.Date(2026, 2, 8, 22, 0, 0, 0, time.UTC) // already Feb 9 at UTC+3
	got, err := ParseDateTime("today", now, loc)
	if err != nil {
		t.Fatalf("ParseDateTime error: %v", err)
	}
	if got.Format("2006-01-02") != "2026-02-09" {
		t.Fatalf("expected local date 2026-02-09, got %s", got)
	}
}

func TestIsDateOnly(t *testing.T) {
	for in, want := range map[string]bool{
		"2026-02-20":           true,
		"today":                true,
		"+3d":                  true,
		"now":                  false,
		"2026-02-20T09:30":     false,
		"2026-02-20 09:30":     false,
		"2026-02-20T09:30:00Z": false,
	} {
		if got := IsDateOnly(in); got != want {
			t.Fatalf("IsDateOnly(%q) = %v, want %v", in, got, want)
		}
	}
}
