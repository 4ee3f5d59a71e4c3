package app

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/agis/bookcal/internal/contract"
	"github.com/agis/bookcal/internal/source"
)

type fakeSource struct {
	checks    []contract.DoctorCheck
	doctorErr error
	bookings  []contract.Booking
	hours     *contract.WorkingHours
	listErr   error
	filters   []source.Filter
}

func (f *fakeSource) Doctor(context.Context) ([]contract.DoctorCheck, error) {
	return f.checks, f.doctorErr
}

func (f *fakeSource) ListBookings(_ context.Context, flt source.Filter) ([]contract.Booking, error) {
	f.filters = append(f.filters, flt)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return flt.Apply(f.bookings), nil
}

func (f *fakeSource) GetBooking(_ context.Context, id string) (*contract.Booking, error) {
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			b := f.bookings[i]
			return &b, nil
		}
	}
	return nil, source.ErrNotFound
}

func (f *fakeSource) WorkingHours(context.Context) (*contract.WorkingHours, error) {
	return f.hours, nil
}

type blockingSource struct{}

func (blockingSource) Doctor(context.Context) ([]contract.DoctorCheck, error) {
	return []contract.DoctorCheck{{Name: "ok", Status: "ok"}}, nil
}

func (blockingSource) ListBookings(ctx context.Context, _ source.Filter) ([]contract.Booking, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingSource) GetBooking(ctx context.Context, _ string) (*contract.Booking, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingSource) WorkingHours(ctx context.Context) (*contract.WorkingHours, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// isolateConfig keeps user config, presets and the cache inside a temp dir.
func isolateConfig(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", tmp+"/config")
	t.Setenv("XDG_CACHE_HOME", tmp+"/cache")
	for _, k := range []string{"BOOKCAL_PROFILE", "BOOKCAL_CONFIG", "BOOKCAL_SOURCE", "BOOKCAL_FILE", "BOOKCAL_URL", "BOOKCAL_TOKEN", "BOOKCAL_DB", "BOOKCAL_TIMEZONE", "BOOKCAL_FIELDS", "BOOKCAL_WEEK_START", "BOOKCAL_TIMEOUT", "BOOKCAL_OUTPUT"} {
		t.Setenv(k, "")
	}
	return tmp
}

func useSource(t *testing.T, src source.Source) {
	t.Helper()
	orig := sourceFactory
	sourceFactory = func(*globalOptions) (source.Source, error) { return src, nil }
	t.Cleanup(func() { sourceFactory = orig })
}

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func decodeData(t *testing.T, raw string, into any) {
	t.Helper()
	env := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v\n%s", err, raw)
	}
	if err := json.Unmarshal(env.Data, into); err != nil {
		t.Fatalf("unmarshal data: %v\n%s", err, env.Data)
	}
}

// salonFixture holds four bookings in the week of Monday 2026-02-16 (UTC).
func salonFixture(t *testing.T) *fakeSource {
	t.Helper()
	var items []contract.Booking
	raw := `[
		{"id":"1","startTime":"2026-02-16T09:00:00Z","endTime":"2026-02-16T09:30:00Z","status":"confirmed","createdAt":"2026-01-20T08:00:00Z",
		 "client":{"_id":"c1","name":"Ana"},"service":{"_id":"s1","name":"Cut","price":25},"professional":{"_id":"p1","name":"Rita"}},
		{"id":"2","startTime":"2026-02-16T09:15:00Z","endTime":"2026-02-16T10:00:00Z","status":"completed","createdAt":"2026-02-01T08:00:00Z",
		 "client":{"_id":"c2","name":"Bea"},"service":{"_id":"s2","name":"Color"},"professional":{"_id":"p2","name":"Sofia"},"pricing":{"totalPrice":40}},
		{"id":"3","startTime":"2026-02-18T14:00:00Z","endTime":"2026-02-18T15:00:00Z","status":"cancelled","createdAt":"2026-02-02T08:00:00Z",
		 "client":"c3","service":"s1","professional":"p1","pricing":{"totalPrice":99}},
		{"id":"4","startTime":"2026-02-19T11:00:00Z","endTime":"2026-02-19T11:45:00Z","status":"pending","createdAt":"2026-02-10T08:00:00Z",
		 "client":{"_id":"c1","name":"Ana"},"service":{"_id":"s2","name":"Color"},"professional":{"_id":"p1","name":"Rita"},
		 "recurrence":{"isRecurring":true,"frequency":"weekly","interval":1,"currentOccurrence":1,"totalOccurrences":3}}
	]`
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return &fakeSource{
		checks:   []contract.DoctorCheck{{Name: "snapshot_file", Status: "ok"}, {Name: "snapshot_decode", Status: "ok"}},
		bookings: items,
		hours: contract.WeeklyHours(map[time.Weekday]contract.DayHours{
			time.Monday:    {Enabled: true, Start: "08:00", End: "17:00"},
			time.Wednesday: {Enabled: true, Start: "10:00", End: "20:00"},
		}),
	}
}
