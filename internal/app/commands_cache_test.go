package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agis/bookcal/internal/source"
)

func TestCacheImportThenInfo(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))
	db := filepath.Join(t.TempDir(), "cache.db")

	out, _, err := runRoot(t, "cache", "import", "--file", "bookings.json", "--db", db, "--json")
	if err != nil {
		t.Fatalf("cache import failed: %v", err)
	}
	var imported source.SnapshotInfo
	decodeData(t, out, &imported)
	if imported.Bookings != 4 || !imported.HasHours || imported.Origin != "file:bookings.json" {
		t.Fatalf("unexpected import info: %+v", imported)
	}

	out, _, err = runRoot(t, "cache", "info", "--db", db, "--json")
	if err != nil {
		t.Fatalf("cache info failed: %v", err)
	}
	var info source.SnapshotInfo
	decodeData(t, out, &info)
	if info.ID != imported.ID || info.Bookings != 4 {
		t.Fatalf("info = %+v, want snapshot %s", info, imported.ID)
	}

	cached, err := source.NewSQLiteSource(db).ListBookings(context.Background(), source.Filter{Professionals: []string{"rita"}})
	if err != nil {
		t.Fatalf("list cached bookings: %v", err)
	}
	if len(cached) != 2 {
		t.Fatalf("expected two Rita bookings in cache, got %d", len(cached))
	}
}

func TestCacheInfoWithoutSnapshot(t *testing.T) {
	isolateConfig(t)
	db := filepath.Join(t.TempDir(), "empty.db")

	_, stderr, err := runRoot(t, "cache", "info", "--db", db, "--json")
	if code := ExitCode(err); code != exitSourceUnavailable {
		t.Fatalf("exit code = %d, want %d", code, exitSourceUnavailable)
	}
	if !strings.Contains(stderr, "bookcal cache import") {
		t.Fatalf("expected import hint, got %s", stderr)
	}
}

func TestCacheImportRejectsSQLiteSource(t *testing.T) {
	isolateConfig(t)
	useSource(t, salonFixture(t))

	_, _, err := runRoot(t, "cache", "import", "--source", "sqlite", "--json")
	if code := ExitCode(err); code != exitInvalidUsage {
		t.Fatalf("exit code = %d, want %d", code, exitInvalidUsage)
	}
}
