package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPresetsSaveListRunDelete(t *testing.T) {
	tmp := isolateConfig(t)
	src := salonFixture(t)
	useSource(t, src)

	out, _, err := runRoot(t, "presets", "save", "rita-week", "--from", "2026-02-16", "--to", "2026-02-22",
		"--professional", "Rita", "--where", "status!=cancelled", "--json")
	if err != nil {
		t.Fatalf("presets save failed: %v", err)
	}
	var saved bookingQuery
	decodeData(t, out, &saved)
	if saved.Name != "rita-week" || len(saved.Wheres) != 1 {
		t.Fatalf("unexpected saved preset: %+v", saved)
	}
	if _, err := os.Stat(filepath.Join(tmp, "config", "bookcal", "presets.json")); err != nil {
		t.Fatalf("presets file not written: %v", err)
	}
	if len(src.filters) != 0 {
		t.Fatalf("saving a preset must not query the source")
	}

	_, _, err = runRoot(t, "presets", "save", "rita-week", "--json")
	if code := ExitCode(err); code != exitInvalidUsage {
		t.Fatalf("duplicate save exit code = %d, want %d", code, exitInvalidUsage)
	}

	out, _, err = runRoot(t, "presets", "list", "--json")
	if err != nil {
		t.Fatalf("presets list failed: %v", err)
	}
	var listed []bookingQuery
	decodeData(t, out, &listed)
	if len(listed) != 1 || listed[0].Name != "rita-week" {
		t.Fatalf("unexpected presets: %+v", listed)
	}

	out, _, err = runRoot(t, "presets", "run", "rita-week", "--tz", "UTC", "--json")
	if err != nil {
		t.Fatalf("presets run failed: %v", err)
	}
	var rows []bookingRow
	decodeData(t, out, &rows)
	if len(rows) != 2 || rows[0].ID != "1" || rows[1].ID != "4" {
		t.Fatalf("unexpected preset rows: %+v", rows)
	}

	if _, _, err := runRoot(t, "presets", "delete", "rita-week", "--json"); err != nil {
		t.Fatalf("presets delete failed: %v", err)
	}
	_, _, err = runRoot(t, "presets", "run", "rita-week", "--json")
	if code := ExitCode(err); code != exitNotFound {
		t.Fatalf("run after delete exit code = %d, want %d", code, exitNotFound)
	}
}

func TestPresetsDeleteMissing(t *testing.T) {
	isolateConfig(t)

	_, _, err := runRoot(t, "presets", "delete", "nope", "--json")
	if code := ExitCode(err); code != exitNotFound {
		t.Fatalf("exit code = %d, want %d", code, exitNotFound)
	}
}
