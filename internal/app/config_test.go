package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/agis/bookcal/internal/calendar"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	tmp := isolateConfig(t)
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return tmp
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveGlobalOptionsPrecedence(t *testing.T) {
	tmp := chdirTemp(t)
	t.Setenv("BOOKCAL_SOURCE", "http")
	t.Setenv("BOOKCAL_OUTPUT", "jsonl")

	writeFile(t, filepath.Join(tmp, "config", "bookcal", "config.toml"), "source='sqlite'\noutput='plain'\nurl='https://user.example'\n")
	writeFile(t, filepath.Join(tmp, ".bookcal.toml"), "file='project.json'\nfields='id,status'\n")

	defaults := &globalOptions{Profile: "default", Source: "file", SchemaVersion: "v1", JSON: true}
	cmd := newTestCmd()
	if err := cmd.ParseFlags([]string{"--source", "file", "--json"}); err != nil {
		t.Fatal(err)
	}

	resolved, err := resolveGlobalOptions(cmd, defaults)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Source != "file" {
		t.Fatalf("expected flag source, got %q", resolved.Source)
	}
	if !resolved.JSON || resolved.JSONL || resolved.Plain {
		t.Fatalf("expected JSON mode from flag override, got json=%v jsonl=%v plain=%v", resolved.JSON, resolved.JSONL, resolved.Plain)
	}
	if resolved.Fields != "id,status" || resolved.File != "project.json" {
		t.Fatalf("expected project config values, got fields=%q file=%q", resolved.Fields, resolved.File)
	}
	if resolved.URL != "https://user.example" {
		t.Fatalf("expected url from user config, got %q", resolved.URL)
	}
}

func TestResolveGlobalOptionsEnvOverridesFiles(t *testing.T) {
	tmp := chdirTemp(t)
	t.Setenv("BOOKCAL_SOURCE", "http")
	t.Setenv("BOOKCAL_TIMEOUT", "3s")
	writeFile(t, filepath.Join(tmp, ".bookcal.toml"), "source='sqlite'\ntimeout='1m'\n")

	resolved, err := resolveGlobalOptions(newTestCmd(), &globalOptions{Profile: "default", Source: "file"})
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Source != "http" || resolved.Timeout != 3*time.Second {
		t.Fatalf("expected env to win, got source=%q timeout=%s", resolved.Source, resolved.Timeout)
	}
}

func TestResolveGlobalOptionsProfile(t *testing.T) {
	tmp := chdirTemp(t)
	t.Setenv("BOOKCAL_PROFILE", "salon2")

	cfg := "source='file'\nfile='main.json'\n[profiles.salon2]\nsource='http'\nurl='https://salon2.example'\n"
	writeFile(t, filepath.Join(tmp, ".bookcal.toml"), cfg)

	resolved, err := resolveGlobalOptions(newTestCmd(), &globalOptions{Profile: "default", Source: "file"})
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Profile != "salon2" {
		t.Fatalf("expected salon2 profile, got %q", resolved.Profile)
	}
	if resolved.Source != "http" || resolved.URL != "https://salon2.example" || resolved.File != "main.json" {
		t.Fatalf("unexpected profile merge: %+v", resolved)
	}
}

func TestResolveGlobalOptionsLayout(t *testing.T) {
	tmp := chdirTemp(t)
	writeFile(t, filepath.Join(tmp, "alt.toml"), "[layout]\ndefault_start_hour=7\nmax_visible=0\nclient_label='Guest'\n")

	cmd := newTestCmd()
	if err := cmd.ParseFlags([]string{"--config", filepath.Join(tmp, "alt.toml")}); err != nil {
		t.Fatal(err)
	}
	resolved, err := resolveGlobalOptions(cmd, &globalOptions{Profile: "default", Config: filepath.Join(tmp, "alt.toml")})
	if err != nil {
		t.Fatal(err)
	}
	want := calendar.DefaultSettings()
	want.DefaultStartHour = 7
	want.MaxVisible = 0
	want.ClientLabel = "Guest"
	if resolved.Layout != want {
		t.Fatalf("layout = %+v, want %+v", resolved.Layout, want)
	}
}

func TestLayoutConfigReachesCommands(t *testing.T) {
	tmp := chdirTemp(t)
	src := salonFixture(t)
	src.hours = nil
	useSource(t, src)
	writeFile(t, filepath.Join(tmp, ".bookcal.toml"), "[layout]\ndefault_start_hour=6\ndefault_end_hour=12\n")

	out, _, err := runRoot(t, "hours", "--json")
	if err != nil {
		t.Fatalf("hours failed: %v", err)
	}
	var res hoursResult
	decodeData(t, out, &res)
	if res.Range != (calendar.HourRange{Start: 6, End: 12}) {
		t.Fatalf("expected configured fallback range, got %+v", res.Range)
	}
}

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Bool("json", false, "")
	cmd.Flags().Bool("jsonl", false, "")
	cmd.Flags().Bool("plain", false, "")
	cmd.Flags().String("fields", "", "")
	cmd.Flags().Bool("quiet", false, "")
	cmd.Flags().Bool("verbose", false, "")
	cmd.Flags().Bool("no-color", false, "")
	cmd.Flags().Bool("fail-on-degraded", false, "")
	cmd.Flags().String("profile", "default", "")
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("source", "file", "")
	cmd.Flags().String("file", "", "")
	cmd.Flags().String("url", "", "")
	cmd.Flags().String("token", "", "")
	cmd.Flags().String("db", "", "")
	cmd.Flags().String("tz", "", "")
	cmd.Flags().String("week-start", "monday", "")
	cmd.Flags().Duration("timeout", 15*time.Second, "")
	cmd.Flags().String("schema-version", "v1", "")
	return cmd
}
