package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/agis/bookcal/internal/calendar"
)

type fileConfig struct {
	Source    string                `toml:"source"`
	File      string                `toml:"file"`
	URL       string                `toml:"url"`
	Token     string                `toml:"token"`
	DB        string                `toml:"db"`
	TZ        string                `toml:"tz"`
	Output    string                `toml:"output"`
	Fields    string                `toml:"fields"`
	WeekStart string                `toml:"week_start"`
	Timeout   string                `toml:"timeout"`
	Profile   string                `toml:"profile"`
	Layout    *layoutConfig         `toml:"layout"`
	Profiles  map[string]fileConfig `toml:"profiles"`
}

// layoutConfig overrides calendar.Settings; unset keys keep the defaults.
type layoutConfig struct {
	DefaultStartHour  *int   `toml:"default_start_hour"`
	DefaultEndHour    *int   `toml:"default_end_hour"`
	MinHeight         *int   `toml:"min_height"`
	MaxVisible        *int   `toml:"max_visible"`
	ClientLabel       string `toml:"client_label"`
	ServiceLabel      string `toml:"service_label"`
	ProfessionalLabel string `toml:"professional_label"`
	UnassignedLabel   string `toml:"unassigned_label"`
	NoServiceLabel    string `toml:"no_service_label"`
}

func resolveGlobalOptions(cmd *cobra.Command, defaults *globalOptions) (*globalOptions, error) {
	resolved := *defaults
	if resolved.Layout == (calendar.Settings{}) {
		resolved.Layout = calendar.DefaultSettings()
	}

	profile := firstNonEmpty(env("BOOKCAL_PROFILE"), defaults.Profile)
	if flagValueChanged(cmd, "profile") {
		profile = defaults.Profile
	}
	if profile == "" {
		profile = "default"
	}
	resolved.Profile = profile

	userPath := defaultUserConfigPath()
	projectPath := ".bookcal.toml"
	configPath := firstNonEmpty(env("BOOKCAL_CONFIG"), userPath)
	if flagValueChanged(cmd, "config") {
		configPath = defaults.Config
	}

	if cfg, ok := readConfigFile(userPath); ok {
		applyFileConfig(&resolved, cfg, profile)
	}
	if cfg, ok := readConfigFile(projectPath); ok {
		applyFileConfig(&resolved, cfg, profile)
	}
	if configPath != "" && configPath != userPath && configPath != projectPath {
		if cfg, ok := readConfigFile(configPath); ok {
			applyFileConfig(&resolved, cfg, profile)
		}
	}

	applyEnv(&resolved)
	applyFlags(cmd, &resolved, defaults)

	if resolved.Config == "" {
		resolved.Config = configPath
	}
	return &resolved, nil
}

func applyFileConfig(dst *globalOptions, cfg fileConfig, profile string) {
	if p, ok := cfg.Profiles[profile]; ok {
		cfg = mergeFileConfig(cfg, p)
	}
	setIfNotEmpty(&dst.Source, cfg.Source)
	setIfNotEmpty(&dst.File, cfg.File)
	setIfNotEmpty(&dst.URL, cfg.URL)
	setIfNotEmpty(&dst.Token, cfg.Token)
	setIfNotEmpty(&dst.DB, cfg.DB)
	setIfNotEmpty(&dst.TZ, cfg.TZ)
	setIfNotEmpty(&dst.Fields, cfg.Fields)
	setIfNotEmpty(&dst.WeekStart, cfg.WeekStart)
	if d, err := time.ParseDuration(strings.TrimSpace(cfg.Timeout)); err == nil {
		dst.Timeout = d
	}
	applyOutputMode(dst, cfg.Output)
	if cfg.Layout != nil {
		dst.Layout = applyLayout(dst.Layout, *cfg.Layout)
	}
}

func mergeFileConfig(base, overlay fileConfig) fileConfig {
	setIfNotEmpty(&base.Source, overlay.Source)
	setIfNotEmpty(&base.File, overlay.File)
	setIfNotEmpty(&base.URL, overlay.URL)
	setIfNotEmpty(&base.Token, overlay.Token)
	setIfNotEmpty(&base.DB, overlay.DB)
	setIfNotEmpty(&base.TZ, overlay.TZ)
	setIfNotEmpty(&base.Output, overlay.Output)
	setIfNotEmpty(&base.Fields, overlay.Fields)
	setIfNotEmpty(&base.WeekStart, overlay.WeekStart)
	setIfNotEmpty(&base.Timeout, overlay.Timeout)
	setIfNotEmpty(&base.Profile, overlay.Profile)
	if overlay.Layout != nil {
		if base.Layout == nil {
			base.Layout = overlay.Layout
		} else {
			merged := mergeLayout(*base.Layout, *overlay.Layout)
			base.Layout = &merged
		}
	}
	return base
}

func mergeLayout(base, overlay layoutConfig) layoutConfig {
	if overlay.DefaultStartHour != nil {
		base.DefaultStartHour = overlay.DefaultStartHour
	}
	if overlay.DefaultEndHour != nil {
		base.DefaultEndHour = overlay.DefaultEndHour
	}
	if overlay.MinHeight != nil {
		base.MinHeight = overlay.MinHeight
	}
	if overlay.MaxVisible != nil {
		base.MaxVisible = overlay.MaxVisible
	}
	setIfNotEmpty(&base.ClientLabel, overlay.ClientLabel)
	setIfNotEmpty(&base.ServiceLabel, overlay.ServiceLabel)
	setIfNotEmpty(&base.ProfessionalLabel, overlay.ProfessionalLabel)
	setIfNotEmpty(&base.UnassignedLabel, overlay.UnassignedLabel)
	setIfNotEmpty(&base.NoServiceLabel, overlay.NoServiceLabel)
	return base
}

func applyLayout(s calendar.Settings, l layoutConfig) calendar.Settings {
	if l.DefaultStartHour != nil {
		s.DefaultStartHour = *l.DefaultStartHour
	}
	if l.DefaultEndHour != nil {
		s.DefaultEndHour = *l.DefaultEndHour
	}
	if l.MinHeight != nil {
		s.MinHeight = *l.MinHeight
	}
	if l.MaxVisible != nil {
		s.MaxVisible = *l.MaxVisible
	}
	setIfNotEmpty(&s.ClientLabel, l.ClientLabel)
	setIfNotEmpty(&s.ServiceLabel, l.ServiceLabel)
	setIfNotEmpty(&s.ProfessionalLabel, l.ProfessionalLabel)
	setIfNotEmpty(&s.UnassignedLabel, l.UnassignedLabel)
	setIfNotEmpty(&s.NoServiceLabel, l.NoServiceLabel)
	return s
}

func applyEnv(dst *globalOptions) {
	setIfNotEmpty(&dst.Source, env("BOOKCAL_SOURCE"))
	setIfNotEmpty(&dst.File, env("BOOKCAL_FILE"))
	setIfNotEmpty(&dst.URL, env("BOOKCAL_URL"))
	setIfNotEmpty(&dst.Token, env("BOOKCAL_TOKEN"))
	setIfNotEmpty(&dst.DB, env("BOOKCAL_DB"))
	setIfNotEmpty(&dst.TZ, env("BOOKCAL_TIMEZONE"))
	setIfNotEmpty(&dst.Fields, env("BOOKCAL_FIELDS"))
	setIfNotEmpty(&dst.WeekStart, env("BOOKCAL_WEEK_START"))
	if d, err := time.ParseDuration(env("BOOKCAL_TIMEOUT")); err == nil {
		dst.Timeout = d
	}
	applyOutputMode(dst, env("BOOKCAL_OUTPUT"))
}

func applyOutputMode(dst *globalOptions, mode string) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "json":
		dst.JSON, dst.JSONL, dst.Plain = true, false, false
	case "jsonl":
		dst.JSON, dst.JSONL, dst.Plain = false, true, false
	case "plain":
		dst.JSON, dst.JSONL, dst.Plain = false, false, true
	}
}

func applyFlags(cmd *cobra.Command, dst, fromFlags *globalOptions) {
	copyIfChanged(cmd, "json", func() { dst.JSON = fromFlags.JSON })
	copyIfChanged(cmd, "jsonl", func() { dst.JSONL = fromFlags.JSONL })
	copyIfChanged(cmd, "plain", func() { dst.Plain = fromFlags.Plain })
	copyIfChanged(cmd, "fields", func() { dst.Fields = fromFlags.Fields })
	copyIfChanged(cmd, "quiet", func() { dst.Quiet = fromFlags.Quiet })
	copyIfChanged(cmd, "verbose", func() { dst.Verbose = fromFlags.Verbose })
	copyIfChanged(cmd, "no-color", func() { dst.NoColor = fromFlags.NoColor })
	copyIfChanged(cmd, "profile", func() { dst.Profile = fromFlags.Profile })
	copyIfChanged(cmd, "config", func() { dst.Config = fromFlags.Config })
	copyIfChanged(cmd, "source", func() { dst.Source = fromFlags.Source })
	copyIfChanged(cmd, "file", func() { dst.File = fromFlags.File })
	copyIfChanged(cmd, "url", func() { dst.URL = fromFlags.URL })
	copyIfChanged(cmd, "token", func() { dst.Token = fromFlags.Token })
	copyIfChanged(cmd, "db", func() { dst.DB = fromFlags.DB })
	copyIfChanged(cmd, "tz", func() { dst.TZ = fromFlags.TZ })
	copyIfChanged(cmd, "week-start", func() { dst.WeekStart = fromFlags.WeekStart })
	copyIfChanged(cmd, "timeout", func() { dst.Timeout = fromFlags.Timeout })
	copyIfChanged(cmd, "schema-version", func() { dst.SchemaVersion = fromFlags.SchemaVersion })

	// Exactly one explicit output flag overrides env/config output mode.
	var set []string
	for name, v := range map[string]bool{"json": fromFlags.JSON, "jsonl": fromFlags.JSONL, "plain": fromFlags.Plain} {
		if v && flagValueChanged(cmd, name) {
			set = append(set, name)
		}
	}
	if len(set) == 1 {
		applyOutputMode(dst, set[0])
	}
}

func copyIfChanged(cmd *cobra.Command, name string, fn func()) {
	if flagValueChanged(cmd, name) {
		fn()
	}
}

func flagValueChanged(cmd *cobra.Command, name string) bool {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		return true
	}
	if f := cmd.InheritedFlags().Lookup(name); f != nil && f.Changed {
		return true
	}
	return false
}

func readConfigFile(path string) (fileConfig, bool) {
	if strings.TrimSpace(path) == "" {
		return fileConfig{}, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, false
	}
	var cfg fileConfig
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return fileConfig{}, false
	}
	return cfg, true
}

func defaultUserConfigPath() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "bookcal", "config.toml")
	}
	home := strings.TrimSpace(os.Getenv("HOME"))
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "bookcal", "config.toml")
}

// defaultCachePath is where the sqlite source keeps imported snapshots.
func defaultCachePath() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CACHE_HOME")); xdg != "" {
		return filepath.Join(xdg, "bookcal", "bookings.db")
	}
	home := strings.TrimSpace(os.Getenv("HOME"))
	if home == "" {
		return "bookings.db"
	}
	return filepath.Join(home, ".cache", "bookcal", "bookings.db")
}

func setIfNotEmpty(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
