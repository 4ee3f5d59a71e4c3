package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agis/bookcal/internal/contract"
)

func presetsFilePath() string {
	base := defaultUserConfigPath()
	if strings.TrimSpace(base) == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(base), "presets.json")
}

func loadPresets() (map[string]bookingQuery, error) {
	path := presetsFilePath()
	if path == "" {
		return map[string]bookingQuery{}, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]bookingQuery{}, nil
	}
	if err != nil {
		return nil, err
	}
	store := map[string]bookingQuery{}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return store, nil
	}
	if err := json.Unmarshal(raw, &store); err != nil {
		return nil, err
	}
	return store, nil
}

func writePresets(store map[string]bookingQuery) error {
	path := presetsFilePath()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func newPresetsCmd(opts *globalOptions) *cobra.Command {
	presets := &cobra.Command{Use: "presets", Short: "Saved booking list queries"}

	var q bookingQuery
	var overwrite bool
	save := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a booking list query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := buildPrinter(cmd, opts, "presets.save")
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			if name == "" {
				return failUsage(p, fmt.Errorf("name is required"), "Provide a preset name")
			}
			if err := q.validate(); err != nil {
				return failUsage(p, err, "Fix the query before saving it")
			}
			store, err := loadPresets()
			if err != nil {
				return failWithHint(p, contract.ErrGeneric, err, "Check presets file permissions", exitGeneric)
			}
			if _, exists := store[name]; exists && !overwrite {
				return failUsage(p, fmt.Errorf("preset already exists: %s", name), "Use --overwrite to replace the existing preset")
			}
			saved := q
			saved.Name = name
			store[name] = saved
			if err := writePresets(store); err != nil {
				return failWithHint(p, contract.ErrGeneric, err, "Unable to persist preset", exitGeneric)
			}
			return p.Success(saved, map[string]any{"saved": true}, nil)
		},
	}
	addQueryFlags(save, &q, "today", "+30d")
	save.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing preset")

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved presets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := buildPrinter(cmd, opts, "presets.list")
			if err != nil {
				return err
			}
			store, err := loadPresets()
			if err != nil {
				return failWithHint(p, contract.ErrGeneric, err, "Check presets file permissions", exitGeneric)
			}
			rows := make([]bookingQuery, 0, len(store))
			for _, q := range store {
				rows = append(rows, q)
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
			return p.Success(rows, map[string]any{"count": len(rows)}, nil)
		},
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := buildPrinter(cmd, opts, "presets.delete")
			if err != nil {
				return err
			}
			store, err := loadPresets()
			if err != nil {
				return failWithHint(p, contract.ErrGeneric, err, "Check presets file permissions", exitGeneric)
			}
			name := strings.TrimSpace(args[0])
			if _, ok := store[name]; !ok {
				return failWithHint(p, contract.ErrNotFound, fmt.Errorf("preset not found: %s", name), "Run `bookcal presets list` to inspect names", exitNotFound)
			}
			delete(store, name)
			if err := writePresets(store); err != nil {
				return failWithHint(p, contract.ErrGeneric, err, "Unable to persist preset store", exitGeneric)
			}
			return p.Success(map[string]any{"deleted": true, "name": name}, map[string]any{"count": 1}, nil)
		},
	}

	run := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a saved preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, src, ro, err := buildContext(cmd, opts, "presets.run")
			if err != nil {
				return err
			}
			store, err := loadPresets()
			if err != nil {
				return failWithHint(p, contract.ErrGeneric, err, "Check presets file permissions", exitGeneric)
			}
			saved, ok := store[strings.TrimSpace(args[0])]
			if !ok {
				return failWithHint(p, contract.ErrNotFound, fmt.Errorf("preset not found: %s", args[0]), "Run `bookcal presets list`", exitNotFound)
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			items, err := runBookingQuery(ctx, p, ro, src, saved)
			if err != nil {
				return err
			}
			return successWithMeta(ctx, p, ro, bookingRows(items, ro), map[string]any{"count": len(items), "name": saved.Name}, nil)
		},
	}

	presets.AddCommand(save, list, del, run)
	return presets
}
