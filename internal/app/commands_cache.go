package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agis/bookcal/internal/source"
)

func newCacheCmd(opts *globalOptions) *cobra.Command {
	cache := &cobra.Command{Use: "cache", Short: "Local sqlite snapshot cache"}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Snapshot the configured source into the cache",
		RunE: func(c *cobra.Command, _ []string) error {
			p, src, ro, err := buildContext(c, opts, "cache.import")
			if err != nil {
				return err
			}
			if strings.EqualFold(strings.TrimSpace(ro.Source), "sqlite") {
				return failUsage(p, errors.New("cache import needs a file or http source"), "Run with --source file --file bookings.json or --source http --url URL")
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			bookings, err := loadAll(ctx, p, ro, src, source.Filter{})
			if err != nil {
				return err
			}
			wh, err := workingHoursWithTimeout(ctx, ro.logger, src)
			if err != nil {
				return failSource(p, err, "")
			}
			cacheSrc := source.NewSQLiteSource(cachePath(ro))
			origin := cacheOrigin(ro)
			info, err := callSource(ctx, ro.logger, "cache.import", func() (source.SnapshotInfo, error) {
				return cacheSrc.Import(ctx, origin, source.Snapshot{WorkingHours: wh, Bookings: bookings})
			})
			if err != nil {
				return failSource(p, err, "Check that --db points to a writable location")
			}
			return successWithMeta(ctx, p, ro, info, map[string]any{"count": info.Bookings}, nil)
		},
	}

	info := &cobra.Command{
		Use:   "info",
		Short: "Describe the cached snapshot",
		RunE: func(c *cobra.Command, _ []string) error {
			p, ro, err := buildPrinter(c, opts, "cache.info")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			cacheSrc := source.NewSQLiteSource(cachePath(ro))
			res, err := callSource(ctx, ro.logger, "cache.info", func() (source.SnapshotInfo, error) {
				return cacheSrc.Info(ctx)
			})
			if err != nil {
				hint := ""
				if errors.Is(err, source.ErrNoSnapshot) {
					hint = "Fill the cache with `bookcal cache import`"
				}
				return failSource(p, err, hint)
			}
			return successWithMeta(ctx, p, ro, res, nil, nil)
		},
	}

	cache.AddCommand(importCmd, info)
	return cache
}

func cacheOrigin(ro *globalOptions) string {
	switch strings.ToLower(strings.TrimSpace(ro.Source)) {
	case "http":
		return ro.URL
	default:
		return fmt.Sprintf("file:%s", ro.File)
	}
}
