package app

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agis/bookcal/internal/calendar"
	"github.com/agis/bookcal/internal/contract"
	"github.com/agis/bookcal/internal/output"
	"github.com/agis/bookcal/internal/source"
	"github.com/agis/bookcal/internal/stats"
	"github.com/agis/bookcal/internal/timeparse"
)

type hoursResult struct {
	Date   string             `json:"date,omitempty"`
	Range  calendar.HourRange `json:"range"`
	Rows   []int              `json:"rows"`
	Labels []string           `json:"labels"`
}

func newHoursCmd(opts *globalOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "hours",
		Short: "Resolve the displayed hour range from working hours",
		RunE: func(c *cobra.Command, _ []string) error {
			p, src, ro, err := buildContext(c, opts, "hours")
			if err != nil {
				return err
			}
			var day time.Time
			if date != "" {
				day, err = timeparse.ParseDateTime(date, time.Now(), ro.location())
				if err != nil {
					return failUsage(p, err, "Use --date as today, tomorrow, +Nd, or YYYY-MM-DD; omit it for the whole week")
				}
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			wh, err := workingHoursWithTimeout(ctx, ro.logger, src)
			if err != nil {
				return failSource(p, err, "")
			}
			r := ro.Layout.ResolveHourRange(wh, day)
			res := hoursResult{Range: r, Rows: calendar.BuildHourRows(r)}
			if !day.IsZero() {
				res.Date = day.Format("2006-01-02")
			}
			for _, h := range res.Rows {
				res.Labels = append(res.Labels, calendar.HourLabel(h))
			}
			var warnings []string
			if wh == nil {
				warnings = append(warnings, "no working hours configured; default range applies")
			}
			if p.EffectiveSuccessMode() == output.ModePlain {
				return renderHoursPlain(p, res)
			}
			return successWithMeta(ctx, p, ro, res, map[string]any{"rows": len(res.Rows), "union": day.IsZero()}, warnings)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date to resolve; empty resolves the union across the week")
	return cmd
}

func newDayCmd(opts *globalOptions) *cobra.Command {
	var date, by string
	var summary bool
	cmd := &cobra.Command{
		Use:   "day",
		Short: "Lay out one day's bookings by professional or service",
		RunE: func(c *cobra.Command, _ []string) error {
			p, src, ro, err := buildContext(c, opts, "day")
			if err != nil {
				return err
			}
			loc := ro.location()
			anchor, err := timeparse.ParseDateTime(date, time.Now(), loc)
			if err != nil {
				return failUsage(p, err, "Use --date as today, tomorrow, +Nd, or YYYY-MM-DD")
			}
			partition, err := calendar.ParsePartition(by)
			if err != nil {
				return failUsage(p, err, "Use --by professional, service or none")
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			from, to := calendar.DayBounds(anchor)
			bookings, err := listBookingsWithTimeout(ctx, ro.logger, src, source.Filter{From: from, To: to})
			if err != nil {
				return failSource(p, err, "")
			}
			if summary {
				rows := stats.SummarizeByDay(bookings, from, to, loc)
				return successWithMeta(ctx, p, ro, rows, map[string]any{"count": len(rows), "view": "day", "day": from.Format("2006-01-02"), "summary": true}, nil)
			}
			wh, err := workingHoursWithTimeout(ctx, ro.logger, src)
			if err != nil {
				return failSource(p, err, "")
			}
			layout := ro.Layout.PlaceDay(bookings, anchor, ro.Layout.ResolveHourRange(wh, anchor), partition)
			if p.EffectiveSuccessMode() == output.ModePlain {
				return renderDayPlain(p, layout)
			}
			return successWithMeta(ctx, p, ro, layout, map[string]any{
				"count":   len(bookings),
				"view":    "day",
				"day":     layout.Date,
				"columns": len(layout.Columns),
			}, skippedWarnings(layout.Skipped))
		},
	}
	cmd.Flags().StringVar(&date, "date", "today", "Day selector")
	cmd.Flags().StringVar(&by, "by", "professional", "Column partition: professional|service|none")
	cmd.Flags().BoolVar(&summary, "summary", false, "Counts per status instead of a layout")
	return cmd
}

func newWeekCmd(opts *globalOptions) *cobra.Command {
	var of string
	var summary bool
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Lay out a week with same-hour bookings collapsed",
		RunE: func(c *cobra.Command, _ []string) error {
			p, src, ro, err := buildContext(c, opts, "week")
			if err != nil {
				return err
			}
			loc := ro.location()
			anchor, err := timeparse.ParseDateTime(of, time.Now(), loc)
			if err != nil {
				return failUsage(p, err, "Use --of as today, tomorrow, +Nd, or YYYY-MM-DD")
			}
			ws := ro.weekStart()
			ctx, cancel := commandContext(ro)
			defer cancel()
			from, to := calendar.WeekBounds(anchor, ws)
			bookings, err := listBookingsWithTimeout(ctx, ro.logger, src, source.Filter{From: from, To: to})
			if err != nil {
				return failSource(p, err, "")
			}
			meta := map[string]any{"count": len(bookings), "view": "week", "from": from.Format("2006-01-02"), "to": to.Format("2006-01-02"), "week_start": ws.String()}
			if summary {
				rows := stats.SummarizeByDay(bookings, from, to, loc)
				meta["count"], meta["summary"] = len(rows), true
				return successWithMeta(ctx, p, ro, rows, meta, nil)
			}
			wh, err := workingHoursWithTimeout(ctx, ro.logger, src)
			if err != nil {
				return failSource(p, err, "")
			}
			layout := ro.Layout.PlaceWeek(bookings, anchor, ws, ro.Layout.ResolveHourRange(wh, time.Time{}))
			if p.EffectiveSuccessMode() == output.ModePlain {
				return renderWeekPlain(p, layout)
			}
			warnings := skippedWarnings(layout.Skipped)
			if len(layout.Overflow) > 0 {
				warnings = append(warnings, "some bookings start outside the displayed hours")
			}
			return successWithMeta(ctx, p, ro, layout, meta, warnings)
		},
	}
	cmd.Flags().StringVar(&of, "of", "today", "Date selector within target week")
	cmd.Flags().BoolVar(&summary, "summary", false, "Counts per day instead of a layout")
	return cmd
}

func newMonthCmd(opts *globalOptions) *cobra.Command {
	var month string
	var summary bool
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Lay out a month grid with per-day booking lists",
		RunE: func(c *cobra.Command, _ []string) error {
			p, src, ro, err := buildContext(c, opts, "month")
			if err != nil {
				return err
			}
			loc := ro.location()
			anchor, err := parseMonthOrDate(month, time.Now(), loc)
			if err != nil {
				return failUsage(p, err, "Use --month as YYYY-MM, YYYY-MM-DD, or relative day syntax")
			}
			ws := ro.weekStart()
			ctx, cancel := commandContext(ro)
			defer cancel()
			if summary {
				from, to := calendar.MonthBounds(anchor)
				bookings, err := listBookingsWithTimeout(ctx, ro.logger, src, source.Filter{From: from, To: to})
				if err != nil {
					return failSource(p, err, "")
				}
				rows := stats.SummarizeByDay(bookings, from, to, loc)
				return successWithMeta(ctx, p, ro, rows, map[string]any{"count": len(rows), "view": "month", "month": from.Format("2006-01"), "summary": true}, nil)
			}
			from, to := calendar.GridBounds(anchor, ws)
			bookings, err := listBookingsWithTimeout(ctx, ro.logger, src, source.Filter{From: from, To: to})
			if err != nil {
				return failSource(p, err, "")
			}
			layout := ro.Layout.PlaceMonth(bookings, anchor, ws)
			if p.EffectiveSuccessMode() == output.ModePlain {
				return renderMonthPlain(p, layout)
			}
			return successWithMeta(ctx, p, ro, layout, map[string]any{
				"count":      layout.Total,
				"view":       "month",
				"month":      layout.Month,
				"from":       from.Format("2006-01-02"),
				"to":         to.Format("2006-01-02"),
				"week_start": ws.String(),
			}, skippedWarnings(layout.Skipped))
		},
	}
	cmd.Flags().StringVar(&month, "month", "today", "Month selector: YYYY-MM, YYYY-MM-DD, today, +Nd")
	cmd.Flags().BoolVar(&summary, "summary", false, "Counts per day instead of a grid")
	return cmd
}

func skippedWarnings(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return []string{"skipped bookings without a start time: " + strings.Join(ids, ",")}
}

// loadAll fetches every booking matching f, reporting failures on p.
func loadAll(ctx context.Context, p output.Printer, ro *globalOptions, src source.Source, f source.Filter) ([]contract.Booking, error) {
	bookings, err := listBookingsWithTimeout(ctx, ro.logger, src, f)
	if err != nil {
		return nil, failSource(p, err, "")
	}
	return bookings, nil
}
