package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agis/bookcal/internal/contract"
	"github.com/agis/bookcal/internal/output"
	"github.com/agis/bookcal/internal/source"
	"github.com/agis/bookcal/internal/stats"
)

type statsResult struct {
	From     string                  `json:"from,omitempty"`
	To       string                  `json:"to,omitempty"`
	Total    int                     `json:"total"`
	Revenue  float64                 `json:"revenue"`
	Counts   []stats.StatusCount     `json:"counts"`
	ByStatus map[contract.Status]int `json:"by_status"`
	Days     []stats.DaySummary      `json:"days,omitempty"`
}

func newStatsCmd(opts *globalOptions) *cobra.Command {
	var from, to, status, professional, service string
	var daily bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize bookings by status with realized revenue",
		RunE: func(c *cobra.Command, _ []string) error {
			p, src, ro, err := buildContext(c, opts, "stats")
			if err != nil {
				return err
			}
			loc := ro.location()
			start, end, err := bookingWindow(from, to, time.Now(), loc)
			if err != nil {
				return failUsage(p, err, "Use --from/--to as today, +Nd, YYYY-MM-DD, or RFC3339")
			}
			if daily && (start.IsZero() || end.IsZero()) {
				return failUsage(p, errors.New("--daily requires both --from and --to"), "Pass a bounded range, e.g. --from 2026-02-01 --to 2026-02-28")
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			f := source.Filter{
				From:          start,
				To:            end,
				Statuses:      parseStatuses(status),
				Professionals: splitCSV(professional),
				Services:      splitCSV(service),
			}
			bookings, err := loadAll(ctx, p, ro, src, f)
			if err != nil {
				return err
			}
			sum := stats.Summarize(bookings)
			res := statsResult{
				Total:    sum.Total,
				Revenue:  sum.Revenue,
				Counts:   stats.DisplayCounts(sum.ByStatus),
				ByStatus: sum.ByStatus,
			}
			if !start.IsZero() {
				res.From = start.Format("2006-01-02")
			}
			if !end.IsZero() {
				res.To = end.Format("2006-01-02")
			}
			if daily {
				res.Days = stats.SummarizeByDay(bookings, start, end, loc)
			}
			if p.EffectiveSuccessMode() == output.ModePlain {
				lines := []string{fmt.Sprintf("total=%d revenue=%s", res.Total, output.Amount(res.Revenue))}
				for _, sc := range res.Counts {
					lines = append(lines, fmt.Sprintf("%s\t%d", sc.Status, sc.Count))
				}
				for _, d := range res.Days {
					lines = append(lines, fmt.Sprintf("%s\t%d\t%s", d.Date, d.Total, output.Amount(d.Revenue)))
				}
				return p.Lines(lines...)
			}
			return successWithMeta(ctx, p, ro, res, map[string]any{"count": res.Total}, nil)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Range start")
	cmd.Flags().StringVar(&to, "to", "", "Range end (a bare date covers the whole day)")
	cmd.Flags().StringVar(&status, "status", "", "Statuses, comma-separated")
	cmd.Flags().StringVar(&professional, "professional", "", "Professional ids or names, comma-separated")
	cmd.Flags().StringVar(&service, "service", "", "Service ids or names, comma-separated")
	cmd.Flags().BoolVar(&daily, "daily", false, "Include one row per day")
	return cmd
}

func newRevenueCmd(opts *globalOptions) *cobra.Command {
	var months int
	var asOf string
	cmd := &cobra.Command{
		Use:   "revenue",
		Short: "Realized revenue per creation month",
		RunE: func(c *cobra.Command, _ []string) error {
			p, src, ro, err := buildContext(c, opts, "revenue")
			if err != nil {
				return err
			}
			if months < 1 || months > 120 {
				return failUsage(p, fmt.Errorf("--months must be between 1 and 120, got %d", months), "")
			}
			loc := ro.location()
			now := time.Now().In(loc)
			if asOf != "" {
				now, err = parseMonthOrDate(asOf, now, loc)
				if err != nil {
					return failUsage(p, err, "Use --as-of as YYYY-MM or YYYY-MM-DD")
				}
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			bookings, err := loadAll(ctx, p, ro, src, source.Filter{})
			if err != nil {
				return err
			}
			rows := stats.RevenueByMonth(bookings, now, months)
			if p.EffectiveSuccessMode() == output.ModePlain && len(p.Fields) == 0 {
				lines := make([]string, 0, len(rows))
				for _, r := range rows {
					lines = append(lines, fmt.Sprintf("%s\t%s\t%d\t%s", r.Month, r.Label, r.Bookings, output.Amount(r.Revenue)))
				}
				return p.Lines(lines...)
			}
			total := 0.0
			for _, r := range rows {
				total += r.Revenue
			}
			return successWithMeta(ctx, p, ro, rows, map[string]any{"count": len(rows), "total": total}, nil)
		},
	}
	cmd.Flags().IntVar(&months, "months", stats.DefaultRevenueMonths, "Number of months ending with the current one")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Month to end on (defaults to now)")
	return cmd
}

func newWeekdaysCmd(opts *globalOptions) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "weekdays",
		Short: "Count bookings by the weekday they start on",
		RunE: func(c *cobra.Command, _ []string) error {
			p, src, ro, err := buildContext(c, opts, "weekdays")
			if err != nil {
				return err
			}
			loc := ro.location()
			start, end, err := bookingWindow(from, to, time.Now(), loc)
			if err != nil {
				return failUsage(p, err, "Use --from/--to as today, +Nd, YYYY-MM-DD, or RFC3339")
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			bookings, err := loadAll(ctx, p, ro, src, source.Filter{From: start, To: end})
			if err != nil {
				return err
			}
			rows := stats.AppointmentsByWeekday(bookings, ro.weekStart(), loc)
			return successWithMeta(ctx, p, ro, rows, map[string]any{"count": len(rows), "bookings": len(bookings)}, nil)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Range start")
	cmd.Flags().StringVar(&to, "to", "", "Range end")
	return cmd
}
