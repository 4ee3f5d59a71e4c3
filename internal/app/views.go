package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agis/bookcal/internal/calendar"
	"github.com/agis/bookcal/internal/output"
)

func newViewCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Lay out bookings in common calendar ranges",
	}
	cmd.AddCommand(newDayCmd(opts))
	cmd.AddCommand(newWeekCmd(opts))
	cmd.AddCommand(newMonthCmd(opts))
	return cmd
}

var toneSGR = map[calendar.Tone]string{
	calendar.ToneSuccess: "32",
	calendar.ToneInfo:    "34",
	calendar.ToneWarning: "33",
	calendar.ToneDanger:  "31",
	calendar.ToneMuted:   "2",
}

func bookingLine(p output.Printer, b calendar.PlacedBooking) string {
	span := b.Start.Format("15:04")
	if b.DurationMin > 0 {
		span += "-" + b.End.Format("15:04")
	}
	status := p.Paint(toneSGR[b.Tone], "["+string(b.Status)+"]")
	return fmt.Sprintf("%s  %s  %s  %s", span, b.ClientLabel, b.ServiceLabel, status)
}

func renderHoursPlain(p output.Printer, res hoursResult) error {
	header := fmt.Sprintf("hours %s-%s", calendar.HourLabel(res.Range.Start), calendar.HourLabel(res.Range.End))
	if res.Date != "" {
		header = res.Date + " " + header
	}
	return p.Lines(append([]string{header}, res.Labels...)...)
}

func renderDayPlain(p output.Printer, l calendar.DayLayout) error {
	lines := []string{fmt.Sprintf("%s by %s (%s-%s)", l.Date, l.Partition, calendar.HourLabel(l.Range.Start), calendar.HourLabel(l.Range.End))}
	for _, col := range l.Columns {
		lines = append(lines, fmt.Sprintf("== %s (%d)", col.Label, len(col.Bookings)))
		for _, b := range col.Bookings {
			lines = append(lines, "  "+bookingLine(p, b))
		}
	}
	if len(l.Columns) == 0 {
		lines = append(lines, "no bookings")
	}
	return p.Lines(lines...)
}

func renderWeekPlain(p output.Printer, l calendar.WeekLayout) error {
	lines := []string{fmt.Sprintf("week %s..%s (%s-%s)", l.From, l.To, calendar.HourLabel(l.Range.Start), calendar.HourLabel(l.Range.End))}
	for _, d := range l.Days {
		lines = append(lines, fmt.Sprintf("== %s %s", d.Weekday, d.Date))
		for _, e := range d.Entries {
			if e.Kind == calendar.EntryGroup && e.Group != nil {
				lines = append(lines, fmt.Sprintf("  %s  %d bookings", calendar.HourLabel(e.Hour), e.Group.Count))
				for _, b := range e.Group.Bookings {
					lines = append(lines, "    "+bookingLine(p, b))
				}
				continue
			}
			if e.Booking != nil {
				lines = append(lines, "  "+bookingLine(p, *e.Booking))
			}
		}
	}
	if len(l.Overflow) > 0 {
		lines = append(lines, "outside hours: "+strings.Join(l.Overflow, ","))
	}
	return p.Lines(lines...)
}

func renderMonthPlain(p output.Printer, l calendar.MonthLayout) error {
	lines := []string{fmt.Sprintf("month %s total=%d", l.Month, l.Total)}
	for _, week := range l.Weeks {
		for _, cell := range week {
			if !cell.InMonth || cell.Total == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("== %s (%d)", cell.Date, cell.Total))
			for _, b := range cell.Bookings {
				lines = append(lines, "  "+bookingLine(p, b))
			}
			if cell.More > 0 {
				lines = append(lines, fmt.Sprintf("  +%d more", cell.More))
			}
		}
	}
	return p.Lines(lines...)
}
