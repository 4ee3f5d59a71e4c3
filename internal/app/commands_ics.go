package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agis/bookcal/internal/calendar"
	"github.com/agis/bookcal/internal/contract"
	"github.com/agis/bookcal/internal/output"
)

func newExportCmd(opts *globalOptions) *cobra.Command {
	var q bookingQuery
	var outPath string
	var includeCancelled bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export bookings to ICS",
		RunE: func(c *cobra.Command, _ []string) error {
			p, src, ro, err := buildContext(c, opts, "export")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			items, err := runBookingQuery(ctx, p, ro, src, q)
			if err != nil {
				return err
			}
			if !includeCancelled {
				kept := items[:0]
				for _, b := range items {
					if b.Status != contract.StatusCancelled {
						kept = append(kept, b)
					}
				}
				items = kept
			}
			ics := buildICS(items, ro.Layout, time.Now())
			meta := map[string]any{"count": len(items)}
			if strings.TrimSpace(outPath) != "" {
				if err := os.WriteFile(outPath, []byte(ics), 0o644); err != nil {
					return failWithHint(p, contract.ErrGeneric, err, "Check destination path permissions", exitGeneric)
				}
				return successWithMeta(ctx, p, ro, map[string]any{"path": outPath, "bookings": len(items)}, meta, nil)
			}
			if m := p.EffectiveSuccessMode(); m == output.ModeJSON || m == output.ModeJSONL {
				return successWithMeta(ctx, p, ro, map[string]any{"ics": ics, "bookings": len(items)}, meta, nil)
			}
			_, _ = fmt.Fprint(c.OutOrStdout(), ics)
			return nil
		},
	}
	addQueryFlags(cmd, &q, "today", "+30d")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path (default stdout)")
	cmd.Flags().BoolVar(&includeCancelled, "include-cancelled", false, "Keep cancelled bookings")
	return cmd
}

// buildICS skips bookings without a start; a missing or inverted end
// exports as a zero-length event.
func buildICS(items []contract.Booking, s calendar.Settings, now time.Time) string {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//bookcal//EN\r\n")
	b.WriteString("CALSCALE:GREGORIAN\r\n")
	stamp := now.UTC().Format("20060102T150405Z")
	for _, bk := range items {
		if !bk.HasStart() {
			continue
		}
		uid := bk.ID
		if uid == "" {
			uid = fmt.Sprintf("bookcal-%d", bk.StartTime.Unix())
		}
		end := bk.EndTime
		if end.Before(bk.StartTime) {
			end = bk.StartTime
		}
		client := bk.Client.Label(s.ClientLabel)
		service := bk.Service.Label(s.ServiceLabel)
		b.WriteString("BEGIN:VEVENT\r\n")
		b.WriteString("UID:" + escapeICSText(uid) + "\r\n")
		b.WriteString("DTSTAMP:" + stamp + "\r\n")
		b.WriteString("DTSTART:" + bk.StartTime.UTC().Format("20060102T150405Z") + "\r\n")
		b.WriteString("DTEND:" + end.UTC().Format("20060102T150405Z") + "\r\n")
		b.WriteString("SUMMARY:" + escapeICSText(service+" - "+client) + "\r\n")
		if bk.Professional.Present() {
			b.WriteString("X-BOOKCAL-PROFESSIONAL:" + escapeICSText(bk.Professional.Label(bk.Professional.Key())) + "\r\n")
		}
		b.WriteString("STATUS:" + icsStatus(bk.Status) + "\r\n")
		if strings.TrimSpace(bk.Notes) != "" {
			b.WriteString("DESCRIPTION:" + escapeICSText(bk.Notes) + "\r\n")
		}
		b.WriteString("END:VEVENT\r\n")
	}
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

func icsStatus(s contract.Status) string {
	switch s {
	case contract.StatusPending:
		return "TENTATIVE"
	case contract.StatusCancelled:
		return "CANCELLED"
	default:
		return "CONFIRMED"
	}
}

func escapeICSText(v string) string {
	replacer := strings.NewReplacer("\\", "\\\\", ";", "\\;", ",", "\\,", "\n", "\\n", "\r", "")
	return replacer.Replace(v)
}
