package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agis/bookcal/internal/contract"
	"github.com/agis/bookcal/internal/output"
	"github.com/agis/bookcal/internal/recurrence"
	"github.com/agis/bookcal/internal/source"
	"github.com/agis/bookcal/internal/stats"
)

// bookingQuery is a list query as typed on the command line or saved as a preset.
type bookingQuery struct {
	Name          string   `json:"name,omitempty"`
	From          string   `json:"from,omitempty"`
	To            string   `json:"to,omitempty"`
	Statuses      []string `json:"statuses,omitempty"`
	Professionals []string `json:"professionals,omitempty"`
	Services      []string `json:"services,omitempty"`
	Wheres        []string `json:"wheres,omitempty"`
	Sort          string   `json:"sort,omitempty"`
	Order         string   `json:"order,omitempty"`
	Limit         int      `json:"limit,omitempty"`
}

func (q bookingQuery) validate() error {
	if q.Limit < 0 {
		return fmt.Errorf("--limit must be >= 0")
	}
	if _, err := parsePredicates(q.Wheres); err != nil {
		return err
	}
	return validateSort(q.Sort, q.Order)
}

func (q bookingQuery) filter(now time.Time, loc *time.Location) (source.Filter, error) {
	from, to, err := bookingWindow(q.From, q.To, now, loc)
	if err != nil {
		return source.Filter{}, err
	}
	f := source.Filter{From: from, To: to, Professionals: q.Professionals, Services: q.Services}
	for _, s := range q.Statuses {
		f.Statuses = append(f.Statuses, contract.Status(strings.ToLower(s)))
	}
	return f, nil
}

// runBookingQuery fetches, filters, sorts and truncates; errors are already printed.
func runBookingQuery(ctx context.Context, p output.Printer, ro *globalOptions, src source.Source, q bookingQuery) ([]contract.Booking, error) {
	if err := q.validate(); err != nil {
		return nil, failUsage(p, err, "Use --where 'field op value' with ops == != ~ > >= < <=")
	}
	f, err := q.filter(time.Now(), ro.location())
	if err != nil {
		return nil, failUsage(p, err, "Use --from/--to as today, +Nd, YYYY-MM-DD, or RFC3339")
	}
	preds, _ := parsePredicates(q.Wheres)
	items, err := loadAll(ctx, p, ro, src, f)
	if err != nil {
		return nil, err
	}
	items = applyPredicates(items, preds)
	sortBookings(items, q.Sort, q.Order)
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}

type bookingRow struct {
	ID            string                 `json:"id"`
	Start         time.Time              `json:"start"`
	End           time.Time              `json:"end"`
	Status        contract.Status        `json:"status"`
	PaymentStatus contract.PaymentStatus `json:"payment_status,omitempty"`
	Client        string                 `json:"client"`
	Service       string                 `json:"service"`
	Professional  string                 `json:"professional"`
	Amount        float64                `json:"amount"`
}

func bookingRows(items []contract.Booking, ro *globalOptions) []bookingRow {
	loc := ro.location()
	rows := make([]bookingRow, 0, len(items))
	for _, b := range items {
		row := bookingRow{
			ID:            b.ID,
			Status:        b.Status,
			PaymentStatus: b.PaymentStatus,
			Client:        b.Client.Label(ro.Layout.ClientLabel),
			Service:       b.Service.Label(ro.Layout.ServiceLabel),
			Professional:  b.Professional.Label(ro.Layout.ProfessionalLabel),
			Amount:        stats.AmountOf(b),
		}
		if b.HasStart() {
			row.Start = b.StartTime.In(loc)
		}
		if !b.EndTime.IsZero() {
			row.End = b.EndTime.In(loc)
		}
		rows = append(rows, row)
	}
	return rows
}

func newBookingsCmd(opts *globalOptions) *cobra.Command {
	bookings := &cobra.Command{Use: "bookings", Short: "Booking records"}
	bookings.AddCommand(newBookingsListCmd(opts), newBookingsGetCmd(opts), newBookingsSeriesCmd(opts))
	return bookings
}

func addQueryFlags(cmd *cobra.Command, q *bookingQuery, from, to string) {
	cmd.Flags().StringVar(&q.From, "from", from, "Range start")
	cmd.Flags().StringVar(&q.To, "to", to, "Range end (a bare date covers the whole day)")
	cmd.Flags().StringSliceVar(&q.Statuses, "status", nil, "Status (repeatable or comma-separated)")
	cmd.Flags().StringSliceVar(&q.Professionals, "professional", nil, "Professional id or name (repeatable)")
	cmd.Flags().StringSliceVar(&q.Services, "service", nil, "Service id or name (repeatable)")
	cmd.Flags().StringArrayVar(&q.Wheres, "where", nil, "Predicate clause, e.g. client~ana (repeatable)")
	cmd.Flags().StringVar(&q.Sort, "sort", "start", "Sort field")
	cmd.Flags().StringVar(&q.Order, "order", "asc", "Sort order: asc|desc")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "Limit results")
}

func newBookingsListCmd(opts *globalOptions) *cobra.Command {
	var q bookingQuery
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bookings with filters and predicates",
		RunE: func(c *cobra.Command, _ []string) error {
			p, src, ro, err := buildContext(c, opts, "bookings.list")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			items, err := runBookingQuery(ctx, p, ro, src, q)
			if err != nil {
				return err
			}
			return successWithMeta(ctx, p, ro, bookingRows(items, ro), map[string]any{"count": len(items)}, nil)
		},
	}
	addQueryFlags(cmd, &q, "", "")
	return cmd
}

func newBookingsGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			p, src, ro, err := buildContext(c, opts, "bookings.get")
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[0])
			if id == "" {
				return failUsage(p, fmt.Errorf("booking id is required"), "")
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			b, err := getBookingWithTimeout(ctx, ro.logger, src, id)
			if err != nil {
				return failSource(p, err, "")
			}
			if p.EffectiveSuccessMode() == output.ModePlain && len(p.Fields) == 0 {
				return p.Success(bookingRows([]contract.Booking{*b}, ro)[0], nil, nil)
			}
			return successWithMeta(ctx, p, ro, b, map[string]any{"id": b.ID}, nil)
		},
	}
}

func newBookingsSeriesCmd(opts *globalOptions) *cobra.Command {
	var from string
	var limit int
	cmd := &cobra.Command{
		Use:   "series <id>",
		Short: "Project upcoming occurrences of a recurring booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			p, src, ro, err := buildContext(c, opts, "bookings.series")
			if err != nil {
				return err
			}
			if limit < 0 {
				return failUsage(p, fmt.Errorf("--limit must be >= 0"), "")
			}
			loc := ro.location()
			var after time.Time
			if from != "" {
				after, err = parseMonthOrDate(from, time.Now(), loc)
				if err != nil {
					return failUsage(p, err, "Use --from as today, +Nd, or YYYY-MM-DD")
				}
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			b, err := getBookingWithTimeout(ctx, ro.logger, src, strings.TrimSpace(args[0]))
			if err != nil {
				return failSource(p, err, "")
			}
			if after.IsZero() {
				after = b.StartTime
			}
			items, err := recurrence.Project(*b, after, limit)
			if err != nil {
				return failUsage(p, err, "Only bookings with a start time and a daily, weekly or monthly recurrence can be projected")
			}
			for i := range items {
				items[i].Start = items[i].Start.In(loc)
				items[i].End = items[i].End.In(loc)
			}
			meta := map[string]any{"count": len(items), "id": b.ID, "recurring": b.Recurrence != nil && b.Recurrence.IsRecurring}
			return successWithMeta(ctx, p, ro, items, meta, nil)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Only occurrences at or after this date (defaults to the booking start)")
	cmd.Flags().IntVar(&limit, "limit", recurrence.DefaultLimit, "Maximum occurrences")
	return cmd
}
