package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agis/bookcal/internal/calendar"
	"github.com/agis/bookcal/internal/contract"
	"github.com/agis/bookcal/internal/output"
	"github.com/agis/bookcal/internal/source"
	"github.com/agis/bookcal/internal/timeparse"
)

var sourceFactory = selectSource

type globalOptions struct {
	JSON           bool
	JSONL          bool
	Plain          bool
	Fields         string
	Quiet          bool
	Verbose        bool
	NoColor        bool
	FailOnDegraded bool
	Profile        string
	Config         string
	Source         string
	File           string
	URL            string
	Token          string
	DB             string
	TZ             string
	WeekStart      string
	Timeout        time.Duration
	SchemaVersion  string
	Layout         calendar.Settings

	logger *zap.Logger
}

func Execute() int {
	cmd := NewRootCommand()
	err := cmd.Execute()
	if err != nil {
		renderTopLevelError(cmd, err)
	}
	return ExitCode(err)
}

func NewRootCommand() *cobra.Command {
	opts := &globalOptions{
		Profile:       "default",
		Source:        "file",
		WeekStart:     "monday",
		Timeout:       15 * time.Second,
		SchemaVersion: contract.SchemaVersion,
	}

	root := &cobra.Command{
		Use:           "bookcal",
		Short:         "Lay out and summarize salon bookings from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       BuildVersionString(),
	}
	root.SetVersionTemplate("bookcal {{.Version}}\n")

	root.PersistentFlags().BoolVar(&opts.JSON, "json", false, "Output structured JSON")
	root.PersistentFlags().BoolVar(&opts.JSONL, "jsonl", false, "Output newline-delimited JSON")
	root.PersistentFlags().BoolVar(&opts.Plain, "plain", false, "Output stable plain text")
	root.PersistentFlags().StringVar(&opts.Fields, "fields", "", "Projected fields, comma-separated")
	root.PersistentFlags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Reduce success output")
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Verbose diagnostics")
	root.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "Disable color output")
	root.PersistentFlags().BoolVar(&opts.FailOnDegraded, "fail-on-degraded", false, "Fail if the source health is degraded")
	root.PersistentFlags().StringVar(&opts.Profile, "profile", "default", "Config profile")
	root.PersistentFlags().StringVar(&opts.Config, "config", "", "Config file path")
	root.PersistentFlags().StringVar(&opts.Source, "source", "file", "Booking source: file|http|sqlite")
	root.PersistentFlags().StringVar(&opts.File, "file", "", "Snapshot file for the file source (- for stdin)")
	root.PersistentFlags().StringVar(&opts.URL, "url", "", "Base URL for the http source")
	root.PersistentFlags().StringVar(&opts.Token, "token", "", "Bearer token for the http source")
	root.PersistentFlags().StringVar(&opts.DB, "db", "", "Cache database for the sqlite source")
	root.PersistentFlags().StringVar(&opts.TZ, "tz", "", "IANA timezone for layouts and output")
	root.PersistentFlags().StringVar(&opts.WeekStart, "week-start", "monday", "First day of the week: monday|sunday|saturday")
	root.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 15*time.Second, "Source call timeout (e.g. 10s, 1m, 0 to disable)")
	root.PersistentFlags().StringVar(&opts.SchemaVersion, "schema-version", contract.SchemaVersion, "Output schema version")

	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newDoctorCmd(opts))
	root.AddCommand(newVersionCmd(opts))
	root.AddCommand(newHoursCmd(opts))
	root.AddCommand(newDayCmd(opts))
	root.AddCommand(newWeekCmd(opts))
	root.AddCommand(newMonthCmd(opts))
	root.AddCommand(newViewCmd(opts))
	root.AddCommand(newBookingsCmd(opts))
	root.AddCommand(newStatsCmd(opts))
	root.AddCommand(newRevenueCmd(opts))
	root.AddCommand(newWeekdaysCmd(opts))
	root.AddCommand(newPresetsCmd(opts))
	root.AddCommand(newCacheCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newCompletionCmd(root))

	return root
}

func buildContext(cmd *cobra.Command, opts *globalOptions, command string) (output.Printer, source.Source, *globalOptions, error) {
	printer, resolved, err := buildPrinter(cmd, opts, command)
	if err != nil {
		return printer, nil, nil, err
	}
	src, err := sourceFactory(resolved)
	if err != nil {
		return printer, nil, nil, failUsage(printer, err, "Use --source file --file bookings.json, --source http --url URL, or --source sqlite")
	}
	if resolved.FailOnDegraded && !isHealthCommand(command) {
		ctx, cancel := commandContext(resolved)
		defer cancel()
		checks, derr := doctorWithTimeout(ctx, resolved.logger, src)
		setup := buildSetupResult(checks, derr, resolved.Source)
		if setup.Degraded || !setup.Ready {
			reasons := deriveDegradedReasonCodes(checks, derr)
			err = fmt.Errorf("degraded source: %s", strings.Join(reasons, ","))
			_ = printer.Error(contract.ErrSourceUnavailable, err.Error(), "Run `bookcal status` and address next steps, or disable --fail-on-degraded")
			return printer, nil, nil, WrapPrinted(exitSourceUnavailable, err)
		}
	}
	resolved.logger.Debug("command context",
		zap.String("command", command),
		zap.String("source", resolved.Source),
		zap.String("mode", string(printer.Mode)),
		zap.String("tz", resolved.TZ),
		zap.String("profile", resolved.Profile),
		zap.Duration("timeout", resolved.Timeout),
	)
	return printer, src, resolved, nil
}

// buildPrinter resolves options and output for commands that need no source.
func buildPrinter(cmd *cobra.Command, opts *globalOptions, command string) (output.Printer, *globalOptions, error) {
	resolved, err := resolveGlobalOptions(cmd, opts)
	if err != nil {
		return output.Printer{}, nil, Wrap(exitInvalidUsage, err)
	}
	if conflictCount(resolved.JSON, resolved.JSONL, resolved.Plain) > 1 {
		return output.Printer{}, nil, Wrap(exitInvalidUsage, errors.New("--json, --jsonl, and --plain are mutually exclusive"))
	}
	mode := output.ModeAuto
	if resolved.JSON {
		mode = output.ModeJSON
	} else if resolved.JSONL {
		mode = output.ModeJSONL
	} else if resolved.Plain {
		mode = output.ModePlain
	}

	printer := output.Printer{
		Mode:          mode,
		Command:       command,
		Fields:        splitCSV(resolved.Fields),
		Quiet:         resolved.Quiet,
		NoColor:       resolved.NoColor,
		SchemaVersion: resolved.SchemaVersion,
		Out:           cmd.OutOrStdout(),
		Err:           cmd.ErrOrStderr(),
	}
	resolved.logger = newLogger(printer.Err, resolved.Verbose, mode == output.ModeJSON || mode == output.ModeJSONL)

	if _, err := resolveLocation(resolved.TZ); err != nil {
		return printer, nil, failUsage(printer, err, "Use an IANA name such as Europe/Lisbon")
	}
	if _, err := calendar.ParseWeekStart(resolved.WeekStart); err != nil {
		return printer, nil, failUsage(printer, err, "Use --week-start monday, sunday or saturday")
	}
	return printer, resolved, nil
}

func selectSource(ro *globalOptions) (source.Source, error) {
	switch strings.ToLower(strings.TrimSpace(ro.Source)) {
	case "", "file":
		return source.NewFileSource(ro.File), nil
	case "http":
		return source.NewHTTPSource(ro.URL, ro.Token), nil
	case "sqlite":
		return source.NewSQLiteSource(cachePath(ro)), nil
	default:
		return nil, fmt.Errorf("unknown source: %s", ro.Source)
	}
}

func cachePath(ro *globalOptions) string {
	return firstNonEmpty(ro.DB, defaultCachePath())
}

func commandContext(ro *globalOptions) (context.Context, context.CancelFunc) {
	timing := &timingRecorder{calls: map[string]time.Duration{}}
	base := context.WithValue(context.Background(), timingContextKey{}, timing)
	if ro == nil || ro.Timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, ro.Timeout)
}

type timeoutResult[T any] struct {
	val T
	err error
}

type timingContextKey struct{}

type timingRecorder struct {
	mu    sync.Mutex
	calls map[string]time.Duration
}

func (r *timingRecorder) add(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[name] += d
}

func sourceTimings(ctx context.Context) map[string]string {
	rec, _ := ctx.Value(timingContextKey{}).(*timingRecorder)
	if rec == nil {
		return nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.calls) == 0 {
		return nil
	}
	keys := make([]string, 0, len(rec.calls))
	for k := range rec.calls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = rec.calls[k].String()
	}
	return out
}

func withTimeout[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	ch := make(chan timeoutResult[T], 1)
	go func() {
		v, err := fn()
		ch <- timeoutResult[T]{val: v, err: err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		return res.val, res.err
	}
}

// callSource runs one source call under ctx, annotating and timing it.
func callSource[T any](ctx context.Context, log *zap.Logger, phase string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := withTimeout(ctx, fn)
	err = annotateSourceError(ctx, phase, err)
	elapsed := time.Since(start)
	recordTiming(ctx, phase, elapsed)
	if log != nil {
		if err != nil {
			log.Debug("source call failed", zap.String("phase", phase), zap.Duration("elapsed", elapsed), zap.Error(err))
		} else {
			log.Debug("source call", zap.String("phase", phase), zap.Duration("elapsed", elapsed))
		}
	}
	return v, err
}

func doctorWithTimeout(ctx context.Context, log *zap.Logger, src source.Source) ([]contract.DoctorCheck, error) {
	return callSource(ctx, log, "source.doctor", func() ([]contract.DoctorCheck, error) {
		return src.Doctor(ctx)
	})
}

func listBookingsWithTimeout(ctx context.Context, log *zap.Logger, src source.Source, f source.Filter) ([]contract.Booking, error) {
	return callSource(ctx, log, "source.list_bookings", func() ([]contract.Booking, error) {
		return src.ListBookings(ctx, f)
	})
}

func getBookingWithTimeout(ctx context.Context, log *zap.Logger, src source.Source, id string) (*contract.Booking, error) {
	return callSource(ctx, log, "source.get_booking", func() (*contract.Booking, error) {
		return src.GetBooking(ctx, id)
	})
}

func workingHoursWithTimeout(ctx context.Context, log *zap.Logger, src source.Source) (*contract.WorkingHours, error) {
	return callSource(ctx, log, "source.working_hours", func() (*contract.WorkingHours, error) {
		return src.WorkingHours(ctx)
	})
}

func recordTiming(ctx context.Context, name string, d time.Duration) {
	rec, _ := ctx.Value(timingContextKey{}).(*timingRecorder)
	if rec == nil {
		return
	}
	rec.add(name, d)
}

func successWithMeta(ctx context.Context, p output.Printer, ro *globalOptions, data any, meta map[string]any, warnings []string) error {
	if ro != nil && ro.Verbose {
		if timings := sourceTimings(ctx); len(timings) > 0 {
			if meta == nil {
				meta = map[string]any{}
			}
			meta["timings"] = timings
			if ro.logger != nil {
				ro.logger.Debug("timings", zap.Any("timings", timings))
			}
		}
	}
	return p.Success(data, meta, warnings)
}

func isHealthCommand(command string) bool {
	return strings.HasPrefix(command, "doctor") || strings.HasPrefix(command, "status")
}

func renderTopLevelError(cmd *cobra.Command, err error) {
	var appErr AppError
	if errors.As(err, &appErr) && appErr.Printed {
		return
	}
	if wantsStructuredErrorOutput(os.Args[1:]) {
		printer := output.Printer{
			Mode:          output.ModeJSON,
			SchemaVersion: contract.SchemaVersion,
			Err:           cmd.ErrOrStderr(),
		}
		_ = printer.ErrorWithMeta(errorCodeForExit(ExitCode(err)), err.Error(), "", sourceErrorMeta(err))
		return
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", err.Error())
}

func wantsStructuredErrorOutput(args []string) bool {
	for _, arg := range args {
		switch {
		case arg == "--":
			return false
		case arg == "--json", arg == "--jsonl":
			return true
		case strings.HasPrefix(arg, "--json="), strings.HasPrefix(arg, "--jsonl="):
			return true
		}
	}
	return false
}

// bookingWindow parses --from/--to; a date-only --to covers that whole day.
func bookingWindow(fromS, toS string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	var from, to time.Time
	if strings.TrimSpace(fromS) != "" {
		v, err := timeparse.ParseDateTime(fromS, now, loc)
		if err != nil {
			return from, to, fmt.Errorf("invalid --from: %w", err)
		}
		from = v
	}
	if strings.TrimSpace(toS) != "" {
		v, err := timeparse.ParseDateTime(toS, now, loc)
		if err != nil {
			return from, to, fmt.Errorf("invalid --to: %w", err)
		}
		if timeparse.IsDateOnly(toS) {
			_, v = calendar.DayBounds(v)
		}
		to = v
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, errors.New("--to must not be earlier than --from")
	}
	return from, to, nil
}

func resolveLocation(tz string) (*time.Location, error) {
	if strings.TrimSpace(tz) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(strings.TrimSpace(tz))
	if err != nil {
		return nil, fmt.Errorf("invalid --tz: %s", tz)
	}
	return loc, nil
}

// location returns the resolved timezone; buildContext has already validated it.
func (ro *globalOptions) location() *time.Location {
	loc, err := resolveLocation(ro.TZ)
	if err != nil {
		return time.Local
	}
	return loc
}

func (ro *globalOptions) weekStart() time.Weekday {
	wd, err := calendar.ParseWeekStart(ro.WeekStart)
	if err != nil {
		return time.Monday
	}
	return wd
}

func parseMonthOrDate(v string, now time.Time, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(v)
	if s == "" {
		s = "today"
	}
	if ts, err := time.ParseInLocation("2006-01", s, loc); err == nil {
		return ts, nil
	}
	return timeparse.ParseDateTime(s, now, loc)
}

func parseStatuses(v string) []contract.Status {
	parts := splitCSV(v)
	if len(parts) == 0 {
		return nil
	}
	out := make([]contract.Status, 0, len(parts))
	for _, p := range parts {
		out = append(out, contract.Status(strings.ToLower(p)))
	}
	return out
}

func conflictCount(vals ...bool) int {
	total := 0
	for _, v := range vals {
		if v {
			total++
		}
	}
	return total
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
