package app

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agis/bookcal/internal/contract"
	"github.com/agis/bookcal/internal/output"
)

type statusResult struct {
	Ready         bool                   `json:"ready"`
	Degraded      bool                   `json:"degraded"`
	Source        string                 `json:"source"`
	Profile       string                 `json:"profile"`
	TZ            string                 `json:"tz,omitempty"`
	WeekStart     string                 `json:"week_start"`
	OutputMode    string                 `json:"output_mode"`
	SchemaVersion string                 `json:"schema_version"`
	Checks        []contract.DoctorCheck `json:"checks"`
	NextSteps     []string               `json:"next_steps,omitempty"`
	ReasonCodes   []string               `json:"degraded_reason_codes,omitempty"`
}

func newVersionCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := buildPrinter(cmd, opts, "version")
			if err != nil {
				return err
			}
			if p.Mode == output.ModeJSON || p.Mode == output.ModeJSONL {
				return p.Success(currentVersion(), nil, nil)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "bookcal %s\n", BuildVersionString())
			return nil
		},
	}
}

func newDoctorCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run preflight checks against the configured source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, src, ro, err := buildContext(cmd, opts, "doctor")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			checks, derr := doctorWithTimeout(ctx, ro.logger, src)
			setup := buildSetupResult(checks, derr, ro.Source)
			reasonCodes := deriveDegradedReasonCodes(checks, derr)
			meta := map[string]any{
				"count":                 len(checks),
				"ready":                 setup.Ready,
				"degraded":              setup.Degraded,
				"degraded_reason_codes": reasonCodes,
			}
			if p.EffectiveSuccessMode() == output.ModePlain {
				_ = printDoctorPlain(cmd.OutOrStdout(), checks, setup, reasonCodes)
			} else {
				_ = successWithMeta(ctx, p, ro, checks, meta, setup.Notes)
			}
			if !setup.Ready {
				if derr == nil {
					derr = fmt.Errorf("doctor checks not ready")
				}
				return WrapPrinted(exitSourceUnavailable, derr)
			}
			return nil
		},
	}
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	status := &cobra.Command{
		Use:   "status",
		Short: "Show source health and active runtime configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, src, ro, err := buildContext(cmd, opts, "status")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			checks, derr := doctorWithTimeout(ctx, ro.logger, src)
			setup := buildSetupResult(checks, derr, ro.Source)
			reasonCodes := deriveDegradedReasonCodes(checks, derr)
			res := statusResult{
				Ready:         setup.Ready,
				Degraded:      setup.Degraded,
				Source:        setup.Source,
				Profile:       ro.Profile,
				TZ:            ro.TZ,
				WeekStart:     ro.weekStart().String(),
				OutputMode:    string(p.EffectiveSuccessMode()),
				SchemaVersion: ro.SchemaVersion,
				Checks:        checks,
				NextSteps:     setup.NextSteps,
				ReasonCodes:   reasonCodes,
			}
			meta := map[string]any{
				"ready":                 res.Ready,
				"degraded":              res.Degraded,
				"checks":                len(res.Checks),
				"degraded_reason_codes": reasonCodes,
			}
			if p.EffectiveSuccessMode() == output.ModePlain {
				_ = printStatusPlain(cmd.OutOrStdout(), res)
			} else {
				_ = successWithMeta(ctx, p, ro, res, meta, nil)
			}
			if !setup.Ready {
				if derr == nil {
					derr = fmt.Errorf("status not ready")
				}
				_ = p.Error(contract.ErrSourceUnavailable, derr.Error(), "Run `bookcal status explain` for remediation")
				return WrapPrinted(exitSourceUnavailable, derr)
			}
			return nil
		},
	}
	explain := &cobra.Command{
		Use:   "explain",
		Short: "Explain current health state and remediation steps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, src, ro, err := buildContext(cmd, opts, "status.explain")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			checks, derr := doctorWithTimeout(ctx, ro.logger, src)
			setup := buildSetupResult(checks, derr, ro.Source)
			reasons := deriveDegradedReasonCodes(checks, derr)
			if p.EffectiveSuccessMode() == output.ModePlain {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ready=%t degraded=%t\n", setup.Ready, setup.Degraded)
				if len(reasons) > 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reasons=%s\n", strings.Join(reasons, ","))
				}
				for _, s := range setup.NextSteps {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", s)
				}
			} else {
				_ = successWithMeta(ctx, p, ro, map[string]any{
					"ready":                 setup.Ready,
					"degraded":              setup.Degraded,
					"degraded_reason_codes": reasons,
					"next_steps":            setup.NextSteps,
				}, map[string]any{"count": len(setup.NextSteps)}, setup.Notes)
			}
			if !setup.Ready {
				if derr == nil {
					derr = fmt.Errorf("status not ready")
				}
				return WrapPrinted(exitSourceUnavailable, derr)
			}
			return nil
		},
	}
	status.AddCommand(explain)
	return status
}

func newCompletionCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion <bash|zsh|fish|powershell>",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := strings.ToLower(args[0])
			switch shell {
			case "bash":
				return root.GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return root.GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return root.GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return root.GenPowerShellCompletion(cmd.OutOrStdout())
			default:
				return Wrap(exitInvalidUsage, fmt.Errorf("unsupported shell: %s", shell))
			}
		},
	}
}

func deriveDegradedReasonCodes(checks []contract.DoctorCheck, derr error) []string {
	codeSet := map[string]struct{}{}
	for _, c := range checks {
		status := strings.ToLower(strings.TrimSpace(c.Status))
		if status == "" || status == "ok" || status == "pass" {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(c.Name))
		name = strings.ReplaceAll(name, " ", "_")
		name = strings.ReplaceAll(name, "-", "_")
		if name == "" {
			name = "unknown_check"
		}
		codeSet[name+"_"+status] = struct{}{}
	}
	if derr != nil {
		codeSet["doctor_error"] = struct{}{}
	}
	if len(codeSet) == 0 {
		return nil
	}
	out := make([]string, 0, len(codeSet))
	for code := range codeSet {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func printDoctorPlain(out io.Writer, checks []contract.DoctorCheck, setup setupResult, reasonCodes []string) error {
	_, _ = fmt.Fprintf(out, "ready=%t degraded=%t source=%s checks=%d\n", setup.Ready, setup.Degraded, setup.Source, len(checks))
	if len(reasonCodes) > 0 {
		_, _ = fmt.Fprintf(out, "reasons=%s\n", strings.Join(reasonCodes, ","))
	}
	for _, c := range checks {
		_, _ = fmt.Fprintf(out, "[%s] %s: %s\n", c.Status, c.Name, c.Message)
	}
	for _, step := range setup.NextSteps {
		_, _ = fmt.Fprintf(out, "next: %s\n", step)
	}
	return nil
}

func printStatusPlain(out io.Writer, res statusResult) error {
	_, _ = fmt.Fprintf(out, "ready=%t degraded=%t source=%s profile=%s week_start=%s output_mode=%s checks=%d\n",
		res.Ready, res.Degraded, res.Source, res.Profile, strings.ToLower(res.WeekStart), res.OutputMode, len(res.Checks))
	if len(res.ReasonCodes) > 0 {
		_, _ = fmt.Fprintf(out, "reasons=%s\n", strings.Join(res.ReasonCodes, ","))
	}
	for _, c := range res.Checks {
		_, _ = fmt.Fprintf(out, "[%s] %s: %s\n", c.Status, c.Name, c.Message)
	}
	return nil
}
