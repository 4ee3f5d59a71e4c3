package app

import (
	"strings"

	"github.com/agis/bookcal/internal/contract"
)

type setupResult struct {
	Ready     bool                   `json:"ready"`
	Degraded  bool                   `json:"degraded"`
	Checks    []contract.DoctorCheck `json:"checks"`
	NextSteps []string               `json:"next_steps,omitempty"`
	Notes     []string               `json:"notes,omitempty"`
	Source    string                 `json:"source"`
}

// buildSetupResult folds doctor checks into readiness: any failed check
// makes the source not ready, any warning marks it degraded.
func buildSetupResult(checks []contract.DoctorCheck, derr error, src string) setupResult {
	kind := strings.ToLower(strings.TrimSpace(src))
	if kind == "" {
		kind = "file"
	}
	res := setupResult{
		Ready:  true,
		Checks: checks,
		Source: kind,
	}

	for _, c := range checks {
		switch strings.ToLower(strings.TrimSpace(c.Status)) {
		case "ok", "pass", "":
		case "warn":
			res.Degraded = true
			if c.Message != "" {
				res.Notes = append(res.Notes, c.Name+": "+c.Message)
			}
		default:
			res.Ready = false
		}
		if step := nextStepFor(c); step != "" {
			res.NextSteps = append(res.NextSteps, step)
		}
	}
	if len(checks) == 0 && derr != nil {
		res.Ready = false
	}

	if res.Ready {
		res.NextSteps = append(res.NextSteps, "Verify with: `bookcal hours --json`")
		res.NextSteps = append(res.NextSteps, "Lay out today with: `bookcal day`")
	}
	if derr != nil && !res.Ready {
		res.Notes = append(res.Notes, derr.Error())
	}
	return res
}

func nextStepFor(c contract.DoctorCheck) string {
	status := strings.ToLower(strings.TrimSpace(c.Status))
	if status == "ok" || status == "pass" || status == "" {
		return ""
	}
	switch c.Name {
	case "snapshot_file":
		return "Point --file (or BOOKCAL_FILE) at a readable bookings JSON snapshot."
	case "snapshot_decode":
		return "The snapshot must be a JSON array of bookings or an object with `bookings` and `workingHours`."
	case "working_hours":
		return "Optional: add `workingHours` to the snapshot so hour ranges follow the business week."
	case "api_url":
		return "Set --url (or BOOKCAL_URL) to the booking API base URL."
	case "api_token":
		return "Optional: set BOOKCAL_TOKEN if the booking API requires a bearer token."
	case "api_reachable":
		return "Check that the booking API is up and answers GET /working-hours."
	case "cache_db":
		return "Check that --db (or BOOKCAL_DB) points to a writable location."
	case "cache_snapshot":
		return "Fill the cache with: `bookcal cache import --source file --file bookings.json`"
	default:
		return ""
	}
}
