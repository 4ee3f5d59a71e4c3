package calendar

import "github.com/agis/bookcal/internal/contract"

// Tone is the display treatment for a booking status.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneInfo    Tone = "info"
	ToneWarning Tone = "warning"
	ToneDanger  Tone = "danger"
	ToneMuted   Tone = "muted"
	ToneDefault Tone = "default"
)

// StatusTone never fails; unknown statuses get ToneDefault.
func StatusTone(s contract.Status) Tone {
	switch s {
	case contract.StatusConfirmed:
		return ToneSuccess
	case contract.StatusCompleted:
		return ToneInfo
	case contract.StatusPending:
		return ToneWarning
	case contract.StatusCancelled:
		return ToneDanger
	case contract.StatusBlocked:
		return ToneMuted
	default:
		return ToneDefault
	}
}
