package contract

import "time"

const SchemaVersion = "v1"

type ErrorCode string

const (
	ErrGeneric           ErrorCode = "GENERIC_FAILURE"
	ErrInvalidUsage      ErrorCode = "INVALID_USAGE"
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"
)

type ErrorEnvelope struct {
	SchemaVersion string         `json:"schema_version"`
	Error         ErrorBody      `json:"error"`
	Meta          map[string]any `json:"meta,omitempty"`
}

type ErrorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Hint    string    `json:"hint,omitempty"`
}

type SuccessEnvelope struct {
	SchemaVersion string         `json:"schema_version"`
	Command       string         `json:"command"`
	GeneratedAt   time.Time      `json:"generated_at"`
	Data          any            `json:"data"`
	Meta          map[string]any `json:"meta"`
	Warnings      []string       `json:"warnings"`
}

type DoctorCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
