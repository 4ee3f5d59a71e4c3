package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/agis/bookcal/internal/contract"
	"github.com/agis/bookcal/internal/output"
	"github.com/agis/bookcal/internal/source"
)

const (
	exitGeneric           = 1
	exitInvalidUsage      = 2
	exitNotFound          = 4
	exitSourceUnavailable = 6
)

type AppError struct {
	Code    int
	Err     error
	Printed bool
}

func (e AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e AppError) Unwrap() error { return e.Err }

func Wrap(code int, err error) error {
	if err == nil {
		return nil
	}
	return AppError{Code: code, Err: err}
}

func WrapPrinted(code int, err error) error {
	if err == nil {
		return nil
	}
	return AppError{Code: code, Err: err, Printed: true}
}

func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e AppError
	if errors.As(err, &e) {
		return e.Code
	}
	return exitGeneric
}

func failWithHint(p output.Printer, code contract.ErrorCode, err error, hint string, exitCode int) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	_ = p.Error(code, err.Error(), hint)
	return WrapPrinted(exitCode, err)
}

func failUsage(p output.Printer, err error, hint string) error {
	return failWithHint(p, contract.ErrInvalidUsage, err, hint, exitInvalidUsage)
}

// failSource reports a source call failure with its phase metadata.
func failSource(p output.Printer, err error, hint string) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	code, exit := contract.ErrSourceUnavailable, exitSourceUnavailable
	switch {
	case errors.Is(err, source.ErrNotFound):
		code, exit = contract.ErrNotFound, exitNotFound
		if hint == "" {
			hint = "Run `bookcal bookings list` to find valid ids"
		}
	case errors.Is(err, context.DeadlineExceeded):
		if hint == "" {
			hint = "Increase --timeout or check the source with `bookcal doctor`"
		}
	case hint == "":
		hint = "Run `bookcal doctor` to check the configured source"
	}
	_ = p.ErrorWithMeta(code, err.Error(), hint, sourceErrorMeta(err))
	return WrapPrinted(exit, err)
}

func errorCodeForExit(code int) contract.ErrorCode {
	switch code {
	case exitInvalidUsage:
		return contract.ErrInvalidUsage
	case exitNotFound:
		return contract.ErrNotFound
	case exitSourceUnavailable:
		return contract.ErrSourceUnavailable
	default:
		return contract.ErrGeneric
	}
}
