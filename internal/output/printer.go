package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/agis/bookcal/internal/contract"
)

type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeJSON  Mode = "json"
	ModeJSONL Mode = "jsonl"
	ModePlain Mode = "plain"
)

type Printer struct {
	Mode          Mode
	Command       string
	Fields        []string
	Quiet         bool
	NoColor       bool
	SchemaVersion string
	Out           io.Writer
	Err           io.Writer
}

// EffectiveSuccessMode resolves auto to plain on a terminal and JSON otherwise.
func (p Printer) EffectiveSuccessMode() Mode {
	if p.Mode != ModeAuto && p.Mode != "" {
		return p.Mode
	}
	if isTerminal(p.out()) {
		return ModePlain
	}
	return ModeJSON
}

func (p Printer) Success(data any, meta map[string]any, warnings []string) error {
	out := p.out()
	switch p.EffectiveSuccessMode() {
	case ModeJSON:
		env := contract.SuccessEnvelope{
			SchemaVersion: p.schemaVersion(),
			Command:       p.Command,
			GeneratedAt:   time.Now().UTC(),
			Data:          data,
			Meta:          meta,
			Warnings:      warnings,
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	case ModeJSONL:
		v := reflect.ValueOf(data)
		if v.IsValid() && v.Kind() == reflect.Slice {
			enc := json.NewEncoder(out)
			for i := 0; i < v.Len(); i++ {
				if err := enc.Encode(v.Index(i).Interface()); err != nil {
					return err
				}
			}
			return nil
		}
		return json.NewEncoder(out).Encode(data)
	default:
		for _, w := range warnings {
			_, _ = fmt.Fprintf(p.errOut(), "warning: %s\n", w)
		}
		return p.printPlain(data)
	}
}

func (p Printer) Error(code contract.ErrorCode, message, hint string) error {
	return p.ErrorWithMeta(code, message, hint, nil)
}

func (p Printer) ErrorWithMeta(code contract.ErrorCode, message, hint string, meta map[string]any) error {
	errOut := p.errOut()
	if p.Mode == ModeJSON || p.Mode == ModeJSONL {
		env := contract.ErrorEnvelope{
			SchemaVersion: p.schemaVersion(),
			Error:         contract.ErrorBody{Code: code, Message: message, Hint: hint},
			Meta:          meta,
		}
		enc := json.NewEncoder(errOut)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	}
	if hint != "" {
		_, _ = fmt.Fprintf(errOut, "error: %s\nhint: %s\n", message, hint)
		return nil
	}
	_, _ = fmt.Fprintf(errOut, "error: %s\n", message)
	return nil
}

// Paint wraps s in an ANSI SGR sequence when color output is allowed.
func (p Printer) Paint(sgr, s string) string {
	if sgr == "" || p.NoColor || os.Getenv("NO_COLOR") != "" || !isTerminal(p.out()) {
		return s
	}
	return "\x1b[" + sgr + "m" + s + "\x1b[0m"
}

// Lines writes plain text rows to the success stream.
func (p Printer) Lines(lines ...string) error {
	out := p.out()
	for _, l := range lines {
		if _, err := fmt.Fprintln(out, l); err != nil {
			return err
		}
	}
	return nil
}

func (p Printer) out() io.Writer {
	if p.Out == nil {
		return os.Stdout
	}
	return p.Out
}

func (p Printer) errOut() io.Writer {
	if p.Err == nil {
		return os.Stderr
	}
	return p.Err
}

func (p Printer) schemaVersion() string {
	if p.SchemaVersion == "" {
		return contract.SchemaVersion
	}
	return p.SchemaVersion
}

func (p Printer) printPlain(data any) error {
	out := p.out()
	v := reflect.ValueOf(data)
	if !v.IsValid() || (v.Kind() == reflect.Slice && v.Len() == 0) {
		if !p.Quiet {
			_, _ = fmt.Fprintln(out, "no results")
		}
		return nil
	}
	if v.Kind() == reflect.Slice {
		for i := 0; i < v.Len(); i++ {
			if _, err := fmt.Fprintln(out, flatten(v.Index(i).Interface(), p.Fields)); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := fmt.Fprintln(out, flatten(data, p.Fields))
	return err
}

func flatten(v any, fields []string) string {
	if len(fields) == 0 {
		b, _ := json.Marshal(v)
		return string(b)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		b, _ := json.Marshal(v)
		return string(b)
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		fv := rv.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, strings.ReplaceAll(f, "_", "")) || strings.EqualFold(name, f)
		})
		if !fv.IsValid() {
			parts = append(parts, "")
			continue
		}
		parts = append(parts, plainValue(fv))
	}
	return strings.Join(parts, "\t")
}

func plainValue(fv reflect.Value) string {
	switch val := fv.Interface().(type) {
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	}
	switch fv.Kind() {
	case reflect.Float32, reflect.Float64:
		return Amount(fv.Float())
	default:
		return fmt.Sprint(fv.Interface())
	}
}

// Amount renders a money value with thousands separators and two decimals.
func Amount(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
