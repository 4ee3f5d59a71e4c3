package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/agis/bookcal/internal/contract"
)

// Snapshot is the on-disk export format: an object with working hours and
// bookings, or a bare booking array.
type Snapshot struct {
	WorkingHours *contract.WorkingHours `json:"workingHours,omitempty"`
	Bookings     []contract.Booking     `json:"bookings"`
}

func DecodeSnapshot(raw []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Snapshot{}, fmt.Errorf("%w: empty snapshot", ErrDecode)
	}
	if trimmed[0] == '[' {
		var items []contract.Booking
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Snapshot{}, fmt.Errorf("%w: bookings: %v", ErrDecode, err)
		}
		return Snapshot{Bookings: items}, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: snapshot: %v", ErrDecode, err)
	}
	return snap, nil
}

// FileSource serves a JSON snapshot. Path "-" reads stdin once.
type FileSource struct {
	Path  string
	Stdin io.Reader

	once sync.Once
	snap Snapshot
	err  error
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: strings.TrimSpace(path), Stdin: os.Stdin}
}

func (s *FileSource) load() (Snapshot, error) {
	if s.Path == "-" {
		s.once.Do(func() {
			raw, err := io.ReadAll(s.Stdin)
			if err != nil {
				s.err = fmt.Errorf("%w: read stdin: %v", ErrUnavailable, err)
				return
			}
			s.snap, s.err = DecodeSnapshot(raw)
		})
		return s.snap, s.err
	}
	if s.Path == "" {
		return Snapshot{}, fmt.Errorf("%w: no snapshot file configured", ErrUnavailable)
	}
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return DecodeSnapshot(raw)
}

func (s *FileSource) Doctor(context.Context) ([]contract.DoctorCheck, error) {
	if s.Path == "" {
		return []contract.DoctorCheck{{Name: "snapshot_file", Status: "fail", Message: "no snapshot file configured"}}, fmt.Errorf("%w: no snapshot file configured", ErrUnavailable)
	}
	if s.Path != "-" {
		if _, err := os.Stat(s.Path); err != nil {
			return []contract.DoctorCheck{{Name: "snapshot_file", Status: "fail", Message: err.Error()}}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	checks := []contract.DoctorCheck{{Name: "snapshot_file", Status: "ok", Message: s.Path}}
	snap, err := s.load()
	if err != nil {
		checks = append(checks, contract.DoctorCheck{Name: "snapshot_decode", Status: "fail", Message: err.Error()})
		return checks, err
	}
	checks = append(checks, contract.DoctorCheck{Name: "snapshot_decode", Status: "ok", Message: fmt.Sprintf("%d bookings", len(snap.Bookings))})
	if snap.WorkingHours == nil {
		checks = append(checks, contract.DoctorCheck{Name: "working_hours", Status: "warn", Message: "no working hours in snapshot; defaults apply"})
	} else {
		checks = append(checks, contract.DoctorCheck{Name: "working_hours", Status: "ok", Message: "working hours present"})
	}
	return checks, nil
}

func (s *FileSource) ListBookings(_ context.Context, f Filter) ([]contract.Booking, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	return f.Apply(snap.Bookings), nil
}

func (s *FileSource) GetBooking(_ context.Context, id string) (*contract.Booking, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	return findByID(snap.Bookings, id)
}

func (s *FileSource) WorkingHours(context.Context) (*contract.WorkingHours, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	return snap.WorkingHours, nil
}
