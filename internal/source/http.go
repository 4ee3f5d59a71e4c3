package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/agis/bookcal/internal/contract"
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

// HTTPSource reads the booking backend's REST API.
type HTTPSource struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPSource(baseURL, token string) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Token:   strings.TrimSpace(token),
		Client:  &http.Client{},
	}
}

func (s *HTTPSource) Doctor(ctx context.Context) ([]contract.DoctorCheck, error) {
	if s.BaseURL == "" {
		return []contract.DoctorCheck{{Name: "api_url", Status: "fail", Message: "no API URL configured"}}, fmt.Errorf("%w: no API URL configured", ErrUnavailable)
	}
	checks := []contract.DoctorCheck{{Name: "api_url", Status: "ok", Message: s.BaseURL}}
	if s.Token == "" {
		checks = append(checks, contract.DoctorCheck{Name: "api_token", Status: "warn", Message: "no API token configured"})
	} else {
		checks = append(checks, contract.DoctorCheck{Name: "api_token", Status: "ok", Message: "token configured"})
	}
	if _, err := s.WorkingHours(ctx); err != nil {
		checks = append(checks, contract.DoctorCheck{Name: "api_reachable", Status: "fail", Message: err.Error()})
		return checks, err
	}
	checks = append(checks, contract.DoctorCheck{Name: "api_reachable", Status: "ok", Message: "working hours endpoint answered"})
	return checks, nil
}

func (s *HTTPSource) ListBookings(ctx context.Context, f Filter) ([]contract.Booking, error) {
	q := url.Values{}
	if !f.From.IsZero() {
		q.Set("from", f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.UTC().Format(time.RFC3339))
	}
	if len(f.Statuses) > 0 {
		parts := make([]string, 0, len(f.Statuses))
		for _, st := range f.Statuses {
			parts = append(parts, string(st))
		}
		q.Set("status", strings.Join(parts, ","))
	}
	if len(f.Professionals) > 0 {
		q.Set("professional", strings.Join(f.Professionals, ","))
	}
	if len(f.Services) > 0 {
		q.Set("service", strings.Join(f.Services, ","))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	raw, err := s.get(ctx, "/bookings", q)
	if err != nil {
		return nil, err
	}
	items, err := decodeBookingList(raw)
	if err != nil {
		return nil, err
	}
	// The backend may ignore some parameters; filter again locally.
	return f.Apply(items), nil
}

func (s *HTTPSource) GetBooking(ctx context.Context, id string) (*contract.Booking, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	raw, err := s.get(ctx, "/bookings/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	body := unwrap(raw, "booking")
	var b contract.Booking
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("%w: booking: %v", ErrDecode, err)
	}
	if b.ID == "" {
		b.ID = id
	}
	return &b, nil
}

func (s *HTTPSource) WorkingHours(ctx context.Context) (*contract.WorkingHours, error) {
	raw, err := s.get(ctx, "/working-hours", nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	body := unwrap(raw, "workingHours")
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil, nil
	}
	var wh contract.WorkingHours
	if err := json.Unmarshal(body, &wh); err != nil {
		return nil, fmt.Errorf("%w: working hours: %v", ErrDecode, err)
	}
	return &wh, nil
}

func (s *HTTPSource) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if s.BaseURL == "" {
		return nil, fmt.Errorf("%w: no API URL configured", ErrUnavailable)
	}
	target := s.BaseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrUnavailable, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: GET %s: %v", ErrUnavailable, path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: read body: %v", ErrUnavailable, path, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrUnavailable, path, resp.StatusCode)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrUnexpectedStatus, path, resp.StatusCode)
	}
	return body, nil
}

// unwrap strips the {"data": ...} or {"<key>": ...} envelopes the backend
// uses around payloads.
func unwrap(raw []byte, key string) []byte {
	trimmed := bytes.TrimSpace(raw)
	for i := 0; i < 2; i++ {
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return trimmed
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return trimmed
		}
		if v, ok := obj[key]; ok {
			return bytes.TrimSpace(v)
		}
		v, ok := obj["data"]
		if !ok {
			return trimmed
		}
		trimmed = bytes.TrimSpace(v)
	}
	return trimmed
}

func decodeBookingList(raw []byte) ([]contract.Booking, error) {
	body := unwrap(raw, "bookings")
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []contract.Booking{}, nil
	}
	var items []contract.Booking
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: bookings: %v", ErrDecode, err)
	}
	return items, nil
}
