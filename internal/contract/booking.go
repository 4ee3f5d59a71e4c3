package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusBlocked    Status = "blocked"
	StatusInProgress Status = "in_progress"
	StatusNoShow     Status = "no_show"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentPartial  PaymentStatus = "partial"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// Booking is a read-only booking record as served by the booking backend.
// Decoding normalizes ids, timestamps and client/service/professional
// references once so later stages never inspect raw JSON shapes.
type Booking struct {
	ID            string        `json:"id"`
	StartTime     time.Time     `json:"startTime"`
	EndTime       time.Time     `json:"endTime"`
	Status        Status        `json:"status"`
	Client        Ref           `json:"client"`
	Service       Ref           `json:"service"`
	Professional  Ref           `json:"professional"`
	PaymentStatus PaymentStatus `json:"paymentStatus,omitempty"`
	Pricing       *Pricing      `json:"pricing,omitempty"`
	Payment       *Payment      `json:"payment,omitempty"`
	Recurrence    *Recurrence   `json:"recurrence,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type bookingWire struct {
	ID            Identifier    `json:"id"`
	MongoID       Identifier    `json:"_id"`
	StartTime     string        `json:"startTime"`
	EndTime       string        `json:"endTime"`
	Status        Status        `json:"status"`
	Client        Ref           `json:"client"`
	Service       Ref           `json:"service"`
	Professional  Ref           `json:"professional"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Pricing       *Pricing      `json:"pricing"`
	Payment       *Payment      `json:"payment"`
	Recurrence    *Recurrence   `json:"recurrence"`
	Notes         string        `json:"notes"`
	CreatedAt     string        `json:"createdAt"`
}

func (b *Booking) UnmarshalJSON(data []byte) error {
	var w bookingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id := string(w.ID)
	if id == "" {
		id = string(w.MongoID)
	}
	start, _ := ParseInstant(w.StartTime)
	end, _ := ParseInstant(w.EndTime)
	created, _ := ParseInstant(w.CreatedAt)
	*b = Booking{
		ID:            id,
		StartTime:     start,
		EndTime:       end,
		Status:        Status(strings.ToLower(strings.TrimSpace(string(w.Status)))),
		Client:        w.Client,
		Service:       w.Service,
		Professional:  w.Professional,
		PaymentStatus: PaymentStatus(strings.ToLower(strings.TrimSpace(string(w.PaymentStatus)))),
		Pricing:       w.Pricing,
		Payment:       w.Payment,
		Recurrence:    w.Recurrence,
		Notes:         w.Notes,
		CreatedAt:     created,
	}
	return nil
}

// DurationMinutes may be zero or negative for malformed records.
func (b Booking) DurationMinutes() int {
	return int(b.EndTime.Sub(b.StartTime) / time.Minute)
}

func (b Booking) HasStart() bool { return !b.StartTime.IsZero() }

type Pricing struct {
	BasePrice         Money   `json:"basePrice,omitempty"`
	TotalPrice        Money   `json:"totalPrice,omitempty"`
	VoucherDiscount   Money   `json:"voucherDiscount,omitempty"`
	DiscountAmount    Money   `json:"discountAmount,omitempty"`
	CommissionAmount  Money   `json:"commissionAmount,omitempty"`
	AdditionalCharges Charges `json:"additionalCharges,omitempty"`
}

type Payment struct {
	PaidAmount     Money    `json:"paidAmount,omitempty"`
	Method         string   `json:"method,omitempty"`
	TransactionIDs []string `json:"transactionIds,omitempty"`
}

type Recurrence struct {
	IsRecurring       bool        `json:"isRecurring"`
	ParentBookingID   Identifier  `json:"parentBookingId,omitempty"`
	Frequency         string      `json:"frequency,omitempty"`
	Interval          int         `json:"interval,omitempty"`
	CurrentOccurrence int         `json:"currentOccurrence,omitempty"`
	TotalOccurrences  int         `json:"totalOccurrences,omitempty"`
	DaysOfWeek        []DayOfWeek `json:"daysOfWeek,omitempty"`
	EndDate           string      `json:"endDate,omitempty"`
}

// Money accepts JSON numbers, numeric strings and null.
type Money float64

func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*m = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s", string(data))
	}
	*m = Money(v)
	return nil
}

type Charge struct {
	Name   string `json:"name,omitempty"`
	Amount Money  `json:"amount"`
}

// Charges accepts either a pre-summed number or a list of charge objects.
type Charges []Charge

func (c *Charges) UnmarshalJSON(data []byte) error {
	s := bytes.TrimSpace(data)
	if len(s) == 0 || bytes.Equal(s, []byte("null")) {
		*c = nil
		return nil
	}
	if s[0] == '[' {
		var items []Charge
		if err := json.Unmarshal(s, &items); err != nil {
			return err
		}
		*c = items
		return nil
	}
	var total Money
	if err := total.UnmarshalJSON(s); err != nil {
		return err
	}
	*c = Charges{{Amount: total}}
	return nil
}

func (c Charges) Total() Money {
	var sum Money
	for _, ch := range c {
		sum += ch.Amount
	}
	return sum
}

// Identifier accepts JSON strings and numbers.
type Identifier string

func (id *Identifier) UnmarshalJSON(data []byte) error {
	s := bytes.TrimSpace(data)
	if len(s) == 0 || bytes.Equal(s, []byte("null")) {
		*id = ""
		return nil
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(s, &v); err != nil {
			return err
		}
		*id = Identifier(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(s, &n); err != nil {
		return fmt.Errorf("invalid identifier %s", string(data))
	}
	*id = Identifier(n.String())
	return nil
}

// DayOfWeek accepts 0-6 (Sunday first) or an English day name.
type DayOfWeek time.Weekday

func (d *DayOfWeek) UnmarshalJSON(data []byte) error {
	s := bytes.TrimSpace(data)
	if len(s) > 0 && s[0] == '"' {
		var name string
		if err := json.Unmarshal(s, &name); err != nil {
			return err
		}
		wd, ok := WeekdayByName(name)
		if !ok {
			return fmt.Errorf("invalid day of week %q", name)
		}
		*d = DayOfWeek(wd)
		return nil
	}
	var n int
	if err := json.Unmarshal(s, &n); err != nil || n < 0 || n > 6 {
		return fmt.Errorf("invalid day of week %s", string(data))
	}
	*d = DayOfWeek(n)
	return nil
}

func (d DayOfWeek) Weekday() time.Weekday { return time.Weekday(d) }

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseInstant parses the ISO-8601 variants the booking backend emits.
// Values without an offset are read as UTC.
func ParseInstant(s string) (time.Time, bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range instantLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
