// Package stats reduces booking lists into dashboard numbers.
package stats

import (
	"github.com/agis/bookcal/internal/contract"
)

type Summary struct {
	Total    int                     `json:"total"`
	ByStatus map[contract.Status]int `json:"by_status"`
	Revenue  float64                 `json:"revenue"`
}

// Summarize counts bookings per status and sums realized revenue. Statuses
// that never appear are absent from ByStatus; use DisplayCounts for a fixed
// set.
func Summarize(bookings []contract.Booking) Summary {
	out := Summary{ByStatus: map[contract.Status]int{}}
	for _, b := range bookings {
		out.Total++
		out.ByStatus[b.Status]++
		out.Revenue += RealizedAmount(b)
	}
	return out
}

// DisplayStatuses is the stable status set dashboards render.
var DisplayStatuses = []contract.Status{
	contract.StatusConfirmed,
	contract.StatusPending,
	contract.StatusCompleted,
	contract.StatusCancelled,
}

type StatusCount struct {
	Status contract.Status `json:"status"`
	Count  int             `json:"count"`
}

// DisplayCounts zero-fills DisplayStatuses from byStatus, in that order.
func DisplayCounts(byStatus map[contract.Status]int) []StatusCount {
	out := make([]StatusCount, 0, len(DisplayStatuses))
	for _, s := range DisplayStatuses {
		out = append(out, StatusCount{Status: s, Count: byStatus[s]})
	}
	return out
}

func paidOrPartial(b contract.Booking) bool {
	return b.PaymentStatus == contract.PaymentPaid || b.PaymentStatus == contract.PaymentPartial
}

// IsRealized reports whether b counts toward revenue: completed, or paid in
// full or in part, whatever its status.
func IsRealized(b contract.Booking) bool {
	return b.Status == contract.StatusCompleted || paidOrPartial(b)
}

// AmountOf is the value attributed to b. Paid and partial bookings use the
// recorded paid amount; others use the total price, then the embedded
// service price. Zero amounts fall through to the next source.
func AmountOf(b contract.Booking) float64 {
	if paidOrPartial(b) {
		if b.Payment == nil {
			return 0
		}
		return float64(b.Payment.PaidAmount)
	}
	if b.Pricing != nil && b.Pricing.TotalPrice != 0 {
		return float64(b.Pricing.TotalPrice)
	}
	if b.Service.Kind == contract.RefEmbedded && b.Service.Price != 0 {
		return float64(b.Service.Price)
	}
	return 0
}

// RealizedAmount is AmountOf for realized bookings and 0 otherwise.
func RealizedAmount(b contract.Booking) float64 {
	if !IsRealized(b) {
		return 0
	}
	return AmountOf(b)
}
