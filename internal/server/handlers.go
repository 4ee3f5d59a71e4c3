package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agis/bookcal/internal/calendar"
	"github.com/agis/bookcal/internal/contract"
	"github.com/agis/bookcal/internal/source"
	"github.com/agis/bookcal/internal/stats"
	"github.com/agis/bookcal/internal/timeparse"
)

type hoursResponse struct {
	Date   string             `json:"date,omitempty"`
	Range  calendar.HourRange `json:"range"`
	Rows   []int              `json:"rows"`
	Labels []string           `json:"labels"`
}

type summaryResponse struct {
	From     string                  `json:"from,omitempty"`
	To       string                  `json:"to,omitempty"`
	Total    int                     `json:"total"`
	Revenue  float64                 `json:"revenue"`
	Counts   []stats.StatusCount     `json:"counts"`
	ByStatus map[contract.Status]int `json:"by_status"`
	Days     []stats.DaySummary      `json:"days,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": s.cfg.Version})
}

func (s *Server) hours(c *gin.Context) {
	var date time.Time
	if v := c.Query("date"); v != "" {
		d, err := s.parseDate(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		date = d
	}
	wh, ok := s.workingHours(c)
	if !ok {
		return
	}
	r := s.cfg.Settings.ResolveHourRange(wh, date)
	resp := hoursResponse{Range: r, Rows: calendar.BuildHourRows(r)}
	if !date.IsZero() {
		resp.Date = date.Format("2006-01-02")
	}
	for _, h := range resp.Rows {
		resp.Labels = append(resp.Labels, calendar.HourLabel(h))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) dayLayout(c *gin.Context) {
	day, err := s.parseDate(c.DefaultQuery("date", "today"))
	if err != nil {
		badRequest(c, err)
		return
	}
	by, err := calendar.ParsePartition(c.DefaultQuery("by", "professional"))
	if err != nil {
		badRequest(c, err)
		return
	}
	from, to := calendar.DayBounds(day)
	bookings, ok := s.listBookings(c, source.Filter{From: from, To: to})
	if !ok {
		return
	}
	wh, ok := s.workingHours(c)
	if !ok {
		return
	}
	r := s.cfg.Settings.ResolveHourRange(wh, day)
	c.JSON(http.StatusOK, s.cfg.Settings.PlaceDay(bookings, day, r, by))
}

func (s *Server) weekLayout(c *gin.Context) {
	anchor, err := s.parseDate(c.DefaultQuery("of", "today"))
	if err != nil {
		badRequest(c, err)
		return
	}
	weekStart, ok := s.weekStart(c)
	if !ok {
		return
	}
	from, to := calendar.WeekBounds(anchor, weekStart)
	bookings, ok := s.listBookings(c, source.Filter{From: from, To: to})
	if !ok {
		return
	}
	wh, ok := s.workingHours(c)
	if !ok {
		return
	}
	r := s.cfg.Settings.ResolveHourRange(wh, time.Time{})
	c.JSON(http.StatusOK, s.cfg.Settings.PlaceWeek(bookings, anchor, weekStart, r))
}

func (s *Server) monthLayout(c *gin.Context) {
	anchor, err := s.parseMonth(c.DefaultQuery("month", "today"))
	if err != nil {
		badRequest(c, err)
		return
	}
	weekStart, ok := s.weekStart(c)
	if !ok {
		return
	}
	from, to := calendar.GridBounds(anchor, weekStart)
	bookings, ok := s.listBookings(c, source.Filter{From: from, To: to})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.cfg.Settings.PlaceMonth(bookings, anchor, weekStart))
}

func (s *Server) summary(c *gin.Context) {
	var f source.Filter
	if v := c.Query("from"); v != "" {
		d, err := s.parseDate(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		f.From = d
	}
	if v := c.Query("to"); v != "" {
		d, err := s.parseDate(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		_, f.To = calendar.DayBounds(d)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		badRequest(c, errors.New("to must not be earlier than from"))
		return
	}
	bookings, ok := s.listBookings(c, f)
	if !ok {
		return
	}
	sum := stats.Summarize(bookings)
	resp := summaryResponse{
		Total:    sum.Total,
		Revenue:  sum.Revenue,
		Counts:   stats.DisplayCounts(sum.ByStatus),
		ByStatus: sum.ByStatus,
	}
	if !f.From.IsZero() && !f.To.IsZero() {
		resp.From = f.From.Format("2006-01-02")
		resp.To = f.To.Format("2006-01-02")
		resp.Days = stats.SummarizeByDay(bookings, f.From, f.To, s.cfg.Location)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) revenue(c *gin.Context) {
	months := stats.DefaultRevenueMonths
	if v := c.Query("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 120 {
			badRequest(c, errors.New("months must be between 1 and 120"))
			return
		}
		months = n
	}
	bookings, ok := s.listBookings(c, source.Filter{})
	if !ok {
		return
	}
	now := s.cfg.Now().In(s.cfg.Location)
	c.JSON(http.StatusOK, gin.H{"months": stats.RevenueByMonth(bookings, now, months)})
}

func (s *Server) weekdays(c *gin.Context) {
	weekStart, ok := s.weekStart(c)
	if !ok {
		return
	}
	bookings, ok := s.listBookings(c, source.Filter{})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"weekdays": stats.AppointmentsByWeekday(bookings, weekStart, s.cfg.Location)})
}

func (s *Server) listBookings(c *gin.Context, f source.Filter) ([]contract.Booking, bool) {
	ctx, cancel := s.sourceContext(c)
	defer cancel()
	items, err := s.cfg.Source.ListBookings(ctx, f)
	if err != nil {
		sourceError(c, err)
		return nil, false
	}
	return items, true
}

func (s *Server) workingHours(c *gin.Context) (*contract.WorkingHours, bool) {
	ctx, cancel := s.sourceContext(c)
	defer cancel()
	wh, err := s.cfg.Source.WorkingHours(ctx)
	if err != nil {
		sourceError(c, err)
		return nil, false
	}
	return wh, true
}

func (s *Server) weekStart(c *gin.Context) (time.Weekday, bool) {
	v := c.Query("week_start")
	if v == "" {
		return s.cfg.WeekStart, true
	}
	wd, err := calendar.ParseWeekStart(v)
	if err != nil {
		badRequest(c, err)
		return 0, false
	}
	return wd, true
}

func (s *Server) parseDate(v string) (time.Time, error) {
	return timeparse.ParseDateTime(v, s.cfg.Now(), s.cfg.Location)
}

func (s *Server) parseMonth(v string) (time.Time, error) {
	if ts, err := time.ParseInLocation("2006-01", strings.TrimSpace(v), s.cfg.Location); err == nil {
		return ts, nil
	}
	return s.parseDate(v)
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": contract.ErrInvalidUsage, "details": err.Error()})
}

func sourceError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, source.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": contract.ErrNotFound, "details": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": contract.ErrSourceUnavailable, "details": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": contract.ErrSourceUnavailable, "details": err.Error()})
	}
}
