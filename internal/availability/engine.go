// Package availability derives bookable slots from the practice's weekly
// template, manual overrides, the remote calendar's busy intervals, and the
// local booking ledger.
package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/bookings"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/calendar"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/observability/metrics"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/pendingcache"
	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

// The static weekly pattern: Tuesdays and Thursdays, four evening slots.
var (
	templateWeekdays = map[time.Weekday]bool{
		time.Tuesday:  true,
		time.Thursday: true,
	}
	templateTimes = []string{"17:00", "18:00", "19:00", "20:00"}
)

// ErrInvalidQuery reports a malformed date range.
var ErrInvalidQuery = errors.New("availability: invalid query")

// Slot is one bookable time on a date.
type Slot struct {
	Time                       string `json:"time"`
	CanAccommodateConsultation bool   `json:"canAccommodateConsultation"`
	CanAccommodateTherapy      bool   `json:"canAccommodateTherapy"`
	Reason                     string `json:"reason,omitempty"`
}

// DaySlots groups the slots of one date.
type DaySlots struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// BookingLister is the slice of the booking service the engine needs.
type BookingLister interface {
	List() ([]bookings.Booking, error)
}

// Engine computes bookable slots.
type Engine struct {
	cal          calendar.Client
	overrides    *OverrideStore
	bookingsSvc  BookingLister
	pending      *pendingcache.Buffer
	metrics      *metrics.BookingMetrics
	logger       *logging.Logger
	loc          *time.Location
	horizonWeeks int
	now          func() time.Time
}

// NewEngine wires the availability engine.
func NewEngine(cal calendar.Client, overrides *OverrideStore, bookingsSvc BookingLister, pending *pendingcache.Buffer, m *metrics.BookingMetrics, loc *time.Location, horizonWeeks int, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if horizonWeeks <= 0 {
		horizonWeeks = 12
	}
	return &Engine{
		cal:          cal,
		overrides:    overrides,
		bookingsSvc:  bookingsSvc,
		pending:      pending,
		metrics:      m,
		logger:       logger,
		loc:          loc,
		horizonWeeks: horizonWeeks,
		now:          time.Now,
	}
}

// Query narrows a Slots call.
type Query struct {
	Start string // YYYY-MM-DD inclusive
	End   string // YYYY-MM-DD inclusive
	// SessionType filters slots to those that can hold the session. Empty
	// means no filtering.
	SessionType string
	// AdminMode disables the session-type filtering and keeps blocked slots
	// visible with their reason.
	AdminMode bool
}

// Slots returns the bookable slots in the range, grouped per date. Dates and
// slots are sorted lexicographically; ISO strings make that chronological.
// A calendar failure fails the whole query, no fallback.
func (e *Engine) Slots(ctx context.Context, q Query) ([]DaySlots, error) {
	start, err := time.ParseInLocation("2006-01-02", q.Start, e.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: start date %q", ErrInvalidQuery, q.Start)
	}
	end, err := time.ParseInLocation("2006-01-02", q.End, e.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: end date %q", ErrInvalidQuery, q.End)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end before start", ErrInvalidQuery)
	}
	if horizon := e.now().In(e.loc).AddDate(0, 0, 7*e.horizonWeeks); end.After(horizon) {
		end = horizon
	}

	callStart := e.now()
	busy, err := e.cal.FreeBusy(ctx, start, end.AddDate(0, 0, 1))
	e.metrics.ObserveCalendarLatency("freebusy", time.Since(callStart).Seconds())
	if err != nil {
		return nil, err
	}

	taken, err := e.takenSlots()
	if err != nil {
		return nil, err
	}
	effective, err := e.overrides.Effective()
	if err != nil {
		return nil, err
	}

	byDate := make(map[string][]Slot)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		for _, t := range candidateTimes(day, effective) {
			slot, include := e.evaluate(day, date, t, busy, taken, effective, q)
			if include {
				byDate[date] = append(byDate[date], slot)
			}
		}
	}

	days := make([]DaySlots, 0, len(byDate))
	for date, slots := range byDate {
		sort.Slice(slots, func(i, j int) bool { return slots[i].Time < slots[j].Time })
		days = append(days, DaySlots{Date: date, Slots: slots})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}

// candidateTimes yields the template times on template weekdays plus any
// override-added times on other days.
func candidateTimes(day time.Time, effective map[string]Override) []string {
	date := day.Format("2006-01-02")
	seen := make(map[string]bool)
	var times []string
	if templateWeekdays[day.Weekday()] {
		for _, t := range templateTimes {
			times = append(times, t)
			seen[t] = true
		}
	}
	for _, o := range effective {
		if o.Available && o.Date == date && !seen[o.Time] {
			times = append(times, o.Time)
		}
	}
	sort.Strings(times)
	return times
}

func (e *Engine) evaluate(day time.Time, date, timeOfDay string, busy []calendar.Interval, taken map[string]bool, effective map[string]Override, q Query) (Slot, bool) {
	slot := Slot{Time: timeOfDay}

	if o, ok := effective[date+" "+timeOfDay]; ok && !o.Available {
		if q.AdminMode {
			slot.Reason = o.Reason
			if slot.Reason == "" {
				slot.Reason = "blocked"
			}
			return slot, true
		}
		return Slot{}, false
	}

	if taken[date+" "+timeOfDay] {
		if q.AdminMode {
			slot.Reason = "booked"
			return slot, true
		}
		return Slot{}, false
	}

	slotStart, err := time.ParseInLocation("2006-01-02 15:04", date+" "+timeOfDay, e.loc)
	if err != nil {
		return Slot{}, false
	}
	slot.CanAccommodateConsultation = freeFor(slotStart, bookings.ConsultationDuration, busy)
	slot.CanAccommodateTherapy = freeFor(slotStart, bookings.TherapyDuration, busy)

	if q.AdminMode {
		return slot, true
	}
	switch q.SessionType {
	case bookings.SessionTypeConsultation:
		return slot, slot.CanAccommodateConsultation
	case bookings.SessionTypeTherapy:
		return slot, slot.CanAccommodateTherapy
	default:
		return slot, slot.CanAccommodateConsultation || slot.CanAccommodateTherapy
	}
}

// freeFor reports whether [start, start+d) avoids every busy interval.
func freeFor(start time.Time, d time.Duration, busy []calendar.Interval) bool {
	end := start.Add(d)
	for _, b := range busy {
		if b.Start.Before(end) && b.End.After(start) {
			return false
		}
	}
	return true
}

// takenSlots collects the (date, time) pairs already held by ledgered
// bookings or unexpired pending-buffer entries, so a booking not yet visible
// in the remote calendar is still not offered.
func (e *Engine) takenSlots() (map[string]bool, error) {
	taken := make(map[string]bool)
	all, err := e.bookingsSvc.List()
	if err != nil {
		return nil, err
	}
	for _, b := range all {
		taken[b.Date+" "+b.Time] = true
	}
	if e.pending != nil {
		entries, err := e.pending.Entries()
		if err != nil {
			e.logger.Warn("pending buffer unreadable, ignoring", "error", err)
		} else {
			for _, p := range entries {
				taken[p.Date+" "+p.Time] = true
			}
		}
	}
	return taken, nil
}
