package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/calendar"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/notify"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/observability/metrics"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/patients"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/pendingcache"
	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

// Service orchestrates the booking ledger, session accounting, the remote
// calendar, and confirmation mail.
type Service struct {
	store   *Store
	tokens  *patients.Service
	cal     calendar.Client
	emails  notify.EmailSender
	pending *pendingcache.Buffer
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
	loc     *time.Location
	now     func() time.Time
}

// NewService wires the booking service.
func NewService(store *Store, tokens *patients.Service, cal calendar.Client, emails notify.EmailSender, pending *pendingcache.Buffer, m *metrics.BookingMetrics, loc *time.Location, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:   store,
		tokens:  tokens,
		cal:     cal,
		emails:  emails,
		pending: pending,
		metrics: m,
		logger:  logger,
		loc:     loc,
		now:     time.Now,
	}
}

// CreateInput describes one booking request.
type CreateInput struct {
	Token       string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM
	SessionType string
	Online      bool
	// FromAdmin marks manual admin bookings, which go through the pending
	// buffer to mask calendar propagation delay.
	FromAdmin bool
}

func (in CreateInput) validate() error {
	if in.Token == "" {
		return fmt.Errorf("%w: booking token required", ErrInvalidInput)
	}
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidInput, in.Date)
	}
	if _, err := time.Parse("15:04", in.Time); err != nil {
		return fmt.Errorf("%w: time %q", ErrInvalidInput, in.Time)
	}
	return nil
}

// Create books a slot against a token. The slot reservation, session debit,
// and calendar event are applied in that order; a failure unwinds the steps
// already taken.
func (s *Service) Create(ctx context.Context, in CreateInput) (Booking, error) {
	if err := in.validate(); err != nil {
		return Booking{}, err
	}
	rec, err := s.tokens.Get(in.Token)
	if err != nil {
		return Booking{}, err
	}
	if in.SessionType == "" {
		in.SessionType = SessionTypeTherapy
		if total, _ := rec.SessionPackage.TotalSessionCount(); total == 1 {
			in.SessionType = SessionTypeConsultation
		}
	}

	booking := Booking{
		BookingID:    uuid.NewString(),
		BookingToken: in.Token,
		Date:         in.Date,
		Time:         in.Time,
		SessionType:  in.SessionType,
		PatientName:  rec.PatientName,
		PatientEmail: rec.PatientEmail,
		CreatedAt:    s.now().UTC(),
	}

	// Reserve the slot. Insert holds the ledger lock across the conflict
	// check and the write.
	if err := s.store.Insert(booking); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveSlotConflict()
		}
		return Booking{}, err
	}

	if _, err := s.tokens.DebitSession(in.Token); err != nil {
		s.unreserve(booking.BookingID)
		return Booking{}, err
	}

	start, end, err := booking.StartEnd(s.loc)
	if err != nil {
		s.unreserve(booking.BookingID)
		s.creditBack(in.Token)
		return Booking{}, fmt.Errorf("bookings: resolve slot: %w", err)
	}

	callStart := s.now()
	event, err := s.cal.CreateEvent(ctx, calendar.Event{
		Summary:     fmt.Sprintf("%s — %s", sessionLabel(in.SessionType), rec.PatientName),
		Description: "Booking " + booking.BookingID,
		Start:       start,
		End:         end,
		Attendee:    rec.PatientEmail,
	}, in.Online)
	s.metrics.ObserveCalendarLatency("create_event", time.Since(callStart).Seconds())
	if err != nil {
		s.unreserve(booking.BookingID)
		s.creditBack(in.Token)
		s.metrics.ObserveBooking("create", "calendar_error")
		return Booking{}, err
	}

	booking.CalendarEventID = event.ID
	booking.MeetLink = event.MeetLink
	if err := s.store.Replace(booking); err != nil {
		s.logger.Warn("could not record calendar event on booking row", "error", err, "booking_id", booking.BookingID)
	}

	if in.FromAdmin && s.pending != nil {
		if err := s.pending.Add(pendingcache.Entry{
			BookingID:       booking.BookingID,
			BookingToken:    booking.BookingToken,
			Date:            booking.Date,
			Time:            booking.Time,
			PatientName:     booking.PatientName,
			CalendarEventID: booking.CalendarEventID,
		}); err != nil {
			s.logger.Warn("could not buffer pending booking", "error", err, "booking_id", booking.BookingID)
		}
	}

	s.sendConfirmation(ctx, booking)
	s.metrics.ObserveBooking("create", "ok")
	s.logger.Info("booking created",
		"booking_id", booking.BookingID, "date", booking.Date, "time", booking.Time,
		"event_id", booking.CalendarEventID)
	return booking, nil
}

// CancelByID cancels a booking by its id.
func (s *Service) CancelByID(ctx context.Context, bookingID string) error {
	return s.cancel(ctx, func(b Booking) bool { return b.BookingID == bookingID })
}

// Cancel cancels a booking by token and date, the shape the public API uses.
func (s *Service) Cancel(ctx context.Context, token, date string) error {
	return s.cancel(ctx, func(b Booking) bool { return b.BookingToken == token && b.Date == date })
}

// cancel removes the ledger row, credits the session back, and deletes the
// remote event. Credit and event deletion each proceed if the other side
// fails; partial failure is logged, not compensated.
func (s *Service) cancel(ctx context.Context, match func(Booking) bool) error {
	booking, err := s.store.Remove(match)
	if err != nil {
		return err
	}

	remaining := -1
	if summary, err := s.tokens.CreditSession(booking.BookingToken); err != nil {
		s.logger.Warn("session credit-back failed after cancellation", "error", err, "booking_id", booking.BookingID)
	} else {
		remaining = summary.SessionsRemaining
	}

	if booking.CalendarEventID != "" {
		callStart := s.now()
		if err := s.cal.DeleteEvent(ctx, booking.CalendarEventID); err != nil {
			s.logger.Warn("calendar event deletion failed after cancellation", "error", err, "event_id", booking.CalendarEventID)
		}
		s.metrics.ObserveCalendarLatency("delete_event", time.Since(callStart).Seconds())
	}

	if s.pending != nil {
		if err := s.pending.Remove(booking.BookingID); err != nil {
			s.logger.Warn("could not drop pending cache entry", "error", err, "booking_id", booking.BookingID)
		}
	}

	if s.emails != nil && booking.PatientEmail != "" && remaining >= 0 {
		msg := notify.BookingCancellation(booking.PatientName, booking.Date, booking.Time, remaining)
		msg.To = booking.PatientEmail
		if err := s.emails.Send(ctx, msg); err != nil {
			s.logger.Warn("cancellation email failed", "error", err, "booking_id", booking.BookingID)
			s.metrics.ObserveEmail("cancellation", "error")
		} else {
			s.metrics.ObserveEmail("cancellation", "sent")
		}
	}

	s.metrics.ObserveBooking("cancel", "ok")
	s.logger.Info("booking cancelled", "booking_id", booking.BookingID, "date", booking.Date)
	return nil
}

// Reschedule moves a booking to a new slot, updating the remote event and
// the ledger row together.
func (s *Service) Reschedule(ctx context.Context, bookingID, newDate, newTime string) (Booking, error) {
	if _, err := time.Parse("2006-01-02", newDate); err != nil {
		return Booking{}, fmt.Errorf("%w: date %q", ErrInvalidInput, newDate)
	}
	if _, err := time.Parse("15:04", newTime); err != nil {
		return Booking{}, fmt.Errorf("%w: time %q", ErrInvalidInput, newTime)
	}

	booking, err := s.store.Get(bookingID)
	if err != nil {
		return Booking{}, err
	}

	all, err := s.store.List()
	if err != nil {
		return Booking{}, err
	}
	for _, b := range all {
		if b.BookingID != bookingID && b.Date == newDate && b.Time == newTime {
			s.metrics.ObserveSlotConflict()
			return Booking{}, fmt.Errorf("%w: %s %s", ErrSlotTaken, newDate, newTime)
		}
	}

	booking.Date = newDate
	booking.Time = newTime
	start, end, err := booking.StartEnd(s.loc)
	if err != nil {
		return Booking{}, fmt.Errorf("bookings: resolve slot: %w", err)
	}

	if booking.CalendarEventID != "" {
		callStart := s.now()
		err := s.cal.PatchEvent(ctx, booking.CalendarEventID, start, end)
		s.metrics.ObserveCalendarLatency("patch_event", time.Since(callStart).Seconds())
		if err != nil {
			s.metrics.ObserveBooking("reschedule", "calendar_error")
			return Booking{}, err
		}
	}

	if err := s.store.Replace(booking); err != nil {
		return Booking{}, err
	}

	s.metrics.ObserveBooking("reschedule", "ok")
	s.logger.Info("booking rescheduled", "booking_id", bookingID, "date", newDate, "time", newTime)
	return booking, nil
}

// RecurringResult reports a recurring-series creation.
type RecurringResult struct {
	Created []Booking `json:"created"`
	Skipped []string  `json:"skipped,omitempty"` // dates that conflicted
}

// CreateRecurring books a weekly series drawing down one token. Conflicting
// occurrences are skipped and reported; the series stops early when the
// token runs out of sessions.
func (s *Service) CreateRecurring(ctx context.Context, in CreateInput, occurrences int) (RecurringResult, error) {
	if occurrences < 1 {
		return RecurringResult{}, fmt.Errorf("%w: occurrences must be positive", ErrInvalidInput)
	}
	firstDate, err := time.ParseInLocation("2006-01-02", in.Date, s.loc)
	if err != nil {
		return RecurringResult{}, fmt.Errorf("%w: date %q", ErrInvalidInput, in.Date)
	}

	var result RecurringResult
	for i := 0; i < occurrences; i++ {
		occ := in
		occ.Date = firstDate.AddDate(0, 0, 7*i).Format("2006-01-02")
		occ.FromAdmin = true

		booking, err := s.Create(ctx, occ)
		switch {
		case err == nil:
			result.Created = append(result.Created, booking)
		case errors.Is(err, ErrSlotTaken):
			result.Skipped = append(result.Skipped, occ.Date)
		case errors.Is(err, patients.ErrNoSessionsLeft):
			s.logger.Info("recurring series stopped, token exhausted",
				"token", in.Token, "created", len(result.Created))
			return result, nil
		default:
			return result, err
		}
	}
	return result, nil
}

// Get returns one booking.
func (s *Service) Get(bookingID string) (Booking, error) {
	return s.store.Get(bookingID)
}

// List returns every ledgered booking.
func (s *Service) List() ([]Booking, error) {
	return s.store.List()
}

// ListForToken returns the bookings drawing down a token.
func (s *Service) ListForToken(token string) ([]Booking, error) {
	return s.store.ListForToken(token)
}

// AdminList returns the ledgered bookings in [from, to) merged with
// still-pending cache entries for the same range. Before merging it
// reconciles the buffer against the calendar's event list so confirmed
// entries drop out.
func (s *Service) AdminList(ctx context.Context, from, to time.Time) ([]Booking, []pendingcache.Entry, error) {
	fromDate := from.Format("2006-01-02")
	lastDate := to.AddDate(0, 0, -1).Format("2006-01-02")
	all, err := s.store.ListRange(fromDate, lastDate)
	if err != nil {
		return nil, nil, err
	}

	var pending []pendingcache.Entry
	if s.pending != nil {
		callStart := s.now()
		events, err := s.cal.ListEvents(ctx, from, to)
		s.metrics.ObserveCalendarLatency("list_events", time.Since(callStart).Seconds())
		if err != nil {
			s.logger.Warn("pending reconciliation skipped, calendar unavailable", "error", err)
		} else {
			seen := make(map[string]bool, len(events))
			for _, ev := range events {
				seen[ev.ID] = true
			}
			if _, err := s.pending.Reconcile(seen); err != nil {
				s.logger.Warn("pending reconciliation failed", "error", err)
			}
		}
		entries, err := s.pending.Entries()
		if err != nil {
			return nil, nil, err
		}
		for _, e := range entries {
			if e.Date >= fromDate && e.Date <= lastDate {
				pending = append(pending, e)
			}
		}
	}
	return all, pending, nil
}

func (s *Service) sendConfirmation(ctx context.Context, booking Booking) {
	if s.emails == nil || booking.PatientEmail == "" {
		return
	}
	msg := notify.BookingConfirmation(booking.PatientName, booking.Date, booking.Time, booking.MeetLink)
	msg.To = booking.PatientEmail
	if err := s.emails.Send(ctx, msg); err != nil {
		// A failed confirmation never fails the booking.
		s.logger.Warn("confirmation email failed", "error", err, "booking_id", booking.BookingID)
		s.metrics.ObserveEmail("confirmation", "error")
		return
	}
	s.metrics.ObserveEmail("confirmation", "sent")
}

func (s *Service) unreserve(bookingID string) {
	if _, err := s.store.Remove(func(b Booking) bool { return b.BookingID == bookingID }); err != nil {
		s.logger.Warn("could not release reserved slot", "error", err, "booking_id", bookingID)
	}
}

func (s *Service) creditBack(token string) {
	if _, err := s.tokens.CreditSession(token); err != nil {
		s.logger.Warn("could not credit session back", "error", err, "token", token)
	}
}

func sessionLabel(sessionType string) string {
	if sessionType == SessionTypeConsultation {
		return "Consultation"
	}
	return "Therapy Session"
}
