package bookings

import (
	"errors"
	"fmt"
	"time"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/ledger"
)

// Sentinel errors surfaced to handlers.
var (
	ErrBookingNotFound = errors.New("bookings: booking not found")
	ErrSlotTaken       = errors.New("bookings: slot already booked")
	ErrInvalidInput    = errors.New("bookings: invalid input")
)

var bookingHeader = []string{
	"bookingId", "bookingToken", "date", "time", "sessionType",
	"patientName", "patientEmail", "createdAt", "meetLink", "calendarEventId",
}

// Store persists booking rows in bookings.csv.
type Store struct {
	file *ledger.File
}

// NewStore opens the booking ledger at path.
func NewStore(path string) *Store {
	return &Store{file: ledger.NewFile(path, bookingHeader)}
}

func encodeBooking(b Booking) []string {
	return []string{
		b.BookingID, b.BookingToken, b.Date, b.Time, b.SessionType,
		b.PatientName, b.PatientEmail,
		b.CreatedAt.UTC().Format(time.RFC3339),
		b.MeetLink, b.CalendarEventID,
	}
}

func decodeBooking(row []string) (Booking, error) {
	if len(row) != len(bookingHeader) {
		return Booking{}, fmt.Errorf("bookings: row has %d fields, want %d", len(row), len(bookingHeader))
	}
	createdAt, err := time.Parse(time.RFC3339, row[7])
	if err != nil {
		return Booking{}, fmt.Errorf("bookings: decode createdAt: %w", err)
	}
	return Booking{
		BookingID:       row[0],
		BookingToken:    row[1],
		Date:            row[2],
		Time:            row[3],
		SessionType:     row[4],
		PatientName:     row[5],
		PatientEmail:    row[6],
		CreatedAt:       createdAt,
		MeetLink:        row[8],
		CalendarEventID: row[9],
	}, nil
}

// List returns every booking in file order.
func (s *Store) List() ([]Booking, error) {
	rows, err := s.file.ReadAll()
	if err != nil {
		return nil, err
	}
	out := make([]Booking, 0, len(rows))
	for _, row := range rows {
		b, err := decodeBooking(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Get returns the booking with the given id.
func (s *Store) Get(bookingID string) (Booking, error) {
	all, err := s.List()
	if err != nil {
		return Booking{}, err
	}
	for _, b := range all {
		if b.BookingID == bookingID {
			return b, nil
		}
	}
	return Booking{}, ErrBookingNotFound
}

// ListForToken returns the bookings drawing down a token.
func (s *Store) ListForToken(token string) ([]Booking, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []Booking
	for _, b := range all {
		if b.BookingToken == token {
			out = append(out, b)
		}
	}
	return out, nil
}

// ListRange returns the bookings with start <= date <= end. ISO dates
// compare lexicographically.
func (s *Store) ListRange(start, end string) ([]Booking, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []Booking
	for _, b := range all {
		if b.Date >= start && b.Date <= end {
			out = append(out, b)
		}
	}
	return out, nil
}

// Insert appends a booking, rejecting an occupied (date, time) slot. The
// conflict check and the write run under one ledger lock, so two concurrent
// requests for the same slot cannot both pass.
func (s *Store) Insert(b Booking) error {
	return s.file.Update(func(rows [][]string) ([][]string, error) {
		for _, row := range rows {
			existing, err := decodeBooking(row)
			if err != nil {
				return nil, err
			}
			if existing.Date == b.Date && existing.Time == b.Time {
				return nil, fmt.Errorf("%w: %s %s", ErrSlotTaken, b.Date, b.Time)
			}
		}
		return append(rows, encodeBooking(b)), nil
	})
}

// Replace rewrites the row with b's booking id.
func (s *Store) Replace(b Booking) error {
	return s.file.Update(func(rows [][]string) ([][]string, error) {
		for i, row := range rows {
			existing, err := decodeBooking(row)
			if err != nil {
				return nil, err
			}
			if existing.BookingID == b.BookingID {
				rows[i] = encodeBooking(b)
				return rows, nil
			}
		}
		return nil, ErrBookingNotFound
	})
}

// Remove deletes the row matching fn and returns it.
func (s *Store) Remove(match func(Booking) bool) (Booking, error) {
	var removed Booking
	err := s.file.Update(func(rows [][]string) ([][]string, error) {
		for i, row := range rows {
			b, err := decodeBooking(row)
			if err != nil {
				return nil, err
			}
			if match(b) {
				removed = b
				return append(rows[:i], rows[i+1:]...), nil
			}
		}
		return nil, ErrBookingNotFound
	})
	if err != nil {
		return Booking{}, err
	}
	return removed, nil
}

// RemoveForTokens deletes every row belonging to the given tokens, returning
// the removed bookings. GDPR erasure is the only caller.
func (s *Store) RemoveForTokens(tokens map[string]bool) ([]Booking, error) {
	var removed []Booking
	err := s.file.Update(func(rows [][]string) ([][]string, error) {
		kept := rows[:0]
		for _, row := range rows {
			b, err := decodeBooking(row)
			if err != nil {
				return nil, err
			}
			if tokens[b.BookingToken] {
				removed = append(removed, b)
				continue
			}
			kept = append(kept, row)
		}
		return kept, nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
