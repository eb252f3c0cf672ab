// Package waitlist keeps patients waiting for a slot in waitlist.csv.
package waitlist

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/ledger"
)

// Entry statuses.
const (
	StatusWaiting   = "waiting"
	StatusContacted = "contacted"
	StatusBooked    = "booked"
	StatusRemoved   = "removed"
)

// ErrEntryNotFound reports an unknown waitlist id.
var ErrEntryNotFound = errors.New("waitlist: entry not found")

// Entry is one waitlisted patient.
type Entry struct {
	WaitlistID     string    `json:"waitlistId"`
	PatientName    string    `json:"patientName"`
	PatientEmail   string    `json:"patientEmail"`
	PatientPhone   string    `json:"patientPhone,omitempty"`
	PreferredDates []string  `json:"preferredDates,omitempty"`
	PreferredTimes []string  `json:"preferredTimes,omitempty"`
	SessionType    string    `json:"sessionType,omitempty"`
	Priority       int       `json:"priority"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	Notes          string    `json:"notes,omitempty"`
}

var header = []string{
	"waitlistId", "patientName", "patientEmail", "patientPhone",
	"preferredDates", "preferredTimes", "sessionType",
	"priority", "status", "createdAt", "notes",
}

// Store persists waitlist entries.
type Store struct {
	file *ledger.File
}

// NewStore opens the waitlist ledger at path.
func NewStore(path string) *Store {
	return &Store{file: ledger.NewFile(path, header)}
}

func encode(e Entry) []string {
	return []string{
		e.WaitlistID, e.PatientName, e.PatientEmail, e.PatientPhone,
		strings.Join(e.PreferredDates, "|"), strings.Join(e.PreferredTimes, "|"),
		e.SessionType, strconv.Itoa(e.Priority), e.Status,
		e.CreatedAt.UTC().Format(time.RFC3339), e.Notes,
	}
}

func decode(row []string) (Entry, error) {
	if len(row) != len(header) {
		return Entry{}, fmt.Errorf("waitlist: row has %d fields, want %d", len(row), len(header))
	}
	createdAt, err := time.Parse(time.RFC3339, row[9])
	if err != nil {
		return Entry{}, fmt.Errorf("waitlist: decode createdAt: %w", err)
	}
	priority, err := strconv.Atoi(row[7])
	if err != nil {
		return Entry{}, fmt.Errorf("waitlist: decode priority: %w", err)
	}
	return Entry{
		WaitlistID:     row[0],
		PatientName:    row[1],
		PatientEmail:   row[2],
		PatientPhone:   row[3],
		PreferredDates: splitPipe(row[4]),
		PreferredTimes: splitPipe(row[5]),
		SessionType:    row[6],
		Priority:       priority,
		Status:         row[8],
		CreatedAt:      createdAt,
		Notes:          row[10],
	}, nil
}

func splitPipe(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "|")
}

// Add appends a new entry with a generated id.
func (s *Store) Add(e Entry) (Entry, error) {
	if e.PatientEmail == "" || e.PatientName == "" {
		return Entry{}, fmt.Errorf("waitlist: patientName and patientEmail required")
	}
	e.WaitlistID = uuid.NewString()
	if e.Status == "" {
		e.Status = StatusWaiting
	}
	e.CreatedAt = time.Now().UTC()
	if err := s.file.Append(encode(e)); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// List returns every entry in file order.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.file.ReadAll()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e, err := decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// SetStatus updates an entry's status.
func (s *Store) SetStatus(waitlistID, status string) (Entry, error) {
	var out Entry
	err := s.file.Update(func(rows [][]string) ([][]string, error) {
		for i, row := range rows {
			e, err := decode(row)
			if err != nil {
				return nil, err
			}
			if e.WaitlistID == waitlistID {
				e.Status = status
				rows[i] = encode(e)
				out = e
				return rows, nil
			}
		}
		return nil, ErrEntryNotFound
	})
	if err != nil {
		return Entry{}, err
	}
	return out, nil
}

// Remove deletes an entry outright.
func (s *Store) Remove(waitlistID string) error {
	return s.file.Update(func(rows [][]string) ([][]string, error) {
		for i, row := range rows {
			e, err := decode(row)
			if err != nil {
				return nil, err
			}
			if e.WaitlistID == waitlistID {
				return append(rows[:i], rows[i+1:]...), nil
			}
		}
		return nil, ErrEntryNotFound
	})
}

// RemoveByEmail deletes every entry for an email, returning the count. GDPR
// erasure is the only caller.
func (s *Store) RemoveByEmail(email string) (int, error) {
	removed := 0
	err := s.file.Update(func(rows [][]string) ([][]string, error) {
		kept := rows[:0]
		for _, row := range rows {
			e, err := decode(row)
			if err != nil {
				return nil, err
			}
			if strings.EqualFold(e.PatientEmail, email) {
				removed++
				continue
			}
			kept = append(kept, row)
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// FindByEmail returns the entries for an email.
func (s *Store) FindByEmail(email string) ([]Entry, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if strings.EqualFold(e.PatientEmail, email) {
			out = append(out, e)
		}
	}
	return out, nil
}
