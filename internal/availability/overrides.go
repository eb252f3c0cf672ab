package availability

import (
	"fmt"
	"time"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/ledger"
)

// Override is a manual exception layered over the weekly template.
type Override struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Time      string `json:"time"` // HH:MM
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	DayOfWeek string `json:"dayOfWeek,omitempty"`
}

var overrideHeader = []string{"date", "time", "available", "reason", "dayOfWeek"}

// OverrideStore persists availability overrides in availability.csv.
type OverrideStore struct {
	file *ledger.File
}

// NewOverrideStore opens the override ledger at path.
func NewOverrideStore(path string) *OverrideStore {
	return &OverrideStore{file: ledger.NewFile(path, overrideHeader)}
}

func encodeOverride(o Override) []string {
	available := "false"
	if o.Available {
		available = "true"
	}
	return []string{o.Date, o.Time, available, o.Reason, o.DayOfWeek}
}

func decodeOverride(row []string) (Override, error) {
	if len(row) != len(overrideHeader) {
		return Override{}, fmt.Errorf("availability: row has %d fields, want %d", len(row), len(overrideHeader))
	}
	return Override{
		Date:      row[0],
		Time:      row[1],
		Available: row[2] == "true",
		Reason:    row[3],
		DayOfWeek: row[4],
	}, nil
}

// Add appends an override. The day of week is derived from the date.
func (s *OverrideStore) Add(o Override) error {
	if _, err := time.Parse("2006-01-02", o.Date); err != nil {
		return fmt.Errorf("availability: invalid date %q", o.Date)
	}
	if _, err := time.Parse("15:04", o.Time); err != nil {
		return fmt.Errorf("availability: invalid time %q", o.Time)
	}
	if o.DayOfWeek == "" {
		d, _ := time.Parse("2006-01-02", o.Date)
		o.DayOfWeek = d.Weekday().String()
	}
	return s.file.Append(encodeOverride(o))
}

// List returns every override in file order.
func (s *OverrideStore) List() ([]Override, error) {
	rows, err := s.file.ReadAll()
	if err != nil {
		return nil, err
	}
	out := make([]Override, 0, len(rows))
	for _, row := range rows {
		o, err := decodeOverride(row)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// Effective collapses the override list into a (date, time) map. Later rows
// win, matching a top-to-bottom re-scan of the file.
func (s *OverrideStore) Effective() (map[string]Override, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	effective := make(map[string]Override, len(all))
	for _, o := range all {
		effective[o.Date+" "+o.Time] = o
	}
	return effective, nil
}

// Remove drops every override for the given (date, time).
func (s *OverrideStore) Remove(date, timeOfDay string) error {
	return s.file.Update(func(rows [][]string) ([][]string, error) {
		kept := rows[:0]
		for _, row := range rows {
			o, err := decodeOverride(row)
			if err != nil {
				return nil, err
			}
			if o.Date == date && o.Time == timeOfDay {
				continue
			}
			kept = append(kept, row)
		}
		return kept, nil
	})
}
