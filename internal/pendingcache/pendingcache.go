// Package pendingcache buffers bookings created through the admin path until
// the remote calendar's read side catches up (propagation is documented at
// 5-30 minutes). Entries are confirmed away once their event ID shows up in
// an authoritative calendar listing; a TTL sweep is kept as a backstop.
package pendingcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

// Entry is a buffered booking as the admin dashboard expects it.
type Entry struct {
	BookingID       string    `json:"bookingId"`
	BookingToken    string    `json:"bookingToken"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	PatientName     string    `json:"patientName"`
	CalendarEventID string    `json:"calendarEventId,omitempty"`
	CachedAt        time.Time `json:"cachedAt"`
	IsFromCache     bool      `json:"isFromCache"`
}

// Buffer is a JSON-file-backed pending-booking cache.
type Buffer struct {
	path   string
	ttl    time.Duration
	logger *logging.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// New opens a buffer at path with the given TTL backstop.
func New(path string, ttl time.Duration, logger *logging.Logger) *Buffer {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Buffer{path: path, ttl: ttl, logger: logger, now: time.Now}
}

// Add buffers a booking, stamping cachedAt.
func (b *Buffer) Add(e Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.loadLocked()
	if err != nil {
		return err
	}
	e.CachedAt = b.now().UTC()
	e.IsFromCache = true
	return b.saveLocked(append(entries, e))
}

// Entries returns the live buffered bookings, sweeping expired ones.
func (b *Buffer) Entries() ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.loadLocked()
	if err != nil {
		return nil, err
	}
	live := b.sweep(entries)
	if len(live) != len(entries) {
		if err := b.saveLocked(live); err != nil {
			return nil, err
		}
	}
	return live, nil
}

// Reconcile drops every entry whose calendar event ID appears in eventIDs:
// the authoritative source has caught up, so the buffered copy is done.
func (b *Buffer) Reconcile(eventIDs map[string]bool) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.loadLocked()
	if err != nil {
		return 0, err
	}
	var kept []Entry
	confirmed := 0
	for _, e := range b.sweep(entries) {
		if e.CalendarEventID != "" && eventIDs[e.CalendarEventID] {
			confirmed++
			continue
		}
		kept = append(kept, e)
	}
	if err := b.saveLocked(kept); err != nil {
		return 0, err
	}
	if confirmed > 0 {
		b.logger.Info("pending bookings confirmed by calendar", "count", confirmed)
	}
	return confirmed, nil
}

// Remove drops the entry for a booking id (cancellation before sync).
func (b *Buffer) Remove(bookingID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.loadLocked()
	if err != nil {
		return err
	}
	var kept []Entry
	for _, e := range entries {
		if e.BookingID != bookingID {
			kept = append(kept, e)
		}
	}
	return b.saveLocked(kept)
}

func (b *Buffer) sweep(entries []Entry) []Entry {
	cutoff := b.now().Add(-b.ttl)
	var live []Entry
	for _, e := range entries {
		if e.CachedAt.After(cutoff) {
			live = append(live, e)
		}
	}
	return live
}

func (b *Buffer) loadLocked() ([]Entry, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pendingcache: read: %w", err)
	}
	var entries []Entry
	if len(data) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("pendingcache: parse: %w", err)
	}
	return entries, nil
}

func (b *Buffer) saveLocked(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("pendingcache: mkdir: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("pendingcache: encode: %w", err)
	}
	if err := os.WriteFile(b.path, data, 0o644); err != nil {
		return fmt.Errorf("pendingcache: write: %w", err)
	}
	return nil
}
