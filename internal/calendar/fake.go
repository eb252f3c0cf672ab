package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Fake is an in-memory Client for tests and local development. Busy
// intervals are derived from the events it holds.
type Fake struct {
	mu     sync.Mutex
	events map[string]Event

	// Err, when set, is returned from every call. Simulates an unreachable
	// calendar backend.
	Err error
}

// NewFake returns an empty in-memory calendar.
func NewFake() *Fake {
	return &Fake{events: make(map[string]Event)}
}

func (f *Fake) CreateEvent(_ context.Context, ev Event, withMeet bool) (Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return Event{}, f.Err
	}
	ev.ID = uuid.NewString()
	if withMeet {
		ev.MeetLink = "https://meet.google.com/" + ev.ID[:8]
	}
	f.events[ev.ID] = ev
	return ev, nil
}

func (f *Fake) PatchEvent(_ context.Context, eventID string, start, end time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	ev, ok := f.events[eventID]
	if !ok {
		return fmt.Errorf("calendar: event %s not found", eventID)
	}
	ev.Start, ev.End = start, end
	f.events[eventID] = ev
	return nil
}

func (f *Fake) DeleteEvent(_ context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.events[eventID]; !ok {
		return fmt.Errorf("calendar: event %s not found", eventID)
	}
	delete(f.events, eventID)
	return nil
}

func (f *Fake) ListEvents(_ context.Context, from, to time.Time) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []Event
	for _, ev := range f.events {
		if ev.End.After(from) && ev.Start.Before(to) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (f *Fake) FreeBusy(ctx context.Context, from, to time.Time) ([]Interval, error) {
	events, err := f.ListEvents(ctx, from, to)
	if err != nil {
		return nil, err
	}
	intervals := make([]Interval, 0, len(events))
	for _, ev := range events {
		intervals = append(intervals, Interval{Start: ev.Start, End: ev.End})
	}
	return intervals, nil
}

// Event returns a stored event by ID, for test assertions.
func (f *Fake) Event(eventID string) (Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[eventID]
	return ev, ok
}

// Len reports how many events the fake holds.
func (f *Fake) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}
