// Package calendar wraps the practice's remote calendar. The rest of the
// system treats it as an opaque event and free/busy source.
package calendar

import (
	"context"
	"time"
)

// Event is the subset of a remote calendar event the booking flow cares about.
type Event struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Attendee    string
	MeetLink    string
}

// Interval is a half-open busy window [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Client is the remote calendar surface used by the booking and availability
// services.
type Client interface {
	// CreateEvent inserts an event; when withMeet is set a Meet conference
	// link is requested and returned on the event.
	CreateEvent(ctx context.Context, ev Event, withMeet bool) (Event, error)
	// PatchEvent moves an existing event to a new start/end.
	PatchEvent(ctx context.Context, eventID string, start, end time.Time) error
	DeleteEvent(ctx context.Context, eventID string) error
	ListEvents(ctx context.Context, from, to time.Time) ([]Event, error)
	// FreeBusy returns the busy intervals overlapping [from, to).
	FreeBusy(ctx context.Context, from, to time.Time) ([]Interval, error)
}
