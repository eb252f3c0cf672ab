package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

// GoogleClient talks to a single Google calendar via the calendar/v3 API.
type GoogleClient struct {
	svc        *gcal.Service
	calendarID string
	logger     *logging.Logger
}

// NewGoogleClient builds a client from service-account credentials JSON.
func NewGoogleClient(ctx context.Context, credentialsJSON, calendarID string, logger *logging.Logger) (*GoogleClient, error) {
	if credentialsJSON == "" {
		return nil, fmt.Errorf("calendar: credentials required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsJSON([]byte(credentialsJSON)),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: init service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleClient{svc: svc, calendarID: calendarID, logger: logger}, nil
}

// CreateEvent inserts an event into the practice calendar.
func (c *GoogleClient) CreateEvent(ctx context.Context, ev Event, withMeet bool) (Event, error) {
	event := &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: ev.End.Format(time.RFC3339)},
	}
	if ev.Attendee != "" {
		event.Attendees = []*gcal.EventAttendee{{Email: ev.Attendee}}
	}

	if withMeet {
		event.ConferenceData = &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId: uuid.NewString(),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		}
	}
	call := c.svc.Events.Insert(c.calendarID, event).Context(ctx)
	if withMeet {
		call = call.ConferenceDataVersion(1)
	}

	created, err := call.Do()
	if err != nil {
		return Event{}, fmt.Errorf("calendar: create event: %w", err)
	}

	out := ev
	out.ID = created.Id
	out.MeetLink = created.HangoutLink
	if out.MeetLink == "" && created.ConferenceData != nil {
		for _, ep := range created.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				out.MeetLink = ep.Uri
				break
			}
		}
	}
	c.logger.Info("calendar event created", "event_id", out.ID, "start", ev.Start)
	return out, nil
}

// PatchEvent moves an event to a new start/end.
func (c *GoogleClient) PatchEvent(ctx context.Context, eventID string, start, end time.Time) error {
	patch := &gcal.Event{
		Start: &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:   &gcal.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
	if _, err := c.svc.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: patch event %s: %w", eventID, err)
	}
	return nil
}

// DeleteEvent removes an event from the practice calendar.
func (c *GoogleClient) DeleteEvent(ctx context.Context, eventID string) error {
	if err := c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: delete event %s: %w", eventID, err)
	}
	return nil
}

// ListEvents returns the events overlapping [from, to).
func (c *GoogleClient) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	resp, err := c.svc.Events.List(c.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: list events: %w", err)
	}

	events := make([]Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Start == nil || item.Start.DateTime == "" {
			continue // all-day events carry no time component
		}
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			continue
		}
		end := start
		if item.End != nil && item.End.DateTime != "" {
			if parsed, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
				end = parsed
			}
		}
		events = append(events, Event{
			ID:          item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			Start:       start,
			End:         end,
			MeetLink:    item.HangoutLink,
		})
	}
	return events, nil
}

// FreeBusy returns the calendar's busy intervals for the range.
func (c *GoogleClient) FreeBusy(ctx context.Context, from, to time.Time) ([]Interval, error) {
	resp, err := c.svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: c.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: freebusy: %w", err)
	}

	cal, ok := resp.Calendars[c.calendarID]
	if !ok {
		return nil, nil
	}
	intervals := make([]Interval, 0, len(cal.Busy))
	for _, b := range cal.Busy {
		start, err := time.Parse(time.RFC3339, b.Start)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, b.End)
		if err != nil {
			continue
		}
		intervals = append(intervals, Interval{Start: start, End: end})
	}
	return intervals, nil
}
