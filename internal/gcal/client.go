// Package gcal wraps the Google Calendar API for the salon's booking
// calendar. It only knows how to list busy events and insert new ones;
// failure policy (fail-open reads, warn-only writes) belongs to callers.
package gcal

import (
	"context"
	"fmt"
	"strings"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/aurelie-dev/salon-booking/internal/availability"
	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

const defaultCallTimeout = 5 * time.Second

// Config holds calendar integration settings.
type Config struct {
	// CredentialsJSON is a service-account key. Empty means the default
	// credential chain (or an unauthenticated test client).
	CredentialsJSON []byte
	CalendarID      string
	CallTimeout     time.Duration
}

// EventInput describes a calendar event to create for an appointment.
type EventInput struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
}

// Client is a thin wrapper over the Calendar API.
type Client struct {
	svc        *calendar.Service
	calendarID string
	timeout    time.Duration
	logger     *logging.Logger
}

// New constructs a calendar client. Extra options override the defaults,
// which lets tests point the client at a local HTTP server.
func New(ctx context.Context, cfg Config, logger *logging.Logger, opts ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.CalendarID) == "" {
		return nil, fmt.Errorf("gcal: calendar id required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}

	base := []option.ClientOption{option.WithScopes(calendar.CalendarScope)}
	if len(cfg.CredentialsJSON) > 0 {
		base = append(base, option.WithCredentialsJSON(cfg.CredentialsJSON))
	}
	svc, err := calendar.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("gcal: build service: %w", err)
	}
	return &Client{
		svc:        svc,
		calendarID: cfg.CalendarID,
		timeout:    cfg.CallTimeout,
		logger:     logger,
	}, nil
}

// ListBusy returns the busy intervals of every non-cancelled, non-all-day
// event overlapping [from, to). It satisfies availability.CalendarSource.
func (c *Client) ListBusy(ctx context.Context, from, to time.Time) ([]availability.TimeInterval, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		busy      []availability.TimeInterval
		pageToken string
	)
	for {
		call := c.svc.Events.List(c.calendarID).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(250).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		events, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("gcal: list events: %w", err)
		}
		for _, ev := range events.Items {
			iv, ok := eventInterval(ev)
			if !ok {
				continue
			}
			busy = append(busy, iv)
		}
		pageToken = events.NextPageToken
		if pageToken == "" {
			return busy, nil
		}
	}
}

// CreateEvent inserts an event for a booked appointment and returns its id.
func (c *Client) CreateEvent(ctx context.Context, in EventInput) (string, error) {
	if !in.Start.Before(in.End) {
		return "", fmt.Errorf("gcal: event start must precede end")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ev := &calendar.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Start:       &calendar.EventDateTime{DateTime: in.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: in.End.Format(time.RFC3339)},
	}
	if in.AttendeeEmail != "" {
		ev.Attendees = []*calendar.EventAttendee{{Email: in.AttendeeEmail}}
	}

	created, err := c.svc.Events.Insert(c.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gcal: insert event: %w", err)
	}
	c.logger.Info("calendar event created", "event_id", created.Id, "start", in.Start)
	return created.Id, nil
}

func eventInterval(ev *calendar.Event) (availability.TimeInterval, bool) {
	if ev == nil || ev.Status == "cancelled" {
		return availability.TimeInterval{}, false
	}
	// All-day events carry Date instead of DateTime; the salon models whole
	// closed days as blocked dates, so these are ignored here.
	if ev.Start == nil || ev.End == nil || ev.Start.DateTime == "" || ev.End.DateTime == "" {
		return availability.TimeInterval{}, false
	}
	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return availability.TimeInterval{}, false
	}
	end, err := time.Parse(time.RFC3339, ev.End.DateTime)
	if err != nil {
		return availability.TimeInterval{}, false
	}
	iv := availability.TimeInterval{Start: start, End: end}
	return iv, iv.Valid()
}

var _ availability.CalendarSource = (*Client)(nil)
