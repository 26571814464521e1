package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

// BookedVisit is an appointment row reduced to what busy-interval
// computation needs. The visit's own service duration determines its end.
type BookedVisit struct {
	Start    time.Time
	Duration time.Duration
}

// AppointmentSource lists non-cancelled appointments starting inside a
// window. Failures here are fatal to the availability request.
type AppointmentSource interface {
	ListBooked(ctx context.Context, from, to time.Time) ([]BookedVisit, error)
}

// CalendarSource lists busy events from the external calendar. Failures are
// absorbed by the aggregator (fail-open).
type CalendarSource interface {
	ListBusy(ctx context.Context, from, to time.Time) ([]TimeInterval, error)
}

// AggregatorConfig controls external-calendar participation. Integration and
// availability checking are independent switches: events may be written to
// the calendar without it being consulted for availability, and vice versa.
type AggregatorConfig struct {
	CalendarEnabled      bool
	CheckCalendar        bool
	CalendarFetchTimeout time.Duration
}

// Aggregator merges local bookings with external-calendar busy events for a
// day window. It deliberately does not deduplicate across sources: an
// appointment mirrored into the calendar shows up twice, which costs a few
// redundant overlap tests and nothing else.
type Aggregator struct {
	local    AppointmentSource
	calendar CalendarSource
	cfg      AggregatorConfig
	logger   *logging.Logger
}

// NewAggregator constructs an aggregator. calendar may be nil when the
// integration is disabled.
func NewAggregator(local AppointmentSource, calendar CalendarSource, cfg AggregatorConfig, logger *logging.Logger) *Aggregator {
	if local == nil {
		panic("availability: appointment source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.CalendarFetchTimeout <= 0 {
		cfg.CalendarFetchTimeout = 5 * time.Second
	}
	return &Aggregator{local: local, calendar: calendar, cfg: cfg, logger: logger}
}

func (a *Aggregator) checkCalendar() bool {
	return a.calendar != nil && a.cfg.CalendarEnabled && a.cfg.CheckCalendar
}

// BusyIntervals returns every busy interval inside [from, to), sorted by
// start time. The second return value reports whether the result may be
// incomplete because the external calendar could not be reached; a calendar
// failure never fails the request, it degrades to local data only.
func (a *Aggregator) BusyIntervals(ctx context.Context, from, to time.Time) ([]BusyInterval, bool, error) {
	var (
		wg           sync.WaitGroup
		visits       []BookedVisit
		localErr     error
		calendarBusy []TimeInterval
		calendarErr  error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		visits, localErr = a.local.ListBooked(ctx, from, to)
	}()

	if a.checkCalendar() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.CalendarFetchTimeout)
			defer cancel()
			calendarBusy, calendarErr = a.calendar.ListBusy(fetchCtx, from, to)
		}()
	}
	wg.Wait()

	if localErr != nil {
		return nil, false, &LocalStoreError{Op: "appointment list", Err: localErr}
	}

	busy := make([]BusyInterval, 0, len(visits)+len(calendarBusy))
	for _, v := range visits {
		if v.Duration <= 0 {
			continue
		}
		busy = append(busy, BusyInterval{
			TimeInterval: TimeInterval{Start: v.Start, End: v.Start.Add(v.Duration)},
			Source:       SourceLocal,
		})
	}

	incomplete := false
	if calendarErr != nil {
		incomplete = true
		a.logger.Warn("calendar busy fetch failed, continuing with local data only",
			"error", calendarErr,
			"from", from,
			"to", to,
		)
	}
	for _, iv := range calendarBusy {
		if !iv.Valid() {
			continue
		}
		busy = append(busy, BusyInterval{TimeInterval: iv, Source: SourceCalendar})
	}

	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })
	return busy, incomplete, nil
}
