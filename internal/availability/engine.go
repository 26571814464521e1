package availability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aurelie-dev/salon-booking/internal/observability/metrics"
	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

var availabilityTracer = otel.Tracer("salon.internal.availability")

// Availability is the result of one slot computation. An empty Slots list
// always means "no bookable slots"; when availability could not be computed
// at all, AvailableSlots returns an error instead. Incomplete flags results
// computed without the external calendar because it was unreachable.
type Availability struct {
	Date       time.Time   `json:"date"`
	Slots      []time.Time `json:"slots"`
	Incomplete bool        `json:"incomplete"`
}

// Engine computes bookable slot start times for a date and service duration.
// It is stateless between calls; every request resolves policy, aggregates
// busy intervals and generates slots from scratch (modulo the short-lived
// Redis cache).
type Engine struct {
	policies *PolicyStore
	agg      *Aggregator
	cache    *SlotCache
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

// NewEngine constructs the availability engine. cache and bookingMetrics may
// be nil.
func NewEngine(policies *PolicyStore, agg *Aggregator, cache *SlotCache, bookingMetrics *metrics.BookingMetrics, logger *logging.Logger) *Engine {
	if policies == nil {
		panic("availability: policy store required")
	}
	if agg == nil {
		panic("availability: aggregator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{policies: policies, agg: agg, cache: cache, metrics: bookingMetrics, logger: logger}
}

// AvailableSlots returns the ordered bookable start times on the given date
// for an appointment of the given duration.
//
// Input validation errors wrap ErrInvalidInput and occur before any I/O.
// Local-store failures surface as LocalStoreError. External-calendar
// failures never fail the call; they flip Availability.Incomplete.
func (e *Engine) AvailableSlots(ctx context.Context, date time.Time, duration time.Duration) (Availability, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.slots")
	defer span.End()
	started := time.Now()

	if duration <= 0 {
		e.metrics.ObserveAvailability("invalid_input", time.Since(started).Seconds(), -1)
		return Availability{}, invalidInputf("duration %s must be positive", duration)
	}
	if date.IsZero() {
		e.metrics.ObserveAvailability("invalid_input", time.Since(started).Seconds(), -1)
		return Availability{}, invalidInputf("date is required")
	}
	span.SetAttributes(
		attribute.String("salon.date", date.Format("2006-01-02")),
		attribute.Int("salon.duration_minutes", int(duration/time.Minute)),
	)

	policy, err := e.policies.ResolveDay(ctx, date)
	if err != nil {
		span.RecordError(err)
		e.metrics.ObserveAvailability(statusForError(err), time.Since(started).Seconds(), -1)
		return Availability{}, err
	}
	day := midnight(date, policy.Location)

	if policy.DayOff {
		span.SetAttributes(attribute.Bool("salon.day_off", true))
		e.metrics.ObserveAvailability("day_off", time.Since(started).Seconds(), 0)
		return Availability{Date: day, Slots: []time.Time{}}, nil
	}

	if cached, ok := e.cache.Get(ctx, day, policy.Location, duration); ok {
		e.metrics.ObserveAvailability("cache_hit", time.Since(started).Seconds(), len(cached.Slots))
		return cached, nil
	}

	busy, incomplete, err := e.agg.BusyIntervals(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		span.RecordError(err)
		e.metrics.ObserveAvailability(statusForError(err), time.Since(started).Seconds(), -1)
		return Availability{}, err
	}
	if incomplete {
		e.metrics.IncCalendarFetchFailure()
	}

	slots := GenerateSlots(policy, day, busy, duration)
	if slots == nil {
		slots = []time.Time{}
	}
	result := Availability{Date: day, Slots: slots, Incomplete: incomplete}

	e.cache.Set(ctx, day, policy.Location, duration, result)
	span.SetAttributes(attribute.Int("salon.slots", len(slots)))
	e.metrics.ObserveAvailability("ok", time.Since(started).Seconds(), len(slots))
	return result, nil
}

func statusForError(err error) string {
	if IsLocalStoreError(err) {
		return "local_error"
	}
	return "invalid_input"
}

// midnight anchors the civil date carried by the value to the salon's
// timezone. The value's own zone is deliberately ignored: a request for
// 2026-03-08, however it was parsed, means March 8 at the salon.
func midnight(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
