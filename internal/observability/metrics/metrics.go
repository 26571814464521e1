package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for availability and booking flows.
type BookingMetrics struct {
	availabilityTotal     *prometheus.CounterVec
	availabilityLatency   prometheus.Histogram
	slotsReturned         prometheus.Histogram
	calendarFetchFailures prometheus.Counter
	calendarWriteFailures prometheus.Counter
	bookingsTotal         *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		availabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "availability",
			Name:      "requests_total",
			Help:      "Total availability computations by outcome",
		}, []string{"status"}),
		availabilityLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "availability",
			Name:      "latency_seconds",
			Help:      "Latency of availability computations",
			Buckets:   prometheus.DefBuckets,
		}),
		slotsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "availability",
			Name:      "slots_returned",
			Help:      "Slots returned per availability computation",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 40, 80},
		}),
		calendarFetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "calendar",
			Name:      "fetch_failures_total",
			Help:      "External calendar busy fetches that failed open",
		}),
		calendarWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "calendar",
			Name:      "write_failures_total",
			Help:      "External calendar event writes that failed after a local booking succeeded",
		}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "bookings",
			Name:      "total",
			Help:      "Booking attempts by outcome",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.availabilityTotal,
		m.availabilityLatency,
		m.slotsReturned,
		m.calendarFetchFailures,
		m.calendarWriteFailures,
		m.bookingsTotal,
	)
	return m
}

func (m *BookingMetrics) ObserveAvailability(status string, seconds float64, slots int) {
	if m == nil {
		return
	}
	m.availabilityTotal.WithLabelValues(status).Inc()
	m.availabilityLatency.Observe(seconds)
	if slots >= 0 {
		m.slotsReturned.Observe(float64(slots))
	}
}

func (m *BookingMetrics) IncCalendarFetchFailure() {
	if m == nil {
		return
	}
	m.calendarFetchFailures.Inc()
}

func (m *BookingMetrics) IncCalendarWriteFailure() {
	if m == nil {
		return
	}
	m.calendarWriteFailures.Inc()
}

func (m *BookingMetrics) IncBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}
