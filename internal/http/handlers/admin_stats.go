package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aurelie-dev/salon-booking/internal/reports"
	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

// StatsSource computes booking statistics. *reports.Repository satisfies it.
type StatsSource interface {
	BookingStats(ctx context.Context, start, end time.Time) (reports.Stats, error)
}

// StatsHandler serves the admin dashboard numbers.
type StatsHandler struct {
	source   StatsSource
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

// NewStatsHandler creates the stats handler. gatherer may be nil, in which
// case the default registry is read.
func NewStatsHandler(source StatsSource, gatherer prometheus.Gatherer, logger *logging.Logger) *StatsHandler {
	if source == nil {
		panic("handlers: stats source required")
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsHandler{source: source, gatherer: gatherer, logger: logger}
}

// GetStats returns booking stats for a date range, defaulting to the last
// 30 days.
// GET /admin/stats?from=2026-03-01&to=2026-03-31
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	end := time.Now().AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -31)

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, `{"error": "from must be YYYY-MM-DD"}`, http.StatusBadRequest)
			return
		}
		start = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, `{"error": "to must be YYYY-MM-DD"}`, http.StatusBadRequest)
			return
		}
		t = t.AddDate(0, 0, 1) // inclusive end date
		end = t
	}
	if !end.After(start) {
		http.Error(w, `{"error": "from must be before to"}`, http.StatusBadRequest)
		return
	}

	stats, err := h.source.BookingStats(r.Context(), start, end)
	if err != nil {
		h.logger.Error("failed to compute booking stats", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	stats.AvailabilityLatency = reports.SnapshotAvailabilityLatency(h.gatherer)
	stats.CalendarFetchFailed = reports.SnapshotCounter(h.gatherer, "salon_calendar_fetch_failures_total")
	stats.CalendarWriteFailed = reports.SnapshotCounter(h.gatherer, "salon_calendar_write_failures_total")

	writeJSON(w, h.logger, http.StatusOK, stats)
}
