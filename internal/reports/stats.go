// Package reports aggregates booking statistics for the admin dashboard
// from the database and the in-process Prometheus registry.
package reports

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type statsDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DayCount is bookings per calendar day.
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// HairstyleCount is bookings per hairstyle.
type HairstyleCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Stats is the admin dashboard payload.
type Stats struct {
	PeriodStart         string                      `json:"period_start"`
	PeriodEnd           string                      `json:"period_end"`
	Total               int64                       `json:"total"`
	Cancelled           int64                       `json:"cancelled"`
	Upcoming            int64                       `json:"upcoming"`
	ByDay               []DayCount                  `json:"by_day"`
	ByHairstyle         []HairstyleCount            `json:"by_hairstyle"`
	AvailabilityLatency AvailabilityLatencySnapshot `json:"availability_latency"`
	CalendarFetchFailed float64                     `json:"calendar_fetch_failures"`
	CalendarWriteFailed float64                     `json:"calendar_write_failures"`
}

// AvailabilityLatencySnapshot summarizes the availability latency histogram.
type AvailabilityLatencySnapshot struct {
	Total int64   `json:"total"`
	P90Ms float64 `json:"p90_ms"`
	P95Ms float64 `json:"p95_ms"`
}

// Repository queries booking statistics from the database.
type Repository struct {
	db statsDB
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("reports: pgx pool required")
	}
	return &Repository{db: pool}
}

func NewRepositoryWithDB(db statsDB) *Repository {
	return &Repository{db: db}
}

// BookingStats computes booking stats for appointments starting in
// [start, end).
func (r *Repository) BookingStats(ctx context.Context, start, end time.Time) (Stats, error) {
	if !end.After(start) {
		return Stats{}, fmt.Errorf("reports: invalid time range")
	}

	stats := Stats{
		PeriodStart: start.Format("2006-01-02"),
		PeriodEnd:   end.Format("2006-01-02"),
	}

	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'cancelled'),
		       COUNT(*) FILTER (WHERE status <> 'cancelled' AND start_time >= now())
		FROM appointments
		WHERE start_time >= $1 AND start_time < $2
	`, start, end).Scan(&stats.Total, &stats.Cancelled, &stats.Upcoming)
	if err != nil {
		return Stats{}, fmt.Errorf("reports: totals: %w", err)
	}

	stats.ByDay, err = r.bookingsByDay(ctx, start, end)
	if err != nil {
		return Stats{}, err
	}
	stats.ByHairstyle, err = r.bookingsByHairstyle(ctx, start, end)
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func (r *Repository) bookingsByDay(ctx context.Context, start, end time.Time) ([]DayCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT date_trunc('day', start_time) AS day, COUNT(*)
		FROM appointments
		WHERE start_time >= $1 AND start_time < $2 AND status <> 'cancelled'
		GROUP BY day
		ORDER BY day
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("reports: bookings by day: %w", err)
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var (
			day   time.Time
			count int64
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("reports: scan day count: %w", err)
		}
		out = append(out, DayCount{Day: day.Format("2006-01-02"), Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate day counts: %w", err)
	}
	return out, nil
}

func (r *Repository) bookingsByHairstyle(ctx context.Context, start, end time.Time) ([]HairstyleCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT hairstyle_name, COUNT(*)
		FROM appointments
		WHERE start_time >= $1 AND start_time < $2 AND status <> 'cancelled'
		GROUP BY hairstyle_name
		ORDER BY COUNT(*) DESC, hairstyle_name
		LIMIT 10
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("reports: bookings by hairstyle: %w", err)
	}
	defer rows.Close()

	var out []HairstyleCount
	for rows.Next() {
		var hc HairstyleCount
		if err := rows.Scan(&hc.Name, &hc.Count); err != nil {
			return nil, fmt.Errorf("reports: scan hairstyle count: %w", err)
		}
		out = append(out, hc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate hairstyle counts: %w", err)
	}
	return out, nil
}

// SnapshotAvailabilityLatency reads the availability latency histogram out
// of the process registry.
func SnapshotAvailabilityLatency(gatherer prometheus.Gatherer) AvailabilityLatencySnapshot {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return AvailabilityLatencySnapshot{}
	}

	var family *dto.MetricFamily
	for _, mf := range mfs {
		if mf != nil && mf.GetName() == "salon_availability_latency_seconds" {
			family = mf
			break
		}
	}
	if family == nil {
		return AvailabilityLatencySnapshot{}
	}

	cumulativeByUpper := map[float64]uint64{}
	var sampleCount uint64
	for _, metric := range family.Metric {
		if metric == nil {
			continue
		}
		h := metric.GetHistogram()
		if h == nil {
			continue
		}
		sampleCount += h.GetSampleCount()
		for _, b := range h.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if sampleCount == 0 || len(cumulativeByUpper) == 0 {
		return AvailabilityLatencySnapshot{}
	}

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	return AvailabilityLatencySnapshot{
		Total: int64(sampleCount),
		P90Ms: histogramQuantile(0.90, sampleCount, uppers, cumulativeByUpper) * 1000.0,
		P95Ms: histogramQuantile(0.95, sampleCount, uppers, cumulativeByUpper) * 1000.0,
	}
}

// SnapshotCounter returns the summed value of a counter family, 0 when
// absent.
func SnapshotCounter(gatherer prometheus.Gatherer, name string) float64 {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return 0
	}
	var total float64
	for _, mf := range mfs {
		if mf == nil || mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if metric == nil {
				continue
			}
			if c := metric.GetCounter(); c != nil {
				total += c.GetValue()
			}
		}
	}
	return total
}

func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	if total == 0 || q <= 0 {
		return 0
	}
	if q >= 1 {
		for i := len(uppers) - 1; i >= 0; i-- {
			if !math.IsInf(uppers[i], 1) {
				return uppers[i]
			}
		}
		return 0
	}
	rank := q * float64(total)
	for _, upper := range uppers {
		if math.IsInf(upper, 1) {
			continue
		}
		if float64(cumulativeByUpper[upper]) >= rank {
			return upper
		}
	}
	for i := len(uppers) - 1; i >= 0; i-- {
		if !math.IsInf(uppers[i], 1) {
			return uppers[i]
		}
	}
	return 0
}
