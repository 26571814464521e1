// Package policy persists the salon's scheduling configuration: business
// hours, breaks, weekly days off, slot granularity and per-date closures.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurelie-dev/salon-booking/internal/availability"
)

type policyDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BreakWindow is a time-of-day break in wire form, e.g. lunch.
type BreakWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Settings is the persisted scheduling configuration in wire form. It is
// converted to a validated availability.SchedulePolicy before use.
type Settings struct {
	Open                string        `json:"open"`
	Close               string        `json:"close"`
	SlotIntervalMinutes int           `json:"slot_interval_minutes"`
	DaysOff             []int         `json:"days_off"`
	Breaks              []BreakWindow `json:"breaks"`
	Timezone            string        `json:"timezone"`
}

// SchedulePolicy converts and validates the wire form.
func (s Settings) SchedulePolicy() (availability.SchedulePolicy, error) {
	open, err := availability.ParseClock(s.Open)
	if err != nil {
		return availability.SchedulePolicy{}, fmt.Errorf("%w: parse opening time: %v", availability.ErrInvalidInput, err)
	}
	closeAt, err := availability.ParseClock(s.Close)
	if err != nil {
		return availability.SchedulePolicy{}, fmt.Errorf("%w: parse closing time: %v", availability.ErrInvalidInput, err)
	}
	loc := time.UTC
	if s.Timezone != "" {
		loc, err = time.LoadLocation(s.Timezone)
		if err != nil {
			return availability.SchedulePolicy{}, fmt.Errorf("%w: load timezone: %v", availability.ErrInvalidInput, err)
		}
	}
	daysOff := make(map[time.Weekday]bool, len(s.DaysOff))
	for _, d := range s.DaysOff {
		if d < 0 || d > 6 {
			return availability.SchedulePolicy{}, fmt.Errorf("%w: weekday %d out of range", availability.ErrInvalidInput, d)
		}
		daysOff[time.Weekday(d)] = true
	}
	breaks := make([]availability.ClockInterval, 0, len(s.Breaks))
	for _, b := range s.Breaks {
		start, err := availability.ParseClock(b.Start)
		if err != nil {
			return availability.SchedulePolicy{}, fmt.Errorf("%w: parse break start: %v", availability.ErrInvalidInput, err)
		}
		end, err := availability.ParseClock(b.End)
		if err != nil {
			return availability.SchedulePolicy{}, fmt.Errorf("%w: parse break end: %v", availability.ErrInvalidInput, err)
		}
		breaks = append(breaks, availability.ClockInterval{Start: start, End: end})
	}
	policy := availability.SchedulePolicy{
		Open:         open,
		Close:        closeAt,
		DaysOff:      daysOff,
		Breaks:       breaks,
		SlotInterval: time.Duration(s.SlotIntervalMinutes) * time.Minute,
		Location:     loc,
	}
	if err := policy.Validate(); err != nil {
		return availability.SchedulePolicy{}, err
	}
	return policy, nil
}

// BlockedDate is an explicit single-day closure.
type BlockedDate struct {
	Date   time.Time `json:"date"`
	Reason string    `json:"reason,omitempty"`
}

// Repository stores scheduling settings and blocked dates in Postgres.
// The schedule_policy table has exactly one row; typed columns, validated on
// load, replace the loose settings blobs this data used to live in.
type Repository struct {
	db policyDB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("policy: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting mocks for tests.
func NewRepositoryWithDB(db policyDB) *Repository {
	return &Repository{db: db}
}

// Load returns the persisted settings in wire form.
func (r *Repository) Load(ctx context.Context) (Settings, error) {
	var (
		s         Settings
		daysOff   []int32
		breaksRaw []byte
	)
	query := `
		SELECT open_time, close_time, slot_interval_minutes, days_off, breaks, timezone
		FROM schedule_policy
		WHERE id = 1
	`
	err := r.db.QueryRow(ctx, query).Scan(&s.Open, &s.Close, &s.SlotIntervalMinutes, &daysOff, &breaksRaw, &s.Timezone)
	if err != nil {
		return Settings{}, fmt.Errorf("policy: load settings: %w", err)
	}
	for _, d := range daysOff {
		s.DaysOff = append(s.DaysOff, int(d))
	}
	if len(breaksRaw) > 0 {
		if err := json.Unmarshal(breaksRaw, &s.Breaks); err != nil {
			return Settings{}, fmt.Errorf("policy: decode breaks: %w", err)
		}
	}
	return s, nil
}

// SchedulePolicy loads and validates the current policy. It satisfies
// availability.PolicySource.
func (r *Repository) SchedulePolicy(ctx context.Context) (availability.SchedulePolicy, error) {
	settings, err := r.Load(ctx)
	if err != nil {
		return availability.SchedulePolicy{}, err
	}
	return settings.SchedulePolicy()
}

// Update replaces the scheduling settings. The new settings are validated
// before anything is written.
func (r *Repository) Update(ctx context.Context, s Settings) error {
	if _, err := s.SchedulePolicy(); err != nil {
		return err
	}
	breaks, err := json.Marshal(s.Breaks)
	if err != nil {
		return fmt.Errorf("policy: encode breaks: %w", err)
	}
	daysOff := make([]int32, 0, len(s.DaysOff))
	for _, d := range s.DaysOff {
		daysOff = append(daysOff, int32(d))
	}
	query := `
		UPDATE schedule_policy
		SET open_time = $1,
			close_time = $2,
			slot_interval_minutes = $3,
			days_off = $4,
			breaks = $5,
			timezone = $6,
			updated_at = now()
		WHERE id = 1
	`
	tag, err := r.db.Exec(ctx, query, s.Open, s.Close, s.SlotIntervalMinutes, daysOff, breaks, s.Timezone)
	if err != nil {
		return fmt.Errorf("policy: update settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("policy: settings row missing, run migrations")
	}
	return nil
}

// EnsureDefault seeds the singleton settings row on first boot. An existing
// row is left untouched so admin edits survive restarts.
func (r *Repository) EnsureDefault(ctx context.Context, s Settings) error {
	if _, err := s.SchedulePolicy(); err != nil {
		return err
	}
	breaks, err := json.Marshal(s.Breaks)
	if err != nil {
		return fmt.Errorf("policy: encode breaks: %w", err)
	}
	daysOff := make([]int32, 0, len(s.DaysOff))
	for _, d := range s.DaysOff {
		daysOff = append(daysOff, int32(d))
	}
	query := `
		INSERT INTO schedule_policy (id, open_time, close_time, slot_interval_minutes, days_off, breaks, timezone)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, s.Open, s.Close, s.SlotIntervalMinutes, daysOff, breaks, s.Timezone); err != nil {
		return fmt.Errorf("policy: seed settings: %w", err)
	}
	return nil
}

// BlockedOn reports whether the given date has an explicit closure. It
// satisfies availability.BlockedDates.
func (r *Repository) BlockedOn(ctx context.Context, date time.Time) (bool, error) {
	var exists int
	query := `SELECT 1 FROM blocked_dates WHERE day = $1`
	err := r.db.QueryRow(ctx, query, date.Format("2006-01-02")).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("policy: blocked-date lookup: %w", err)
	}
	return true, nil
}

// ListBlockedDates returns closures on or after the given date, ascending.
func (r *Repository) ListBlockedDates(ctx context.Context, from time.Time) ([]BlockedDate, error) {
	query := `
		SELECT day, COALESCE(reason, '')
		FROM blocked_dates
		WHERE day >= $1
		ORDER BY day
	`
	rows, err := r.db.Query(ctx, query, from.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("policy: list blocked dates: %w", err)
	}
	defer rows.Close()

	var out []BlockedDate
	for rows.Next() {
		var bd BlockedDate
		if err := rows.Scan(&bd.Date, &bd.Reason); err != nil {
			return nil, fmt.Errorf("policy: scan blocked date: %w", err)
		}
		out = append(out, bd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("policy: iterate blocked dates: %w", err)
	}
	return out, nil
}

// AddBlockedDate records a closure; adding the same date twice is a no-op.
func (r *Repository) AddBlockedDate(ctx context.Context, date time.Time, reason string) error {
	query := `
		INSERT INTO blocked_dates (day, reason)
		VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (day) DO UPDATE SET reason = EXCLUDED.reason
	`
	if _, err := r.db.Exec(ctx, query, date.Format("2006-01-02"), reason); err != nil {
		return fmt.Errorf("policy: add blocked date: %w", err)
	}
	return nil
}

// RemoveBlockedDate reopens a previously blocked date.
func (r *Repository) RemoveBlockedDate(ctx context.Context, date time.Time) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM blocked_dates WHERE day = $1`, date.Format("2006-01-02")); err != nil {
		return fmt.Errorf("policy: remove blocked date: %w", err)
	}
	return nil
}

var (
	_ availability.PolicySource = (*Repository)(nil)
	_ availability.BlockedDates = (*Repository)(nil)
)
