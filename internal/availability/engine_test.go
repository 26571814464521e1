package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAppointments struct {
	stubAppointments
	calls int
}

func (c *countingAppointments) ListBooked(ctx context.Context, from, to time.Time) ([]BookedVisit, error) {
	c.calls++
	return c.stubAppointments.ListBooked(ctx, from, to)
}

func newTestEngine(t *testing.T, policy SchedulePolicy, blocked BlockedDates, local AppointmentSource, cal CalendarSource) *Engine {
	t.Helper()
	store := NewPolicyStore(StaticPolicySource{Policy: policy}, blocked, nil)
	agg := NewAggregator(local, cal, AggregatorConfig{CalendarEnabled: cal != nil, CheckCalendar: cal != nil}, nil)
	return NewEngine(store, agg, nil, nil, nil)
}

func TestEngineRejectsNonPositiveDurationBeforeIO(t *testing.T) {
	local := &countingAppointments{}
	engine := newTestEngine(t, testSchedulePolicy(t), nil, local, nil)

	_, err := engine.AvailableSlots(context.Background(), day(2026, time.March, 2), 0)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.AvailableSlots(context.Background(), day(2026, time.March, 2), -30*time.Minute)
	require.ErrorIs(t, err, ErrInvalidInput)

	assert.Zero(t, local.calls, "validation must run before any store access")
}

func TestEngineDayOffShortCircuit(t *testing.T) {
	local := &countingAppointments{stubAppointments: stubAppointments{visits: []BookedVisit{
		{Start: day(2026, time.March, 8).Add(10 * time.Hour), Duration: time.Hour},
	}}}
	engine := newTestEngine(t, testSchedulePolicy(t), nil, local, nil)

	sunday := day(2026, time.March, 8)
	result, err := engine.AvailableSlots(context.Background(), sunday, time.Hour)
	require.NoError(t, err)
	assert.NotNil(t, result.Slots)
	assert.Empty(t, result.Slots)
	assert.Zero(t, local.calls, "a closed day never hits the appointment store")
}

func TestEngineFailOpenReturnsFullGrid(t *testing.T) {
	// Calendar down, nothing booked locally: the unconstrained grid comes back.
	cal := &stubCalendar{err: errors.New("timeout")}
	engine := newTestEngine(t, testSchedulePolicy(t), nil, &stubAppointments{}, cal)

	result, err := engine.AvailableSlots(context.Background(), day(2026, time.March, 2), time.Hour)
	require.NoError(t, err)
	assert.True(t, result.Incomplete)

	// 09:00-17:00 with a 12:00-13:00 lunch, 30m grid, 60m service.
	policy := testSchedulePolicy(t)
	want := GenerateSlots(DayPolicy{
		Open: policy.Open, Close: policy.Close, Breaks: policy.Breaks,
		SlotInterval: policy.SlotInterval, Location: policy.Location,
	}, day(2026, time.March, 2), nil, time.Hour)
	assert.Equal(t, want, result.Slots)
}

func TestEngineLocalStoreFailure(t *testing.T) {
	local := &stubAppointments{err: errors.New("dial tcp: connection refused")}
	engine := newTestEngine(t, testSchedulePolicy(t), nil, local, nil)

	_, err := engine.AvailableSlots(context.Background(), day(2026, time.March, 2), time.Hour)
	require.Error(t, err)
	assert.True(t, IsLocalStoreError(err))
	assert.NotErrorIs(t, err, ErrInvalidInput)
}

func TestEngineExcludesBookedSlots(t *testing.T) {
	d := day(2026, time.March, 2)
	local := &stubAppointments{visits: []BookedVisit{
		{Start: d.Add(10 * time.Hour), Duration: 45 * time.Minute},
	}}
	engine := newTestEngine(t, testSchedulePolicy(t), nil, local, nil)

	result, err := engine.AvailableSlots(context.Background(), d, 30*time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Incomplete)

	got := starts(t, result.Slots)
	assert.NotContains(t, got, "10:00")
	assert.NotContains(t, got, "10:30")
	assert.Contains(t, got, "09:30")
	assert.Contains(t, got, "11:00")
}

func TestEngineNormalizesDateToBusinessDay(t *testing.T) {
	// A mid-afternoon timestamp resolves to the same day's slots.
	engine := newTestEngine(t, testSchedulePolicy(t), nil, &stubAppointments{}, nil)

	at := time.Date(2026, time.March, 2, 15, 42, 7, 0, time.UTC)
	result, err := engine.AvailableSlots(context.Background(), at, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, result.Slots)
	assert.Equal(t, day(2026, time.March, 2), result.Date)
	assert.Equal(t, "09:00", result.Slots[0].Format("15:04"))
}

func TestEngineKeepsCivilDateWestOfUTC(t *testing.T) {
	// The date query parameter parses as midnight UTC. For a salon behind
	// UTC the computation must stay on the requested calendar day instead
	// of sliding back to the previous one.
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	policy := testSchedulePolicy(t)
	policy.Location = ny
	engine := newTestEngine(t, policy, nil, &stubAppointments{}, nil)

	sunday, err := time.Parse("2006-01-02", "2026-03-08")
	require.NoError(t, err)
	result, err := engine.AvailableSlots(context.Background(), sunday, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, result.Slots, "Sunday stays closed however the date was parsed")
	assert.Equal(t, "2026-03-08", result.Date.Format("2006-01-02"))

	monday, err := time.Parse("2006-01-02", "2026-03-09")
	require.NoError(t, err)
	result, err = engine.AvailableSlots(context.Background(), monday, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, result.Slots)
	assert.Equal(t, "2026-03-09", result.Date.Format("2006-01-02"))
	assert.Equal(t, ny, result.Date.Location())
	assert.Equal(t, "2026-03-09 09:00", result.Slots[0].Format("2006-01-02 15:04"))
}

func TestEngineBlockedDateWinsOverOpenWeekday(t *testing.T) {
	blocked := &stubBlockedDates{dates: map[string]bool{"2026-03-02": true}}
	engine := newTestEngine(t, testSchedulePolicy(t), blocked, &stubAppointments{}, nil)

	result, err := engine.AvailableSlots(context.Background(), day(2026, time.March, 2), time.Hour)
	require.NoError(t, err)
	assert.Empty(t, result.Slots)
}
