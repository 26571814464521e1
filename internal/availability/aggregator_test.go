package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAppointments struct {
	visits []BookedVisit
	err    error
}

func (s *stubAppointments) ListBooked(ctx context.Context, from, to time.Time) ([]BookedVisit, error) {
	return s.visits, s.err
}

type stubCalendar struct {
	busy  []TimeInterval
	err   error
	delay time.Duration
	calls int
}

func (s *stubCalendar) ListBusy(ctx context.Context, from, to time.Time) ([]TimeInterval, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.busy, s.err
}

func TestAggregatorMergesSources(t *testing.T) {
	d := day(2026, time.March, 2)
	local := &stubAppointments{visits: []BookedVisit{
		{Start: d.Add(14 * time.Hour), Duration: 45 * time.Minute},
		{Start: d.Add(10 * time.Hour), Duration: 30 * time.Minute},
	}}
	cal := &stubCalendar{busy: []TimeInterval{
		{Start: d.Add(12 * time.Hour), End: d.Add(13 * time.Hour)},
	}}

	agg := NewAggregator(local, cal, AggregatorConfig{CalendarEnabled: true, CheckCalendar: true}, nil)
	busy, incomplete, err := agg.BusyIntervals(context.Background(), d, d.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, incomplete)
	require.Len(t, busy, 3)

	// Sorted ascending, each visit's end derived from its own duration.
	assert.Equal(t, SourceLocal, busy[0].Source)
	assert.Equal(t, d.Add(10*time.Hour+30*time.Minute), busy[0].End)
	assert.Equal(t, SourceCalendar, busy[1].Source)
	assert.Equal(t, SourceLocal, busy[2].Source)
}

func TestAggregatorCalendarFailsOpen(t *testing.T) {
	d := day(2026, time.March, 2)
	local := &stubAppointments{visits: []BookedVisit{{Start: d.Add(9 * time.Hour), Duration: time.Hour}}}
	cal := &stubCalendar{err: errors.New("401 unauthorized")}

	agg := NewAggregator(local, cal, AggregatorConfig{CalendarEnabled: true, CheckCalendar: true}, nil)
	busy, incomplete, err := agg.BusyIntervals(context.Background(), d, d.AddDate(0, 0, 1))
	require.NoError(t, err, "calendar failure must not fail the request")
	assert.True(t, incomplete)
	require.Len(t, busy, 1)
	assert.Equal(t, SourceLocal, busy[0].Source)
}

func TestAggregatorCalendarTimeoutFailsOpen(t *testing.T) {
	d := day(2026, time.March, 2)
	local := &stubAppointments{}
	cal := &stubCalendar{delay: time.Second, busy: []TimeInterval{{Start: d, End: d.Add(time.Hour)}}}

	agg := NewAggregator(local, cal, AggregatorConfig{
		CalendarEnabled:      true,
		CheckCalendar:        true,
		CalendarFetchTimeout: 10 * time.Millisecond,
	}, nil)

	busy, incomplete, err := agg.BusyIntervals(context.Background(), d, d.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, incomplete)
	assert.Empty(t, busy)
}

func TestAggregatorLocalFailureIsFatal(t *testing.T) {
	local := &stubAppointments{err: errors.New("connection reset")}
	agg := NewAggregator(local, nil, AggregatorConfig{}, nil)

	d := day(2026, time.March, 2)
	_, _, err := agg.BusyIntervals(context.Background(), d, d.AddDate(0, 0, 1))
	require.Error(t, err)
	assert.True(t, IsLocalStoreError(err))
}

func TestAggregatorCalendarFlagsAreIndependent(t *testing.T) {
	d := day(2026, time.March, 2)
	cal := &stubCalendar{busy: []TimeInterval{{Start: d, End: d.Add(time.Hour)}}}

	// Integration on, availability checking off: the calendar is not consulted.
	agg := NewAggregator(&stubAppointments{}, cal, AggregatorConfig{CalendarEnabled: true, CheckCalendar: false}, nil)
	busy, incomplete, err := agg.BusyIntervals(context.Background(), d, d.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, incomplete)
	assert.Empty(t, busy)
	assert.Zero(t, cal.calls)

	// Checking on, integration off: still not consulted.
	agg = NewAggregator(&stubAppointments{}, cal, AggregatorConfig{CalendarEnabled: false, CheckCalendar: true}, nil)
	_, _, err = agg.BusyIntervals(context.Background(), d, d.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Zero(t, cal.calls)
}

func TestAggregatorKeepsDuplicatesAcrossSources(t *testing.T) {
	d := day(2026, time.March, 2)
	start := d.Add(11 * time.Hour)
	local := &stubAppointments{visits: []BookedVisit{{Start: start, Duration: time.Hour}}}
	cal := &stubCalendar{busy: []TimeInterval{{Start: start, End: start.Add(time.Hour)}}}

	agg := NewAggregator(local, cal, AggregatorConfig{CalendarEnabled: true, CheckCalendar: true}, nil)
	busy, _, err := agg.BusyIntervals(context.Background(), d, d.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, busy, 2, "mirrored appointments stay duplicated; overlap testing is unaffected")
}

func TestAggregatorSkipsDegenerateEntries(t *testing.T) {
	d := day(2026, time.March, 2)
	local := &stubAppointments{visits: []BookedVisit{{Start: d.Add(9 * time.Hour), Duration: 0}}}
	cal := &stubCalendar{busy: []TimeInterval{{Start: d.Add(10 * time.Hour), End: d.Add(10 * time.Hour)}}}

	agg := NewAggregator(local, cal, AggregatorConfig{CalendarEnabled: true, CheckCalendar: true}, nil)
	busy, _, err := agg.BusyIntervals(context.Background(), d, d.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, busy)
}
