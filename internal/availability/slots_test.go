package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClock(t *testing.T, v string) Clock {
	t.Helper()
	c, err := ParseClock(v)
	require.NoError(t, err)
	return c
}

func testDayPolicy(t *testing.T, open, close string, breaks []ClockInterval, slotInterval time.Duration) DayPolicy {
	t.Helper()
	return DayPolicy{
		Open:         mustClock(t, open),
		Close:        mustClock(t, close),
		Breaks:       breaks,
		SlotInterval: slotInterval,
		Location:     time.UTC,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func starts(t *testing.T, slots []time.Time) []string {
	t.Helper()
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Format("15:04")
	}
	return out
}

func TestGenerateSlotsFullDayGrid(t *testing.T) {
	// 09:00-17:00, 30m grid, 60m service, nothing booked: 09:00 through
	// 16:00 inclusive, since 16:00+60m lands exactly on closing.
	policy := testDayPolicy(t, "09:00", "17:00", nil, 30*time.Minute)
	slots := GenerateSlots(policy, day(2026, time.March, 2), nil, time.Hour)

	require.Len(t, slots, 15)
	assert.Equal(t, "09:00", slots[0].Format("15:04"))
	assert.Equal(t, "16:00", slots[len(slots)-1].Format("15:04"))
	for i := 1; i < len(slots); i++ {
		assert.Equal(t, 30*time.Minute, slots[i].Sub(slots[i-1]))
	}
}

func TestGenerateSlotsLunchBreak(t *testing.T) {
	policy := testDayPolicy(t, "09:00", "17:00", []ClockInterval{
		{Start: mustClock(t, "12:00"), End: mustClock(t, "13:00")},
	}, 30*time.Minute)

	slots := starts(t, GenerateSlots(policy, day(2026, time.March, 2), nil, time.Hour))

	assert.NotContains(t, slots, "11:30") // 11:30-12:30 runs into the break
	assert.NotContains(t, slots, "12:00")
	assert.NotContains(t, slots, "12:30") // 12:30-13:30 starts inside it
	assert.Contains(t, slots, "11:00")    // ends exactly at break start
	assert.Contains(t, slots, "13:00")    // starts exactly at break end
}

func TestGenerateSlotsBusyBoundaryIsFree(t *testing.T) {
	// A 45-minute appointment at 10:00. With a 15m grid and 30m service,
	// 09:45 collides but 10:45 only touches the end and stays bookable.
	policy := testDayPolicy(t, "09:00", "17:00", nil, 15*time.Minute)
	d := day(2026, time.March, 2)
	busy := []BusyInterval{{
		TimeInterval: TimeInterval{
			Start: d.Add(10 * time.Hour),
			End:   d.Add(10*time.Hour + 45*time.Minute),
		},
		Source: SourceLocal,
	}}

	slots := starts(t, GenerateSlots(policy, d, busy, 30*time.Minute))

	assert.NotContains(t, slots, "09:45")
	assert.NotContains(t, slots, "10:00")
	assert.NotContains(t, slots, "10:15")
	assert.NotContains(t, slots, "10:30")
	assert.Contains(t, slots, "09:30") // ends exactly where the busy interval starts
	assert.Contains(t, slots, "10:45")
}

func TestGenerateSlotsNoOverlapWithBusy(t *testing.T) {
	policy := testDayPolicy(t, "08:00", "20:00", []ClockInterval{
		{Start: mustClock(t, "12:30"), End: mustClock(t, "13:15")},
	}, 15*time.Minute)
	d := day(2026, time.March, 3)
	busy := []BusyInterval{
		{TimeInterval: TimeInterval{Start: d.Add(9 * time.Hour), End: d.Add(9*time.Hour + 50*time.Minute)}, Source: SourceLocal},
		{TimeInterval: TimeInterval{Start: d.Add(15 * time.Hour), End: d.Add(16 * time.Hour)}, Source: SourceCalendar},
		// Entirely outside business hours; must be harmless.
		{TimeInterval: TimeInterval{Start: d.Add(22 * time.Hour), End: d.Add(23 * time.Hour)}, Source: SourceCalendar},
	}

	slots := GenerateSlots(policy, d, busy, 40*time.Minute)
	require.NotEmpty(t, slots)

	for _, start := range slots {
		candidate := TimeInterval{Start: start, End: start.Add(40 * time.Minute)}
		for _, b := range busy {
			assert.False(t, candidate.Overlaps(b.TimeInterval),
				"slot %s overlaps busy %s", candidate, b.TimeInterval)
		}
		for _, br := range policy.Breaks {
			assert.False(t, candidate.Overlaps(br.On(d, time.UTC)),
				"slot %s overlaps break %s", candidate, br)
		}
	}
}

func TestGenerateSlotsGridAlignmentAndOrdering(t *testing.T) {
	policy := testDayPolicy(t, "09:00", "18:00", nil, 25*time.Minute)
	d := day(2026, time.March, 4)
	busy := []BusyInterval{
		{TimeInterval: TimeInterval{Start: d.Add(11 * time.Hour), End: d.Add(12 * time.Hour)}, Source: SourceLocal},
	}

	slots := GenerateSlots(policy, d, busy, 50*time.Minute)
	require.NotEmpty(t, slots)

	open := policy.Open.On(d, time.UTC)
	for i, s := range slots {
		offset := s.Sub(open)
		assert.Zero(t, offset%(25*time.Minute), "slot %s off the grid", s)
		assert.False(t, s.Add(50*time.Minute).After(policy.Close.On(d, time.UTC)), "slot %s runs past closing", s)
		if i > 0 {
			assert.True(t, slots[i-1].Before(s), "slots must be strictly ascending")
		}
	}
}

func TestGenerateSlotsDayOff(t *testing.T) {
	policy := testDayPolicy(t, "09:00", "17:00", nil, 30*time.Minute)
	policy.DayOff = true
	assert.Empty(t, GenerateSlots(policy, day(2026, time.March, 8), nil, time.Hour))
}

func TestGenerateSlotsDurationLongerThanDay(t *testing.T) {
	policy := testDayPolicy(t, "09:00", "12:00", nil, 30*time.Minute)
	assert.Empty(t, GenerateSlots(policy, day(2026, time.March, 2), nil, 4*time.Hour))
}

func TestGenerateSlotsNonPositiveDuration(t *testing.T) {
	policy := testDayPolicy(t, "09:00", "17:00", nil, 30*time.Minute)
	assert.Empty(t, GenerateSlots(policy, day(2026, time.March, 2), nil, 0))
	assert.Empty(t, GenerateSlots(policy, day(2026, time.March, 2), nil, -time.Hour))
}

func TestGenerateSlotsFullyBookedDay(t *testing.T) {
	policy := testDayPolicy(t, "09:00", "12:00", nil, 30*time.Minute)
	d := day(2026, time.March, 5)
	busy := []BusyInterval{
		{TimeInterval: TimeInterval{Start: d.Add(9 * time.Hour), End: d.Add(12 * time.Hour)}, Source: SourceLocal},
	}
	assert.Empty(t, GenerateSlots(policy, d, busy, 30*time.Minute))
}
