package availability

import "time"

// GenerateSlots walks the business day on a fixed grid and returns the
// ascending start times at which an appointment of the given duration fits
// without touching a break or a busy interval.
//
// Candidates advance by the slot interval whether or not they are accepted,
// so customers always see a predictable grid of offered times. A candidate
// ending exactly at closing time is valid; a busy interval ending exactly at
// a candidate's start does not reject it.
func GenerateSlots(policy DayPolicy, date time.Time, busy []BusyInterval, duration time.Duration) []time.Time {
	if policy.DayOff || duration <= 0 {
		return nil
	}

	loc := policy.Location
	limit := policy.Close.On(date, loc)

	breaks := make([]TimeInterval, 0, len(policy.Breaks))
	for _, b := range policy.Breaks {
		breaks = append(breaks, b.On(date, loc))
	}

	var slots []time.Time
	for cursor := policy.Open.On(date, loc); !cursor.Add(duration).After(limit); cursor = cursor.Add(policy.SlotInterval) {
		candidate := TimeInterval{Start: cursor, End: cursor.Add(duration)}
		if overlapsAny(candidate, breaks) || overlapsBusy(candidate, busy) {
			continue
		}
		slots = append(slots, candidate.Start)
	}
	return slots
}

func overlapsAny(candidate TimeInterval, intervals []TimeInterval) bool {
	for _, iv := range intervals {
		if candidate.Overlaps(iv) {
			return true
		}
	}
	return false
}

func overlapsBusy(candidate TimeInterval, busy []BusyInterval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b.TimeInterval) {
			return true
		}
	}
	return false
}
