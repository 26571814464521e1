package availability

import (
	"fmt"
	"time"
)

// TimeInterval is a half-open time range [Start, End). Two intervals that
// share an endpoint do not overlap.
type TimeInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the interval is well-formed.
func (i TimeInterval) Valid() bool {
	return !i.Start.IsZero() && !i.End.IsZero() && i.Start.Before(i.End)
}

// Overlaps reports whether two half-open intervals intersect.
func (i TimeInterval) Overlaps(other TimeInterval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Duration returns End - Start.
func (i TimeInterval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

func (i TimeInterval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}

// IntervalSource identifies where a busy interval came from.
type IntervalSource string

const (
	// SourceLocal marks intervals derived from appointments in our own store.
	SourceLocal IntervalSource = "local"
	// SourceCalendar marks intervals reported by the external calendar.
	SourceCalendar IntervalSource = "external-calendar"
)

// BusyInterval is a time range during which the stylist is already
// committed. The source tag is informational only; overlap testing treats
// all busy intervals the same.
type BusyInterval struct {
	TimeInterval
	Source IntervalSource `json:"source"`
}
