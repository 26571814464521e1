package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

// Clock is a time of day expressed as minutes since midnight.
type Clock int

// ParseClock parses an "HH:MM" string.
func ParseClock(v string) (Clock, error) {
	if v == "" {
		return 0, fmt.Errorf("empty clock")
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// On anchors the clock time to the value's civil date in the given location.
func (c Clock) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, loc)
}

// ClockInterval is a half-open time-of-day window, e.g. a lunch break.
type ClockInterval struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// On anchors the window to a calendar date in the given location.
func (ci ClockInterval) On(date time.Time, loc *time.Location) TimeInterval {
	return TimeInterval{Start: ci.Start.On(date, loc), End: ci.End.On(date, loc)}
}

func (ci ClockInterval) String() string {
	return ci.Start.String() + "-" + ci.End.String()
}

// SchedulePolicy is the salon's immutable scheduling configuration. It is
// validated once at load time; malformed configuration is a startup failure,
// not a per-request error.
type SchedulePolicy struct {
	Open         Clock
	Close        Clock
	DaysOff      map[time.Weekday]bool
	Breaks       []ClockInterval
	SlotInterval time.Duration
	Location     *time.Location
}

// Validate fails fast on malformed configuration.
func (p SchedulePolicy) Validate() error {
	if p.Open < 0 || p.Open >= 24*60 {
		return invalidInputf("opening time %s out of range", p.Open)
	}
	if p.Close <= 0 || p.Close > 24*60 {
		return invalidInputf("closing time %s out of range", p.Close)
	}
	if p.Open >= p.Close {
		return invalidInputf("opening time %s is not before closing time %s", p.Open, p.Close)
	}
	if p.SlotInterval < time.Minute {
		return invalidInputf("slot interval %s must be at least one minute", p.SlotInterval)
	}
	for _, b := range p.Breaks {
		if b.Start >= b.End {
			return invalidInputf("break %s is inverted or empty", b)
		}
	}
	if p.Location == nil {
		return invalidInputf("location is required")
	}
	return nil
}

// DayPolicy is the resolved scheduling rules for one calendar date.
// When DayOff is true no other field is meaningful.
type DayPolicy struct {
	DayOff       bool
	Open         Clock
	Close        Clock
	Breaks       []ClockInterval
	SlotInterval time.Duration
	Location     *time.Location
}

// PolicySource supplies the current schedule policy. Implementations load it
// from persistent settings storage.
type PolicySource interface {
	SchedulePolicy(ctx context.Context) (SchedulePolicy, error)
}

// BlockedDates answers per-date closure overrides (holidays, vacations).
type BlockedDates interface {
	BlockedOn(ctx context.Context, date time.Time) (bool, error)
}

// StaticPolicySource serves a fixed policy, used when scheduling rules come
// from environment configuration rather than the database, and for tests.
type StaticPolicySource struct {
	Policy SchedulePolicy
}

func (s StaticPolicySource) SchedulePolicy(ctx context.Context) (SchedulePolicy, error) {
	return s.Policy, nil
}

// PolicyStore resolves the effective DayPolicy for a date from the schedule
// policy plus blocked-date overrides.
type PolicyStore struct {
	source  PolicySource
	blocked BlockedDates
	logger  *logging.Logger
}

// NewPolicyStore constructs a policy store. blocked may be nil when no
// per-date overrides exist.
func NewPolicyStore(source PolicySource, blocked BlockedDates, logger *logging.Logger) *PolicyStore {
	if source == nil {
		panic("availability: policy source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PolicyStore{source: source, blocked: blocked, logger: logger}
}

// ResolveDay returns the scheduling rules in effect on the given date. The
// date is read as a civil date in its own location, so a value parsed as
// midnight UTC still names the intended calendar day. The weekly days-off
// set and the explicit blocked-dates override are both evaluated; either one
// closes the day.
func (s *PolicyStore) ResolveDay(ctx context.Context, date time.Time) (DayPolicy, error) {
	policy, err := s.source.SchedulePolicy(ctx)
	if err != nil {
		return DayPolicy{}, &LocalStoreError{Op: "policy load", Err: err}
	}
	if err := policy.Validate(); err != nil {
		return DayPolicy{}, err
	}

	dayOff := policy.DaysOff[date.Weekday()]
	if s.blocked != nil {
		blocked, err := s.blocked.BlockedOn(ctx, date)
		if err != nil {
			return DayPolicy{}, &LocalStoreError{Op: "blocked-date lookup", Err: err}
		}
		dayOff = dayOff || blocked
	}
	if dayOff {
		return DayPolicy{DayOff: true, Location: policy.Location}, nil
	}

	breaks := make([]ClockInterval, len(policy.Breaks))
	copy(breaks, policy.Breaks)
	sort.Slice(breaks, func(i, j int) bool { return breaks[i].Start < breaks[j].Start })

	return DayPolicy{
		Open:         policy.Open,
		Close:        policy.Close,
		Breaks:       breaks,
		SlotInterval: policy.SlotInterval,
		Location:     policy.Location,
	}, nil
}
