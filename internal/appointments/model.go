// Package appointments persists bookings and runs the booking flow:
// slot re-validation, local insert, best-effort calendar write and
// confirmation email.
package appointments

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/aurelie-dev/salon-booking/internal/availability"
)

// ErrSlotTaken is returned when the requested start time is no longer
// bookable, either because availability changed since the customer loaded
// the page or because a concurrent booking won the race.
var ErrSlotTaken = errors.New("appointments: slot no longer available")

// ErrNotFound is returned when an appointment id or cancel token is unknown.
var ErrNotFound = errors.New("appointments: not found")

// Status is an appointment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Appointment is one booked visit.
type Appointment struct {
	ID              uuid.UUID `json:"id"`
	CustomerName    string    `json:"customer_name"`
	CustomerEmail   string    `json:"customer_email"`
	CustomerPhone   string    `json:"customer_phone,omitempty"`
	HairstyleID     uuid.UUID `json:"hairstyle_id"`
	HairstyleName   string    `json:"hairstyle_name"`
	DurationMinutes int       `json:"duration_minutes"`
	StartTime       time.Time `json:"start_time"`
	Status          Status    `json:"status"`
	CalendarEventID string    `json:"-"`
	CancelToken     string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"-"`
}

// EndTime returns the appointment's end derived from its own duration.
func (a Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Interval returns the appointment as a half-open busy interval.
func (a Appointment) Interval() availability.TimeInterval {
	return availability.TimeInterval{Start: a.StartTime, End: a.EndTime()}
}
