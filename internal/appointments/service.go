package appointments

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aurelie-dev/salon-booking/internal/availability"
	"github.com/aurelie-dev/salon-booking/internal/catalog"
	"github.com/aurelie-dev/salon-booking/internal/gcal"
	"github.com/aurelie-dev/salon-booking/internal/notify"
	"github.com/aurelie-dev/salon-booking/internal/observability/metrics"
	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

// SlotFinder re-validates a requested start time against current
// availability. *availability.Engine satisfies it.
type SlotFinder interface {
	AvailableSlots(ctx context.Context, date time.Time, duration time.Duration) (availability.Availability, error)
}

// Store is the persistence surface the service needs. *Repository
// satisfies it.
type Store interface {
	Create(ctx context.Context, a Appointment) (Appointment, error)
	CancelByToken(ctx context.Context, token string) (Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (Appointment, error)
	SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error
}

// HairstyleCatalog looks up the booked service. *catalog.Repository
// satisfies it.
type HairstyleCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (catalog.Hairstyle, error)
}

// CalendarWriter mirrors the booking onto the salon's external calendar.
// *gcal.Client satisfies it.
type CalendarWriter interface {
	CreateEvent(ctx context.Context, in gcal.EventInput) (string, error)
}

// Mailer sends booking lifecycle emails. *notify.BookingMailer satisfies it.
type Mailer interface {
	SendConfirmation(ctx context.Context, b notify.Booking) error
	SendCancellation(ctx context.Context, b notify.Booking) error
}

// DayInvalidator drops cached slot lists for a day. *availability.SlotCache
// satisfies it.
type DayInvalidator interface {
	InvalidateDay(ctx context.Context, date time.Time, loc *time.Location)
}

// PolicyResolver supplies the salon's current schedule, used for its
// timezone. *policy.Repository satisfies it.
type PolicyResolver interface {
	SchedulePolicy(ctx context.Context) (availability.SchedulePolicy, error)
}

// BookingRequest is the customer-facing booking payload.
type BookingRequest struct {
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	HairstyleID   uuid.UUID `json:"hairstyle_id"`
	StartTime     time.Time `json:"start_time"`
}

// BookingResult is a successful booking plus degradation flags.
type BookingResult struct {
	Appointment Appointment `json:"appointment"`
	// CalendarWarning is set when the appointment was booked but could
	// not be mirrored onto the external calendar.
	CalendarWarning bool `json:"calendar_warning,omitempty"`
	// CancelToken is surfaced once at booking time so the confirmation
	// response can carry the cancel link.
	CancelToken string `json:"-"`
}

// ServiceConfig tunes the booking service.
type ServiceConfig struct {
	// PublicBaseURL is prepended to cancel links in confirmation
	// emails, e.g. "https://salon.example".
	PublicBaseURL string
	SalonName     string
}

// Service runs the booking flow: catalog lookup, slot re-validation,
// local insert, then best-effort calendar mirror and confirmation email.
type Service struct {
	store    Store
	catalog  HairstyleCatalog
	finder   SlotFinder
	policies PolicyResolver
	calendar CalendarWriter
	mailer   Mailer
	cache    DayInvalidator
	metrics  *metrics.BookingMetrics
	cfg      ServiceConfig
	logger   *logging.Logger
}

// NewService constructs the booking service. calendar, mailer, cache and
// bookingMetrics may be nil; the corresponding steps are skipped.
func NewService(store Store, cat HairstyleCatalog, finder SlotFinder, policies PolicyResolver, calendar CalendarWriter, mailer Mailer, cache DayInvalidator, bookingMetrics *metrics.BookingMetrics, cfg ServiceConfig, logger *logging.Logger) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if cat == nil {
		panic("appointments: catalog required")
	}
	if finder == nil {
		panic("appointments: slot finder required")
	}
	if policies == nil {
		panic("appointments: policy resolver required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:    store,
		catalog:  cat,
		finder:   finder,
		policies: policies,
		calendar: calendar,
		mailer:   mailer,
		cache:    cache,
		metrics:  bookingMetrics,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *Service) validate(req BookingRequest) error {
	if strings.TrimSpace(req.CustomerName) == "" {
		return fmt.Errorf("%w: customer name required", availability.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(req.CustomerEmail); err != nil {
		return fmt.Errorf("%w: invalid customer email", availability.ErrInvalidInput)
	}
	if req.HairstyleID == uuid.Nil {
		return fmt.Errorf("%w: hairstyle id required", availability.ErrInvalidInput)
	}
	if req.StartTime.IsZero() {
		return fmt.Errorf("%w: start time required", availability.ErrInvalidInput)
	}
	return nil
}

// Book books an appointment at the requested start time.
//
// The slot is re-checked against the live availability computation before
// the insert; a start time no longer in the bookable set returns
// ErrSlotTaken. The database's unique index settles any remaining race. A
// failed calendar write or confirmation email never fails the booking; a
// calendar failure is surfaced via BookingResult.CalendarWarning.
func (s *Service) Book(ctx context.Context, req BookingRequest) (BookingResult, error) {
	if err := s.validate(req); err != nil {
		s.metrics.IncBooking("invalid_input")
		return BookingResult{}, err
	}

	style, err := s.catalog.GetByID(ctx, req.HairstyleID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.metrics.IncBooking("invalid_input")
			return BookingResult{}, fmt.Errorf("%w: unknown hairstyle", availability.ErrInvalidInput)
		}
		s.metrics.IncBooking("error")
		return BookingResult{}, fmt.Errorf("appointments: look up hairstyle: %w", err)
	}
	if !style.Active {
		s.metrics.IncBooking("invalid_input")
		return BookingResult{}, fmt.Errorf("%w: hairstyle no longer offered", availability.ErrInvalidInput)
	}

	schedule, err := s.policies.SchedulePolicy(ctx)
	if err != nil {
		s.metrics.IncBooking("error")
		return BookingResult{}, err
	}
	start := req.StartTime.In(schedule.Location)

	current, err := s.finder.AvailableSlots(ctx, start, style.Duration())
	if err != nil {
		s.metrics.IncBooking("error")
		return BookingResult{}, err
	}
	if !containsTime(current.Slots, start) {
		s.metrics.IncBooking("slot_taken")
		return BookingResult{}, ErrSlotTaken
	}

	appt, err := s.store.Create(ctx, Appointment{
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		HairstyleID:     style.ID,
		HairstyleName:   style.Name,
		DurationMinutes: style.DurationMinutes,
		StartTime:       start,
		Status:          StatusConfirmed,
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.IncBooking("slot_taken")
		} else {
			s.metrics.IncBooking("error")
		}
		return BookingResult{}, err
	}

	result := BookingResult{Appointment: appt, CancelToken: appt.CancelToken}

	if s.cache != nil {
		s.cache.InvalidateDay(ctx, start, schedule.Location)
	}

	if s.calendar != nil {
		eventID, err := s.calendar.CreateEvent(ctx, gcal.EventInput{
			Summary:       fmt.Sprintf("%s - %s", style.Name, appt.CustomerName),
			Description:   fmt.Sprintf("Booked online. Appointment %s.", appt.ID),
			Start:         appt.StartTime,
			End:           appt.EndTime(),
			AttendeeEmail: appt.CustomerEmail,
		})
		if err != nil {
			s.logger.Warn("calendar event creation failed, continuing", "error", err, "appointment_id", appt.ID)
			s.metrics.IncCalendarWriteFailure()
			result.CalendarWarning = true
		} else if err := s.store.SetCalendarEventID(ctx, appt.ID, eventID); err != nil {
			s.logger.Warn("recording calendar event id failed", "error", err, "appointment_id", appt.ID)
		}
	}

	if s.mailer != nil {
		if err := s.mailer.SendConfirmation(ctx, s.mailBooking(appt)); err != nil {
			s.logger.Warn("confirmation email failed, continuing", "error", err, "appointment_id", appt.ID)
		}
	}

	s.metrics.IncBooking("ok")
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"hairstyle", appt.HairstyleName,
		"start", appt.StartTime,
		"calendar_warning", result.CalendarWarning,
	)
	return result, nil
}

// CancelByToken cancels a booking via the customer's emailed cancel link.
func (s *Service) CancelByToken(ctx context.Context, token string) (Appointment, error) {
	if strings.TrimSpace(token) == "" {
		return Appointment{}, fmt.Errorf("%w: cancel token required", availability.ErrInvalidInput)
	}
	appt, err := s.store.CancelByToken(ctx, token)
	if err != nil {
		return Appointment{}, err
	}
	s.afterCancel(ctx, appt)
	return appt, nil
}

// Cancel cancels a booking by id on behalf of an admin.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (Appointment, error) {
	appt, err := s.store.Cancel(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	s.afterCancel(ctx, appt)
	return appt, nil
}

func (s *Service) afterCancel(ctx context.Context, appt Appointment) {
	if s.cache != nil {
		// Invalidate the salon-local day, not whatever zone the row was
		// scanned in; near midnight those can name different days.
		loc := appt.StartTime.Location()
		if schedule, err := s.policies.SchedulePolicy(ctx); err == nil {
			loc = schedule.Location
		}
		s.cache.InvalidateDay(ctx, appt.StartTime, loc)
	}
	if s.mailer != nil {
		if err := s.mailer.SendCancellation(ctx, s.mailBooking(appt)); err != nil {
			s.logger.Warn("cancellation email failed, continuing", "error", err, "appointment_id", appt.ID)
		}
	}
	s.metrics.IncBooking("cancelled")
	s.logger.Info("appointment cancelled", "appointment_id", appt.ID, "start", appt.StartTime)
}

func (s *Service) mailBooking(appt Appointment) notify.Booking {
	b := notify.Booking{
		CustomerName:  appt.CustomerName,
		CustomerEmail: appt.CustomerEmail,
		HairstyleName: appt.HairstyleName,
		Start:         appt.StartTime,
		Duration:      time.Duration(appt.DurationMinutes) * time.Minute,
		SalonName:     s.cfg.SalonName,
	}
	if s.cfg.PublicBaseURL != "" && appt.CancelToken != "" {
		b.CancelURL = fmt.Sprintf("%s/api/appointments/cancel/%s", strings.TrimRight(s.cfg.PublicBaseURL, "/"), appt.CancelToken)
	}
	return b
}

func containsTime(slots []time.Time, t time.Time) bool {
	for _, s := range slots {
		if s.Equal(t) {
			return true
		}
	}
	return false
}
