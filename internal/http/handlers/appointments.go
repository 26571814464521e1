package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aurelie-dev/salon-booking/internal/appointments"
	"github.com/aurelie-dev/salon-booking/internal/availability"
	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

// BookingService runs the booking flow. *appointments.Service satisfies it.
type BookingService interface {
	Book(ctx context.Context, req appointments.BookingRequest) (appointments.BookingResult, error)
	CancelByToken(ctx context.Context, token string) (appointments.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (appointments.Appointment, error)
}

// AppointmentLister lists appointments for the admin dashboard.
// *appointments.Repository satisfies it.
type AppointmentLister interface {
	List(ctx context.Context, filter appointments.ListFilter) ([]appointments.Appointment, error)
}

// AppointmentsHandler serves booking, cancellation and admin listing.
type AppointmentsHandler struct {
	svc    BookingService
	lister AppointmentLister
	logger *logging.Logger
}

// NewAppointmentsHandler creates the appointments HTTP handler.
func NewAppointmentsHandler(svc BookingService, lister AppointmentLister, logger *logging.Logger) *AppointmentsHandler {
	if svc == nil {
		panic("handlers: booking service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{svc: svc, lister: lister, logger: logger}
}

type bookResponse struct {
	Appointment     appointments.Appointment `json:"appointment"`
	CalendarWarning bool                     `json:"calendar_warning,omitempty"`
	CancelToken     string                   `json:"cancel_token"`
}

// Book books an appointment.
// POST /api/appointments
func (h *AppointmentsHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req appointments.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	result, err := h.svc.Book(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, availability.ErrInvalidInput):
			writeJSON(w, h.logger, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		case errors.Is(err, appointments.ErrSlotTaken):
			writeJSON(w, h.logger, http.StatusConflict, map[string]string{"error": "slot no longer available"})
		case availability.IsLocalStoreError(err):
			h.logger.Error("booking failed", "error", err)
			http.Error(w, `{"error": "booking temporarily unavailable"}`, http.StatusServiceUnavailable)
		default:
			h.logger.Error("booking failed", "error", err)
			http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, bookResponse{
		Appointment:     result.Appointment,
		CalendarWarning: result.CalendarWarning,
		CancelToken:     result.CancelToken,
	})
}

// CancelByToken cancels a booking via the emailed link.
// POST /api/appointments/cancel/{token}
func (h *AppointmentsHandler) CancelByToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	appt, err := h.svc.CancelByToken(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, availability.ErrInvalidInput):
			http.Error(w, `{"error": "cancel token required"}`, http.StatusBadRequest)
		case errors.Is(err, appointments.ErrNotFound):
			http.Error(w, `{"error": "unknown or already cancelled booking"}`, http.StatusNotFound)
		default:
			h.logger.Error("cancellation failed", "error", err)
			http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, h.logger, http.StatusOK, appt)
}

// AdminCancel cancels a booking by id.
// POST /admin/appointments/{id}/cancel
func (h *AppointmentsHandler) AdminCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error": "invalid appointment id"}`, http.StatusBadRequest)
		return
	}
	appt, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			http.Error(w, `{"error": "unknown or already cancelled booking"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("admin cancellation failed", "error", err, "id", id)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, appt)
}

// AdminList lists appointments, filterable by range and status.
// GET /admin/appointments?from=2026-03-01&to=2026-03-31&status=confirmed
func (h *AppointmentsHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		http.Error(w, `{"error": "listing not configured"}`, http.StatusNotImplemented)
		return
	}
	filter := appointments.ListFilter{}
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, `{"error": "from must be YYYY-MM-DD"}`, http.StatusBadRequest)
			return
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, `{"error": "to must be YYYY-MM-DD"}`, http.StatusBadRequest)
			return
		}
		filter.To = &t
	}
	filter.Status = appointments.Status(q.Get("status"))
	filter.Limit = intQuery(q.Get("limit"))
	filter.Offset = intQuery(q.Get("offset"))

	appts, err := h.lister.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"appointments": appts})
}

func intQuery(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
