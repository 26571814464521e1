package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurelie-dev/salon-booking/internal/appointments"
	"github.com/aurelie-dev/salon-booking/internal/availability"
)

type fakeBookingService struct {
	result    appointments.BookingResult
	bookErr   error
	cancelled appointments.Appointment
	cancelErr error
	lastReq   appointments.BookingRequest
}

func (f *fakeBookingService) Book(_ context.Context, req appointments.BookingRequest) (appointments.BookingResult, error) {
	f.lastReq = req
	if f.bookErr != nil {
		return appointments.BookingResult{}, f.bookErr
	}
	return f.result, nil
}

func (f *fakeBookingService) CancelByToken(context.Context, string) (appointments.Appointment, error) {
	if f.cancelErr != nil {
		return appointments.Appointment{}, f.cancelErr
	}
	return f.cancelled, nil
}

func (f *fakeBookingService) Cancel(context.Context, uuid.UUID) (appointments.Appointment, error) {
	if f.cancelErr != nil {
		return appointments.Appointment{}, f.cancelErr
	}
	return f.cancelled, nil
}

type fakeLister struct {
	appts  []appointments.Appointment
	filter appointments.ListFilter
}

func (f *fakeLister) List(_ context.Context, filter appointments.ListFilter) ([]appointments.Appointment, error) {
	f.filter = filter
	return f.appts, nil
}

func postJSON(t *testing.T, h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func validBookBody() string {
	return `{
		"customer_name": "Jane Doe",
		"customer_email": "jane@example.com",
		"hairstyle_id": "` + uuid.NewString() + `",
		"start_time": "2026-03-02T10:00:00Z"
	}`
}

func TestAppointmentsHandlerBook(t *testing.T) {
	svc := &fakeBookingService{result: appointments.BookingResult{
		Appointment: appointments.Appointment{
			ID:            uuid.New(),
			CustomerName:  "Jane Doe",
			HairstyleName: "Balayage",
			StartTime:     time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
			Status:        appointments.StatusConfirmed,
		},
		CancelToken: "tok-123",
	}}
	h := NewAppointmentsHandler(svc, nil, nil)

	rec := postJSON(t, h.Book, "/api/appointments", validBookBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp bookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "tok-123", resp.CancelToken)
	assert.Equal(t, "Jane Doe", resp.Appointment.CustomerName)
	assert.False(t, resp.CalendarWarning)
	assert.Equal(t, "jane@example.com", svc.lastReq.CustomerEmail)
}

func TestAppointmentsHandlerBookSurfacesCalendarWarning(t *testing.T) {
	svc := &fakeBookingService{result: appointments.BookingResult{
		Appointment:     appointments.Appointment{ID: uuid.New()},
		CalendarWarning: true,
	}}
	h := NewAppointmentsHandler(svc, nil, nil)

	rec := postJSON(t, h.Book, "/api/appointments", validBookBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp bookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.CalendarWarning)
}

func TestAppointmentsHandlerBookErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid input", availability.ErrInvalidInput, http.StatusUnprocessableEntity},
		{"slot taken", appointments.ErrSlotTaken, http.StatusConflict},
		{"store down", &availability.LocalStoreError{Op: "insert", Err: context.DeadlineExceeded}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAppointmentsHandler(&fakeBookingService{bookErr: tt.err}, nil, nil)
			rec := postJSON(t, h.Book, "/api/appointments", validBookBody())
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestAppointmentsHandlerBookMalformedJSON(t *testing.T) {
	h := NewAppointmentsHandler(&fakeBookingService{}, nil, nil)
	rec := postJSON(t, h.Book, "/api/appointments", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppointmentsHandlerCancelByToken(t *testing.T) {
	svc := &fakeBookingService{cancelled: appointments.Appointment{
		ID:     uuid.New(),
		Status: appointments.StatusCancelled,
	}}
	h := NewAppointmentsHandler(svc, nil, nil)

	r := chi.NewRouter()
	r.Post("/api/appointments/cancel/{token}", h.CancelByToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/appointments/cancel/tok-123", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var appt appointments.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &appt))
	assert.Equal(t, appointments.StatusCancelled, appt.Status)
}

func TestAppointmentsHandlerCancelByTokenUnknown(t *testing.T) {
	h := NewAppointmentsHandler(&fakeBookingService{cancelErr: appointments.ErrNotFound}, nil, nil)

	r := chi.NewRouter()
	r.Post("/api/appointments/cancel/{token}", h.CancelByToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/appointments/cancel/stale", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAppointmentsHandlerAdminList(t *testing.T) {
	lister := &fakeLister{appts: []appointments.Appointment{{ID: uuid.New()}}}
	h := NewAppointmentsHandler(&fakeBookingService{}, lister, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments?from=2026-03-01&status=confirmed&limit=10", nil)
	rec := httptest.NewRecorder()
	h.AdminList(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, lister.filter.From)
	assert.Equal(t, "2026-03-01", lister.filter.From.Format("2006-01-02"))
	assert.Equal(t, appointments.StatusConfirmed, lister.filter.Status)
	assert.Equal(t, 10, lister.filter.Limit)
}

func TestAppointmentsHandlerAdminListBadRange(t *testing.T) {
	h := NewAppointmentsHandler(&fakeBookingService{}, &fakeLister{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments?from=bogus", nil)
	rec := httptest.NewRecorder()
	h.AdminList(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppointmentsHandlerAdminCancelInvalidID(t *testing.T) {
	h := NewAppointmentsHandler(&fakeBookingService{}, nil, nil)

	r := chi.NewRouter()
	r.Post("/admin/appointments/{id}/cancel", h.AdminCancel)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/appointments/not-a-uuid/cancel", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
