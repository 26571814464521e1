package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aurelie-dev/salon-booking/internal/availability"
	"github.com/aurelie-dev/salon-booking/internal/catalog"
	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

// SlotFinder computes bookable slots. *availability.Engine satisfies it.
type SlotFinder interface {
	AvailableSlots(ctx context.Context, date time.Time, duration time.Duration) (availability.Availability, error)
}

// HairstyleCatalog looks up the requested service.
type HairstyleCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (catalog.Hairstyle, error)
}

// AvailabilityHandler serves the public slot lookup endpoint.
type AvailabilityHandler struct {
	finder  SlotFinder
	catalog HairstyleCatalog
	logger  *logging.Logger
}

// NewAvailabilityHandler creates the availability HTTP handler.
func NewAvailabilityHandler(finder SlotFinder, cat HairstyleCatalog, logger *logging.Logger) *AvailabilityHandler {
	if finder == nil {
		panic("handlers: slot finder required")
	}
	if cat == nil {
		panic("handlers: catalog required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{finder: finder, catalog: cat, logger: logger}
}

type availabilityResponse struct {
	Date               string   `json:"date"`
	HairstyleID        string   `json:"hairstyle_id"`
	DurationMinutes    int      `json:"duration_minutes"`
	Slots              []string `json:"slots"`
	PossiblyIncomplete bool     `json:"possibly_incomplete,omitempty"`
}

// GetSlots returns bookable start times for one date and hairstyle.
// GET /api/availability?date=2026-03-02&hairstyle_id=<uuid>
func (h *AvailabilityHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		http.Error(w, `{"error": "date must be YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}

	styleID, err := uuid.Parse(r.URL.Query().Get("hairstyle_id"))
	if err != nil {
		http.Error(w, `{"error": "hairstyle_id must be a UUID"}`, http.StatusBadRequest)
		return
	}

	style, err := h.catalog.GetByID(r.Context(), styleID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			http.Error(w, `{"error": "unknown hairstyle"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("hairstyle lookup failed", "error", err, "hairstyle_id", styleID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if !style.Active {
		http.Error(w, `{"error": "hairstyle no longer offered"}`, http.StatusNotFound)
		return
	}

	result, err := h.finder.AvailableSlots(r.Context(), date, style.Duration())
	if err != nil {
		switch {
		case errors.Is(err, availability.ErrInvalidInput):
			http.Error(w, `{"error": "invalid availability request"}`, http.StatusBadRequest)
		case availability.IsLocalStoreError(err):
			h.logger.Error("availability lookup failed", "error", err, "date", dateStr)
			http.Error(w, `{"error": "availability temporarily unavailable"}`, http.StatusServiceUnavailable)
		default:
			h.logger.Error("availability lookup failed", "error", err, "date", dateStr)
			http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		}
		return
	}

	resp := availabilityResponse{
		Date:               result.Date.Format("2006-01-02"),
		HairstyleID:        style.ID.String(),
		DurationMinutes:    style.DurationMinutes,
		Slots:              make([]string, 0, len(result.Slots)),
		PossiblyIncomplete: result.Incomplete,
	}
	for _, slot := range result.Slots {
		resp.Slots = append(resp.Slots, slot.Format(time.RFC3339))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode availability response", "error", err)
	}
}
