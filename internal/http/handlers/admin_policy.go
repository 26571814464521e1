package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aurelie-dev/salon-booking/internal/availability"
	"github.com/aurelie-dev/salon-booking/internal/policy"
	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

// PolicyStore manages the salon schedule and blocked dates.
// *policy.Repository satisfies it.
type PolicyStore interface {
	Load(ctx context.Context) (policy.Settings, error)
	Update(ctx context.Context, s policy.Settings) error
	ListBlockedDates(ctx context.Context, from time.Time) ([]policy.BlockedDate, error)
	AddBlockedDate(ctx context.Context, date time.Time, reason string) error
	RemoveBlockedDate(ctx context.Context, date time.Time) error
}

// DayInvalidator drops cached slot lists for a day.
type DayInvalidator interface {
	InvalidateDay(ctx context.Context, date time.Time, loc *time.Location)
}

// PolicyHandler serves admin schedule management.
type PolicyHandler struct {
	store  PolicyStore
	cache  DayInvalidator
	logger *logging.Logger
}

// NewPolicyHandler creates the schedule admin handler. cache may be nil.
func NewPolicyHandler(store PolicyStore, cache DayInvalidator, logger *logging.Logger) *PolicyHandler {
	if store == nil {
		panic("handlers: policy store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PolicyHandler{store: store, cache: cache, logger: logger}
}

// GetPolicy returns the current schedule settings.
// GET /admin/policy
func (h *PolicyHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Load(r.Context())
	if err != nil {
		h.logger.Error("failed to load schedule policy", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, settings)
}

// UpdatePolicy replaces the schedule settings.
// PUT /admin/policy
func (h *PolicyHandler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var settings policy.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if err := h.store.Update(r.Context(), settings); err != nil {
		if errors.Is(err, availability.ErrInvalidInput) {
			writeJSON(w, h.logger, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("failed to update schedule policy", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "updated"})
}

type blockedDateRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

// ListBlockedDates lists upcoming blocked dates.
// GET /admin/blocked-dates
func (h *PolicyHandler) ListBlockedDates(w http.ResponseWriter, r *http.Request) {
	from := time.Now().AddDate(0, 0, -1)
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, `{"error": "from must be YYYY-MM-DD"}`, http.StatusBadRequest)
			return
		}
		from = t
	}
	dates, err := h.store.ListBlockedDates(r.Context(), from)
	if err != nil {
		h.logger.Error("failed to list blocked dates", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"blocked_dates": dates})
}

// AddBlockedDate closes the salon on one date.
// POST /admin/blocked-dates
func (h *PolicyHandler) AddBlockedDate(w http.ResponseWriter, r *http.Request) {
	var req blockedDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		http.Error(w, `{"error": "date must be YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}
	if err := h.store.AddBlockedDate(r.Context(), date, req.Reason); err != nil {
		h.logger.Error("failed to add blocked date", "error", err, "date", req.Date)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.invalidate(r.Context(), date)
	writeJSON(w, h.logger, http.StatusCreated, map[string]string{"status": "blocked", "date": req.Date})
}

// RemoveBlockedDate reopens a previously blocked date.
// DELETE /admin/blocked-dates/{date}
func (h *PolicyHandler) RemoveBlockedDate(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse("2006-01-02", chi.URLParam(r, "date"))
	if err != nil {
		http.Error(w, `{"error": "date must be YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}
	if err := h.store.RemoveBlockedDate(r.Context(), date); err != nil {
		h.logger.Error("failed to remove blocked date", "error", err, "date", date)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.invalidate(r.Context(), date)
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "unblocked"})
}

func (h *PolicyHandler) invalidate(ctx context.Context, date time.Time) {
	if h.cache != nil {
		h.cache.InvalidateDay(ctx, date, date.Location())
	}
}
