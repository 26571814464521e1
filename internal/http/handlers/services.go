package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aurelie-dev/salon-booking/internal/catalog"
	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

// Catalog is the full catalog surface used by the services handler.
// *catalog.Repository satisfies it.
type Catalog interface {
	List(ctx context.Context, onlyActive bool) ([]catalog.Hairstyle, error)
	GetByID(ctx context.Context, id uuid.UUID) (catalog.Hairstyle, error)
	Create(ctx context.Context, h catalog.Hairstyle) (catalog.Hairstyle, error)
	Update(ctx context.Context, h catalog.Hairstyle) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// ServicesHandler serves the hairstyle catalog, public listing plus admin
// management.
type ServicesHandler struct {
	catalog Catalog
	logger  *logging.Logger
}

// NewServicesHandler creates the catalog HTTP handler.
func NewServicesHandler(cat Catalog, logger *logging.Logger) *ServicesHandler {
	if cat == nil {
		panic("handlers: catalog required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ServicesHandler{catalog: cat, logger: logger}
}

// ListPublic returns the active hairstyles customers can book.
// GET /api/services
func (h *ServicesHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	styles, err := h.catalog.List(r.Context(), true)
	if err != nil {
		h.logger.Error("failed to list hairstyles", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"services": styles})
}

// ListAll returns every hairstyle, inactive ones included.
// GET /admin/services
func (h *ServicesHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	styles, err := h.catalog.List(r.Context(), false)
	if err != nil {
		h.logger.Error("failed to list hairstyles", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"services": styles})
}

// Create adds a hairstyle to the catalog.
// POST /admin/services
func (h *ServicesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var style catalog.Hairstyle
	if err := json.NewDecoder(r.Body).Decode(&style); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	created, err := h.catalog.Create(r.Context(), style)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidHairstyle) {
			http.Error(w, `{"error": "name and a positive duration are required"}`, http.StatusUnprocessableEntity)
			return
		}
		h.logger.Error("failed to create hairstyle", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, created)
}

// Update replaces a hairstyle's fields.
// PUT /admin/services/{id}
func (h *ServicesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error": "invalid service id"}`, http.StatusBadRequest)
		return
	}
	var style catalog.Hairstyle
	if err := json.NewDecoder(r.Body).Decode(&style); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	style.ID = id
	if err := h.catalog.Update(r.Context(), style); err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			http.Error(w, `{"error": "unknown hairstyle"}`, http.StatusNotFound)
		case errors.Is(err, catalog.ErrInvalidHairstyle):
			http.Error(w, `{"error": "name and a positive duration are required"}`, http.StatusUnprocessableEntity)
		default:
			h.logger.Error("failed to update hairstyle", "error", err, "id", id)
			http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "updated"})
}

// Deactivate hides a hairstyle from new bookings without deleting history.
// DELETE /admin/services/{id}
func (h *ServicesHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error": "invalid service id"}`, http.StatusBadRequest)
		return
	}
	if err := h.catalog.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			http.Error(w, `{"error": "unknown hairstyle"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("failed to deactivate hairstyle", "error", err, "id", id)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "deactivated"})
}

func writeJSON(w http.ResponseWriter, logger *logging.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
