// Package http provides the HTTP handlers and routing of the card server.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/shoebox/internal/metrics"
	"github.com/atinyakov/shoebox/internal/middleware"
	"github.com/atinyakov/shoebox/internal/models"
	"github.com/atinyakov/shoebox/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxBody caps request bodies; a full collection upsert fits comfortably.
const maxBody = 4 << 20

// CardService defines the card operations required by the CardHandler.
type CardService interface {
	List(ctx context.Context, userID string) ([]models.Card, error)
	Create(ctx context.Context, userID string, card models.NewCard) (models.Card, error)
	Update(ctx context.Context, userID, id string, patch models.CardPatch) error
	Delete(ctx context.Context, userID, id string) error
	Upsert(ctx context.Context, userID string, cards []models.Card) error
}

// CardHandler handles the /api/cards endpoints. The user always comes from
// the request context set by middleware.Authenticate.
type CardHandler struct {
	CardService CardService
	Metrics     *metrics.Collector
	Log         *zap.Logger
}

// List handles GET /api/cards.
func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	cards, err := h.CardService.List(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

// Create handles POST /api/cards and replies 201 with the stored card.
func (h *CardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var nc models.NewCard
	if !decode(w, r, &nc) {
		return
	}
	card, err := h.CardService.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), nc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.CardsCreated.Inc()
	}
	writeJSON(w, http.StatusCreated, card)
}

// Update handles PATCH /api/cards/{id}.
func (h *CardHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.CardPatch
	if !decode(w, r, &patch) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.CardService.Update(r.Context(), middleware.GetUserIDFromContext(r.Context()), id, patch); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/cards/{id}.
func (h *CardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.CardService.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.CardsDeleted.Inc()
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upsert handles PUT /api/cards with a JSON array of full cards.
func (h *CardHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var cards []models.Card
	if !decode(w, r, &cards) {
		return
	}
	if err := h.CardService.Upsert(r.Context(), middleware.GetUserIDFromContext(r.Context()), cards); err != nil {
		h.fail(w, r, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.CardsUpserted.Add(float64(len(cards)))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/me, echoing the authenticated user.
func Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"user":   middleware.GetUserIDFromContext(r.Context()),
	})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *CardHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNoUser):
		http.Error(w, "authentication required", http.StatusUnauthorized)
	case errors.Is(err, service.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, "card not found", http.StatusNotFound)
	case errors.Is(err, service.ErrConflict):
		http.Error(w, "card already exists", http.StatusConflict)
	default:
		if h.Log != nil {
			h.Log.Error("card request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
