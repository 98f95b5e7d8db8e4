package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/smart-canteen/api/internal/database"
	"github.com/smart-canteen/api/internal/service"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
}

// MenuHandler serves the read-only menu.
type MenuHandler struct {
	store    MenuStore
	canteens service.CanteenResolver
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, canteens service.CanteenResolver) *MenuHandler {
	return &MenuHandler{store: store, canteens: canteens}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
// Expected to be mounted at /menu behind Authenticate.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type menuItemResponse struct {
	ID               uuid.UUID `json:"_id"`
	CanteenProfileID uuid.UUID `json:"canteenProfileId"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Price            string    `json:"price"`
	Category         string    `json:"category"`
	ImageURL         string    `json:"imageUrl"`
	IsAvailable      bool      `json:"isAvailable"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type menuListEnvelope struct {
	Items []menuItemResponse `json:"items"`
}

// List handles GET /menu?available=true.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	canteenID, err := h.canteens.ActiveCanteenID(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoActiveCanteen) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		slog.ErrorContext(r.Context(), "resolve active canteen", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListMenuItems(r.Context(), database.ListMenuItemsParams{
		CanteenProfileID: canteenID,
		AvailableOnly:    r.URL.Query().Get("available") == "true",
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "list menu items", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = menuItemResponse{
			ID:               m.ID,
			CanteenProfileID: m.CanteenProfileID,
			Name:             m.Name,
			Description:      m.Description,
			Price:            database.ToDecimal(m.Price).StringFixed(2),
			Category:         m.Category,
			ImageURL:         m.ImageURL,
			IsAvailable:      m.IsAvailable,
			CreatedAt:        m.CreatedAt,
			UpdatedAt:        m.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, menuListEnvelope{Items: resp})
}
