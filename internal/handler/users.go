package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/smart-canteen/api/internal/database"
	"github.com/smart-canteen/api/internal/enum"
)

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	CreateUser(ctx context.Context, u database.User) (database.User, error)
	ListUsersByRole(ctx context.Context, role enum.Role) ([]database.User, error)
	SetUserActive(ctx context.Context, arg database.SetUserActiveParams) (database.User, error)
}

// UserHandler manages canteen admin accounts.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterRoutes registers user endpoints on the given Chi router.
// Expected to be mounted at /users behind RequireRole(SUPER_ADMIN).
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/canteen-admins", h.ListCanteenAdmins)
	r.Post("/canteen-admins", h.CreateCanteenAdmin)
	r.Patch("/{id}/status", h.SetStatus)
}

// --- Request / Response types ---

type createCanteenAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type setStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

type userListEnvelope struct {
	Users []userResponse `json:"users"`
}

// --- Handlers ---

// ListCanteenAdmins handles GET /users/canteen-admins.
func (h *UserHandler) ListCanteenAdmins(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsersByRole(r.Context(), enum.RoleCanteenAdmin)
	if err != nil {
		slog.ErrorContext(r.Context(), "list canteen admins", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, userListEnvelope{Users: resp})
}

// CreateCanteenAdmin handles POST /users/canteen-admins.
func (h *UserHandler) CreateCanteenAdmin(w http.ResponseWriter, r *http.Request) {
	var req createCanteenAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if req.Name == "" || email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name, email and password are required"})
		return
	}

	user, err := createAccount(r.Context(), h.store, database.User{
		Name:     req.Name,
		Email:    email,
		Role:     enum.RoleCanteenAdmin,
		Phone:    optionalString(req.Phone),
		IsActive: true,
	}, req.Password)
	if err != nil {
		writeAccountError(r.Context(), w, "create canteen admin", err)
		return
	}

	writeJSON(w, http.StatusCreated, userEnvelope{User: toUserResponse(user)})
}

// SetStatus handles PATCH /users/{id}/status.
func (h *UserHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "canteen admin not found"})
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "isActive must be boolean"})
		return
	}

	user, err := h.store.SetUserActive(r.Context(), database.SetUserActiveParams{
		ID:       id,
		Role:     enum.RoleCanteenAdmin,
		IsActive: *req.IsActive,
	})
	if err != nil {
		if errors.Is(err, database.ErrNoDocuments) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "canteen admin not found"})
			return
		}
		slog.ErrorContext(r.Context(), "set user status", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, userEnvelope{User: toUserResponse(user)})
}
