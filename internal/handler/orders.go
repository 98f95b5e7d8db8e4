package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/smart-canteen/api/internal/auth"
	"github.com/smart-canteen/api/internal/database"
	"github.com/smart-canteen/api/internal/dto"
	"github.com/smart-canteen/api/internal/enum"
	"github.com/smart-canteen/api/internal/middleware"
	"github.com/smart-canteen/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, p auth.Principal, req service.CreateOrderRequest) (database.Order, error)
	EditOrder(ctx context.Context, p auth.Principal, orderID uuid.UUID, items []service.OrderItemRequest) (database.Order, error)
	CancelOrder(ctx context.Context, p auth.Principal, orderID uuid.UUID) (database.Order, error)
	AdvanceStatus(ctx context.Context, p auth.Principal, orderID uuid.UUID, target enum.OrderStatus) (database.Order, error)
	ListMyOrders(ctx context.Context, p auth.Principal) ([]database.Order, error)
	ListOrders(ctx context.Context, p auth.Principal, status string) ([]database.OrderWithUser, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders behind Authenticate.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireRole(enum.RoleCanteenAdmin, enum.RoleSuperAdmin)).Get("/", h.List)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.RoleUser))
		r.Post("/", h.Create)
		r.Get("/my", h.ListMine)
		r.Put("/{id}", h.Edit)
		r.Patch("/{id}/cancel", h.Cancel)
	})

	r.With(middleware.RequireRole(enum.RoleCanteenAdmin)).Patch("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	Items         []orderItemRequest `json:"items"`
	PaymentMethod string             `json:"paymentMethod"`
}

type editOrderRequest struct {
	Items []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	MenuItemID string   `json:"menuItemId"`
	Qty        qtyValue `json:"qty"`
}

// qtyValue accepts a JSON number or a numeric string. Absent and null leave
// it empty; the service treats empty as 1 and validates the rest.
type qtyValue string

func (q *qtyValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*q = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s == "" {
			// An explicit empty string is not a quantity.
			s = "invalid"
		}
		*q = qtyValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*q = qtyValue(b)
		return nil
	}
	*q = qtyValue(n)
	return nil
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderEnvelope struct {
	Order dto.Order `json:"order"`
}

type orderListEnvelope struct {
	Orders []dto.Order `json:"orders"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), p, service.CreateOrderRequest{
		Items:         toServiceItems(req.Items),
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeServiceError(r.Context(), w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, orderEnvelope{Order: dto.FromOrder(order)})
}

// List handles GET /orders?status=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orders, err := h.svc.ListOrders(r.Context(), p, r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(r.Context(), w, "list orders", err)
		return
	}

	resp := make([]dto.Order, len(orders))
	for i, o := range orders {
		resp[i] = dto.FromOrderWithUser(o)
	}
	writeJSON(w, http.StatusOK, orderListEnvelope{Orders: resp})
}

// ListMine handles GET /orders/my.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orders, err := h.svc.ListMyOrders(r.Context(), p)
	if err != nil {
		writeServiceError(r.Context(), w, "list my orders", err)
		return
	}

	resp := make([]dto.Order, len(orders))
	for i, o := range orders {
		resp[i] = dto.FromOrder(o)
	}
	writeJSON(w, http.StatusOK, orderListEnvelope{Orders: resp})
}

// Edit handles PUT /orders/{id}.
func (h *OrderHandler) Edit(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req editOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.EditOrder(r.Context(), p, orderID, toServiceItems(req.Items))
	if err != nil {
		writeServiceError(r.Context(), w, "edit order", err)
		return
	}

	writeJSON(w, http.StatusOK, orderEnvelope{Order: dto.FromOrder(order)})
}

// Cancel handles PATCH /orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.svc.CancelOrder(r.Context(), p, orderID)
	if err != nil {
		writeServiceError(r.Context(), w, "cancel order", err)
		return
	}

	writeJSON(w, http.StatusOK, orderEnvelope{Order: dto.FromOrder(order)})
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	order, err := h.svc.AdvanceStatus(r.Context(), p, orderID, enum.OrderStatus(req.Status))
	if err != nil {
		writeServiceError(r.Context(), w, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, orderEnvelope{Order: dto.FromOrder(order)})
}

// --- Helpers ---

func toServiceItems(items []orderItemRequest) []service.OrderItemRequest {
	out := make([]service.OrderItemRequest, len(items))
	for i, it := range items {
		out[i] = service.OrderItemRequest{MenuItemID: it.MenuItemID, Qty: string(it.Qty)}
	}
	return out
}

// parseOrderID reads {id}. A malformed id cannot name any order, so it is a 404.
func parseOrderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": service.ErrOrderNotFound.Error()})
		return uuid.Nil, false
	}
	return id, true
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrMenuItemUnavailable) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrNoActiveCanteen) ||
		errors.Is(err, service.ErrInvalidStatus) ||
		errors.Is(err, service.ErrInvalidTransition) ||
		errors.Is(err, service.ErrOrderNotEditable) ||
		errors.Is(err, service.ErrOrderNotCancellable)
}

// writeServiceError maps an order service error to its HTTP status.
// Unexpected errors are logged and reported as 500.
func writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	switch {
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		slog.ErrorContext(ctx, op, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
