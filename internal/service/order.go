package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smart-canteen/api/internal/auth"
	"github.com/smart-canteen/api/internal/database"
	"github.com/smart-canteen/api/internal/enum"
)

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrMenuItemUnavailable = errors.New("menu item not available")
	ErrInvalidQuantity     = errors.New("qty must be a positive integer")
	ErrNoActiveCanteen     = errors.New("no active canteen profile found")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrOrderNotEditable    = errors.New("order can only be edited while PLACED")
	ErrOrderNotCancellable = errors.New("order can only be cancelled while PLACED")
	ErrOrderNotFound       = errors.New("order not found")
	ErrVersionConflict     = errors.New("order was modified concurrently, please retry")
	ErrForbidden           = errors.New("insufficient permissions")
)

// OrderStore defines the storage methods the order engine needs.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	CreateOrder(ctx context.Context, o database.Order) (database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUser(ctx context.Context, arg database.GetOrderForUserParams) (database.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.OrderWithUser, error)
	UpdateOrderItems(ctx context.Context, arg database.UpdateOrderItemsParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	GetMenuItemsForOrder(ctx context.Context, ids []uuid.UUID) ([]database.MenuItem, error)
}

// CanteenResolver yields the canteen new orders are scoped to. Satisfied by *ActiveCanteen.
type CanteenResolver interface {
	ActiveCanteenID(ctx context.Context) (uuid.UUID, error)
}

// OrderItemRequest is one requested order line.
type OrderItemRequest struct {
	MenuItemID string
	// Qty is the quantity as submitted. Empty means 1.
	Qty string
}

// CreateOrderRequest is the input for placing an order.
type CreateOrderRequest struct {
	Items         []OrderItemRequest
	PaymentMethod string
}

// OrderService runs the order lifecycle: placing, editing, cancelling and
// advancing orders. It holds no per-request state.
type OrderService struct {
	store     OrderStore
	canteens  CanteenResolver
	publisher Publisher
	recorder  Recorder
	now       func() time.Time
}

// NewOrderService creates a new OrderService. publisher and recorder may be nil.
func NewOrderService(store OrderStore, canteens CanteenResolver, publisher Publisher, recorder Recorder) *OrderService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &OrderService{
		store:     store,
		canteens:  canteens,
		publisher: publisher,
		recorder:  recorder,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder validates the lines, snapshots current menu prices and persists
// a PLACED order. Any invalid line fails the whole order before anything is written.
func (s *OrderService) CreateOrder(ctx context.Context, p auth.Principal, req CreateOrderRequest) (database.Order, error) {
	if !p.Has(enum.RoleUser) {
		return database.Order{}, ErrForbidden
	}

	items, total, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return database.Order{}, err
	}

	canteenID, err := s.canteens.ActiveCanteenID(ctx)
	if err != nil {
		return database.Order{}, err
	}

	now := s.now()
	order, err := s.store.CreateOrder(ctx, database.Order{
		ID:               uuid.New(),
		CanteenProfileID: canteenID,
		UserID:           p.UserID,
		Items:            items,
		Total:            database.FromDecimal(total),
		PaymentMethod:    enum.NormalizePaymentMethod(req.PaymentMethod),
		PaymentStatus:    enum.PaymentStatusUnpaid,
		Status:           enum.OrderStatusPlaced,
		StatusHistory:    []database.StatusEntry{{Status: enum.OrderStatusPlaced, At: now}},
		Version:          1,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.recorder.ObserveOrderCreated()
	s.emit(ctx, OrderEvent{Type: EventOrderCreated, Order: order})
	return order, nil
}

// EditOrder replaces the items of the requester's PLACED order, re-snapshotting
// prices as of now. Status and history are untouched.
func (s *OrderService) EditOrder(ctx context.Context, p auth.Principal, orderID uuid.UUID, reqItems []OrderItemRequest) (database.Order, error) {
	if !p.Has(enum.RoleUser) {
		return database.Order{}, ErrForbidden
	}

	current, err := s.ownedOrder(ctx, p, orderID)
	if err != nil {
		return database.Order{}, err
	}
	if current.Status != enum.OrderStatusPlaced {
		return database.Order{}, ErrOrderNotEditable
	}

	items, total, err := s.priceItems(ctx, reqItems)
	if err != nil {
		return database.Order{}, err
	}

	updated, err := s.store.UpdateOrderItems(ctx, database.UpdateOrderItemsParams{
		ID:      current.ID,
		Version: current.Version,
		Status:  enum.OrderStatusPlaced,
		Items:   items,
		Total:   database.FromDecimal(total),
	})
	if err != nil {
		return database.Order{}, s.writeError("update order items", err)
	}

	s.emit(ctx, OrderEvent{Type: EventOrderUpdated, Order: updated})
	return updated, nil
}

// CancelOrder moves the requester's PLACED order to CANCELLED.
func (s *OrderService) CancelOrder(ctx context.Context, p auth.Principal, orderID uuid.UUID) (database.Order, error) {
	if !p.Has(enum.RoleUser) {
		return database.Order{}, ErrForbidden
	}

	current, err := s.ownedOrder(ctx, p, orderID)
	if err != nil {
		return database.Order{}, err
	}
	if current.Status != enum.OrderStatusPlaced {
		return database.Order{}, ErrOrderNotCancellable
	}

	updated, err := s.transition(ctx, current, enum.OrderStatusCancelled)
	if err != nil {
		return database.Order{}, err
	}

	s.emit(ctx, OrderEvent{Type: EventOrderCancelled, Order: updated})
	return updated, nil
}

// AdvanceStatus applies an admin transition from the transition table.
func (s *OrderService) AdvanceStatus(ctx context.Context, p auth.Principal, orderID uuid.UUID, target enum.OrderStatus) (database.Order, error) {
	if !p.Has(enum.RoleCanteenAdmin) {
		return database.Order{}, ErrForbidden
	}

	current, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, database.ErrNoDocuments) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if !target.Valid() {
		return database.Order{}, fmt.Errorf("%w: %s", ErrInvalidStatus, target)
	}

	if err := validateStatusTransition(current.Status, target); err != nil {
		return database.Order{}, err
	}

	updated, err := s.transition(ctx, current, target)
	if err != nil {
		return database.Order{}, err
	}

	s.emit(ctx, OrderEvent{Type: EventOrderStatusChanged, Order: updated})
	return updated, nil
}

// ListMyOrders returns the requester's orders, newest first.
func (s *OrderService) ListMyOrders(ctx context.Context, p auth.Principal) ([]database.Order, error) {
	if !p.Has(enum.RoleUser) {
		return nil, ErrForbidden
	}
	orders, err := s.store.ListOrdersByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list orders by user: %w", err)
	}
	return orders, nil
}

// ListOrders returns every order, newest first, optionally filtered by exact status.
func (s *OrderService) ListOrders(ctx context.Context, p auth.Principal, status string) ([]database.OrderWithUser, error) {
	if !p.Has(enum.RoleCanteenAdmin, enum.RoleSuperAdmin) {
		return nil, ErrForbidden
	}

	params := database.ListOrdersParams{}
	if status != "" {
		st := enum.OrderStatus(status)
		if !st.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
		}
		params.Status = st
	}

	orders, err := s.store.ListOrders(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// --- Helpers ---

func (s *OrderService) ownedOrder(ctx context.Context, p auth.Principal, orderID uuid.UUID) (database.Order, error) {
	order, err := s.store.GetOrderForUser(ctx, database.GetOrderForUserParams{
		ID:     orderID,
		UserID: p.UserID,
	})
	if err != nil {
		if errors.Is(err, database.ErrNoDocuments) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// transition writes current.Status -> to with one history entry, guarded by version.
func (s *OrderService) transition(ctx context.Context, current database.Order, to enum.OrderStatus) (database.Order, error) {
	updated, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:      current.ID,
		Version: current.Version,
		From:    current.Status,
		To:      to,
		At:      s.now(),
	})
	if err != nil {
		return database.Order{}, s.writeError("update order status", err)
	}
	s.recorder.ObserveTransition(string(current.Status), string(to))
	return updated, nil
}

// writeError maps a failed guarded write. No match means the version moved
// between our read and write.
func (s *OrderService) writeError(op string, err error) error {
	if errors.Is(err, database.ErrNoDocuments) {
		s.recorder.ObserveConflict()
		return ErrVersionConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}

// priceItems resolves every line against the menu and snapshots name and price.
// Checks run in order: non-empty list, every item available, every qty valid.
func (s *OrderService) priceItems(ctx context.Context, reqItems []OrderItemRequest) ([]database.OrderItem, decimal.Decimal, error) {
	if len(reqItems) == 0 {
		return nil, decimal.Zero, ErrEmptyItems
	}

	ids := make([]uuid.UUID, 0, len(reqItems))
	for _, it := range reqItems {
		if id, err := uuid.Parse(strings.TrimSpace(it.MenuItemID)); err == nil {
			ids = append(ids, id)
		}
	}

	menuItems, err := s.store.GetMenuItemsForOrder(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("get menu items: %w", err)
	}
	menu := make(map[uuid.UUID]database.MenuItem, len(menuItems))
	for _, m := range menuItems {
		if m.IsAvailable {
			menu[m.ID] = m
		}
	}

	resolved := make([]database.MenuItem, len(reqItems))
	for i, it := range reqItems {
		id, err := uuid.Parse(strings.TrimSpace(it.MenuItemID))
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", ErrMenuItemUnavailable, it.MenuItemID)
		}
		m, ok := menu[id]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", ErrMenuItemUnavailable, it.MenuItemID)
		}
		resolved[i] = m
	}

	qtys := make([]int32, len(reqItems))
	for i, it := range reqItems {
		q, err := parseQty(it.Qty)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("items[%d]: %w", i, err)
		}
		qtys[i] = q
	}

	total := decimal.Zero
	items := make([]database.OrderItem, len(reqItems))
	for i, m := range resolved {
		price := database.ToDecimal(m.Price)
		total = total.Add(price.Mul(decimal.NewFromInt32(qtys[i])))
		items[i] = database.OrderItem{
			MenuItemID:    m.ID,
			NameSnapshot:  m.Name,
			PriceSnapshot: m.Price,
			Qty:           qtys[i],
		}
	}
	return items, total, nil
}

// parseQty coerces a submitted quantity. Empty defaults to 1; anything that is
// not a whole number in 1..MaxInt32 is rejected.
func parseQty(raw string) (int32, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsInteger() || !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return 0, ErrInvalidQuantity
	}
	return int32(d.IntPart()), nil
}

func (s *OrderService) emit(ctx context.Context, event OrderEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish order event", "type", event.Type, "order_id", event.Order.ID, "err", err)
	}
}
