// Package dto holds the JSON shapes shared by the HTTP handlers and the event publishers.
package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/smart-canteen/api/internal/database"
	"github.com/smart-canteen/api/internal/enum"
)

type Order struct {
	ID               uuid.UUID        `json:"_id"`
	CanteenProfileID uuid.UUID        `json:"canteenProfileId"`
	UserID           uuid.UUID        `json:"userId"`
	User             *UserSummary     `json:"user,omitempty"`
	Items            []OrderItem      `json:"items"`
	Total            string           `json:"total"`
	PaymentMethod    string           `json:"paymentMethod"`
	PaymentStatus    string           `json:"paymentStatus"`
	Status           enum.OrderStatus `json:"status"`
	StatusHistory    []StatusEntry    `json:"statusHistory"`
	Version          int64            `json:"version"`
	Rateable         bool             `json:"rateable"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

type OrderItem struct {
	MenuItemID    uuid.UUID `json:"menuItemId"`
	NameSnapshot  string    `json:"nameSnapshot"`
	PriceSnapshot string    `json:"priceSnapshot"`
	Qty           int32     `json:"qty"`
}

type StatusEntry struct {
	Status enum.OrderStatus `json:"status"`
	At     time.Time        `json:"at"`
}

type UserSummary struct {
	ID        uuid.UUID `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	StudentID *string   `json:"studentId"`
	Phone     *string   `json:"phone"`
}

// FromOrder converts a stored order. Money renders with two decimals.
func FromOrder(o database.Order) Order {
	resp := Order{
		ID:               o.ID,
		CanteenProfileID: o.CanteenProfileID,
		UserID:           o.UserID,
		Total:            database.ToDecimal(o.Total).StringFixed(2),
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		Status:           o.Status,
		Version:          o.Version,
		Rateable:         o.Rateable(),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}

	resp.Items = make([]OrderItem, len(o.Items))
	for i, it := range o.Items {
		resp.Items[i] = OrderItem{
			MenuItemID:    it.MenuItemID,
			NameSnapshot:  it.NameSnapshot,
			PriceSnapshot: database.ToDecimal(it.PriceSnapshot).StringFixed(2),
			Qty:           it.Qty,
		}
	}

	resp.StatusHistory = make([]StatusEntry, len(o.StatusHistory))
	for i, h := range o.StatusHistory {
		resp.StatusHistory[i] = StatusEntry{Status: h.Status, At: h.At}
	}

	return resp
}

// FromOrderWithUser converts a joined order; the owner is omitted when it no longer exists.
func FromOrderWithUser(o database.OrderWithUser) Order {
	resp := FromOrder(o.Order)
	if o.User != nil {
		resp.User = &UserSummary{
			ID:        o.User.ID,
			Name:      o.User.Name,
			Email:     o.User.Email,
			StudentID: o.User.StudentID,
			Phone:     o.User.Phone,
		}
	}
	return resp
}
