package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/smart-canteen/api/internal/enum"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Order struct {
	ID               uuid.UUID            `bson:"_id"`
	CanteenProfileID uuid.UUID            `bson:"canteenProfileId"`
	UserID           uuid.UUID            `bson:"userId"`
	Items            []OrderItem          `bson:"items"`
	Total            primitive.Decimal128 `bson:"total"`
	PaymentMethod    string               `bson:"paymentMethod"`
	PaymentStatus    string               `bson:"paymentStatus"`
	Status           enum.OrderStatus     `bson:"status"`
	StatusHistory    []StatusEntry        `bson:"statusHistory"`
	Version          int64                `bson:"version"`
	CreatedAt        time.Time            `bson:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt"`
}

// Rateable reports whether the order may receive a rating.
func (o Order) Rateable() bool {
	return o.Status == enum.OrderStatusCollected
}

type OrderItem struct {
	MenuItemID    uuid.UUID            `bson:"menuItemId"`
	NameSnapshot  string               `bson:"nameSnapshot"`
	PriceSnapshot primitive.Decimal128 `bson:"priceSnapshot"`
	Qty           int32                `bson:"qty"`
}

type StatusEntry struct {
	Status enum.OrderStatus `bson:"status"`
	At     time.Time        `bson:"at"`
}

// OrderWithUser is an order joined with a display summary of its owner.
type OrderWithUser struct {
	Order `bson:",inline"`
	User  *UserSummary `bson:"user,omitempty"`
}

type UserSummary struct {
	ID        uuid.UUID `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	StudentID *string   `bson:"studentId"`
	Phone     *string   `bson:"phone"`
}

type MenuItem struct {
	ID               uuid.UUID            `bson:"_id"`
	CanteenProfileID uuid.UUID            `bson:"canteenProfileId"`
	Name             string               `bson:"name"`
	Description      string               `bson:"description"`
	Price            primitive.Decimal128 `bson:"price"`
	Category         string               `bson:"category"`
	ImageURL         string               `bson:"imageUrl"`
	IsAvailable      bool                 `bson:"isAvailable"`
	CreatedAt        time.Time            `bson:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt"`
}

type CanteenProfile struct {
	ID           uuid.UUID `bson:"_id"`
	Name         string    `bson:"name"`
	ContactPhone string    `bson:"contactPhone"`
	Email        string    `bson:"email"`
	LocationText string    `bson:"locationText"`
	OpenHours    string    `bson:"openHours"`
	IsActive     bool      `bson:"isActive"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

type User struct {
	ID           uuid.UUID `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Role         enum.Role `bson:"role"`
	StudentID    *string   `bson:"studentId"`
	Phone        *string   `bson:"phone"`
	IsActive     bool      `bson:"isActive"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}
