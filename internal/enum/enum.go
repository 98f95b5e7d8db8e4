package enum

// ── Group A: State machines ──

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusAccepted  OrderStatus = "ACCEPTED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusCollected OrderStatus = "COLLECTED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderStatuses lists every order status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusAccepted,
	OrderStatusRejected,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusCollected,
	OrderStatusCancelled,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusAccepted, OrderStatusRejected,
		OrderStatusPreparing, OrderStatusReady, OrderStatusCollected,
		OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusRejected, OrderStatusCollected, OrderStatusCancelled:
		return true
	}
	return false
}

const (
	PaymentStatusUnpaid = "UNPAID"
	PaymentStatusPaid   = "PAID"
)

// ── Group B: Roles ──

// Role is the capability carried by an authenticated principal.
type Role string

const (
	RoleUser         Role = "USER"
	RoleCanteenAdmin Role = "CANTEEN_ADMIN"
	RoleSuperAdmin   Role = "SUPER_ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleCanteenAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// ── Group C: Configurable labels ──

const (
	PaymentMethodPayAtCanteen = "PAY_AT_CANTEEN"
)

// NormalizePaymentMethod returns m when it is supported and the default method otherwise.
func NormalizePaymentMethod(m string) string {
	switch m {
	case PaymentMethodPayAtCanteen:
		return m
	}
	return PaymentMethodPayAtCanteen
}
