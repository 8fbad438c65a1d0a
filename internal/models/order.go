package models

import "time"

// Status is the closed set of order lifecycle states. Free-text statuses are
// never stored; every write path goes through the state machine.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReadyForPickup Status = "ready_for_pickup"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusPickedUp       Status = "picked_up"
	StatusCancelled      Status = "cancelled"
)

// Valid reports whether s is a member of the status enum.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReadyForPickup,
		StatusOutForDelivery, StatusDelivered, StatusPickedUp, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s has no legal successor.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusPickedUp, StatusCancelled:
		return true
	}
	return false
}

// DeliveryMode distinguishes the pickup and delivery branches of the
// forward chain.
type DeliveryMode string

const (
	ModePickup   DeliveryMode = "pickup"
	ModeDelivery DeliveryMode = "delivery"
)

func (m DeliveryMode) Valid() bool {
	return m == ModePickup || m == ModeDelivery
}

// Order is the durable order header. BusinessID and OrderNumber never change
// after creation. Customer contact fields are snapshotted at checkout so
// notifications do not depend on the user profile later.
type Order struct {
	ID            int64        `json:"id"`
	OrderNumber   string       `json:"orderNumber"`
	BusinessID    int64        `json:"businessId"`
	UserID        *int64       `json:"userId,omitempty"` // nil for guest orders
	Status        Status       `json:"status"`
	DeliveryMode  DeliveryMode `json:"deliveryType"`
	CustomerName  string       `json:"customerName"`
	CustomerPhone string       `json:"customerPhone,omitempty"`
	CustomerEmail string       `json:"customerEmail,omitempty"`
	Items         []OrderItem  `json:"items,omitempty"`
	CustomItems   []CustomOrderLineItem `json:"customItems,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// OrderItem is a catalog line item, snapshotted at order time so later
// catalog edits cannot change a placed order.
type OrderItem struct {
	ID        int64  `json:"id"`
	OrderID   int64  `json:"orderId"`
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"` // cents
}

// CustomOrderLineItem is a free-text, non-catalog request attached to an
// order.
type CustomOrderLineItem struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"orderId"`
	Description string `json:"description"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	Preference  string `json:"preference,omitempty"`
}
