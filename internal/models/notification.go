package models

import "time"

// Notification event types.
const (
	NotificationTypeStatusChange = "status_change"
	NotificationTypeNewOrder     = "new_order"
)

// NotificationRecord is an in-app inbox entry. It belongs to exactly one of
// a user or a business, never both. Records are created only by the
// dispatcher's in-app channel and mutated only by mark-read.
type NotificationRecord struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"userId,omitempty"`
	BusinessID *int64    `json:"businessId,omitempty"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	OrderID    *int64    `json:"orderId,omitempty"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}
