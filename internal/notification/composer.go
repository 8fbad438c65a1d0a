package notification

import (
	"fmt"

	"orderflow/internal/models"
)

// Channel is one delivery mechanism for a notification.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Message is a channel-agnostic notification, ready for fan-out. Exactly one
// of UserID/BusinessID addresses the in-app record; Email and Phone address
// the external channels. Channels lists what the dispatcher should attempt.
type Message struct {
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Body       string    `json:"message"`
	OrderID    int64     `json:"orderId"`
	UserID     *int64    `json:"userId,omitempty"`
	BusinessID *int64    `json:"businessId,omitempty"`
	Email      string    `json:"recipientEmail,omitempty"`
	Phone      string    `json:"recipientPhone,omitempty"`
	Channels   []Channel `json:"channels"`
}

// statusCopy maps each non-initial status to customer-facing copy. pending
// never generates a message since it is the creation state, not a
// transition target.
var statusCopy = map[models.Status]struct {
	title string
	body  string
}{
	models.StatusConfirmed:      {"Order Confirmed", "%s has confirmed your order %s."},
	models.StatusPreparing:      {"Order In Progress", "%s has started preparing your order %s."},
	models.StatusReadyForPickup: {"Ready for Pickup", "Your order %s is ready for pickup at %s."},
	models.StatusOutForDelivery: {"On the Way", "Your order %s from %s is out for delivery."},
	models.StatusDelivered:      {"Order Delivered", "Your order %s from %s has been delivered. Enjoy!"},
	models.StatusPickedUp:       {"Order Picked Up", "Thanks for picking up order %s from %s."},
	models.StatusCancelled:      {"Order Cancelled", "Your order %s from %s has been cancelled."},
}

// Compose maps a committed status change to a Message. It is pure: no
// storage, no clock beyond the inputs. The second return is false when
// nothing should be sent (no actual change, or the target status carries no
// copy). An order with no contact fields yields a message with an empty
// channel set, which dispatch treats as a no-op.
func Compose(o *models.Order, b *models.Business, prev, next models.Status) (Message, bool) {
	if prev == next {
		return Message{}, false
	}
	copyEntry, ok := statusCopy[next]
	if !ok {
		return Message{}, false
	}

	var body string
	switch next {
	case models.StatusConfirmed, models.StatusPreparing:
		body = fmt.Sprintf(copyEntry.body, b.Name, o.OrderNumber)
	default:
		body = fmt.Sprintf(copyEntry.body, o.OrderNumber, b.Name)
	}

	msg := Message{
		Type:    models.NotificationTypeStatusChange,
		Title:   copyEntry.title,
		Body:    body,
		OrderID: o.ID,
		UserID:  o.UserID,
		Email:   o.CustomerEmail,
		Phone:   o.CustomerPhone,
	}
	msg.Channels = computeChannels(msg)
	return msg, true
}

// ComposeNewOrder builds the business-facing alert created when an order is
// placed. It addresses the business inbox and the business contact email.
func ComposeNewOrder(o *models.Order, b *models.Business) Message {
	businessID := b.ID
	msg := Message{
		Type:       models.NotificationTypeNewOrder,
		Title:      "New Order Received",
		Body:       fmt.Sprintf("Order %s was placed by %s.", o.OrderNumber, o.CustomerName),
		OrderID:    o.ID,
		BusinessID: &businessID,
		Email:      b.Email,
		Phone:      b.Phone,
	}
	msg.Channels = computeChannels(msg)
	return msg
}

func computeChannels(msg Message) []Channel {
	var channels []Channel
	if msg.UserID != nil || msg.BusinessID != nil {
		channels = append(channels, ChannelInApp)
	}
	if msg.Email != "" {
		channels = append(channels, ChannelEmail)
	}
	if msg.Phone != "" {
		channels = append(channels, ChannelSMS)
	}
	return channels
}
