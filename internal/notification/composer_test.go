package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/models"
)

func ptr(v int64) *int64 { return &v }

func sampleOrder() *models.Order {
	return &models.Order{
		ID:            42,
		OrderNumber:   "ORD-20260831-AB12CD34",
		BusinessID:    7,
		UserID:        ptr(5),
		Status:        models.StatusOutForDelivery,
		DeliveryMode:  models.ModeDelivery,
		CustomerName:  "Jane Doe",
		CustomerPhone: "+1234567890",
		CustomerEmail: "jane@example.com",
	}
}

func sampleBusiness() *models.Business {
	return &models.Business{
		ID:    7,
		Name:  "Sweet Treats",
		Phone: "+1987654321",
		Email: "owner@sweettreats.example",
	}
}

func TestCompose_StatusCopy(t *testing.T) {
	tests := []struct {
		next      models.Status
		wantTitle string
	}{
		{models.StatusConfirmed, "Order Confirmed"},
		{models.StatusPreparing, "Order In Progress"},
		{models.StatusReadyForPickup, "Ready for Pickup"},
		{models.StatusOutForDelivery, "On the Way"},
		{models.StatusDelivered, "Order Delivered"},
		{models.StatusPickedUp, "Order Picked Up"},
		{models.StatusCancelled, "Order Cancelled"},
	}

	for _, tt := range tests {
		t.Run(string(tt.next), func(t *testing.T) {
			msg, ok := Compose(sampleOrder(), sampleBusiness(), models.StatusPending, tt.next)
			require.True(t, ok)
			assert.Equal(t, tt.wantTitle, msg.Title)
			assert.Equal(t, models.NotificationTypeStatusChange, msg.Type)
			assert.Contains(t, msg.Body, "ORD-20260831-AB12CD34")
			assert.Contains(t, msg.Body, "Sweet Treats")
		})
	}
}

func TestCompose_NothingForUnchangedStatus(t *testing.T) {
	_, ok := Compose(sampleOrder(), sampleBusiness(), models.StatusPreparing, models.StatusPreparing)
	assert.False(t, ok)
}

func TestCompose_NothingForPendingTarget(t *testing.T) {
	// pending is the creation state, never a transition target with copy.
	_, ok := Compose(sampleOrder(), sampleBusiness(), models.StatusConfirmed, models.StatusPending)
	assert.False(t, ok)
}

func TestCompose_ChannelsFollowContactFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Order)
		want   []Channel
	}{
		{
			name:   "all contact fields present",
			mutate: func(o *models.Order) {},
			want:   []Channel{ChannelInApp, ChannelEmail, ChannelSMS},
		},
		{
			name:   "no phone drops sms",
			mutate: func(o *models.Order) { o.CustomerPhone = "" },
			want:   []Channel{ChannelInApp, ChannelEmail},
		},
		{
			name:   "no email drops email",
			mutate: func(o *models.Order) { o.CustomerEmail = "" },
			want:   []Channel{ChannelInApp, ChannelSMS},
		},
		{
			name: "guest order with no contact yields no channels",
			mutate: func(o *models.Order) {
				o.UserID = nil
				o.CustomerEmail = ""
				o.CustomerPhone = ""
			},
			want: nil,
		},
		{
			name: "guest order with email still gets email",
			mutate: func(o *models.Order) {
				o.UserID = nil
				o.CustomerPhone = ""
			},
			want: []Channel{ChannelEmail},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := sampleOrder()
			tt.mutate(o)
			msg, ok := Compose(o, sampleBusiness(), models.StatusPreparing, models.StatusOutForDelivery)
			require.True(t, ok)
			assert.Equal(t, tt.want, msg.Channels)
		})
	}
}

func TestCompose_AddressesCustomerNotBusiness(t *testing.T) {
	msg, ok := Compose(sampleOrder(), sampleBusiness(), models.StatusPreparing, models.StatusOutForDelivery)
	require.True(t, ok)
	require.NotNil(t, msg.UserID)
	assert.Equal(t, int64(5), *msg.UserID)
	assert.Nil(t, msg.BusinessID)
	assert.Equal(t, "jane@example.com", msg.Email)
	assert.Equal(t, "+1234567890", msg.Phone)
}

func TestComposeNewOrder_AddressesBusiness(t *testing.T) {
	msg := ComposeNewOrder(sampleOrder(), sampleBusiness())

	assert.Equal(t, models.NotificationTypeNewOrder, msg.Type)
	assert.Equal(t, "New Order Received", msg.Title)
	assert.Contains(t, msg.Body, "ORD-20260831-AB12CD34")
	assert.Contains(t, msg.Body, "Jane Doe")
	require.NotNil(t, msg.BusinessID)
	assert.Equal(t, int64(7), *msg.BusinessID)
	assert.Nil(t, msg.UserID)
	assert.Equal(t, "owner@sweettreats.example", msg.Email)
	assert.ElementsMatch(t, []Channel{ChannelInApp, ChannelEmail, ChannelSMS}, msg.Channels)
}
