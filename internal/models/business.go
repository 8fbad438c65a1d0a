package models

import "time"

// Business is the merchant record an order belongs to. Each business is
// owned by exactly one user, which is what the authorization guard checks.
type Business struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
