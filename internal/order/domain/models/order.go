package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the controlled vocabulary driving the order state machine.
type OrderStatus string

const (
	StatusPending      OrderStatus = "Pending"
	StatusAccepted     OrderStatus = "Accepted"
	StatusReadyToServe OrderStatus = "ReadyToServe"
	StatusCollected    OrderStatus = "Collected"
	StatusRejected     OrderStatus = "Rejected"
)

// Terminal reports whether no further kitchen-side transition applies.
func (s OrderStatus) Terminal() bool {
	return s == StatusCollected || s == StatusRejected
}

// OrderItem is a line item embedded in an order. Name and unit price are
// snapshots taken at checkout time; rating and feedback stay nil until the
// customer rates the item.
type OrderItem struct {
	ItemID    uuid.UUID `json:"itemId"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unitPrice"`
	Rating    *int      `json:"rating"`
	Feedback  *string   `json:"feedback"`
}

// Order is one purchase transaction. OrderCode is the human-facing
// "ORD-XXXXXX" code; Token is the 3-digit pickup code called out by staff.
type Order struct {
	ID           uuid.UUID   `json:"id"`
	OrderCode    string      `json:"orderId"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	Items        []OrderItem `json:"items"`
	TotalAmount  float64     `json:"totalAmount"`
	Token        string      `json:"token"`
	UserStatus   string      `json:"userStatus"`
	AdminStatus  OrderStatus `json:"adminStatus"`
	Notification string      `json:"notification,omitempty"`
	AdminDeleted bool        `json:"adminDeleted"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// AdminView returns a copy with the user-facing notification text removed.
// Admin listings and broadcasts must never carry it.
func (o Order) AdminView() Order {
	o.Items = append([]OrderItem(nil), o.Items...)
	o.Notification = ""
	return o
}

// Item returns the line item with the given id, if present.
func (o Order) Item(itemID uuid.UUID) (OrderItem, bool) {
	for _, it := range o.Items {
		if it.ItemID == itemID {
			return it, true
		}
	}
	return OrderItem{}, false
}
