package core

import "canteen-backend/internal/order/domain/models"

// StatusTexts are the user-facing strings kept in lockstep with the admin
// status. Clients never set these directly.
type StatusTexts struct {
	UserStatus   string
	Notification string
}

var statusTexts = map[models.OrderStatus]StatusTexts{
	models.StatusPending: {
		UserStatus:   "Food is getting prepared",
		Notification: "Your order is being processed",
	},
	models.StatusAccepted: {
		UserStatus:   "Order accepted",
		Notification: "Your order has been accepted and is being prepared",
	},
	models.StatusReadyToServe: {
		UserStatus:   "Ready for pickup",
		Notification: "Your order is ready for pickup",
	},
	models.StatusCollected: {
		UserStatus:   "Order collected",
		Notification: "Thank you! Your order has been collected",
	},
	models.StatusRejected: {
		UserStatus:   "Order Rejected",
		Notification: "Your order cannot be accepted at the moment. Please try again later!",
	},
}

// WaitingTexts is the ReadyToServe variant applied when the staff marks a
// called-out order as not collected yet.
var WaitingTexts = StatusTexts{
	UserStatus:   "Waiting for pickup",
	Notification: "Your order is waiting, please collect it",
}

// TextsFor returns the display strings for a status.
func TextsFor(status models.OrderStatus) StatusTexts {
	return statusTexts[status]
}
