package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canteen_orders_created_total",
		Help: "Orders accepted at checkout.",
	})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canteen_order_transitions_total",
		Help: "Order status transitions by target status.",
	}, []string{"to"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canteen_notifications_total",
		Help: "Notification deliveries by sink and outcome.",
	}, []string{"channel", "outcome"})
)
