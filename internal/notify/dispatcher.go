package notify

import (
	"context"

	"canteen-backend/internal/metrics"
	"canteen-backend/internal/order/domain/models"
	"canteen-backend/pkg/logger"
)

// Event is one order state change fanned out to the notification channels.
// OwnerEvent goes to the room keyed by the order's email; AdminEvent is
// broadcast with the notification text stripped. An empty event name skips
// that audience. PushTitle/PushBody drive the device-token channel; an
// empty title skips it.
type Event struct {
	OwnerEvent string
	AdminEvent string
	Order      models.Order
	PushTitle  string
	PushBody   string
}

// Sink is one best-effort delivery channel. Deliver errors are logged and
// swallowed by the dispatcher; a sink must never be able to fail the order
// mutation that triggered it.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, evt Event) error
}

// Dispatcher fans events out to all configured sinks. Dispatch returns
// immediately; each sink runs in its own goroutine with no ordering between
// channels.
type Dispatcher struct {
	sinks []Sink
	log   *logger.Logger
}

func NewDispatcher(log *logger.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, log: log}
}

func (d *Dispatcher) Dispatch(ctx context.Context, evt Event) {
	// Delivery outlives the request: the handler's context is cancelled as
	// soon as the response is written, which would abort the push POST and
	// the broker publish mid-flight.
	ctx = context.WithoutCancel(ctx)
	for _, s := range d.sinks {
		go d.deliver(ctx, s, evt)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, s Sink, evt Event) {
	if err := s.Deliver(ctx, evt); err != nil {
		metrics.NotificationsTotal.WithLabelValues(s.Name(), "failed").Inc()
		d.log.Action("notify_failed").Warn("Notification delivery failed",
			"sink", s.Name(), "order_id", evt.Order.ID.String(), "error", err.Error())
		return
	}
	metrics.NotificationsTotal.WithLabelValues(s.Name(), "delivered").Inc()
	d.log.Action("notify_delivered").Debug("Notification delivered",
		"sink", s.Name(), "order_id", evt.Order.ID.String())
}
