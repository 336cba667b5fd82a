// Package broker publishes order lifecycle events to RabbitMQ for
// out-of-process consumers (kitchen displays, audit tooling). It is wired
// into the dispatcher as one more best-effort sink and is optional at
// runtime.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"canteen-backend/internal/config"
	"canteen-backend/internal/notify"
	"canteen-backend/pkg/logger"
)

const ordersExchange = "orders_topic"

type Broker struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *logger.Logger
}

func Connect(cfg config.RabbitMQ, log *logger.Logger) (*Broker, error) {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ordersExchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Broker{conn: conn, ch: ch, log: log}, nil
}

func (b *Broker) Name() string { return "broker" }

// Deliver publishes the event with routing key
// notifications.<adminStatus>. Consumers bind with whatever granularity
// they need.
func (b *Broker) Deliver(ctx context.Context, evt notify.Event) error {
	body, err := json.Marshal(struct {
		Event string `json:"event"`
		Order any    `json:"order"`
	}{Event: evt.OwnerEvent, Order: evt.Order})
	if err != nil {
		return fmt.Errorf("marshal broker event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := "notifications." + strings.ToLower(string(evt.Order.AdminStatus))
	err = b.ch.PublishWithContext(pubCtx,
		ordersExchange, // exchange
		key,            // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}

	b.log.Action("event_published").Debug("Order event published",
		"routing_key", key, "order_code", evt.Order.OrderCode)
	return nil
}

func (b *Broker) Close() error {
	if err := b.ch.Close(); err != nil {
		b.conn.Close()
		return err
	}
	return b.conn.Close()
}
