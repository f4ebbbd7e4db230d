package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeOrders is the topic exchange order events are published to.
const ExchangeOrders = "orders_topic"

// AMQPClient publishes with publisher confirms. Publish calls are
// serialized so each confirmation matches its message.
type AMQPClient struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	acks <-chan amqp.Confirmation
	mu   sync.Mutex
}

// Dial connects, enables confirms and declares the orders exchange.
func Dial(url string) (*AMQPClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	if err := ch.ExchangeDeclare(ExchangeOrders, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPClient{conn: conn, ch: ch, acks: acks}, nil
}

func (c *AMQPClient) Ping(_ context.Context) error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("amqp connection is closed")
	}
	return nil
}

// Publish sends one persistent JSON message and waits for the broker ack.
func (c *AMQPClient) Publish(ctx context.Context, key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.ch.PublishWithContext(ctx, ExchangeOrders, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}

	select {
	case conf := <-c.acks:
		if conf.Ack {
			return nil
		}
		return fmt.Errorf("publish %s: nack from broker", key)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *AMQPClient) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
