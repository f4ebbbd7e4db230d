// Package events forwards order store events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/orderin/api/internal/order"
	"go.uber.org/zap"
)

// Publisher delivers one message under a routing key.
// Satisfied by *AMQPClient; narrow interface for testability.
type Publisher interface {
	Publish(ctx context.Context, key string, body []byte) error
}

// Message is the JSON body published for every store event.
type Message struct {
	Type       order.EventType `json:"type"`
	Order      *order.Order    `json:"order,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// RoutingKey is "order.created.table.5" style for order events and the bare
// event type for reloads.
func RoutingKey(e order.Event) string {
	if e.Type == order.EventReloaded {
		return string(e.Type)
	}
	return fmt.Sprintf("%s.table.%d", e.Type, e.Order.TableNumber)
}

// Forwarder buffers store events and publishes them from its own goroutine
// so store mutations never wait on the broker. Events arriving while the
// buffer is full are dropped and logged.
type Forwarder struct {
	pub     Publisher
	log     *zap.Logger
	queue   chan order.Event
	timeout time.Duration
	retries uint64
	now     func() time.Time
}

// PublishRetries is how many times a failed publish is retried before the
// event is dropped.
const PublishRetries = 2

func NewForwarder(pub Publisher, log *zap.Logger, buffer int) *Forwarder {
	if buffer <= 0 {
		buffer = 256
	}
	return &Forwarder{
		pub:     pub,
		log:     log.Named("events"),
		queue:   make(chan order.Event, buffer),
		timeout: 5 * time.Second,
		retries: PublishRetries,
		now:     time.Now,
	}
}

// Handle is registered with order.Store.Subscribe.
func (f *Forwarder) Handle(e order.Event) {
	select {
	case f.queue <- e:
	default:
		f.log.Warn("event buffer full, dropping", zap.String("type", string(e.Type)), zap.String("order_id", e.Order.ID))
	}
}

// Run publishes queued events until ctx is cancelled.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-f.queue:
			if err := f.publish(ctx, e); err != nil {
				f.log.Error("publish event failed", zap.String("type", string(e.Type)), zap.Error(err))
			}
		}
	}
}

func (f *Forwarder) publish(ctx context.Context, e order.Event) error {
	msg := Message{Type: e.Type, OccurredAt: f.now().UTC()}
	if e.Type != order.EventReloaded {
		o := e.Order
		msg.Order = &o
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second

	key := RoutingKey(e)
	return backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()
		return f.pub.Publish(ctx, key, body)
	}, backoff.WithContext(backoff.WithMaxRetries(b, f.retries), ctx))
}
