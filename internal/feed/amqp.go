// internal/feed/amqp.go
//
// AMQP relay: forwards change-feed events to a RabbitMQ topic exchange so
// other services (reporting, notifications) can observe the collections
// without sharing this process.
//
// Routing keys are "<collection>.<change_kind>", e.g. "subscriptions.update".
// Delivery to the broker is best effort; failures are logged and counted
// but never block the hub.

package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// AMQPRelay publishes events to one exchange.
type AMQPRelay struct {
	conn     *amqp.Connection
	mu       sync.Mutex // amqp.Channel is not safe for concurrent publish
	channel  *amqp.Channel
	exchange string
}

// DialAMQP connects and declares a durable topic exchange.
func DialAMQP(rawURL, exchange string) (*AMQPRelay, error) {
	clean, err := sanitizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(clean, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPRelay{conn: conn, channel: ch, exchange: exchange}, nil
}

// Observe is a Hub callback.
func (r *AMQPRelay) Observe(ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		zap.L().Error("feed relay marshal", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	r.mu.Lock()
	err = r.channel.PublishWithContext(ctx, r.exchange, RoutingKey(ev), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		Body:         body,
	})
	r.mu.Unlock()
	if err != nil {
		zap.L().Warn("feed relay publish failed",
			zap.String("record_id", ev.RecordID),
			zap.Uint64("seq", ev.Seq),
			zap.Error(err))
	}
}

// Close releases channel and connection resources.
func (r *AMQPRelay) Close() error {
	var errs []error
	if r.channel != nil {
		errs = append(errs, r.channel.Close())
	}
	if r.conn != nil {
		errs = append(errs, r.conn.Close())
	}
	return errors.Join(errs...)
}

// RoutingKey returns "<collection>.<kind>".
func RoutingKey(ev Event) string {
	return string(ev.Collection) + "." + string(ev.Kind)
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	parsed, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
