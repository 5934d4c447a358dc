// Package dispatch publishes composed notices to an AMQP exchange.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/theirongolddev/rentroll/internal/config"
)

// ErrNotConfigured is returned when no AMQP URL is set.
var ErrNotConfigured = errors.New("dispatch.amqp_url is not set")

// Publisher sends NoticeMessages to a direct exchange.
type Publisher struct {
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	exchange   string
	routingKey string
}

// NewPublisher dials the broker in cfg, retrying with backoff until
// attempts run out or ctx ends.
func NewPublisher(ctx context.Context, cfg config.DispatchConfig, attempts int) (*Publisher, error) {
	if cfg.AMQPURL == "" {
		return nil, ErrNotConfigured
	}
	if attempts < 1 {
		attempts = 1
	}

	var (
		conn *amqp091.Connection
		err  error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		conn, err = amqp091.Dial(cfg.AMQPURL)
		if err == nil {
			break
		}
		if attempt == attempts-1 {
			return nil, fmt.Errorf("dial AMQP: %w", err)
		}
		wait := backoff(attempt)
		slog.WarnContext(ctx, "AMQP dial failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &Publisher{
		conn:       conn,
		channel:    channel,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
	}

	err = channel.ExchangeDeclare(
		p.exchange, // name
		"direct",   // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return p, nil
}

// Publish sends one notice.
func (p *Publisher) Publish(ctx context.Context, msg *NoticeMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.ComposedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published notice",
		"unit", msg.UnitID,
		"period", msg.Period,
		"exchange", p.exchange,
		"routing_key", p.routingKey)
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// backoff doubles from one second and caps at 30s.
func backoff(attempt int) time.Duration {
	d := time.Second << attempt
	if attempt > 5 || d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}
