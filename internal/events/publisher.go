package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"practice-engine/internal/domain"
)

// Channel is the subset of *amqp091.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher emits practice events to a topic exchange. A publisher built without a URI is
// disabled and drops events.
type Publisher struct {
	conn     *amqp091.Connection
	channel  Channel
	exchange string
	enabled  bool
	now      func() time.Time
	logger   *slog.Logger
}

func NewPublisher(uri, exchange string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if uri == "" {
		logger.Warn("rabbitmq uri is empty, event publishing is disabled")
		return &Publisher{enabled: false, now: time.Now, logger: logger}, nil
	}

	conn, err := amqp091.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	p := NewChannelPublisher(channel, exchange, logger)
	p.conn = conn
	return p, nil
}

// NewChannelPublisher wraps an already open channel.
func NewChannelPublisher(channel Channel, exchange string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		channel:  channel,
		exchange: exchange,
		enabled:  true,
		now:      time.Now,
		logger:   logger,
	}
}

func (p *Publisher) PublishRunFinished(ctx context.Context, result domain.RunResult) error {
	return p.publish(ctx, string(EventTypeRunFinished), NewRunFinishedEvent(result, p.now()))
}

func (p *Publisher) publish(ctx context.Context, routingKey string, event any) error {
	if !p.enabled {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    p.now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	p.logger.Debug("published event", "routing_key", routingKey)
	return nil
}

func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
