// Package notify publishes triggered spending alerts to a message broker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/model"
)

const publishTimeout = 5 * time.Second

// AlertEvent is the message body published for each newly triggered alert.
type AlertEvent struct {
	Rule     string         `json:"rule"`
	Message  string         `json:"message"`
	Severity string         `json:"severity"`
	Month    model.MonthKey `json:"month"`
	Time     time.Time      `json:"time"`
}

// NewAlertEvent builds an event from a verdict.
func NewAlertEvent(v model.AlertVerdict, month model.MonthKey, now time.Time) AlertEvent {
	return AlertEvent{
		Rule:     v.Rule,
		Message:  v.Message,
		Severity: v.Severity,
		Month:    month,
		Time:     now.UTC(),
	}
}

// Publisher delivers alert events.
type Publisher interface {
	Publish(ctx context.Context, ev AlertEvent) error
	Close() error
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, AlertEvent) error { return nil }
func (Nop) Close() error                              { return nil }

// channel is the subset of *amqp091.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPPublisher publishes JSON alert events to a durable topic exchange.
type AMQPPublisher struct {
	conn       *amqp091.Connection
	ch         channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

// New returns a Nop publisher when cfg has no broker URL, and an
// AMQPPublisher connected to it otherwise.
func New(cfg config.NotifyConfig, logger *slog.Logger) (Publisher, error) {
	if cfg.AMQPURL == "" {
		return Nop{}, nil
	}
	return Dial(cfg.AMQPURL, cfg.Exchange, cfg.RoutingKey, logger)
}

// Dial connects to the broker at url and declares exchange.
func Dial(url, exchange, routingKey string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := newPublisher(ch, exchange, routingKey, logger)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange, routingKey string, logger *slog.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger.With("component", "notify"),
	}, nil
}

// Publish sends ev under "<routing key>.<rule>".
func (p *AMQPPublisher) Publish(ctx context.Context, ev AlertEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	key := p.routingKey + "." + ev.Rule
	err = p.ch.PublishWithContext(
		ctx,
		p.exchange, // exchange
		key,        // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    ev.Time,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.logger.DebugContext(ctx, "published alert", "rule", ev.Rule, "exchange", p.exchange, "key", key)
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
