package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/newsradar/newsradar/internal/monitor"

	amqp "github.com/rabbitmq/amqp091-go"
)

const BriefingCreated = "briefing.created"

type BriefingMessage struct {
	Event     string        `json:"event"`
	Timestamp time.Time     `json:"timestamp"`
	Alert     monitor.Alert `json:"alert"`
}

type PublishingChannel interface {
	PublishWithContext(
		ctx context.Context,
		exchange, key string,
		mandatory, immediate bool,
		msg amqp.Publishing,
	) error
	Close() error
}

// RabbitConfig names the broker and the topic exchange briefings go to.
type RabbitConfig struct {
	URI        string
	Exchange   string
	RoutingKey string
}

type RabbitPublisher struct {
	conn   *amqp.Connection
	ch     PublishingChannel
	cfg    RabbitConfig
	logger *log.Logger
	now    func() time.Time
}

// NewRabbitPublisher dials the broker and declares a durable topic exchange.
func NewRabbitPublisher(cfg RabbitConfig, logger *log.Logger) (*RabbitPublisher, error) {
	if logger == nil {
		logger = log.Default()
	}

	conn, err := amqp.DialConfig(cfg.URI, amqp.Config{
		Heartbeat:  10 * time.Second,
		Properties: amqp.Table{"connection_name": "newsradar-briefings"},
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	p := &RabbitPublisher{conn: conn, cfg: cfg, logger: logger, now: time.Now}
	ch, err := conn.Channel()
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p.ch = ch

	err = ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	logger.Printf("events: publishing briefings to exchange %s (%s)", cfg.Exchange, cfg.RoutingKey)
	return p, nil
}

func (p *RabbitPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil && !p.conn.IsClosed() {
		_ = p.conn.Close()
	}
}

// PublishBriefing sends a persistent JSON message for a.
func (p *RabbitPublisher) PublishBriefing(ctx context.Context, a *monitor.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(BriefingMessage{
		Event:     BriefingCreated,
		Timestamp: p.now().UTC(),
		Alert:     *a,
	})
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(ctx, p.cfg.Exchange, p.cfg.RoutingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    a.ID,
		Timestamp:    p.now().UTC(),
		Body:         body,
	})
}
