package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"ebook-storefront/internal/domain"
)

// Publisher sends notifications to the events topic exchange.
type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare %s: %w", EventsExchange, err)
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// SendVerificationLink hands a magic-link mail to the mailer service.
func (p *Publisher) SendVerificationLink(ctx context.Context, to, link string) error {
	env, err := newEnvelope("VerificationMail", to, VerificationMail{To: to, Link: link}, time.Now())
	if err != nil {
		return err
	}
	return p.publish(ctx, VerificationMailRoutingKey, env)
}

func (p *Publisher) PublishOrderPaid(ctx context.Context, o domain.Order) error {
	env, err := newEnvelope("OrderPaid", o.ID, orderPaidPayload(o), time.Now())
	if err != nil {
		return err
	}
	return p.publish(ctx, OrderPaidRoutingKey, env)
}

func (p *Publisher) publish(ctx context.Context, routingKey string, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.EventName, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    env.EventID,
			Timestamp:    env.OccurredAt,
			Body:         body,
		},
	)
}

// LogPublisher writes notifications to a logger. It stands in for the broker
// in local setups without RabbitMQ.
type LogPublisher struct {
	logger *log.Logger
}

func NewLogPublisher(logger *log.Logger) *LogPublisher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) SendVerificationLink(_ context.Context, to, link string) error {
	p.logger.Printf("events: verification mail to=%s link=%s", to, link)
	return nil
}

func (p *LogPublisher) PublishOrderPaid(_ context.Context, o domain.Order) error {
	p.logger.Printf("events: order paid order_id=%s user_id=%s total=%s", o.ID, o.UserID, domain.FormatMinor(o.Total))
	return nil
}
