package events

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange             = "ebooks.events"
	VerificationMailRoutingKey = "mail.verification.v1"
	OrderPaidRoutingKey        = "order.paid.v1"
	producerName               = "ebook-storefront"
)

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
