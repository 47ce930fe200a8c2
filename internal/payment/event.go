package payment

import (
	"encoding/json"
	"fmt"

	"ebook-storefront/internal/domain"
)

const (
	EventSessionCompleted      = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	EventSessionExpired        = "checkout.session.expired"
)

type providerEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string            `json:"id"`
			PaymentStatus     string            `json:"payment_status"`
			PaymentIntent     string            `json:"payment_intent"`
			ClientReferenceID string            `json:"client_reference_id"`
			Metadata          map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParseEvent normalises a verified webhook payload. Event types that do not
// settle an order come back with an empty Outcome.
func ParseEvent(payload []byte) (*domain.PaymentEvent, error) {
	var raw providerEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, domain.Invalid("payload", fmt.Sprintf("malformed event: %v", err))
	}
	if raw.Type == "" {
		return nil, domain.Invalid("type", "missing event type")
	}

	obj := raw.Data.Object
	ev := &domain.PaymentEvent{
		ID:          raw.ID,
		Type:        raw.Type,
		ExternalRef: obj.ID,
		OrderID:     obj.Metadata["orderId"],
		PaymentID:   obj.PaymentIntent,
	}
	if ev.OrderID == "" {
		ev.OrderID = obj.ClientReferenceID
	}

	switch raw.Type {
	case EventSessionCompleted:
		// Delayed payment methods complete the session unpaid and settle
		// later through an async_payment event.
		if obj.PaymentStatus == "paid" || obj.PaymentStatus == "no_payment_required" {
			ev.Outcome = domain.PaymentSucceeded
		}
	case EventAsyncPaymentSucceeded:
		ev.Outcome = domain.PaymentSucceeded
	case EventAsyncPaymentFailed:
		ev.Outcome = domain.PaymentFailed
		ev.Reason = "async payment failed"
	case EventSessionExpired:
		ev.Outcome = domain.PaymentFailed
		ev.Reason = "checkout session expired"
	}

	if ev.Actionable() && ev.ExternalRef == "" {
		return nil, domain.Invalid("data.object.id", "missing checkout session id")
	}
	return ev, nil
}
