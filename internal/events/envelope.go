package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ebook-storefront/internal/domain"
)

// Envelope wraps every published payload.
type Envelope struct {
	EventName    string          `json:"eventName"`
	EventVersion int             `json:"eventVersion"`
	EventID      string          `json:"eventId"`
	Producer     string          `json:"producer"`
	PartitionKey string          `json:"partitionKey"`
	OccurredAt   time.Time       `json:"occurredAt"`
	Payload      json.RawMessage `json:"payload"`
}

type VerificationMail struct {
	To   string `json:"to"`
	Link string `json:"link"`
}

type OrderPaid struct {
	OrderID   string   `json:"orderId"`
	UserID    string   `json:"userId"`
	PaymentID string   `json:"paymentId"`
	Total     string   `json:"total"`
	Currency  string   `json:"currency"`
	BookIDs   []string `json:"bookIds"`
}

func newEnvelope(name, partitionKey string, payload any, now time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return Envelope{
		EventName:    name,
		EventVersion: 1,
		EventID:      uuid.NewString(),
		Producer:     producerName,
		PartitionKey: partitionKey,
		OccurredAt:   now.UTC(),
		Payload:      raw,
	}, nil
}

func orderPaidPayload(o domain.Order) OrderPaid {
	return OrderPaid{
		OrderID:   o.ID,
		UserID:    o.UserID,
		PaymentID: o.PaymentID,
		Total:     domain.FormatMinor(o.Total),
		Currency:  o.Currency,
		BookIDs:   o.BookIDs(),
	}
}
