package domain

type PaymentOutcome string

const (
	PaymentSucceeded PaymentOutcome = "succeeded"
	PaymentFailed    PaymentOutcome = "failed"
)

// PaymentEvent is a provider notification normalised for reconciliation.
// Outcome is empty for event types that do not settle an order.
type PaymentEvent struct {
	ID          string
	Type        string
	ExternalRef string
	OrderID     string
	PaymentID   string
	Outcome     PaymentOutcome
	Reason      string
}

func (e PaymentEvent) Actionable() bool {
	return e.Outcome == PaymentSucceeded || e.Outcome == PaymentFailed
}
