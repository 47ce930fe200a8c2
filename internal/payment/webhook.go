package payment

import (
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"

	"ebook-storefront/internal/domain"
)

// SignatureHeader carries "t=<unix>,v1=<hex hmac>" on every webhook request.
const SignatureHeader = "Stripe-Signature"

// Verifier authenticates webhook payloads with the shared signing secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{secret: secret, tolerance: tolerance}
}

// Verify checks the signature header against payload. Any failure, including
// a missing secret, yields domain.ErrInvalidSignature.
func (v *Verifier) Verify(payload []byte, header string) error {
	if v.secret == "" {
		return fmt.Errorf("%w: signing secret not configured", domain.ErrInvalidSignature)
	}

	var err error
	if v.tolerance > 0 {
		err = webhook.ValidatePayloadWithTolerance(payload, header, v.secret, v.tolerance)
	} else {
		err = webhook.ValidatePayloadIgnoringTolerance(payload, header, v.secret)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	return nil
}

// SignatureFor builds a header value for payload signed at ts.
func SignatureFor(payload []byte, secret string, ts time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: ts,
	}).Header
}
