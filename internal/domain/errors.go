package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was hit.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnauthorized indicates a missing or invalid session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the caller may not act on the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrEmptyCart is returned when an order would have no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrUnknownOrder is returned when a payment event matches no order.
	ErrUnknownOrder = errors.New("unknown order")
	// ErrInvalidSignature is returned when a webhook cannot be authenticated.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrPaymentProviderUnavailable wraps transport failures and 5xx responses
	// from the payment provider.
	ErrPaymentProviderUnavailable = errors.New("payment provider unavailable")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a *ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a validation failure, including an empty cart.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrEmptyCart)
}
