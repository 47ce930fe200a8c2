package order

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"ebook-storefront/internal/domain"
)

type orderRepo interface {
	GetByExternalRef(ctx context.Context, ref string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

type entitlementRepo interface {
	Has(ctx context.Context, userID, bookID string) (bool, error)
}

// Service is the buyer-facing read model over the order ledger.
type Service struct {
	orders       orderRepo
	entitlements entitlementRepo
}

func New(orders orderRepo, entitlements entitlementRepo) *Service {
	return &Service{orders: orders, entitlements: entitlements}
}

func (s *Service) List(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// Success returns the order behind a checkout session. Sessions of other
// users are reported as not found.
func (s *Service) Success(ctx context.Context, userID, sessionID string) (*domain.Order, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.Invalid("sessionId", "session id is required")
	}
	o, err := s.orders.GetByExternalRef(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// HasPurchased reports whether the user owns the book.
func (s *Service) HasPurchased(ctx context.Context, userID, bookID string) (bool, error) {
	if _, err := uuid.Parse(bookID); err != nil {
		return false, domain.Invalid("bookId", "invalid book id")
	}
	ok, err := s.entitlements.Has(ctx, userID, bookID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	return ok, nil
}
