package order

import (
	"context"

	"ebook-storefront/internal/domain"
)

type Repository interface {
	// Create persists a pending order together with its items.
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByExternalRef(ctx context.Context, ref string) (*domain.Order, error)
	// SetExternalRef attaches the payment session id to an order that has none.
	SetExternalRef(ctx context.Context, id, ref string) error
	// MarkPaid and MarkFailed move a pending order to a terminal status. The
	// returned flag is false when the order was no longer pending, in which
	// case the order is returned unchanged.
	MarkPaid(ctx context.Context, id, paymentID string) (*domain.Order, bool, error)
	MarkFailed(ctx context.Context, id, reason string) (*domain.Order, bool, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	// ListPaidMissingEntitlements returns ids of paid orders with at least one
	// item the buyer holds no entitlement for.
	ListPaidMissingEntitlements(ctx context.Context, limit int) ([]string, error)
}
