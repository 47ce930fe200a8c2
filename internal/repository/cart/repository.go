package cart

import (
	"context"

	"ebook-storefront/internal/domain"
)

type Repository interface {
	// UpsertItems merges quantity deltas into the user's cart, creating the
	// cart when needed, and returns the cart id.
	UpsertItems(ctx context.Context, userID string, deltas []domain.CartItem) (string, error)
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	// Clear removes the user's cart. Clearing a missing cart is not an error.
	Clear(ctx context.Context, userID string) error
}
