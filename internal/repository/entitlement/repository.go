package entitlement

import (
	"context"

	"ebook-storefront/internal/domain"
)

type Repository interface {
	// Grant is idempotent. It reports whether a new entitlement was stored.
	Grant(ctx context.Context, userID, bookID, orderID string) (bool, error)
	// GrantOrder grants the order's buyer every book in the order and returns
	// how many entitlements were newly stored.
	GrantOrder(ctx context.Context, o domain.Order) (int, error)
	Has(ctx context.Context, userID, bookID string) (bool, error)
	ListBooks(ctx context.Context, userID string) ([]domain.Book, error)
}
