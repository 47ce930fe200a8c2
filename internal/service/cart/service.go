package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"ebook-storefront/internal/domain"
	cartrepo "ebook-storefront/internal/repository/cart"
)

type Service struct {
	repo cartrepo.Repository
}

func New(repo cartrepo.Repository) *Service {
	return &Service{repo: repo}
}

type UpdateInput struct {
	Items []domain.CartItem `json:"items"`
}

// Update applies quantity deltas to the user's cart and returns the stored
// cart. Deltas for the same book are summed before they reach the store.
func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (*domain.Cart, error) {
	if len(in.Items) == 0 {
		return nil, domain.Invalid("items", "at least one item is required")
	}

	combined := make(map[string]int, len(in.Items))
	order := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		if _, err := uuid.Parse(it.BookID); err != nil {
			return nil, domain.Invalid("product", "invalid product id")
		}
		if it.Quantity == 0 {
			return nil, domain.Invalid("quantity", "quantity must not be zero")
		}
		if !withinQuantityLimit(it.Quantity) {
			return nil, domain.Invalid("quantity", "quantity out of range")
		}
		if _, seen := combined[it.BookID]; !seen {
			order = append(order, it.BookID)
		}
		combined[it.BookID] += it.Quantity
		if !withinQuantityLimit(combined[it.BookID]) {
			return nil, domain.Invalid("quantity", "quantity out of range")
		}
	}

	deltas := make([]domain.CartItem, 0, len(order))
	for _, id := range order {
		if q := combined[id]; q != 0 {
			deltas = append(deltas, domain.CartItem{BookID: id, Quantity: q})
		}
	}

	if _, err := s.repo.UpsertItems(ctx, userID, deltas); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func withinQuantityLimit(q int) bool {
	return q >= -domain.MaxCartQuantity && q <= domain.MaxCartQuantity
}

// Get returns the user's cart. A user without a cart gets an empty one.
func (s *Service) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	c, err := s.repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Cart{UserID: userID, Lines: []domain.CartLine{}}, nil
	}
	return c, err
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.repo.Clear(ctx, userID)
}
