package review

import (
	"context"

	"ebook-storefront/internal/domain"
)

type Repository interface {
	// Upsert stores the user's single review of a book and refreshes the
	// book's average rating.
	Upsert(ctx context.Context, r domain.Review) (*domain.Review, error)
	GetByUser(ctx context.Context, userID, bookID string) (*domain.Review, error)
	ListByBook(ctx context.Context, bookID string) ([]domain.Review, error)
}
