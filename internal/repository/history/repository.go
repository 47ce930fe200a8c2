package history

import (
	"context"

	"ebook-storefront/internal/domain"
)

type Update struct {
	LastLocation *string
	Highlights   []domain.Highlight
	Remove       bool
}

type Repository interface {
	// Apply creates or updates the reader's history for a book.
	Apply(ctx context.Context, readerID, bookID string, in Update) (*domain.History, error)
	Get(ctx context.Context, readerID, bookID string) (*domain.History, error)
}
