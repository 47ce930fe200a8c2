package book

import (
	"context"

	"ebook-storefront/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, b domain.Book) (*domain.Book, error)
	Update(ctx context.Context, b domain.Book) (*domain.Book, error)
	// Upsert inserts or replaces a book keyed by slug.
	Upsert(ctx context.Context, b domain.Book) (*domain.Book, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Book, error)
	GetByID(ctx context.Context, id string) (*domain.Book, error)
	ListByGenre(ctx context.Context, genre string, limit int) ([]domain.Book, error)
	ListByAuthor(ctx context.Context, authorID string) ([]domain.Book, error)
}
