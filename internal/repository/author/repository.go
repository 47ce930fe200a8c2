package author

import (
	"context"

	"ebook-storefront/internal/domain"
)

type Repository interface {
	// Create stores the author and promotes the owning user to the author role.
	Create(ctx context.Context, a domain.Author) (*domain.Author, error)
	Update(ctx context.Context, a domain.Author) (*domain.Author, error)
	GetByID(ctx context.Context, id string) (*domain.Author, error)
}
