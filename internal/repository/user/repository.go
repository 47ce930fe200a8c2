package user

import (
	"context"

	"ebook-storefront/internal/domain"
)

type ProfileUpdate struct {
	Name      string
	AvatarKey *string
	AvatarURL *string
}

type Repository interface {
	GetOrCreateByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*domain.User, error)
}
