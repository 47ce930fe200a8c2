package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"ebook-storefront/internal/domain"
)

type reviewRepo interface {
	Upsert(ctx context.Context, r domain.Review) (*domain.Review, error)
	GetByUser(ctx context.Context, userID, bookID string) (*domain.Review, error)
	ListByBook(ctx context.Context, bookID string) ([]domain.Review, error)
}

type entitlementRepo interface {
	Has(ctx context.Context, userID, bookID string) (bool, error)
}

type Service struct {
	reviews      reviewRepo
	entitlements entitlementRepo
}

func New(reviews reviewRepo, entitlements entitlementRepo) *Service {
	return &Service{reviews: reviews, entitlements: entitlements}
}

type Input struct {
	BookID  string `json:"bookId"`
	Rating  int    `json:"rating"`
	Content string `json:"content"`
}

// Upsert stores the user's review of a purchased book, replacing an earlier one.
func (s *Service) Upsert(ctx context.Context, userID string, in Input) (*domain.Review, error) {
	if _, err := uuid.Parse(in.BookID); err != nil {
		return nil, domain.Invalid("bookId", "invalid book id")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, domain.Invalid("rating", "rating must be between 1 and 5")
	}
	owned, err := s.entitlements.Has(ctx, userID, in.BookID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, fmt.Errorf("%w: book not purchased", domain.ErrForbidden)
	}
	return s.reviews.Upsert(ctx, domain.Review{
		BookID:  in.BookID,
		UserID:  userID,
		Rating:  in.Rating,
		Content: strings.TrimSpace(in.Content),
	})
}

func (s *Service) Get(ctx context.Context, userID, bookID string) (*domain.Review, error) {
	if _, err := uuid.Parse(bookID); err != nil {
		return nil, domain.Invalid("bookId", "invalid book id")
	}
	return s.reviews.GetByUser(ctx, userID, bookID)
}

func (s *Service) List(ctx context.Context, bookID string) ([]domain.Review, error) {
	if _, err := uuid.Parse(bookID); err != nil {
		return nil, domain.Invalid("bookId", "invalid book id")
	}
	return s.reviews.ListByBook(ctx, bookID)
}
