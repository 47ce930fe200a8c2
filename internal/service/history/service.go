package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"ebook-storefront/internal/domain"
	historyrepo "ebook-storefront/internal/repository/history"
)

type historyRepo interface {
	Apply(ctx context.Context, readerID, bookID string, in historyrepo.Update) (*domain.History, error)
	Get(ctx context.Context, readerID, bookID string) (*domain.History, error)
}

type entitlementRepo interface {
	Has(ctx context.Context, userID, bookID string) (bool, error)
}

type Service struct {
	histories    historyRepo
	entitlements entitlementRepo
}

func New(histories historyRepo, entitlements entitlementRepo) *Service {
	return &Service{histories: histories, entitlements: entitlements}
}

type UpdateInput struct {
	BookID       string             `json:"book"`
	LastLocation *string            `json:"lastLocation"`
	Highlights   []domain.Highlight `json:"highlights"`
	Remove       bool               `json:"remove"`
}

// Update records reading progress and highlights for a purchased book.
func (s *Service) Update(ctx context.Context, readerID string, in UpdateInput) (*domain.History, error) {
	if err := s.requireOwned(ctx, readerID, in.BookID); err != nil {
		return nil, err
	}
	for _, hl := range in.Highlights {
		if strings.TrimSpace(hl.Selection) == "" {
			return nil, domain.Invalid("highlights", "highlight selection is missing")
		}
	}
	return s.histories.Apply(ctx, readerID, in.BookID, historyrepo.Update{
		LastLocation: in.LastLocation,
		Highlights:   in.Highlights,
		Remove:       in.Remove,
	})
}

func (s *Service) Get(ctx context.Context, readerID, bookID string) (*domain.History, error) {
	if _, err := uuid.Parse(bookID); err != nil {
		return nil, domain.Invalid("bookId", "invalid book id")
	}
	return s.histories.Get(ctx, readerID, bookID)
}

func (s *Service) requireOwned(ctx context.Context, readerID, bookID string) error {
	if _, err := uuid.Parse(bookID); err != nil {
		return domain.Invalid("book", "invalid book id")
	}
	owned, err := s.entitlements.Has(ctx, readerID, bookID)
	if err != nil {
		return err
	}
	if !owned {
		return fmt.Errorf("%w: book not purchased", domain.ErrForbidden)
	}
	return nil
}
