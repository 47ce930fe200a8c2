package author

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"ebook-storefront/internal/domain"
)

type authorRepo interface {
	Create(ctx context.Context, a domain.Author) (*domain.Author, error)
	Update(ctx context.Context, a domain.Author) (*domain.Author, error)
	GetByID(ctx context.Context, id string) (*domain.Author, error)
}

type bookRepo interface {
	ListByAuthor(ctx context.Context, authorID string) ([]domain.Book, error)
}

type Service struct {
	authors authorRepo
	books   bookRepo
	logger  *log.Logger
}

func New(authors authorRepo, books bookRepo, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{authors: authors, books: books, logger: logger}
}

type Input struct {
	Name        string   `json:"name"`
	About       string   `json:"about"`
	SocialLinks []string `json:"socialLinks"`
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Invalid("name", "name is missing")
	}
	if strings.TrimSpace(in.About) == "" {
		return domain.Invalid("about", "about is missing")
	}
	for _, link := range in.SocialLinks {
		u, err := url.ParseRequestURI(link)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return domain.Invalid("socialLinks", "invalid social link")
		}
	}
	return nil
}

// Register turns a signed-up user into an author.
func (s *Service) Register(ctx context.Context, user domain.User, in Input) (*domain.Author, error) {
	if !user.SignedUp {
		return nil, fmt.Errorf("%w: complete your profile first", domain.ErrForbidden)
	}
	if user.AuthorID != nil {
		return nil, fmt.Errorf("%w: user is already an author", domain.ErrAlreadyExists)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	a, err := s.authors.Create(ctx, domain.Author{
		ID:          id,
		UserID:      user.ID,
		Name:        strings.TrimSpace(in.Name),
		About:       strings.TrimSpace(in.About),
		Slug:        domain.Slugify(in.Name + " " + id[:8]),
		SocialLinks: in.SocialLinks,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("author: registered id=%s user_id=%s", a.ID, user.ID)
	return a, nil
}

// Update replaces the caller's author details. The slug is kept.
func (s *Service) Update(ctx context.Context, user domain.User, in Input) (*domain.Author, error) {
	if user.AuthorID == nil {
		return nil, domain.ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	current, err := s.authors.GetByID(ctx, *user.AuthorID)
	if err != nil {
		return nil, err
	}
	current.Name = strings.TrimSpace(in.Name)
	current.About = strings.TrimSpace(in.About)
	current.SocialLinks = in.SocialLinks
	return s.authors.Update(ctx, *current)
}

// Details returns an author with their books.
func (s *Service) Details(ctx context.Context, id string) (*domain.Author, []domain.Book, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, domain.Invalid("id", "invalid author id")
	}
	a, err := s.authors.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	books, err := s.books.ListByAuthor(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return a, books, nil
}
