package author

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ebook-storefront/internal/domain"
)

type memoryAuthors struct {
	byID map[string]domain.Author
}

func (m *memoryAuthors) Create(_ context.Context, a domain.Author) (*domain.Author, error) {
	for _, existing := range m.byID {
		if existing.UserID == a.UserID {
			return nil, domain.ErrAlreadyExists
		}
	}
	m.byID[a.ID] = a
	return &a, nil
}

func (m *memoryAuthors) Update(_ context.Context, a domain.Author) (*domain.Author, error) {
	if _, ok := m.byID[a.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	m.byID[a.ID] = a
	return &a, nil
}

func (m *memoryAuthors) GetByID(_ context.Context, id string) (*domain.Author, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

type noBooks struct{}

func (noBooks) ListByAuthor(context.Context, string) ([]domain.Book, error) { return nil, nil }

func TestRegister(t *testing.T) {
	authors := &memoryAuthors{byID: map[string]domain.Author{}}
	svc := New(authors, noBooks{}, nil)
	in := Input{Name: "Ursula Le Guin", About: "Writer", SocialLinks: []string{"https://example.com/ursula"}}

	if _, err := svc.Register(context.Background(), domain.User{ID: "u1"}, in); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden before sign up, got %v", err)
	}

	a, err := svc.Register(context.Background(), domain.User{ID: "u1", SignedUp: true}, in)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.HasPrefix(a.Slug, "ursula-le-guin-") {
		t.Fatalf("unexpected slug %q", a.Slug)
	}

	existing := a.ID
	if _, err := svc.Register(context.Background(), domain.User{ID: "u1", SignedUp: true, AuthorID: &existing}, in); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := New(&memoryAuthors{byID: map[string]domain.Author{}}, noBooks{}, nil)
	user := domain.User{ID: "u1", SignedUp: true}

	cases := map[string]Input{
		"no name":  {About: "x"},
		"no about": {Name: "x"},
		"bad link": {Name: "x", About: "y", SocialLinks: []string{"ftp://nope"}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), user, in); !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUpdate_KeepsSlug(t *testing.T) {
	authors := &memoryAuthors{byID: map[string]domain.Author{
		"a1": {ID: "a1", UserID: "u1", Name: "Old", About: "old", Slug: "old-a1"},
	}}
	svc := New(authors, noBooks{}, nil)
	id := "a1"

	a, err := svc.Update(context.Background(), domain.User{ID: "u1", AuthorID: &id}, Input{Name: "New", About: "new"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if a.Name != "New" || a.Slug != "old-a1" {
		t.Fatalf("unexpected author %+v", a)
	}

	if _, err := svc.Update(context.Background(), domain.User{ID: "u2"}, Input{Name: "x", About: "y"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for non author, got %v", err)
	}
}
