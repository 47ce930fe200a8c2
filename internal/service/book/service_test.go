package book

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"ebook-storefront/internal/domain"
)

type memoryBooks struct {
	bySlug map[string]domain.Book
}

func (m *memoryBooks) Create(_ context.Context, b domain.Book) (*domain.Book, error) {
	m.bySlug[b.Slug] = b
	return &b, nil
}

func (m *memoryBooks) Update(_ context.Context, b domain.Book) (*domain.Book, error) {
	m.bySlug[b.Slug] = b
	return &b, nil
}

func (m *memoryBooks) GetBySlug(_ context.Context, slug string) (*domain.Book, error) {
	b, ok := m.bySlug[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (m *memoryBooks) ListByGenre(_ context.Context, genre string, limit int) ([]domain.Book, error) {
	var out []domain.Book
	for _, b := range m.bySlug {
		if b.Genre == genre && len(out) < limit {
			out = append(out, b)
		}
	}
	return out, nil
}

type stubEntitlements struct {
	owned map[string]bool
}

func (s *stubEntitlements) Has(_ context.Context, userID, bookID string) (bool, error) {
	return s.owned[userID+"/"+bookID], nil
}

func (s *stubEntitlements) ListBooks(context.Context, string) ([]domain.Book, error) {
	return nil, nil
}

type stubObjects struct {
	publicDeleted  []string
	privateDeleted []string
}

func (s *stubObjects) UploadPublic(_ context.Context, key, _ string, body io.Reader) (string, error) {
	_, _ = io.ReadAll(body)
	return "https://cdn.example/" + key, nil
}

func (s *stubObjects) DeletePublic(_ context.Context, key string) error {
	s.publicDeleted = append(s.publicDeleted, key)
	return nil
}

func (s *stubObjects) DeletePrivate(_ context.Context, key string) error {
	s.privateDeleted = append(s.privateDeleted, key)
	return nil
}

func (s *stubObjects) UploadURL(_ context.Context, key, _ string) (string, error) {
	return "https://private.example/put/" + key, nil
}

func (s *stubObjects) DownloadURL(_ context.Context, key string) (string, error) {
	return "https://private.example/get/" + key, nil
}

func author() domain.User {
	id := "author-1"
	return domain.User{ID: "user-1", Role: domain.RoleAuthor, SignedUp: true, AuthorID: &id}
}

func validInput() Input {
	return Input{
		Title:           "The Dispossessed",
		Description:     "An ambiguous utopia",
		Language:        "English",
		PublicationName: "Harper",
		Genre:           "Science Fiction",
		PublishedAt:     "1974-05-01",
		Price:           Price{MRP: "19.99", Sale: "9.99"},
		File:            &FileInfo{Name: "book.epub", Type: epubContentType, Size: 1024},
	}
}

func TestCreate(t *testing.T) {
	books := &memoryBooks{bySlug: map[string]domain.Book{}}
	svc := New(books, &stubEntitlements{}, &stubObjects{}, nil)

	in := validInput()
	in.Cover = &Upload{Filename: "cover.png", ContentType: "image/png", Body: strings.NewReader("png")}
	saved, err := svc.Create(context.Background(), author(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b := saved.Book
	if b.MRP != 1999 || b.Sale != 999 {
		t.Fatalf("expected prices in minor units, got mrp=%d sale=%d", b.MRP, b.Sale)
	}
	if !strings.HasPrefix(b.Slug, "the-dispossessed-") {
		t.Fatalf("unexpected slug %q", b.Slug)
	}
	if !strings.HasPrefix(b.FileKey, "books/author-1/") || !strings.Contains(saved.UploadURL, b.FileKey) {
		t.Fatalf("unexpected file key %q url %q", b.FileKey, saved.UploadURL)
	}
	if b.CoverURL == "" {
		t.Fatalf("expected cover url")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := New(&memoryBooks{bySlug: map[string]domain.Book{}}, &stubEntitlements{}, &stubObjects{}, nil)

	cases := map[string]func(*Input){
		"missing title":      func(in *Input) { in.Title = " " },
		"bad date":           func(in *Input) { in.PublishedAt = "yesterday" },
		"sale not below mrp": func(in *Input) { in.Price.Sale = "19.99" },
		"bad price":          func(in *Input) { in.Price.MRP = "abc" },
		"not epub":           func(in *Input) { in.File.Type = "application/pdf" },
		"missing file":       func(in *Input) { in.File = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			if _, err := svc.Create(context.Background(), author(), in); !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if _, err := svc.Create(context.Background(), domain.User{ID: "reader"}, validInput()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for non author, got %v", err)
	}
}

func TestUpdate_ReplacesFileAndCover(t *testing.T) {
	books := &memoryBooks{bySlug: map[string]domain.Book{
		"dispossessed": {ID: "b1", AuthorID: "author-1", Slug: "dispossessed", FileKey: "books/author-1/old.epub", CoverKey: "covers/old.png"},
	}}
	objects := &stubObjects{}
	svc := New(books, &stubEntitlements{}, objects, nil)

	in := validInput()
	in.Cover = &Upload{Filename: "new.png", ContentType: "image/png", Body: strings.NewReader("png")}
	saved, err := svc.Update(context.Background(), author(), "dispossessed", in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if saved.UploadURL == "" || saved.Book.Slug != "dispossessed" {
		t.Fatalf("unexpected result %+v", saved)
	}
	if len(objects.privateDeleted) != 1 || objects.privateDeleted[0] != "books/author-1/old.epub" {
		t.Fatalf("expected old file deleted, got %v", objects.privateDeleted)
	}
	if len(objects.publicDeleted) != 1 || objects.publicDeleted[0] != "covers/old.png" {
		t.Fatalf("expected old cover deleted, got %v", objects.publicDeleted)
	}

	other := "author-2"
	intruder := domain.User{ID: "user-2", Role: domain.RoleAuthor, AuthorID: &other}
	if _, err := svc.Update(context.Background(), intruder, "dispossessed", validInput()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for another author, got %v", err)
	}
}

func TestReadURL_RequiresEntitlement(t *testing.T) {
	books := &memoryBooks{bySlug: map[string]domain.Book{
		"dune": {ID: "b1", Slug: "dune", FileKey: "books/a/dune.epub"},
	}}
	svc := New(books, &stubEntitlements{owned: map[string]bool{"reader/b1": true}}, &stubObjects{}, nil)

	u, err := svc.ReadURL(context.Background(), "reader", "dune")
	if err != nil {
		t.Fatalf("read url: %v", err)
	}
	if !strings.HasSuffix(u, "books/a/dune.epub") {
		t.Fatalf("unexpected url %q", u)
	}

	if _, err := svc.ReadURL(context.Background(), "stranger", "dune"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.ReadURL(context.Background(), "reader", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
