package book

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"ebook-storefront/internal/domain"
)

const (
	epubContentType = "application/epub+zip"
	maxFileSize     = 16 << 20
	defaultListSize = 10
)

type bookRepo interface {
	Create(ctx context.Context, b domain.Book) (*domain.Book, error)
	Update(ctx context.Context, b domain.Book) (*domain.Book, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Book, error)
	ListByGenre(ctx context.Context, genre string, limit int) ([]domain.Book, error)
}

type entitlementRepo interface {
	Has(ctx context.Context, userID, bookID string) (bool, error)
	ListBooks(ctx context.Context, userID string) ([]domain.Book, error)
}

type objectStore interface {
	UploadPublic(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	DeletePublic(ctx context.Context, key string) error
	DeletePrivate(ctx context.Context, key string) error
	UploadURL(ctx context.Context, key, contentType string) (string, error)
	DownloadURL(ctx context.Context, key string) (string, error)
}

type Service struct {
	books        bookRepo
	entitlements entitlementRepo
	objects      objectStore
	logger       *log.Logger
}

func New(books bookRepo, entitlements entitlementRepo, objects objectStore, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{books: books, entitlements: entitlements, objects: objects, logger: logger}
}

type Price struct {
	MRP  string `json:"mrp"`
	Sale string `json:"sale"`
}

// FileInfo describes the epub the author will upload to the returned URL.
type FileInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type Input struct {
	Title           string
	Description     string
	Language        string
	PublicationName string
	Genre           string
	PublishedAt     string
	Price           Price
	File            *FileInfo
	Cover           *Upload
}

// Saved is a stored book plus the presigned URL for its epub, if one must
// be uploaded.
type Saved struct {
	Book      *domain.Book
	UploadURL string
}

type fields struct {
	title, description, language, publicationName, genre string
	publishedAt                                          time.Time
	mrp, sale                                            int64
}

func (in Input) validate() (fields, error) {
	f := fields{
		title:           strings.TrimSpace(in.Title),
		description:     strings.TrimSpace(in.Description),
		language:        strings.TrimSpace(in.Language),
		publicationName: strings.TrimSpace(in.PublicationName),
		genre:           strings.TrimSpace(in.Genre),
	}
	required := []struct{ name, value string }{
		{"title", f.title},
		{"description", f.description},
		{"language", f.language},
		{"publicationName", f.publicationName},
		{"genre", f.genre},
	}
	for _, r := range required {
		if r.value == "" {
			return f, domain.Invalid(r.name, r.name+" is missing")
		}
	}

	published, err := time.Parse(time.DateOnly, strings.TrimSpace(in.PublishedAt))
	if err != nil {
		return f, domain.Invalid("publishedAt", "invalid publish date")
	}
	f.publishedAt = published

	if f.mrp, err = domain.ParseMinor("price.mrp", in.Price.MRP); err != nil {
		return f, err
	}
	if f.sale, err = domain.ParseMinor("price.sale", in.Price.Sale); err != nil {
		return f, err
	}
	if f.sale >= f.mrp {
		return f, domain.Invalid("price.sale", "sale price must be lower than mrp")
	}
	return f, nil
}

func validateFile(fi *FileInfo) error {
	if fi.Type != epubContentType {
		return domain.Invalid("file.type", "only epub files are supported")
	}
	if fi.Size <= 0 || fi.Size > maxFileSize {
		return domain.Invalid("file.size", "invalid file size")
	}
	return nil
}

func validateCover(c *Upload) error {
	if !strings.HasPrefix(c.ContentType, "image/") {
		return domain.Invalid("cover", "cover must be an image")
	}
	return nil
}

// Create stores a new book for the calling author and returns the URL the
// epub must be uploaded to.
func (s *Service) Create(ctx context.Context, user domain.User, in Input) (*Saved, error) {
	if !user.IsAuthor() {
		return nil, domain.ErrForbidden
	}
	f, err := in.validate()
	if err != nil {
		return nil, err
	}
	if in.File == nil {
		return nil, domain.Invalid("file", "file info is missing")
	}
	if err := validateFile(in.File); err != nil {
		return nil, err
	}
	if in.Cover != nil {
		if err := validateCover(in.Cover); err != nil {
			return nil, err
		}
	}

	id := uuid.NewString()
	b := domain.Book{
		ID:              id,
		AuthorID:        *user.AuthorID,
		Title:           f.title,
		Slug:            domain.Slugify(f.title + " " + id[:8]),
		Description:     f.description,
		Language:        f.language,
		PublicationName: f.publicationName,
		Genre:           f.genre,
		PublishedAt:     f.publishedAt,
		MRP:             f.mrp,
		Sale:            f.sale,
		FileKey:         fileKey(*user.AuthorID, id),
		FileType:        in.File.Type,
		FileSize:        in.File.Size,
	}

	if in.Cover != nil {
		key, coverURL, err := s.uploadCover(ctx, id, in.Cover)
		if err != nil {
			return nil, err
		}
		b.CoverKey, b.CoverURL = key, coverURL
	}

	uploadURL, err := s.objects.UploadURL(ctx, b.FileKey, b.FileType)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	created, err := s.books.Create(ctx, b)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("book: created id=%s slug=%s author_id=%s", created.ID, created.Slug, created.AuthorID)
	return &Saved{Book: created, UploadURL: uploadURL}, nil
}

// Update replaces the details of one of the author's books. A new file
// replaces the stored epub and a new cover replaces the stored image.
func (s *Service) Update(ctx context.Context, user domain.User, slug string, in Input) (*Saved, error) {
	if !user.IsAuthor() {
		return nil, domain.ErrForbidden
	}
	current, err := s.books.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if current.AuthorID != *user.AuthorID {
		return nil, fmt.Errorf("%w: not your book", domain.ErrForbidden)
	}
	f, err := in.validate()
	if err != nil {
		return nil, err
	}
	if in.File != nil {
		if err := validateFile(in.File); err != nil {
			return nil, err
		}
	}
	if in.Cover != nil {
		if err := validateCover(in.Cover); err != nil {
			return nil, err
		}
	}

	next := *current
	next.Title = f.title
	next.Description = f.description
	next.Language = f.language
	next.PublicationName = f.publicationName
	next.Genre = f.genre
	next.PublishedAt = f.publishedAt
	next.MRP, next.Sale = f.mrp, f.sale

	var uploadURL string
	if in.File != nil {
		next.FileKey = fileKey(*user.AuthorID, current.ID)
		next.FileType, next.FileSize = in.File.Type, in.File.Size
		if uploadURL, err = s.objects.UploadURL(ctx, next.FileKey, next.FileType); err != nil {
			return nil, fmt.Errorf("presign upload: %w", err)
		}
	}
	if in.Cover != nil {
		key, coverURL, err := s.uploadCover(ctx, current.ID, in.Cover)
		if err != nil {
			return nil, err
		}
		next.CoverKey, next.CoverURL = key, coverURL
	}

	updated, err := s.books.Update(ctx, next)
	if err != nil {
		return nil, err
	}

	if in.File != nil && current.FileKey != "" && current.FileKey != next.FileKey {
		if err := s.objects.DeletePrivate(ctx, current.FileKey); err != nil {
			s.logger.Printf("book: delete old file id=%s key=%s error=%v", current.ID, current.FileKey, err)
		}
	}
	if in.Cover != nil && current.CoverKey != "" {
		if err := s.objects.DeletePublic(ctx, current.CoverKey); err != nil {
			s.logger.Printf("book: delete old cover id=%s key=%s error=%v", current.ID, current.CoverKey, err)
		}
	}
	return &Saved{Book: updated, UploadURL: uploadURL}, nil
}

func (s *Service) Details(ctx context.Context, slug string) (*domain.Book, error) {
	return s.books.GetBySlug(ctx, slug)
}

func (s *Service) ByGenre(ctx context.Context, genre string, limit int) ([]domain.Book, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultListSize
	}
	return s.books.ListByGenre(ctx, strings.TrimSpace(genre), limit)
}

// Purchased lists the user's library.
func (s *Service) Purchased(ctx context.Context, userID string) ([]domain.Book, error) {
	return s.entitlements.ListBooks(ctx, userID)
}

// ReadURL returns a short-lived download URL for a book the user owns.
func (s *Service) ReadURL(ctx context.Context, userID, slug string) (string, error) {
	b, err := s.books.GetBySlug(ctx, slug)
	if err != nil {
		return "", err
	}
	owned, err := s.entitlements.Has(ctx, userID, b.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	if !owned {
		return "", fmt.Errorf("%w: book not purchased", domain.ErrForbidden)
	}
	if b.FileKey == "" {
		return "", domain.ErrNotFound
	}
	return s.objects.DownloadURL(ctx, b.FileKey)
}

func (s *Service) uploadCover(ctx context.Context, bookID string, c *Upload) (string, string, error) {
	key := "covers/" + bookID + "-" + uuid.NewString()[:8] + path.Ext(c.Filename)
	coverURL, err := s.objects.UploadPublic(ctx, key, c.ContentType, c.Body)
	if err != nil {
		return "", "", fmt.Errorf("upload cover: %w", err)
	}
	return key, coverURL, nil
}

func fileKey(authorID, bookID string) string {
	return "books/" + authorID + "/" + bookID + "-" + uuid.NewString()[:8] + ".epub"
}
