package book

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ebook-storefront/internal/db"
	"ebook-storefront/internal/domain"
)

type postgresRepo struct {
	db     db.DBTX
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(conn db.DBTX, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{db: conn, logger: logger}
}

// Columns selects a book joined with its author. Other repositories reuse it
// for read models that embed books.
const Columns = `b.id::text, b.author_id::text, a.name, a.slug, b.title, b.slug, b.description, b.language,
       b.publication_name, b.genre, b.published_at, b.price_mrp, b.price_sale, b.cover_key, b.cover_url,
       b.file_key, b.file_type, b.file_size, b.average_rating::float8, b.created_at`

const selectBook = `SELECT ` + Columns + `
FROM books b
JOIN authors a ON a.id = b.author_id
`

func (r *postgresRepo) Create(ctx context.Context, b domain.Book) (*domain.Book, error) {
	const q = `
INSERT INTO books (id, author_id, title, slug, description, language, publication_name, genre, published_at,
                   price_mrp, price_sale, cover_key, cover_url, file_key, file_type, file_size)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
`
	_, err := r.db.Exec(ctx, q, b.ID, b.AuthorID, b.Title, b.Slug, b.Description, b.Language, b.PublicationName,
		b.Genre, publishedAt(b.PublishedAt), b.MRP, b.Sale, b.CoverKey, b.CoverURL, b.FileKey, b.FileType, b.FileSize)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("book repo: create slug=%s error=%v", b.Slug, err)
		return nil, err
	}
	return r.GetByID(ctx, b.ID)
}

func (r *postgresRepo) Update(ctx context.Context, b domain.Book) (*domain.Book, error) {
	const q = `
UPDATE books
SET title = $2, description = $3, language = $4, publication_name = $5, genre = $6, published_at = $7,
    price_mrp = $8, price_sale = $9, cover_key = $10, cover_url = $11, file_key = $12, file_type = $13,
    file_size = $14, updated_at = now()
WHERE id = $1
`
	cmd, err := r.db.Exec(ctx, q, b.ID, b.Title, b.Description, b.Language, b.PublicationName, b.Genre,
		publishedAt(b.PublishedAt), b.MRP, b.Sale, b.CoverKey, b.CoverURL, b.FileKey, b.FileType, b.FileSize)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, b.ID)
}

func (r *postgresRepo) Upsert(ctx context.Context, b domain.Book) (*domain.Book, error) {
	const q = `
INSERT INTO books (id, author_id, title, slug, description, language, publication_name, genre, published_at,
                   price_mrp, price_sale, cover_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (slug) DO UPDATE
SET title = EXCLUDED.title,
    description = EXCLUDED.description,
    language = EXCLUDED.language,
    publication_name = EXCLUDED.publication_name,
    genre = EXCLUDED.genre,
    published_at = EXCLUDED.published_at,
    price_mrp = EXCLUDED.price_mrp,
    price_sale = EXCLUDED.price_sale,
    cover_url = EXCLUDED.cover_url,
    updated_at = now()
RETURNING id::text
`
	var id string
	err := r.db.QueryRow(ctx, q, b.ID, b.AuthorID, b.Title, b.Slug, b.Description, b.Language, b.PublicationName,
		b.Genre, publishedAt(b.PublishedAt), b.MRP, b.Sale, b.CoverURL).Scan(&id)
	if err != nil {
		r.logger.Printf("book repo: upsert slug=%s error=%v", b.Slug, err)
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) GetBySlug(ctx context.Context, slug string) (*domain.Book, error) {
	return Scan(r.db.QueryRow(ctx, selectBook+`WHERE b.slug = $1`, slug))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	return Scan(r.db.QueryRow(ctx, selectBook+`WHERE b.id = $1`, id))
}

func (r *postgresRepo) ListByGenre(ctx context.Context, genre string, limit int) ([]domain.Book, error) {
	rows, err := r.db.Query(ctx, selectBook+`WHERE b.genre = $1 ORDER BY b.created_at DESC LIMIT $2`, genre, limit)
	if err != nil {
		return nil, err
	}
	return CollectRows(rows)
}

func (r *postgresRepo) ListByAuthor(ctx context.Context, authorID string) ([]domain.Book, error) {
	rows, err := r.db.Query(ctx, selectBook+`WHERE b.author_id = $1 ORDER BY b.created_at DESC`, authorID)
	if err != nil {
		return nil, err
	}
	return CollectRows(rows)
}

// Scan reads one row selected with Columns.
func Scan(row pgx.Row) (*domain.Book, error) {
	var b domain.Book
	var published *time.Time
	err := row.Scan(&b.ID, &b.AuthorID, &b.AuthorName, &b.AuthorSlug, &b.Title, &b.Slug, &b.Description,
		&b.Language, &b.PublicationName, &b.Genre, &published, &b.MRP, &b.Sale, &b.CoverKey, &b.CoverURL,
		&b.FileKey, &b.FileType, &b.FileSize, &b.AverageRating, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if published != nil {
		b.PublishedAt = *published
	}
	return &b, nil
}

// CollectRows scans and closes rows selected with Columns.
func CollectRows(rows pgx.Rows) ([]domain.Book, error) {
	defer rows.Close()
	var out []domain.Book
	for rows.Next() {
		b, err := Scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func publishedAt(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
