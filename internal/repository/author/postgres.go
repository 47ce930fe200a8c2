package author

import (
	"context"
	"errors"
	"io"
	"log"

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

func (r *postgresRepo) Create(ctx context.Context, a domain.Author) (*domain.Author, error) {
	var out *domain.Author
	err := db.InTx(ctx, r.db, func(tx pgx.Tx) error {
		const insert = `
INSERT INTO authors (id, user_id, name, about, slug, social_links)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id::text, user_id::text, name, about, slug, social_links, created_at
`
		created, err := scanAuthor(tx.QueryRow(ctx, insert, a.ID, a.UserID, a.Name, a.About, a.Slug, socialLinks(a.SocialLinks)))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domain.ErrAlreadyExists
			}
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET role = 'author', updated_at = now() WHERE id = $1`, a.UserID); err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		r.logger.Printf("author repo: create user_id=%s error=%v", a.UserID, err)
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) Update(ctx context.Context, a domain.Author) (*domain.Author, error) {
	const q = `
UPDATE authors
SET name = $2, about = $3, social_links = $4
WHERE id = $1
RETURNING id::text, user_id::text, name, about, slug, social_links, created_at
`
	return scanAuthor(r.db.QueryRow(ctx, q, a.ID, a.Name, a.About, socialLinks(a.SocialLinks)))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Author, error) {
	const q = `
SELECT id::text, user_id::text, name, about, slug, social_links, created_at
FROM authors
WHERE id = $1
`
	return scanAuthor(r.db.QueryRow(ctx, q, id))
}

func scanAuthor(row pgx.Row) (*domain.Author, error) {
	var a domain.Author
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.About, &a.Slug, &a.SocialLinks, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func socialLinks(links []string) []string {
	if links == nil {
		return []string{}
	}
	return links
}
