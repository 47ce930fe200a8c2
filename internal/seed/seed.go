package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ebook-storefront/internal/db"
	"ebook-storefront/internal/domain"
	bookrepo "ebook-storefront/internal/repository/book"
	userrepo "ebook-storefront/internal/repository/user"
)

type bookSeed struct {
	Title       string
	Description string
	Genre       string
	PublishedAt string
	MRP         int64
	Sale        int64
}

// Apply inserts a demo author with a few books for manual testing. It is
// idempotent: users are found by email and books upserted by slug.
func Apply(ctx context.Context, conn db.DBTX) error {
	users := userrepo.NewPostgres(conn, nil)
	u, err := users.GetOrCreateByEmail(ctx, "author@demo.test")
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	if _, err := users.UpdateProfile(ctx, u.ID, userrepo.ProfileUpdate{Name: "Demo Author"}); err != nil {
		return fmt.Errorf("sign up user: %w", err)
	}

	authorID, err := ensureAuthor(ctx, conn, u.ID, "Demo Author")
	if err != nil {
		return fmt.Errorf("ensure author: %w", err)
	}

	books := []bookSeed{
		{
			Title:       "Demo Book One",
			Description: "A short novel for demo purposes",
			Genre:       "Fiction",
			PublishedAt: "2021-04-12",
			MRP:         1999,
			Sale:        999,
		},
		{
			Title:       "Demo Book Two",
			Description: "Essays about nothing in particular",
			Genre:       "Non Fiction",
			PublishedAt: "2023-09-01",
			MRP:         1299,
			Sale:        1099,
		},
	}

	repo := bookrepo.NewPostgres(conn, nil)
	for _, s := range books {
		published, _ := time.Parse(time.DateOnly, s.PublishedAt)
		_, err := repo.Upsert(ctx, domain.Book{
			ID:              uuid.NewString(),
			AuthorID:        authorID,
			Title:           s.Title,
			Slug:            domain.Slugify(s.Title),
			Description:     s.Description,
			Language:        "English",
			PublicationName: "Demo Press",
			Genre:           s.Genre,
			PublishedAt:     published,
			MRP:             s.MRP,
			Sale:            s.Sale,
		})
		if err != nil {
			return fmt.Errorf("upsert book %s: %w", s.Title, err)
		}
	}
	return nil
}

func ensureAuthor(ctx context.Context, conn db.DBTX, userID, name string) (string, error) {
	const q = `
INSERT INTO authors (id, user_id, name, about, slug)
VALUES ($1, $2, $3, 'Seeded author', $4)
ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name
RETURNING id::text
`
	id := uuid.NewString()
	var authorID string
	if err := conn.QueryRow(ctx, q, id, userID, name, domain.Slugify(name+" "+id[:8])).Scan(&authorID); err != nil {
		return "", err
	}
	if _, err := conn.Exec(ctx, `UPDATE users SET role = 'author' WHERE id = $1`, userID); err != nil {
		return "", err
	}
	return authorID, nil
}
