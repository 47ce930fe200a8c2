package review

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"

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

const selectReview = `
SELECT r.id::text, r.book_id::text, r.user_id::text, u.name, u.avatar_url, r.rating, r.content, r.created_at, r.updated_at
FROM reviews r
JOIN users u ON u.id = r.user_id
`

func (r *postgresRepo) Upsert(ctx context.Context, rv domain.Review) (*domain.Review, error) {
	err := db.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO reviews (book_id, user_id, rating, content)
VALUES ($1, $2, $3, $4)
ON CONFLICT (book_id, user_id) DO UPDATE
SET rating = EXCLUDED.rating, content = EXCLUDED.content, updated_at = now()
`, rv.BookID, rv.UserID, rv.Rating, rv.Content); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
UPDATE books
SET average_rating = (SELECT round(avg(rating)::numeric, 1) FROM reviews WHERE book_id = $1)
WHERE id = $1
`, rv.BookID)
		return err
	})
	if err != nil {
		r.logger.Printf("review repo: upsert user_id=%s book_id=%s error=%v", rv.UserID, rv.BookID, err)
		return nil, err
	}
	return r.GetByUser(ctx, rv.UserID, rv.BookID)
}

func (r *postgresRepo) GetByUser(ctx context.Context, userID, bookID string) (*domain.Review, error) {
	return scanReview(r.db.QueryRow(ctx, selectReview+`WHERE r.user_id = $1 AND r.book_id = $2`, userID, bookID))
}

func (r *postgresRepo) ListByBook(ctx context.Context, bookID string) ([]domain.Review, error) {
	rows, err := r.db.Query(ctx, selectReview+`WHERE r.book_id = $1 ORDER BY r.updated_at DESC`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rv)
	}
	return out, rows.Err()
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rv domain.Review
	if err := row.Scan(&rv.ID, &rv.BookID, &rv.UserID, &rv.UserName, &rv.UserAvatar, &rv.Rating, &rv.Content, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rv, nil
}
