package history

import (
	"context"
	"encoding/json"
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

func (r *postgresRepo) Apply(ctx context.Context, readerID, bookID string, in Update) (*domain.History, error) {
	var out *domain.History
	err := db.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO reading_histories (book_id, reader_id)
VALUES ($1, $2)
ON CONFLICT (book_id, reader_id) DO NOTHING
`, bookID, readerID); err != nil {
			return err
		}

		h, err := scanHistory(tx.QueryRow(ctx, selectHistory+` FOR UPDATE`, readerID, bookID))
		if err != nil {
			return err
		}
		if in.LastLocation != nil {
			h.LastLocation = *in.LastLocation
		}
		if len(in.Highlights) > 0 {
			h.ApplyHighlights(in.Highlights, in.Remove)
		}

		raw, err := json.Marshal(h.Highlights)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
UPDATE reading_histories
SET last_location = $2, highlights = $3, updated_at = now()
WHERE id = $1
`, h.ID, h.LastLocation, raw); err != nil {
			return err
		}
		out = h
		return nil
	})
	if err != nil {
		r.logger.Printf("history repo: apply reader_id=%s book_id=%s error=%v", readerID, bookID, err)
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) Get(ctx context.Context, readerID, bookID string) (*domain.History, error) {
	return scanHistory(r.db.QueryRow(ctx, selectHistory, readerID, bookID))
}

const selectHistory = `
SELECT id::text, book_id::text, reader_id::text, last_location, highlights, updated_at
FROM reading_histories
WHERE reader_id = $1 AND book_id = $2`

func scanHistory(row pgx.Row) (*domain.History, error) {
	var h domain.History
	var raw []byte
	if err := row.Scan(&h.ID, &h.BookID, &h.ReaderID, &h.LastLocation, &raw, &h.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, &h.Highlights); err != nil {
		return nil, err
	}
	if h.Highlights == nil {
		h.Highlights = []domain.Highlight{}
	}
	return &h, nil
}
