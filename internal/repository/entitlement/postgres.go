package entitlement

import (
	"context"
	"io"
	"log"

	"ebook-storefront/internal/db"
	"ebook-storefront/internal/domain"
	bookrepo "ebook-storefront/internal/repository/book"
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

func (r *postgresRepo) Grant(ctx context.Context, userID, bookID, orderID string) (bool, error) {
	cmd, err := r.db.Exec(ctx, `
INSERT INTO entitlements (user_id, book_id, order_id)
VALUES ($1, $2, NULLIF($3, '')::uuid)
ON CONFLICT (user_id, book_id) DO NOTHING
`, userID, bookID, orderID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *postgresRepo) GrantOrder(ctx context.Context, o domain.Order) (int, error) {
	bookIDs := o.BookIDs()
	if len(bookIDs) == 0 {
		return 0, nil
	}
	cmd, err := r.db.Exec(ctx, `
INSERT INTO entitlements (user_id, book_id, order_id)
SELECT $1, unnest($2::uuid[]), $3
ON CONFLICT (user_id, book_id) DO NOTHING
`, o.UserID, bookIDs, o.ID)
	if err != nil {
		r.logger.Printf("entitlement repo: grant order_id=%s error=%v", o.ID, err)
		return 0, err
	}
	granted := int(cmd.RowsAffected())
	r.logger.Printf("entitlement repo: grant order_id=%s user_id=%s books=%d granted=%d", o.ID, o.UserID, len(bookIDs), granted)
	return granted, nil
}

func (r *postgresRepo) Has(ctx context.Context, userID, bookID string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM entitlements WHERE user_id = $1 AND book_id = $2)
`, userID, bookID).Scan(&ok)
	return ok, err
}

func (r *postgresRepo) ListBooks(ctx context.Context, userID string) ([]domain.Book, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookrepo.Columns+`
FROM entitlements e
JOIN books b ON b.id = e.book_id
JOIN authors a ON a.id = b.author_id
WHERE e.user_id = $1
ORDER BY e.granted_at DESC
`, userID)
	if err != nil {
		return nil, err
	}
	return bookrepo.CollectRows(rows)
}
