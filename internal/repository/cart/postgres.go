package cart

import (
	"context"
	"errors"
	"fmt"
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

func (r *postgresRepo) UpsertItems(ctx context.Context, userID string, deltas []domain.CartItem) (string, error) {
	var cartID string
	err := db.InTx(ctx, r.db, func(tx pgx.Tx) error {
		// The upsert takes the cart row lock, so concurrent edits of one
		// user's cart apply one after another.
		err := tx.QueryRow(ctx, `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
RETURNING id::text
`, userID).Scan(&cartID)
		if err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}

		if err := ensureBooksExist(ctx, tx, deltas); err != nil {
			return err
		}

		existing, err := loadItems(ctx, tx, cartID)
		if err != nil {
			return err
		}
		merged := domain.MergeCartItems(existing, deltas)
		bookIDs := make([]string, len(merged))
		quantities := make([]int32, len(merged))
		for i, it := range merged {
			if it.Quantity > domain.MaxCartQuantity {
				return domain.Invalid("quantity", "quantity out of range")
			}
			bookIDs[i] = it.BookID
			quantities[i] = int32(it.Quantity)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return err
		}
		if len(merged) == 0 {
			return nil
		}
		_, err = tx.Exec(ctx, `
INSERT INTO cart_items (cart_id, book_id, quantity)
SELECT $1, unnest($2::uuid[]), unnest($3::int[])
`, cartID, bookIDs, quantities)
		return err
	})
	if err != nil {
		r.logger.Printf("cart repo: upsert user_id=%s deltas=%d error=%v", userID, len(deltas), err)
		return "", err
	}
	return cartID, nil
}

func (r *postgresRepo) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.db.QueryRow(ctx, `
SELECT id::text, user_id::text, updated_at
FROM carts
WHERE user_id = $1
`, userID).Scan(&cart.ID, &cart.UserID, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
SELECT b.id::text, b.title, b.slug, b.cover_url, b.price_mrp, b.price_sale, ci.quantity
FROM cart_items ci
JOIN books b ON b.id = ci.book_id
WHERE ci.cart_id = $1
ORDER BY b.title ASC
`, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cart.Lines = []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.BookID, &line.Title, &line.Slug, &line.CoverURL, &line.MRP, &line.Sale, &line.Quantity); err != nil {
			return nil, err
		}
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *postgresRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	return err
}

func loadItems(ctx context.Context, tx pgx.Tx, cartID string) ([]domain.CartItem, error) {
	rows, err := tx.Query(ctx, `SELECT book_id::text, quantity FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.BookID, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func ensureBooksExist(ctx context.Context, tx pgx.Tx, deltas []domain.CartItem) error {
	wanted := make(map[string]struct{}, len(deltas))
	ids := make([]string, 0, len(deltas))
	for _, d := range deltas {
		if _, ok := wanted[d.BookID]; ok {
			continue
		}
		wanted[d.BookID] = struct{}{}
		ids = append(ids, d.BookID)
	}
	if len(ids) == 0 {
		return nil
	}

	var found int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM books WHERE id = ANY($1::uuid[])`, ids).Scan(&found); err != nil {
		return err
	}
	if found != len(ids) {
		return domain.Invalid("items", "unknown book in cart update")
	}
	return nil
}
