package order

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

const selectOrder = `
SELECT id::text, user_id::text, COALESCE(external_ref, ''), payment_status, currency, total_amount,
       payment_id, failure_reason, created_at, updated_at
FROM orders
`

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	var id string
	err := db.InTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
INSERT INTO orders (user_id, payment_status, currency, total_amount)
VALUES ($1, 'pending', $2, $3)
RETURNING id::text
`, o.UserID, o.Currency, o.Total).Scan(&id)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, it := range o.Items {
			batch.Queue(`
INSERT INTO order_items (order_id, book_id, title, slug, cover_url, quantity, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, id, it.BookID, it.Title, it.Slug, it.CoverURL, it.Quantity, it.UnitPrice, it.LineTotal)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		r.logger.Printf("order repo: create user_id=%s items=%d error=%v", o.UserID, len(o.Items), err)
		return nil, err
	}
	r.logger.Printf("order repo: created id=%s user_id=%s total=%d", id, o.UserID, o.Total)
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.fetchOne(ctx, selectOrder+`WHERE id = $1`, id)
}

func (r *postgresRepo) GetByExternalRef(ctx context.Context, ref string) (*domain.Order, error) {
	return r.fetchOne(ctx, selectOrder+`WHERE external_ref = $1`, ref)
}

func (r *postgresRepo) SetExternalRef(ctx context.Context, id, ref string) error {
	cmd, err := r.db.Exec(ctx, `
UPDATE orders
SET external_ref = $2, updated_at = now()
WHERE id = $1 AND (external_ref IS NULL OR external_ref = $2)
`, id, ref)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *postgresRepo) MarkPaid(ctx context.Context, id, paymentID string) (*domain.Order, bool, error) {
	return r.transition(ctx, `
UPDATE orders
SET payment_status = 'paid', payment_id = $2, updated_at = now()
WHERE id = $1 AND payment_status = 'pending'
RETURNING id::text
`, id, paymentID)
}

func (r *postgresRepo) MarkFailed(ctx context.Context, id, reason string) (*domain.Order, bool, error) {
	return r.transition(ctx, `
UPDATE orders
SET payment_status = 'failed', failure_reason = $2, updated_at = now()
WHERE id = $1 AND payment_status = 'pending'
RETURNING id::text
`, id, reason)
}

// transition runs a guarded status update. Zero matched rows means another
// writer already settled the order, which is reported as a no-op.
func (r *postgresRepo) transition(ctx context.Context, q, id, arg string) (*domain.Order, bool, error) {
	var updated string
	err := r.db.QueryRow(ctx, q, id, arg).Scan(&updated)
	transitioned := true
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, false, err
		}
		transitioned = false
	}
	o, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	r.logger.Printf("order repo: transition id=%s status=%s transitioned=%t", id, o.Status, transitioned)
	return o, transitioned, nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, selectOrder+`WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *postgresRepo) ListPaidMissingEntitlements(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
SELECT DISTINCT o.id::text
FROM orders o
JOIN order_items oi ON oi.order_id = o.id
LEFT JOIN entitlements e ON e.user_id = o.user_id AND e.book_id = oi.book_id
WHERE o.payment_status = 'paid' AND e.book_id IS NULL
ORDER BY 1
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresRepo) fetchOne(ctx context.Context, q string, args ...any) (*domain.Order, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.ErrNotFound
	}
	if err := r.attachItems(ctx, orders[:1]); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *postgresRepo) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.db.Query(ctx, `
SELECT order_id::text, book_id::text, title, slug, cover_url, quantity, unit_price, line_total
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY title ASC
`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var it domain.OrderItem
		if err := rows.Scan(&orderID, &it.BookID, &it.Title, &it.Slug, &it.CoverURL, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return err
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()
	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		var status string
		if err := rows.Scan(&o.ID, &o.UserID, &o.ExternalRef, &status, &o.Currency, &o.Total,
			&o.PaymentID, &o.FailureReason, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatus(status)
		out = append(out, o)
	}
	return out, rows.Err()
}
