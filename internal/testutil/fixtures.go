package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// InsertUser creates a signed-up user and returns its id.
func InsertUser(ctx context.Context, t *testing.T, pool *pgxpool.Pool, email string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `INSERT INTO users (email, name, signed_up) VALUES ($1, 'Reader', TRUE) RETURNING id::text`, email).Scan(&id)
	require.NoError(t, err)
	return id
}

// InsertBook creates an author for a fresh user plus one book priced at sale
// minor units, and returns the book id.
func InsertBook(ctx context.Context, t *testing.T, pool *pgxpool.Pool, title string, sale int64) string {
	t.Helper()
	userID := InsertUser(ctx, t, pool, uuid.NewString()+"@authors.test")

	authorID := uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO authors (id, user_id, name, slug) VALUES ($1, $2, 'Author', $3)`, authorID, userID, "author-"+authorID)
	require.NoError(t, err)

	bookID := uuid.NewString()
	_, err = pool.Exec(ctx, `
INSERT INTO books (id, author_id, title, slug, price_mrp, price_sale)
VALUES ($1, $2, $3, $4, $5, $6)
`, bookID, authorID, title, "book-"+bookID, sale*2, sale)
	require.NoError(t, err)
	return bookID
}
