package entitlement

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-storefront/internal/domain"
	"ebook-storefront/internal/testutil"
)

func TestPostgres_GrantOrderDeduplicatesBooks(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO entitlements").
		WithArgs("user-1", []string{"book-a", "book-b"}, "order-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	granted, err := NewPostgres(mock, nil).GrantOrder(context.Background(), domain.Order{
		ID:     "order-1",
		UserID: "user-1",
		Items:  []domain.OrderItem{{BookID: "book-a"}, {BookID: "book-b"}, {BookID: "book-a"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, granted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GrantOrderWithoutItemsSkipsQuery(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	granted, err := NewPostgres(mock, nil).GrantOrder(context.Background(), domain.Order{ID: "order-1"})
	require.NoError(t, err)
	assert.Zero(t, granted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GrantIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := testutil.Postgres(t)

	userID := testutil.InsertUser(ctx, t, pool, "reader@example.com")
	bookID := testutil.InsertBook(ctx, t, pool, "Alpha", 999)
	repo := NewPostgres(pool, nil)

	created, err := repo.Grant(ctx, userID, bookID, "")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Grant(ctx, userID, bookID, "")
	require.NoError(t, err)
	assert.False(t, created)

	has, err := repo.Has(ctx, userID, bookID)
	require.NoError(t, err)
	assert.True(t, has)

	books, err := repo.ListBooks(ctx, userID)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Alpha", books[0].Title)
}
