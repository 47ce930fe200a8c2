package user

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

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

const selectUser = `
SELECT u.id::text, u.email, u.name, u.role, u.signed_up, u.avatar_key, u.avatar_url, a.id::text, u.created_at
FROM users u
LEFT JOIN authors a ON a.user_id = u.id
`

func (r *postgresRepo) GetOrCreateByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	const q = `
INSERT INTO users (email)
VALUES ($1)
ON CONFLICT ((lower(email))) DO UPDATE SET updated_at = users.updated_at
RETURNING id::text
`
	var id string
	if err := r.db.QueryRow(ctx, q, email).Scan(&id); err != nil {
		r.logger.Printf("user repo: get or create email=%s error=%v", email, err)
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+`WHERE u.id = $1`, id))
}

func (r *postgresRepo) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*domain.User, error) {
	const q = `
UPDATE users
SET name = $2,
    signed_up = TRUE,
    avatar_key = COALESCE($3, avatar_key),
    avatar_url = COALESCE($4, avatar_url),
    updated_at = now()
WHERE id = $1
`
	cmd, err := r.db.Exec(ctx, q, id, in.Name, in.AvatarKey, in.AvatarURL)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.SignedUp, &u.AvatarKey, &u.AvatarURL, &u.AuthorID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}
