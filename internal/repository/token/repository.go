package token

import (
	"context"
	"time"
)

// Token is a pending magic-link verification for one user. Only the bcrypt
// hash of the secret is stored.
type Token struct {
	UserID    string    `json:"userId"`
	Hash      string    `json:"hash"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

type Repository interface {
	// Create stores the token, replacing any earlier one for the same user.
	Create(ctx context.Context, token Token) error
	Get(ctx context.Context, userID string) (*Token, error)
	// Consume deletes the user's token only while its hash still equals hash
	// and reports whether this call removed it. Concurrent callers holding the
	// same token see true at most once.
	Consume(ctx context.Context, userID, hash string) (bool, error)
}
