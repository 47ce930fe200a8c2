package domain

import "time"

type Role string

const (
	RoleUser   Role = "user"
	RoleAuthor Role = "author"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	SignedUp  bool      `json:"signedUp"`
	AvatarKey string    `json:"-"`
	AvatarURL string    `json:"avatar,omitempty"`
	AuthorID  *string   `json:"authorId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) IsAuthor() bool {
	return u.Role == RoleAuthor && u.AuthorID != nil
}
