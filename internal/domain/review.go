package domain

import "time"

type Review struct {
	ID         string
	BookID     string
	UserID     string
	UserName   string
	UserAvatar string
	Rating     int
	Content    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
