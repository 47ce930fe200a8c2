package domain

import "time"

type Author struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	About       string    `json:"about"`
	Slug        string    `json:"slug"`
	SocialLinks []string  `json:"socialLinks"`
	CreatedAt   time.Time `json:"createdAt"`
}
