package domain

import "time"

// Entitlement records that a user may read a book. At most one exists per
// (user, book).
type Entitlement struct {
	UserID    string
	BookID    string
	OrderID   string
	GrantedAt time.Time
}
