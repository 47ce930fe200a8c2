package domain

import (
	"math"
	"time"
)

// MaxCartQuantity bounds a stored quantity and the magnitude of a delta.
const MaxCartQuantity = math.MaxInt32

// CartItem is a quantity of one book. In an update request Quantity is a
// signed delta applied to the stored quantity.
type CartItem struct {
	BookID   string `json:"product"`
	Quantity int    `json:"quantity"`
}

type Cart struct {
	ID        string
	UserID    string
	Lines     []CartLine
	UpdatedAt time.Time
}

// CartLine is a stored cart item joined with the book's current metadata.
type CartLine struct {
	BookID   string
	Title    string
	Slug     string
	CoverURL string
	MRP      int64
	Sale     int64
	Quantity int
}

// MergeCartItems applies deltas to the existing items. Quantities are summed
// per book, a book whose quantity drops to zero or below is removed and a
// non-positive delta for an absent book is ignored. Books keep the order in
// which they first appear, existing items first.
func MergeCartItems(existing, deltas []CartItem) []CartItem {
	quantities := make(map[string]int, len(existing)+len(deltas))
	order := make([]string, 0, len(existing)+len(deltas))

	for _, it := range existing {
		if _, seen := quantities[it.BookID]; !seen {
			order = append(order, it.BookID)
		}
		quantities[it.BookID] += it.Quantity
	}
	for _, d := range deltas {
		if _, seen := quantities[d.BookID]; !seen {
			order = append(order, d.BookID)
		}
		quantities[d.BookID] += d.Quantity
	}

	merged := make([]CartItem, 0, len(order))
	for _, id := range order {
		if q := quantities[id]; q > 0 {
			merged = append(merged, CartItem{BookID: id, Quantity: q})
		}
	}
	return merged
}
