package domain

import "time"

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderPaid || s == OrderFailed
}

type Order struct {
	ID            string
	UserID        string
	ExternalRef   string
	Status        OrderStatus
	Currency      string
	Total         int64
	PaymentID     string
	FailureReason string
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem snapshots the price of a book at checkout time.
type OrderItem struct {
	BookID    string
	Title     string
	Slug      string
	CoverURL  string
	Quantity  int
	UnitPrice int64
	LineTotal int64
}

// NewOrder builds a pending order from cart lines, pricing every line at the
// book's current sale price.
func NewOrder(userID, currency string, lines []CartLine) (Order, error) {
	if len(lines) == 0 {
		return Order{}, ErrEmptyCart
	}
	o := Order{
		UserID:   userID,
		Status:   OrderPending,
		Currency: currency,
		Items:    make([]OrderItem, 0, len(lines)),
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		line := OrderItem{
			BookID:    l.BookID,
			Title:     l.Title,
			Slug:      l.Slug,
			CoverURL:  l.CoverURL,
			Quantity:  l.Quantity,
			UnitPrice: l.Sale,
			LineTotal: l.Sale * int64(l.Quantity),
		}
		o.Items = append(o.Items, line)
		o.Total += line.LineTotal
	}
	if len(o.Items) == 0 {
		return Order{}, ErrEmptyCart
	}
	return o, nil
}

// BookIDs lists the distinct books an order covers.
func (o Order) BookIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it.BookID]; ok {
			continue
		}
		seen[it.BookID] = struct{}{}
		ids = append(ids, it.BookID)
	}
	return ids
}

// CheckoutSession is the provider-side payment session for an order.
type CheckoutSession struct {
	ID  string
	URL string
}
