package httpserver

import (
	"math"
	"time"

	"ebook-storefront/internal/domain"
)

type priceResponse struct {
	MRP  string `json:"mrp"`
	Sale string `json:"sale"`
}

type bookResponse struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Slug            string        `json:"slug"`
	Description     string        `json:"description,omitempty"`
	Language        string        `json:"language,omitempty"`
	PublicationName string        `json:"publicationName,omitempty"`
	Genre           string        `json:"genre"`
	PublishedAt     string        `json:"publishedAt,omitempty"`
	Price           priceResponse `json:"price"`
	Cover           string        `json:"cover,omitempty"`
	Rating          *float64      `json:"rating,omitempty"`
	Author          *authorRef    `json:"author,omitempty"`
}

type authorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type authorResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	About       string         `json:"about"`
	Slug        string         `json:"slug"`
	SocialLinks []string       `json:"socialLinks"`
	Books       []bookResponse `json:"books,omitempty"`
}

type cartItemResponse struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Slug     string        `json:"slug"`
	Cover    string        `json:"cover,omitempty"`
	Price    priceResponse `json:"price"`
	Quantity int           `json:"quantity"`
}

type cartResponse struct {
	ID         string             `json:"id,omitempty"`
	Products   []cartItemResponse `json:"products"`
	TotalCount int                `json:"totalCount"`
	Subtotal   string             `json:"subtotal"`
}

type orderItemResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Cover     string `json:"cover,omitempty"`
	Quantity  int    `json:"qty"`
	UnitPrice string `json:"price"`
	LineTotal string `json:"totalPrice"`
}

type orderResponse struct {
	ID        string              `json:"id"`
	Status    domain.OrderStatus  `json:"paymentStatus"`
	Currency  string              `json:"currency"`
	Total     string              `json:"totalAmount"`
	PaymentID string              `json:"paymentId,omitempty"`
	Items     []orderItemResponse `json:"orders"`
	CreatedAt time.Time           `json:"date"`
}

type historyResponse struct {
	BookID       string             `json:"book"`
	LastLocation string             `json:"lastLocation"`
	Highlights   []domain.Highlight `json:"highlights"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

type reviewResponse struct {
	ID        string      `json:"id"`
	BookID    string      `json:"bookId"`
	Rating    int         `json:"rating"`
	Content   string      `json:"content"`
	User      *reviewUser `json:"user,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

type reviewUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

func toPrice(mrp, sale int64) priceResponse {
	return priceResponse{MRP: domain.FormatMinor(mrp), Sale: domain.FormatMinor(sale)}
}

func toBook(b domain.Book) bookResponse {
	out := bookResponse{
		ID:              b.ID,
		Title:           b.Title,
		Slug:            b.Slug,
		Description:     b.Description,
		Language:        b.Language,
		PublicationName: b.PublicationName,
		Genre:           b.Genre,
		Price:           toPrice(b.MRP, b.Sale),
		Cover:           b.CoverURL,
	}
	if !b.PublishedAt.IsZero() {
		out.PublishedAt = b.PublishedAt.Format(time.DateOnly)
	}
	if b.AverageRating != nil {
		r := math.Round(*b.AverageRating*10) / 10
		out.Rating = &r
	}
	if b.AuthorID != "" {
		out.Author = &authorRef{ID: b.AuthorID, Name: b.AuthorName, Slug: b.AuthorSlug}
	}
	return out
}

func toBooks(books []domain.Book) []bookResponse {
	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toBook(b))
	}
	return out
}

func toAuthor(a domain.Author, books []domain.Book) authorResponse {
	links := a.SocialLinks
	if links == nil {
		links = []string{}
	}
	out := authorResponse{ID: a.ID, Name: a.Name, About: a.About, Slug: a.Slug, SocialLinks: links}
	if books != nil {
		out.Books = toBooks(books)
	}
	return out
}

func toCart(c domain.Cart) cartResponse {
	out := cartResponse{ID: c.ID, Products: make([]cartItemResponse, 0, len(c.Lines))}
	var subtotal int64
	for _, l := range c.Lines {
		out.Products = append(out.Products, cartItemResponse{
			ID:       l.BookID,
			Title:    l.Title,
			Slug:     l.Slug,
			Cover:    l.CoverURL,
			Price:    toPrice(l.MRP, l.Sale),
			Quantity: l.Quantity,
		})
		out.TotalCount += l.Quantity
		subtotal += l.Sale * int64(l.Quantity)
	}
	out.Subtotal = domain.FormatMinor(subtotal)
	return out
}

func toOrder(o domain.Order) orderResponse {
	out := orderResponse{
		ID:        o.ID,
		Status:    o.Status,
		Currency:  o.Currency,
		Total:     domain.FormatMinor(o.Total),
		PaymentID: o.PaymentID,
		Items:     make([]orderItemResponse, 0, len(o.Items)),
		CreatedAt: o.CreatedAt,
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, orderItemResponse{
			ID:        it.BookID,
			Title:     it.Title,
			Slug:      it.Slug,
			Cover:     it.CoverURL,
			Quantity:  it.Quantity,
			UnitPrice: domain.FormatMinor(it.UnitPrice),
			LineTotal: domain.FormatMinor(it.LineTotal),
		})
	}
	return out
}

func toHistory(h domain.History) historyResponse {
	highlights := h.Highlights
	if highlights == nil {
		highlights = []domain.Highlight{}
	}
	return historyResponse{BookID: h.BookID, LastLocation: h.LastLocation, Highlights: highlights, UpdatedAt: h.UpdatedAt}
}

func toReview(r domain.Review, withUser bool) reviewResponse {
	out := reviewResponse{ID: r.ID, BookID: r.BookID, Rating: r.Rating, Content: r.Content, CreatedAt: r.CreatedAt}
	if withUser {
		out.User = &reviewUser{ID: r.UserID, Name: r.UserName, Avatar: r.UserAvatar}
	}
	return out
}
