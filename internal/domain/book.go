package domain

import "time"

// Book prices are stored in minor units.
type Book struct {
	ID              string
	AuthorID        string
	AuthorName      string
	AuthorSlug      string
	Title           string
	Slug            string
	Description     string
	Language        string
	PublicationName string
	Genre           string
	PublishedAt     time.Time
	MRP             int64
	Sale            int64
	CoverKey        string
	CoverURL        string
	FileKey         string
	FileType        string
	FileSize        int64
	AverageRating   *float64
	CreatedAt       time.Time
}
