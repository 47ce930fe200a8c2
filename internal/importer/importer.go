package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"ebook-storefront/internal/domain"
)

type BookWriter interface {
	Upsert(ctx context.Context, b domain.Book) (*domain.Book, error)
}

// CSVImporter reads a catalogue export and inserts or updates the books of
// one author. Rows are keyed by slug, so re-running an import is safe.
type CSVImporter struct {
	reader   *csv.Reader
	books    BookWriter
	authorID string
}

func NewCSVImporter(r io.Reader, books BookWriter, authorID string) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:   csvr,
		books:    books,
		authorID: authorID,
	}
}

type csvRow struct {
	line            int
	Slug            string
	Title           string
	Description     string
	Language        string
	PublicationName string
	Genre           string
	PublishedAt     string
	MRP             string
	Sale            string
	CoverURL        string
}

// Run parses every row and upserts it, stopping at the first invalid row.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["title"]; !ok {
		return 0, errors.New("missing title column")
	}

	imported := 0
	for line := 2; ; line++ {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		row := parseRow(record, index)
		if row == nil {
			continue
		}
		row.line = line
		if err := i.save(ctx, row); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	if row.Title == "" || row.Genre == "" {
		return fmt.Errorf("line %d: title and genre are required", row.line)
	}
	mrp, err := domain.ParseMinor("price.mrp", row.MRP)
	if err != nil {
		return fmt.Errorf("line %d: %w", row.line, err)
	}
	sale, err := domain.ParseMinor("price.sale", row.Sale)
	if err != nil {
		return fmt.Errorf("line %d: %w", row.line, err)
	}
	if sale > mrp {
		return fmt.Errorf("line %d: sale price above mrp", row.line)
	}

	b := domain.Book{
		ID:              uuid.NewString(),
		AuthorID:        i.authorID,
		Title:           row.Title,
		Slug:            row.Slug,
		Description:     row.Description,
		Language:        row.Language,
		PublicationName: row.PublicationName,
		Genre:           row.Genre,
		MRP:             mrp,
		Sale:            sale,
		CoverURL:        row.CoverURL,
	}
	if b.Slug == "" {
		b.Slug = domain.Slugify(row.Title)
	}
	if row.PublishedAt != "" {
		published, err := time.Parse(time.DateOnly, row.PublishedAt)
		if err != nil {
			return fmt.Errorf("line %d: invalid publishedAt %q", row.line, row.PublishedAt)
		}
		b.PublishedAt = published
	}

	if _, err := i.books.Upsert(ctx, b); err != nil {
		return fmt.Errorf("upsert book %q: %w", b.Slug, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) *csvRow {
	row := &csvRow{
		Slug:            pick(record, index, "slug"),
		Title:           pick(record, index, "title"),
		Description:     pick(record, index, "description"),
		Language:        pick(record, index, "language"),
		PublicationName: pick(record, index, "publicationName"),
		Genre:           pick(record, index, "genre"),
		PublishedAt:     pick(record, index, "publishedAt"),
		MRP:             pick(record, index, "price.mrp"),
		Sale:            pick(record, index, "price.sale"),
		CoverURL:        pick(record, index, "cover.url"),
	}
	if row.Title == "" && row.Slug == "" {
		return nil
	}
	return row
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
