package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"ebook-storefront/internal/config"
	"ebook-storefront/internal/db"
	"ebook-storefront/internal/importer"
	"ebook-storefront/internal/repository/author"
	"ebook-storefront/internal/repository/book"
)

func main() {
	var (
		filePath string
		authorID string
	)
	flag.StringVar(&filePath, "file", "", "Path to the book catalogue CSV")
	flag.StringVar(&authorID, "author", "", "Author id the books belong to")
	flag.Parse()

	if filePath == "" || authorID == "" {
		flag.Usage()
		os.Exit(2)
	}
	if _, err := uuid.Parse(authorID); err != nil {
		log.Fatalf("invalid author id %q", authorID)
	}

	cfg := config.FromEnv()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if _, err := author.NewPostgres(pool, nil).GetByID(ctx, authorID); err != nil {
		log.Fatalf("load author %s: %v", authorID, err)
	}

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("open file: %v", err)
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, book.NewPostgres(pool, nil), authorID)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	fmt.Printf("Imported %d books for author %s in %s\n", count, authorID, time.Since(start).Truncate(time.Millisecond))
}
