package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/jackc/pgx/v5"

	"ebook-storefront/internal/config"
	"ebook-storefront/internal/db"
	"ebook-storefront/internal/migrate"
	"ebook-storefront/internal/seed"
)

func main() {
	withMigrate := flag.Bool("migrate", false, "apply migrations before seeding")
	flag.Parse()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	ctx := context.Background()

	if *withMigrate {
		if err := migrate.Apply(ctx, cfg.DBConnString, logger); err != nil {
			logger.Fatalf("apply migrations: %v", err)
		}
	}

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	// All or nothing.
	err = db.InTx(ctx, pool, func(tx pgx.Tx) error {
		return seed.Apply(ctx, tx)
	})
	if err != nil {
		logger.Fatalf("seed apply: %v", err)
	}
	logger.Println("demo author and books seeded")
}
