package main

import (
	"context"
	"flag"
	"log"
	"os"

	"ebook-storefront/internal/config"
	"ebook-storefront/internal/migrate"
)

func main() {
	down := flag.Bool("down", false, "roll back instead of applying")
	steps := flag.Int("steps", 1, "migrations to roll back with -down; 0 rolls back all")
	flag.Parse()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[migrate] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	ctx := context.Background()

	if *down {
		if err := migrate.Rollback(ctx, cfg.DBConnString, *steps, logger); err != nil {
			logger.Fatalf("roll back migrations: %v", err)
		}
		logger.Println("migrations rolled back")
		return
	}

	if err := migrate.Apply(ctx, cfg.DBConnString, logger); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}
	logger.Println("migrations applied")
}
