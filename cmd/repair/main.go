package main

import (
	"context"
	"flag"
	"log"
	"os"

	"ebook-storefront/internal/config"
	"ebook-storefront/internal/db"
	"ebook-storefront/internal/service/fulfillment"
)

func main() {
	limit := flag.Int("limit", 500, "maximum number of orders to repair")
	flag.Parse()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[repair] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	// Repair never opens payment sessions or publishes, so both are nil.
	engine := fulfillment.New(fulfillment.NewPostgresUnitOfWork(dbpool, logger), nil, nil, cfg.PaymentCurrency, logger)
	report, err := engine.Repair(ctx, *limit)
	if err != nil {
		logger.Fatalf("repair: %v", err)
	}
	logger.Printf("repair finished orders=%d granted=%d", report.Orders, report.Granted)
}
