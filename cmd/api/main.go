package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"ebook-storefront/internal/blob"
	"ebook-storefront/internal/config"
	"ebook-storefront/internal/db"
	"ebook-storefront/internal/events"
	"ebook-storefront/internal/httpserver"
	"ebook-storefront/internal/payment"
	authorrepo "ebook-storefront/internal/repository/author"
	bookrepo "ebook-storefront/internal/repository/book"
	cartrepo "ebook-storefront/internal/repository/cart"
	entitlementrepo "ebook-storefront/internal/repository/entitlement"
	historyrepo "ebook-storefront/internal/repository/history"
	orderrepo "ebook-storefront/internal/repository/order"
	reviewrepo "ebook-storefront/internal/repository/review"
	tokenrepo "ebook-storefront/internal/repository/token"
	userrepo "ebook-storefront/internal/repository/user"
	authsvc "ebook-storefront/internal/service/auth"
	authorsvc "ebook-storefront/internal/service/author"
	booksvc "ebook-storefront/internal/service/book"
	cartsvc "ebook-storefront/internal/service/cart"
	"ebook-storefront/internal/service/fulfillment"
	historysvc "ebook-storefront/internal/service/history"
	ordersvc "ebook-storefront/internal/service/order"
	reviewsvc "ebook-storefront/internal/service/review"
	"ebook-storefront/internal/telemetry"
)

// notifier is what the api needs from the events publisher.
type notifier interface {
	authsvc.Mailer
	fulfillment.Notifier
}

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	if cfg.JWTSecret == "" {
		logger.Fatalf("JWT_SECRET is required")
	}
	if cfg.PaymentWebhookSecret == "" {
		logger.Printf("PAYMENT_WEBHOOK_SECRET is empty, every webhook will be rejected")
	}

	ctx := context.Background()

	tp, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatalf("init tracer: %v", err)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatalf("connect to redis: %v", err)
	}
	defer rdb.Close()

	var publisher notifier = events.NewLogPublisher(logger)
	if cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			logger.Fatalf("connect to rabbitmq: %v", err)
		}
		defer conn.Close()
		p, err := events.NewPublisher(conn)
		if err != nil {
			logger.Fatalf("init publisher: %v", err)
		}
		defer p.Close()
		publisher = p
	} else {
		logger.Printf("RABBITMQ_URL is empty, notifications are only logged")
	}

	s3Client, err := blob.NewClient(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
	if err != nil {
		logger.Fatalf("init s3 client: %v", err)
	}
	objects := blob.New(s3Client, blob.Options{
		Region:        cfg.AWSRegion,
		PublicBucket:  cfg.PublicBucket,
		PrivateBucket: cfg.PrivateBucket,
		PublicHost:    cfg.PublicAssetsHost,
		URLTTL:        cfg.SignedURLTTL,
	}, logger)

	userRepo := userrepo.NewPostgres(dbpool, logger)
	authorRepo := authorrepo.NewPostgres(dbpool, logger)
	bookRepo := bookrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	entitlementRepo := entitlementrepo.NewPostgres(dbpool, logger)
	historyRepo := historyrepo.NewPostgres(dbpool, logger)
	reviewRepo := reviewrepo.NewPostgres(dbpool, logger)
	tokenRepo := tokenrepo.NewRedis(rdb)

	authService := authsvc.New(userRepo, tokenRepo, publisher, objects, authsvc.Options{
		JWTSecret:        cfg.JWTSecret,
		SessionTTL:       cfg.SessionTTL,
		VerificationTTL:  cfg.VerificationTTL,
		VerificationLink: cfg.VerificationLink,
	}, logger)

	paymentClient := payment.NewClient(payment.Config{
		BaseURL:    cfg.PaymentAPIBase,
		APIKey:     cfg.PaymentAPIKey,
		Currency:   cfg.PaymentCurrency,
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
		Timeout:    cfg.PaymentTimeout,
	}, logger)
	engine := fulfillment.New(
		fulfillment.NewPostgresUnitOfWork(dbpool, logger),
		paymentClient,
		publisher,
		cfg.PaymentCurrency,
		logger,
	)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		AuthSvc:     authService,
		AuthorSvc:   authorsvc.New(authorRepo, bookRepo, logger),
		BookSvc:     booksvc.New(bookRepo, entitlementRepo, objects, logger),
		CartSvc:     cartsvc.New(cartRepo),
		CheckoutSvc: engine,
		OrderSvc:    ordersvc.New(orderRepo, entitlementRepo),
		HistorySvc:  historysvc.New(historyRepo, entitlementRepo),
		ReviewSvc:   reviewsvc.New(reviewRepo, entitlementRepo),
		Webhooks:    payment.NewVerifier(cfg.PaymentWebhookSecret, cfg.WebhookTolerance),
	}, httpserver.Options{
		ServiceName:    cfg.ServiceName,
		CORSOrigins:    splitList(cfg.CORSOrigin),
		AuthSuccessURL: cfg.AuthSuccessURL,
		SecureCookies:  strings.HasPrefix(cfg.AuthSuccessURL, "https://"),
		ReadyChecks: []httpserver.ReadyCheck{{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}},
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
