package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"ebook-storefront/internal/domain"
	authsvc "ebook-storefront/internal/service/auth"
	authorsvc "ebook-storefront/internal/service/author"
	booksvc "ebook-storefront/internal/service/book"
	cartsvc "ebook-storefront/internal/service/cart"
	"ebook-storefront/internal/service/fulfillment"
	historysvc "ebook-storefront/internal/service/history"
	reviewsvc "ebook-storefront/internal/service/review"
)

type authService interface {
	GenerateLink(ctx context.Context, email string) error
	Verify(ctx context.Context, userID, token string) (*domain.User, string, error)
	Authenticate(ctx context.Context, session string) (*domain.User, error)
	UpdateProfile(ctx context.Context, user domain.User, in authsvc.UpdateProfileInput) (*domain.User, error)
	SessionTTL() time.Duration
}

type authorService interface {
	Register(ctx context.Context, user domain.User, in authorsvc.Input) (*domain.Author, error)
	Update(ctx context.Context, user domain.User, in authorsvc.Input) (*domain.Author, error)
	Details(ctx context.Context, id string) (*domain.Author, []domain.Book, error)
}

type bookService interface {
	Create(ctx context.Context, user domain.User, in booksvc.Input) (*booksvc.Saved, error)
	Update(ctx context.Context, user domain.User, slug string, in booksvc.Input) (*booksvc.Saved, error)
	Details(ctx context.Context, slug string) (*domain.Book, error)
	ByGenre(ctx context.Context, genre string, limit int) ([]domain.Book, error)
	Purchased(ctx context.Context, userID string) ([]domain.Book, error)
	ReadURL(ctx context.Context, userID, slug string) (string, error)
}

type cartService interface {
	Update(ctx context.Context, userID string, in cartsvc.UpdateInput) (*domain.Cart, error)
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) error
}

type checkoutService interface {
	InitiateCheckout(ctx context.Context, userID, email string) (*fulfillment.Checkout, error)
	Reconcile(ctx context.Context, ev domain.PaymentEvent) (*fulfillment.Result, error)
}

type orderService interface {
	List(ctx context.Context, userID string) ([]domain.Order, error)
	Success(ctx context.Context, userID, sessionID string) (*domain.Order, error)
	HasPurchased(ctx context.Context, userID, bookID string) (bool, error)
}

type historyService interface {
	Update(ctx context.Context, readerID string, in historysvc.UpdateInput) (*domain.History, error)
	Get(ctx context.Context, readerID, bookID string) (*domain.History, error)
}

type reviewService interface {
	Upsert(ctx context.Context, userID string, in reviewsvc.Input) (*domain.Review, error)
	Get(ctx context.Context, userID, bookID string) (*domain.Review, error)
	List(ctx context.Context, bookID string) ([]domain.Review, error)
}

type webhookVerifier interface {
	Verify(payload []byte, header string) error
}

// Deps are the services behind the API routes.
type Deps struct {
	AuthSvc     authService
	AuthorSvc   authorService
	BookSvc     bookService
	CartSvc     cartService
	CheckoutSvc checkoutService
	OrderSvc    orderService
	HistorySvc  historyService
	ReviewSvc   reviewService
	Webhooks    webhookVerifier
}

type Options struct {
	ServiceName    string
	CORSOrigins    []string
	AuthSuccessURL string
	SecureCookies  bool
	ReadyChecks    []ReadyCheck
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps, opts Options) (*gin.Engine, error) {
	if deps.AuthSvc == nil || deps.CartSvc == nil || deps.CheckoutSvc == nil || deps.Webhooks == nil {
		return nil, errors.New("httpserver: auth, cart, checkout and webhook dependencies are required")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if opts.ServiceName != "" {
		router.Use(otelgin.Middleware(opts.ServiceName))
	}
	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(logger, append([]ReadyCheck{dbCheck(db)}, opts.ReadyChecks...)))

	h := &handlers{deps: deps, opts: opts, logger: logger}
	isAuth := authMiddleware(deps.AuthSvc)
	isAuthor := authorMiddleware()

	auth := router.Group("/auth")
	auth.POST("/generate-link", h.generateLink)
	auth.GET("/verify", h.verify)
	auth.GET("/profile", isAuth, h.profile)
	auth.PUT("/profile", isAuth, h.updateProfile)
	auth.POST("/logout", isAuth, h.logout)

	if deps.AuthorSvc != nil {
		author := router.Group("/author")
		author.POST("/register", isAuth, h.registerAuthor)
		author.PATCH("", isAuth, isAuthor, h.updateAuthor)
		author.GET("/:id", h.authorDetails)
	}

	if deps.BookSvc != nil {
		book := router.Group("/book")
		book.POST("/create", isAuth, isAuthor, h.createBook)
		book.PATCH("", isAuth, isAuthor, h.updateBook)
		book.GET("/details/:slug", h.bookDetails)
		book.GET("/by-genre/:genre", h.booksByGenre)
		book.GET("/list", isAuth, h.purchasedBooks)
		book.GET("/read/:slug", isAuth, h.readBook)
	}

	cart := router.Group("/cart", isAuth)
	cart.POST("", h.updateCart)
	cart.GET("", h.getCart)
	cart.POST("/clear", h.clearCart)

	router.POST("/checkout", isAuth, h.checkout)
	router.POST("/checkout/webhook", h.paymentWebhook)

	if deps.OrderSvc != nil {
		orders := router.Group("/orders", isAuth)
		orders.GET("", h.listOrders)
		orders.POST("/success", h.orderSuccess)
		orders.GET("/check-status/:bookId", h.checkPurchase)
	}

	if deps.HistorySvc != nil {
		history := router.Group("/history", isAuth)
		history.POST("", h.updateHistory)
		history.GET("/:bookId", h.getHistory)
	}

	if deps.ReviewSvc != nil {
		review := router.Group("/review")
		review.POST("", isAuth, h.upsertReview)
		review.GET("/:bookId", isAuth, h.getReview)
		review.GET("/list/:bookId", h.listReviews)
	}

	return router, nil
}

type handlers struct {
	deps   Deps
	opts   Options
	logger *log.Logger
}
