package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"

	"ebook-storefront/internal/domain"
)

type Config struct {
	BaseURL    string
	APIKey     string
	Currency   string
	SuccessURL string
	CancelURL  string
	Timeout    time.Duration
}

// Client creates hosted checkout sessions through a Stripe-compatible API.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker[*domain.CheckoutSession]
	cfg     Config
	logger  *log.Logger
}

type sessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey)

	breaker := gobreaker.NewCircuitBreaker[*domain.CheckoutSession](gobreaker.Settings{
		Name:        "payment-provider",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Rejected requests are caller errors and must not open the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, domain.ErrPaymentProviderUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("payment: breaker %s %s -> %s", name, from, to)
		},
	})

	return &Client{http: httpClient, breaker: breaker, cfg: cfg, logger: logger}
}

// CreateCheckoutSession opens a payment session for a pending order. It does
// not retry; transport failures, 5xx and 429 responses and an open breaker
// are reported as domain.ErrPaymentProviderUnavailable.
func (c *Client) CreateCheckoutSession(ctx context.Context, o domain.Order, customerEmail string) (*domain.CheckoutSession, error) {
	form := c.sessionForm(o, customerEmail)
	session, err := c.breaker.Execute(func() (*domain.CheckoutSession, error) {
		return c.createSession(ctx, o.ID, form)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentProviderUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	c.logger.Printf("payment: session created order_id=%s session_id=%s", o.ID, session.ID)
	return session, nil
}

func (c *Client) createSession(ctx context.Context, orderID string, form map[string]string) (*domain.CheckoutSession, error) {
	var out sessionResponse
	var apiErr errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", "checkout-"+orderID).
		SetFormData(form).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/checkout/sessions")
	if err != nil {
		c.logger.Printf("payment: create session order_id=%s error=%v", orderID, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentProviderUnavailable, err)
	}

	status := resp.StatusCode()
	switch {
	case status >= http.StatusInternalServerError || status == http.StatusTooManyRequests:
		c.logger.Printf("payment: create session order_id=%s status=%d", orderID, status)
		return nil, fmt.Errorf("%w: status %d", domain.ErrPaymentProviderUnavailable, status)
	case resp.IsError():
		return nil, fmt.Errorf("payment provider rejected session (status %d): %s", status, apiErr.Error.Message)
	case out.ID == "" || out.URL == "":
		return nil, fmt.Errorf("%w: incomplete session response", domain.ErrPaymentProviderUnavailable)
	}
	return &domain.CheckoutSession{ID: out.ID, URL: out.URL}, nil
}

func (c *Client) sessionForm(o domain.Order, customerEmail string) map[string]string {
	currency := o.Currency
	if currency == "" {
		currency = c.cfg.Currency
	}
	form := map[string]string{
		"mode":                "payment",
		"success_url":         c.cfg.SuccessURL + "?sessionId={CHECKOUT_SESSION_ID}",
		"cancel_url":          c.cfg.CancelURL,
		"client_reference_id": o.ID,
		"metadata[orderId]":   o.ID,
		"metadata[userId]":    o.UserID,
	}
	if customerEmail != "" {
		form["customer_email"] = customerEmail
	}
	for i, it := range o.Items {
		prefix := "line_items[" + strconv.Itoa(i) + "]"
		form[prefix+"[quantity]"] = strconv.Itoa(it.Quantity)
		form[prefix+"[price_data][currency]"] = currency
		form[prefix+"[price_data][unit_amount]"] = strconv.FormatInt(it.UnitPrice, 10)
		form[prefix+"[price_data][product_data][name]"] = it.Title
		form[prefix+"[price_data][product_data][metadata][bookId]"] = it.BookID
		if it.CoverURL != "" {
			form[prefix+"[price_data][product_data][images][0]"] = it.CoverURL
		}
	}
	return form
}
