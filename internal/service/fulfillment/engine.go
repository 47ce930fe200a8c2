package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ebook-storefront/internal/domain"
)

type OrderStore interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByExternalRef(ctx context.Context, ref string) (*domain.Order, error)
	SetExternalRef(ctx context.Context, id, ref string) error
	MarkPaid(ctx context.Context, id, paymentID string) (*domain.Order, bool, error)
	MarkFailed(ctx context.Context, id, reason string) (*domain.Order, bool, error)
	ListPaidMissingEntitlements(ctx context.Context, limit int) ([]string, error)
}

type EntitlementStore interface {
	GrantOrder(ctx context.Context, o domain.Order) (int, error)
}

type CartStore interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// Stores are the repositories bound to one unit of work.
type Stores struct {
	Orders       OrderStore
	Entitlements EntitlementStore
	Carts        CartStore
}

// UnitOfWork runs fn with stores that commit or roll back together.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(Stores) error) error
}

// Gateway opens a hosted payment session for an order.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, o domain.Order, customerEmail string) (*domain.CheckoutSession, error)
}

// Notifier announces settled orders.
type Notifier interface {
	PublishOrderPaid(ctx context.Context, o domain.Order) error
}

// Engine turns carts into orders and settles them from payment events.
type Engine struct {
	uow      UnitOfWork
	gateway  Gateway
	notifier Notifier
	currency string
	logger   *log.Logger
	tracer   trace.Tracer
}

func New(uow UnitOfWork, gateway Gateway, notifier Notifier, currency string, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if currency == "" {
		currency = "usd"
	}
	return &Engine{
		uow:      uow,
		gateway:  gateway,
		notifier: notifier,
		currency: currency,
		logger:   logger,
		tracer:   otel.Tracer("ebook-storefront/fulfillment"),
	}
}

// Checkout is the result of starting a payment.
type Checkout struct {
	OrderID   string
	SessionID string
	URL       string
}

// InitiateCheckout snapshots the user's cart into a pending order and opens a
// payment session for it. Nothing is granted here.
func (e *Engine) InitiateCheckout(ctx context.Context, userID, email string) (*Checkout, error) {
	ctx, span := e.tracer.Start(ctx, "fulfillment.InitiateCheckout",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	var order *domain.Order
	err := e.uow.WithinTx(ctx, func(s Stores) error {
		cart, err := s.Carts.Get(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrEmptyCart
			}
			return err
		}
		draft, err := domain.NewOrder(userID, e.currency, cart.Lines)
		if err != nil {
			return err
		}
		order, err = s.Orders.Create(ctx, draft)
		return err
	})
	if err != nil {
		return nil, e.fail(span, err)
	}
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.Int64("order.total", order.Total))

	// A failed provider call leaves the order pending without a reference.
	session, err := e.gateway.CreateCheckoutSession(ctx, *order, email)
	if err != nil {
		e.logger.Printf("fulfillment: checkout session order_id=%s error=%v", order.ID, err)
		return nil, e.fail(span, err)
	}

	err = e.uow.WithinTx(ctx, func(s Stores) error {
		return s.Orders.SetExternalRef(ctx, order.ID, session.ID)
	})
	if err != nil {
		return nil, e.fail(span, fmt.Errorf("attach session: %w", err))
	}

	e.logger.Printf("fulfillment: checkout started order_id=%s session_id=%s total=%d", order.ID, session.ID, order.Total)
	return &Checkout{OrderID: order.ID, SessionID: session.ID, URL: session.URL}, nil
}

// Result describes what a reconcile did.
type Result struct {
	OrderID      string
	Status       domain.OrderStatus
	Transitioned bool
	// Duplicate is set when the order was already terminal.
	Duplicate bool
	// Granted counts entitlements newly stored by this call.
	Granted int
}

// Reconcile applies a payment event to its order. Replays of an event, and
// events for an order that already settled, never change the order. A paid
// order still gets any missing entitlements re-derived from its items.
func (e *Engine) Reconcile(ctx context.Context, ev domain.PaymentEvent) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "fulfillment.Reconcile", trace.WithAttributes(
		attribute.String("payment.event_id", ev.ID),
		attribute.String("payment.event_type", ev.Type),
		attribute.String("payment.outcome", string(ev.Outcome)),
	))
	defer span.End()

	if !ev.Actionable() {
		return &Result{}, nil
	}

	res := &Result{}
	var paid *domain.Order
	err := e.uow.WithinTx(ctx, func(s Stores) error {
		o, err := resolveOrder(ctx, s.Orders, ev)
		if err != nil {
			return err
		}
		res.OrderID = o.ID

		if o.Status.IsTerminal() {
			return settleTerminal(ctx, s, o, res)
		}

		switch ev.Outcome {
		case domain.PaymentSucceeded:
			updated, transitioned, err := s.Orders.MarkPaid(ctx, o.ID, ev.PaymentID)
			if err != nil {
				return err
			}
			if !transitioned {
				return settleTerminal(ctx, s, updated, res)
			}
			granted, err := s.Entitlements.GrantOrder(ctx, *updated)
			if err != nil {
				return fmt.Errorf("grant entitlements: %w", err)
			}
			if err := s.Carts.Clear(ctx, updated.UserID); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
			res.Status, res.Transitioned, res.Granted = updated.Status, true, granted
			paid = updated
		case domain.PaymentFailed:
			updated, transitioned, err := s.Orders.MarkFailed(ctx, o.ID, ev.Reason)
			if err != nil {
				return err
			}
			if !transitioned {
				return settleTerminal(ctx, s, updated, res)
			}
			res.Status, res.Transitioned = updated.Status, true
		}
		return nil
	})
	if err != nil {
		return nil, e.fail(span, err)
	}

	span.SetAttributes(
		attribute.String("order.id", res.OrderID),
		attribute.String("order.status", string(res.Status)),
		attribute.Bool("order.transitioned", res.Transitioned),
		attribute.Int("entitlements.granted", res.Granted),
	)
	e.logger.Printf("fulfillment: reconcile event_id=%s order_id=%s status=%s transitioned=%t duplicate=%t granted=%d",
		ev.ID, res.OrderID, res.Status, res.Transitioned, res.Duplicate, res.Granted)

	if paid != nil && e.notifier != nil {
		if err := e.notifier.PublishOrderPaid(ctx, *paid); err != nil {
			e.logger.Printf("fulfillment: publish order paid order_id=%s error=%v", paid.ID, err)
		}
	}
	return res, nil
}

// RepairReport summarises a repair pass.
type RepairReport struct {
	Orders  int
	Granted int
}

// Repair re-grants entitlements for paid orders whose buyer is missing one
// of the order's books.
func (e *Engine) Repair(ctx context.Context, limit int) (*RepairReport, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []string
	err := e.uow.WithinTx(ctx, func(s Stores) error {
		var err error
		ids, err = s.Orders.ListPaidMissingEntitlements(ctx, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := &RepairReport{}
	for _, id := range ids {
		var granted int
		err := e.uow.WithinTx(ctx, func(s Stores) error {
			o, err := s.Orders.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if o.Status != domain.OrderPaid {
				return nil
			}
			granted, err = s.Entitlements.GrantOrder(ctx, *o)
			return err
		})
		if err != nil {
			return report, fmt.Errorf("repair order %s: %w", id, err)
		}
		report.Orders++
		report.Granted += granted
		e.logger.Printf("fulfillment: repair order_id=%s granted=%d", id, granted)
	}
	return report, nil
}

// resolveOrder finds the order an event refers to, by provider reference
// first and by the order id carried in the session metadata second.
func resolveOrder(ctx context.Context, orders OrderStore, ev domain.PaymentEvent) (*domain.Order, error) {
	if ev.ExternalRef != "" {
		o, err := orders.GetByExternalRef(ctx, ev.ExternalRef)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	if ev.OrderID == "" {
		return nil, domain.ErrUnknownOrder
	}
	if _, err := uuid.Parse(ev.OrderID); err != nil {
		return nil, domain.ErrUnknownOrder
	}
	o, err := orders.GetByID(ctx, ev.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnknownOrder
		}
		return nil, err
	}
	if o.ExternalRef != "" && ev.ExternalRef != "" && o.ExternalRef != ev.ExternalRef {
		return nil, domain.ErrUnknownOrder
	}
	if o.ExternalRef == "" && ev.ExternalRef != "" {
		if err := orders.SetExternalRef(ctx, o.ID, ev.ExternalRef); err != nil {
			return nil, fmt.Errorf("attach session: %w", err)
		}
		o.ExternalRef = ev.ExternalRef
	}
	return o, nil
}

func settleTerminal(ctx context.Context, s Stores, o *domain.Order, res *Result) error {
	res.Status, res.Duplicate = o.Status, true
	if o.Status != domain.OrderPaid {
		return nil
	}
	granted, err := s.Entitlements.GrantOrder(ctx, *o)
	if err != nil {
		return fmt.Errorf("grant entitlements: %w", err)
	}
	res.Granted = granted
	return nil
}

func (e *Engine) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
