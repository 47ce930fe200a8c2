package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"ebook-storefront/internal/domain"
)

type entitlementKey struct{ userID, bookID string }

// memoryState is the data behind one memory unit of work. WithinTx works on a
// copy and swaps it in on success, so a failing unit leaves no trace.
type memoryState struct {
	orders       map[string]domain.Order
	entitlements map[entitlementKey]string
	carts        map[string][]domain.CartLine
}

func (s memoryState) clone() memoryState {
	c := memoryState{
		orders:       make(map[string]domain.Order, len(s.orders)),
		entitlements: make(map[entitlementKey]string, len(s.entitlements)),
		carts:        make(map[string][]domain.CartLine, len(s.carts)),
	}
	for k, v := range s.orders {
		v.Items = append([]domain.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	for k, v := range s.entitlements {
		c.entitlements[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = append([]domain.CartLine(nil), v...)
	}
	return c
}

type memoryUnitOfWork struct {
	mu       sync.Mutex
	state    memoryState
	grantErr error
}

func newMemoryUnitOfWork() *memoryUnitOfWork {
	return &memoryUnitOfWork{state: memoryState{
		orders:       map[string]domain.Order{},
		entitlements: map[entitlementKey]string{},
		carts:        map[string][]domain.CartLine{},
	}}
}

func (u *memoryUnitOfWork) WithinTx(_ context.Context, fn func(Stores) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	work := u.state.clone()
	stores := &memoryStores{state: &work, grantErr: u.grantErr}
	if err := fn(Stores{Orders: stores, Entitlements: stores, Carts: stores}); err != nil {
		return err
	}
	u.state = work
	return nil
}

func (u *memoryUnitOfWork) order(t *testing.T, id string) domain.Order {
	t.Helper()
	u.mu.Lock()
	defer u.mu.Unlock()
	o, ok := u.state.orders[id]
	require.True(t, ok, "order %s not stored", id)
	return o
}

func (u *memoryUnitOfWork) entitled(userID, bookID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.state.entitlements[entitlementKey{userID, bookID}]
	return ok
}

func (u *memoryUnitOfWork) cartSize(userID string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.state.carts[userID])
}

func (u *memoryUnitOfWork) orderCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.state.orders)
}

type memoryStores struct {
	state    *memoryState
	grantErr error
}

func (m *memoryStores) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	o.ID = uuid.NewString()
	m.state.orders[o.ID] = o
	return &o, nil
}

func (m *memoryStores) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := m.state.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (m *memoryStores) GetByExternalRef(_ context.Context, ref string) (*domain.Order, error) {
	for _, o := range m.state.orders {
		if o.ExternalRef == ref {
			return &o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memoryStores) SetExternalRef(_ context.Context, id, ref string) error {
	o, ok := m.state.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.ExternalRef != "" && o.ExternalRef != ref {
		return domain.ErrAlreadyExists
	}
	o.ExternalRef = ref
	m.state.orders[id] = o
	return nil
}

func (m *memoryStores) MarkPaid(_ context.Context, id, paymentID string) (*domain.Order, bool, error) {
	return m.transition(id, func(o *domain.Order) {
		o.Status = domain.OrderPaid
		o.PaymentID = paymentID
	})
}

func (m *memoryStores) MarkFailed(_ context.Context, id, reason string) (*domain.Order, bool, error) {
	return m.transition(id, func(o *domain.Order) {
		o.Status = domain.OrderFailed
		o.FailureReason = reason
	})
}

func (m *memoryStores) transition(id string, apply func(*domain.Order)) (*domain.Order, bool, error) {
	o, ok := m.state.orders[id]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	if o.Status != domain.OrderPending {
		return &o, false, nil
	}
	apply(&o)
	m.state.orders[id] = o
	return &o, true, nil
}

func (m *memoryStores) ListPaidMissingEntitlements(_ context.Context, limit int) ([]string, error) {
	var ids []string
	for _, o := range m.state.orders {
		if o.Status != domain.OrderPaid {
			continue
		}
		for _, it := range o.Items {
			if _, ok := m.state.entitlements[entitlementKey{o.UserID, it.BookID}]; !ok {
				ids = append(ids, o.ID)
				break
			}
		}
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (m *memoryStores) GrantOrder(_ context.Context, o domain.Order) (int, error) {
	if m.grantErr != nil {
		return 0, m.grantErr
	}
	granted := 0
	for _, bookID := range o.BookIDs() {
		key := entitlementKey{o.UserID, bookID}
		if _, ok := m.state.entitlements[key]; ok {
			continue
		}
		m.state.entitlements[key] = o.ID
		granted++
	}
	return granted, nil
}

func (m *memoryStores) Get(_ context.Context, userID string) (*domain.Cart, error) {
	lines, ok := m.state.carts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Cart{ID: "cart-" + userID, UserID: userID, Lines: lines}, nil
}

func (m *memoryStores) Clear(_ context.Context, userID string) error {
	delete(m.state.carts, userID)
	return nil
}

type stubGateway struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, o domain.Order, _ string) (*domain.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	id := fmt.Sprintf("cs_test_%d", g.calls)
	return &domain.CheckoutSession{ID: id, URL: "https://pay.example/" + id}, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	paid []string
}

func (n *recordingNotifier) PublishOrderPaid(_ context.Context, o domain.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paid = append(n.paid, o.ID)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.paid)
}

type fixture struct {
	uow      *memoryUnitOfWork
	gateway  *stubGateway
	notifier *recordingNotifier
	engine   *Engine
	userID   string
	bookID   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		uow:      newMemoryUnitOfWork(),
		gateway:  &stubGateway{},
		notifier: &recordingNotifier{},
		userID:   uuid.NewString(),
		bookID:   uuid.NewString(),
	}
	f.engine = New(f.uow, f.gateway, f.notifier, "usd", nil)
	f.uow.state.carts[f.userID] = []domain.CartLine{
		{BookID: f.bookID, Title: "Dune", Slug: "dune", MRP: 1999, Sale: 999, Quantity: 1},
	}
	return f
}

func (f *fixture) checkout(t *testing.T) *Checkout {
	t.Helper()
	c, err := f.engine.InitiateCheckout(context.Background(), f.userID, "reader@example.com")
	require.NoError(t, err)
	return c
}

func paidEvent(ref string) domain.PaymentEvent {
	return domain.PaymentEvent{
		ID:          "evt_" + ref,
		Type:        "checkout.session.completed",
		ExternalRef: ref,
		PaymentID:   "pi_" + ref,
		Outcome:     domain.PaymentSucceeded,
	}
}

func failedEvent(ref string) domain.PaymentEvent {
	return domain.PaymentEvent{
		ID:          "evt_failed_" + ref,
		Type:        "checkout.session.expired",
		ExternalRef: ref,
		Outcome:     domain.PaymentFailed,
		Reason:      "expired",
	}
}

func TestCheckoutThenPaidWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.checkout(t)
	require.Equal(t, "cs_test_1", c.SessionID)

	o := f.uow.order(t, c.OrderID)
	require.Equal(t, domain.OrderPending, o.Status)
	require.Equal(t, int64(999), o.Total)
	require.Equal(t, c.SessionID, o.ExternalRef)
	require.False(t, f.uow.entitled(f.userID, f.bookID), "checkout must not grant")

	res, err := f.engine.Reconcile(ctx, paidEvent(c.SessionID))
	require.NoError(t, err)
	require.True(t, res.Transitioned)
	require.Equal(t, domain.OrderPaid, res.Status)
	require.Equal(t, 1, res.Granted)

	o = f.uow.order(t, c.OrderID)
	require.Equal(t, domain.OrderPaid, o.Status)
	require.Equal(t, "pi_"+c.SessionID, o.PaymentID)
	require.True(t, f.uow.entitled(f.userID, f.bookID))
	require.Zero(t, f.uow.cartSize(f.userID))
	require.Equal(t, 1, f.notifier.count())
}

func TestReconcile_ReplayIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.checkout(t)

	_, err := f.engine.Reconcile(ctx, paidEvent(c.SessionID))
	require.NoError(t, err)

	before := f.uow.order(t, c.OrderID)
	res, err := f.engine.Reconcile(ctx, paidEvent(c.SessionID))
	require.NoError(t, err)
	require.False(t, res.Transitioned)
	require.True(t, res.Duplicate)
	require.Zero(t, res.Granted)
	require.Equal(t, before, f.uow.order(t, c.OrderID))
	require.Equal(t, 1, f.notifier.count())
}

func TestReconcile_PaidIsNeverDowngraded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.checkout(t)

	_, err := f.engine.Reconcile(ctx, paidEvent(c.SessionID))
	require.NoError(t, err)

	res, err := f.engine.Reconcile(ctx, failedEvent(c.SessionID))
	require.NoError(t, err)
	require.False(t, res.Transitioned)
	require.Equal(t, domain.OrderPaid, f.uow.order(t, c.OrderID).Status)
	require.True(t, f.uow.entitled(f.userID, f.bookID))
}

func TestReconcile_FailedPaymentKeepsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.checkout(t)

	res, err := f.engine.Reconcile(ctx, failedEvent(c.SessionID))
	require.NoError(t, err)
	require.True(t, res.Transitioned)

	o := f.uow.order(t, c.OrderID)
	require.Equal(t, domain.OrderFailed, o.Status)
	require.Equal(t, "expired", o.FailureReason)
	require.Equal(t, 1, f.uow.cartSize(f.userID))
	require.False(t, f.uow.entitled(f.userID, f.bookID))

	res, err = f.engine.Reconcile(ctx, paidEvent(c.SessionID))
	require.NoError(t, err)
	require.False(t, res.Transitioned)
	require.Equal(t, domain.OrderFailed, f.uow.order(t, c.OrderID).Status)
	require.False(t, f.uow.entitled(f.userID, f.bookID))
	require.Zero(t, f.notifier.count())
}

func TestReconcile_HealsMissingEntitlements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.checkout(t)

	_, err := f.engine.Reconcile(ctx, paidEvent(c.SessionID))
	require.NoError(t, err)

	f.uow.mu.Lock()
	delete(f.uow.state.entitlements, entitlementKey{f.userID, f.bookID})
	f.uow.mu.Unlock()

	res, err := f.engine.Reconcile(ctx, paidEvent(c.SessionID))
	require.NoError(t, err)
	require.True(t, res.Duplicate)
	require.Equal(t, 1, res.Granted)
	require.True(t, f.uow.entitled(f.userID, f.bookID))
}

func TestReconcile_SettlementIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.checkout(t)

	boom := errors.New("grant failed")
	f.uow.grantErr = boom
	_, err := f.engine.Reconcile(ctx, paidEvent(c.SessionID))
	require.ErrorIs(t, err, boom)

	require.Equal(t, domain.OrderPending, f.uow.order(t, c.OrderID).Status)
	require.Equal(t, 1, f.uow.cartSize(f.userID))
	require.Zero(t, f.notifier.count())

	f.uow.grantErr = nil
	res, err := f.engine.Reconcile(ctx, paidEvent(c.SessionID))
	require.NoError(t, err)
	require.True(t, res.Transitioned)
	require.True(t, f.uow.entitled(f.userID, f.bookID))
}

func TestReconcile_ConcurrentDeliveriesSettleOnce(t *testing.T) {
	f := newFixture(t)
	c := f.checkout(t)

	const deliveries = 10
	var wg sync.WaitGroup
	results := make([]*Result, deliveries)
	errs := make([]error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.engine.Reconcile(context.Background(), paidEvent(c.SessionID))
		}(i)
	}
	wg.Wait()

	transitions := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].Transitioned {
			transitions++
		}
	}
	require.Equal(t, 1, transitions)
	require.Equal(t, 1, f.notifier.count())
}

func TestReconcile_MetadataFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// An order whose session reference was never stored.
	c := f.checkout(t)
	f.uow.mu.Lock()
	o := f.uow.state.orders[c.OrderID]
	o.ExternalRef = ""
	f.uow.state.orders[c.OrderID] = o
	f.uow.mu.Unlock()

	ev := paidEvent("cs_recovered")
	ev.OrderID = c.OrderID
	res, err := f.engine.Reconcile(ctx, ev)
	require.NoError(t, err)
	require.True(t, res.Transitioned)
	require.Equal(t, "cs_recovered", f.uow.order(t, c.OrderID).ExternalRef)
}

func TestReconcile_UnknownOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.checkout(t)

	cases := map[string]domain.PaymentEvent{
		"unknown ref":      paidEvent("cs_nope"),
		"bad metadata id":  func() domain.PaymentEvent { e := paidEvent("cs_nope"); e.OrderID = "x"; return e }(),
		"missing order id": func() domain.PaymentEvent { e := paidEvent("cs_nope"); e.OrderID = uuid.NewString(); return e }(),
		"conflicting ref":  func() domain.PaymentEvent { e := paidEvent("cs_other"); e.OrderID = c.OrderID; return e }(),
	}
	for name, ev := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.engine.Reconcile(ctx, ev)
			require.ErrorIs(t, err, domain.ErrUnknownOrder)
		})
	}
	require.Equal(t, domain.OrderPending, f.uow.order(t, c.OrderID).Status)
}

func TestReconcile_IgnoresNonSettlingEvents(t *testing.T) {
	f := newFixture(t)
	c := f.checkout(t)

	res, err := f.engine.Reconcile(context.Background(), domain.PaymentEvent{
		ID:          "evt_1",
		Type:        "checkout.session.completed",
		ExternalRef: c.SessionID,
	})
	require.NoError(t, err)
	require.Empty(t, res.OrderID)
	require.Equal(t, domain.OrderPending, f.uow.order(t, c.OrderID).Status)
}

func TestInitiateCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)
	delete(f.uow.state.carts, f.userID)

	_, err := f.engine.InitiateCheckout(context.Background(), f.userID, "reader@example.com")
	require.ErrorIs(t, err, domain.ErrEmptyCart)
	require.Zero(t, f.uow.orderCount())
	require.Zero(t, f.gateway.calls)
}

func TestInitiateCheckout_ProviderUnavailable(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = fmt.Errorf("%w: status 503", domain.ErrPaymentProviderUnavailable)

	_, err := f.engine.InitiateCheckout(context.Background(), f.userID, "reader@example.com")
	require.ErrorIs(t, err, domain.ErrPaymentProviderUnavailable)

	require.Equal(t, 1, f.uow.orderCount())
	for _, o := range f.uow.state.orders {
		require.Equal(t, domain.OrderPending, o.Status)
		require.Empty(t, o.ExternalRef)
	}
	require.Equal(t, 1, f.uow.cartSize(f.userID))
}

func TestRepair_GrantsMissingEntitlements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.checkout(t)

	_, err := f.engine.Reconcile(ctx, paidEvent(c.SessionID))
	require.NoError(t, err)

	report, err := f.engine.Repair(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, report.Orders)

	f.uow.mu.Lock()
	delete(f.uow.state.entitlements, entitlementKey{f.userID, f.bookID})
	f.uow.mu.Unlock()

	report, err = f.engine.Repair(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, report.Orders)
	require.Equal(t, 1, report.Granted)
	require.True(t, f.uow.entitled(f.userID, f.bookID))
}
