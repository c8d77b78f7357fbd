package payment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martynasv/shopcore/internal/order"
	"github.com/martynasv/shopcore/internal/payment"
	"github.com/martynasv/shopcore/internal/store"
)

type stubNotifier struct {
	mu      sync.Mutex
	created []string
}

func (n *stubNotifier) OrderCreated(ctx context.Context, o *order.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, o.Number)
	return nil
}

func (n *stubNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.created)
}

func openSession(t *testing.T, mem *store.Memory, o *order.Order, amountCents int64) *payment.Session {
	t.Helper()
	mgr := payment.NewManager(mem.Sessions(), mem.Orders(), "http://pay.local/checkout", "testshop", 15*time.Minute)
	s, _, err := mgr.Open(context.Background(), payment.OpenParams{
		OrderID:     o.ID,
		AmountCents: amountCents,
		Currency:    "EUR",
		SuccessURL:  "http://shop.local/ok",
		CancelURL:   "http://shop.local/no",
	})
	require.NoError(t, err)
	return s
}

func newResolver(mem *store.Memory, n payment.Notifier) *payment.Resolver {
	return payment.NewResolver(mem.Sessions(), mem.Orders(), mem, n, "http://shop.local/default-ok", "http://shop.local/default-no")
}

func TestDecide_SuccessReservesStockAndSettles(t *testing.T) {
	mem := store.NewMemory()
	seedItem(t, mem, "X1", "10.00", 5)
	o := seedOrder(t, mem, "30.00", order.Line{ManufacturingID: "X1", Quantity: 3, UnitPrice: "10.00"})
	s := openSession(t, mem, o, 3000)

	n := &stubNotifier{}
	res := newResolver(mem, n)

	d, err := res.Decide(context.Background(), s.ID, "success")
	require.NoError(t, err)
	assert.Equal(t, "http://shop.local/ok", d.RedirectURL)
	assert.Equal(t, order.StatusCreated, d.Order.Status)

	assert.Equal(t, 2, mem.Stock("X1"))
	got, err := mem.Orders().GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCreated, got.Status)
	sess, err := mem.Sessions().Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.SessionSucceeded, sess.Status)
	assert.Equal(t, 1, n.count())
}

func TestDecide_SuccessIsIdempotent(t *testing.T) {
	mem := store.NewMemory()
	seedItem(t, mem, "X1", "10.00", 5)
	o := seedOrder(t, mem, "30.00", order.Line{ManufacturingID: "X1", Quantity: 3, UnitPrice: "10.00"})
	s := openSession(t, mem, o, 3000)

	n := &stubNotifier{}
	res := newResolver(mem, n)
	ctx := context.Background()

	_, err := res.Decide(ctx, s.ID, "success")
	require.NoError(t, err)
	stockAfterFirst := mem.Stock("X1")

	d, err := res.Decide(ctx, s.ID, "success")
	require.NoError(t, err)
	assert.Equal(t, "http://shop.local/ok", d.RedirectURL)

	assert.Equal(t, stockAfterFirst, mem.Stock("X1"), "second decision must not decrement again")
	got, err := mem.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCreated, got.Status)
	assert.Equal(t, 1, n.count(), "notification must not be re-fired on replay")
}

func TestDecide_NoPartialReservation(t *testing.T) {
	mem := store.NewMemory()
	seedItem(t, mem, "A", "5.00", 10)
	seedItem(t, mem, "B", "5.00", 1)
	o := seedOrder(t, mem, "20.00",
		order.Line{ManufacturingID: "A", Quantity: 2, UnitPrice: "5.00"},
		order.Line{ManufacturingID: "B", Quantity: 2, UnitPrice: "5.00"},
	)
	s := openSession(t, mem, o, 2000)

	res := newResolver(mem, nil)
	_, err := res.Decide(context.Background(), s.ID, "success")

	var stockErr *payment.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "B", stockErr.ManufacturingID)

	assert.Equal(t, 10, mem.Stock("A"), "no partial decrement may survive the abort")
	assert.Equal(t, 1, mem.Stock("B"))
	got, err := mem.Orders().GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPendingPayment, got.Status)
	sess, err := mem.Sessions().Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.SessionPending, sess.Status, "a failed settlement leaves the session decidable")
}

func TestDecide_ExpiryDominatesSuccess(t *testing.T) {
	mem := store.NewMemory()
	seedItem(t, mem, "X1", "10.00", 5)
	o := seedOrder(t, mem, "10.00", order.Line{ManufacturingID: "X1", Quantity: 1, UnitPrice: "10.00"})
	s := openSession(t, mem, o, 1000)

	res := newResolver(mem, nil)
	res.Now = func() time.Time { return s.ExpiresAt }

	_, err := res.Decide(context.Background(), s.ID, "success")
	assert.ErrorIs(t, err, payment.ErrSessionExpired)

	assert.Equal(t, 5, mem.Stock("X1"), "expired success must not touch stock")
	got, _ := mem.Orders().GetByID(context.Background(), o.ID)
	assert.Equal(t, order.StatusCancelled, got.Status)
	sess, _ := mem.Sessions().Get(context.Background(), s.ID)
	assert.Equal(t, payment.SessionFailed, sess.Status)
}

func TestDecide_Cancel(t *testing.T) {
	mem := store.NewMemory()
	seedItem(t, mem, "X1", "10.00", 5)
	o := seedOrder(t, mem, "10.00", order.Line{ManufacturingID: "X1", Quantity: 1, UnitPrice: "10.00"})
	s := openSession(t, mem, o, 1000)

	res := newResolver(mem, nil)
	d, err := res.Decide(context.Background(), s.ID, "cancel")
	require.NoError(t, err)
	assert.Equal(t, "http://shop.local/no", d.RedirectURL)

	sess, _ := mem.Sessions().Get(context.Background(), s.ID)
	assert.Equal(t, payment.SessionCancelled, sess.Status)
	got, _ := mem.Orders().GetByID(context.Background(), o.ID)
	assert.Equal(t, order.StatusCancelled, got.Status)
	assert.Equal(t, 5, mem.Stock("X1"))
}

func TestDecide_UnknownResultIsFailure(t *testing.T) {
	mem := store.NewMemory()
	seedItem(t, mem, "X1", "10.00", 5)
	o := seedOrder(t, mem, "10.00", order.Line{ManufacturingID: "X1", Quantity: 1, UnitPrice: "10.00"})
	s := openSession(t, mem, o, 1000)

	res := newResolver(mem, nil)
	d, err := res.Decide(context.Background(), s.ID, "garbage")
	require.NoError(t, err, "the catch-all path is an outcome, not an error")
	assert.Equal(t, "http://shop.local/no", d.RedirectURL)

	sess, _ := mem.Sessions().Get(context.Background(), s.ID)
	assert.Equal(t, payment.SessionFailed, sess.Status)
	got, _ := mem.Orders().GetByID(context.Background(), o.ID)
	assert.Equal(t, order.StatusCancelled, got.Status)
}

func TestDecide_TerminalSessionIsNeverMutatedAgain(t *testing.T) {
	mem := store.NewMemory()
	seedItem(t, mem, "X1", "10.00", 5)
	o := seedOrder(t, mem, "10.00", order.Line{ManufacturingID: "X1", Quantity: 1, UnitPrice: "10.00"})
	s := openSession(t, mem, o, 1000)

	res := newResolver(mem, nil)
	ctx := context.Background()

	_, err := res.Decide(ctx, s.ID, "success")
	require.NoError(t, err)

	// A late cancel on a settled session reports the prior outcome.
	d, err := res.Decide(ctx, s.ID, "cancel")
	require.NoError(t, err)
	assert.Equal(t, "http://shop.local/ok", d.RedirectURL)
	got, _ := mem.Orders().GetByID(ctx, o.ID)
	assert.Equal(t, order.StatusCreated, got.Status)
}

func TestDecide_SessionNotFound(t *testing.T) {
	mem := store.NewMemory()
	res := newResolver(mem, nil)
	_, err := res.Decide(context.Background(), "deadbeef", "success")
	assert.ErrorIs(t, err, payment.ErrSessionNotFound)
}

func TestDecide_OrderMissingInsideSettlement(t *testing.T) {
	mem := store.NewMemory()
	s := &payment.Session{
		ID:          "feedface00000000feedface00000000",
		OrderID:     uuid.NewString(), // no such order
		AmountCents: 1000,
		Currency:    "EUR",
		Status:      payment.SessionPending,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, mem.Sessions().Create(context.Background(), s))

	res := newResolver(mem, nil)
	_, err := res.Decide(context.Background(), s.ID, "success")
	assert.ErrorIs(t, err, order.ErrNotFound)

	sess, _ := mem.Sessions().Get(context.Background(), s.ID)
	assert.Equal(t, payment.SessionPending, sess.Status, "a data-integrity failure is not a payment outcome")
}

func TestDecide_ConcurrentSettlementsOnSharedStock(t *testing.T) {
	mem := store.NewMemory()
	seedItem(t, mem, "X1", "10.00", 3)
	o1 := seedOrder(t, mem, "30.00", order.Line{ManufacturingID: "X1", Quantity: 3, UnitPrice: "10.00"})
	o2 := seedOrder(t, mem, "30.00", order.Line{ManufacturingID: "X1", Quantity: 3, UnitPrice: "10.00"})
	s1 := openSession(t, mem, o1, 3000)
	s2 := openSession(t, mem, o2, 3000)

	res := newResolver(mem, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, sid := range []string{s1.ID, s2.ID} {
		wg.Add(1)
		go func(i int, sid string) {
			defer wg.Done()
			_, errs[i] = res.Decide(ctx, sid, "success")
		}(i, sid)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		var stockErr *payment.InsufficientStockError
		switch {
		case err == nil:
			wins++
		case assert.ErrorAs(t, err, &stockErr):
			losses++
			assert.Equal(t, "X1", stockErr.ManufacturingID)
		}
	}
	assert.Equal(t, 1, wins, "exactly one settlement may win")
	assert.Equal(t, 1, losses)
	assert.Equal(t, 0, mem.Stock("X1"))
	assert.GreaterOrEqual(t, mem.Stock("X1"), 0, "stock must never go negative")

	g1, _ := mem.Orders().GetByID(ctx, o1.ID)
	g2, _ := mem.Orders().GetByID(ctx, o2.ID)
	created := 0
	for _, g := range []*order.Order{g1, g2} {
		if g.Status == order.StatusCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
}
