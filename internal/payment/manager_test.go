package payment_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martynasv/shopcore/internal/catalog"
	"github.com/martynasv/shopcore/internal/order"
	"github.com/martynasv/shopcore/internal/payment"
	"github.com/martynasv/shopcore/internal/store"
)

func seedItem(t *testing.T, mem *store.Memory, mid, price string, stock int) {
	t.Helper()
	require.NoError(t, mem.Create(context.Background(), &catalog.Item{
		ID:              uuid.NewString(),
		Name:            "item " + mid,
		ManufacturingID: mid,
		Price:           price,
		Stock:           stock,
	}))
}

func seedOrder(t *testing.T, mem *store.Memory, total string, lines ...order.Line) *order.Order {
	t.Helper()
	num, err := order.NewNumber()
	require.NoError(t, err)
	o := &order.Order{
		ID:           uuid.NewString(),
		Number:       num,
		EnteredEmail: "ona@example.com",
		Items:        lines,
		Total:        total,
		Status:       order.StatusPendingPayment,
		Locale:       "en",
	}
	require.NoError(t, mem.Orders().Create(context.Background(), o))
	return o
}

type countingSessions struct {
	payment.SessionStore
	creates int
}

func (c *countingSessions) Create(ctx context.Context, s *payment.Session) error {
	c.creates++
	return c.SessionStore.Create(ctx, s)
}

func TestOpen_CreatesPendingSession(t *testing.T) {
	mem := store.NewMemory()
	seedItem(t, mem, "X1", "10.00", 5)
	o := seedOrder(t, mem, "30.00", order.Line{ManufacturingID: "X1", Quantity: 3, UnitPrice: "10.00"})

	mgr := payment.NewManager(mem.Sessions(), mem.Orders(), "http://pay.local/checkout", "testshop", 15*time.Minute)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mgr.Now = func() time.Time { return base }

	s, url, err := mgr.Open(context.Background(), payment.OpenParams{
		OrderID:     o.ID,
		AmountCents: 3000,
		Currency:    "EUR",
		SuccessURL:  "http://shop.local/ok",
		CancelURL:   "http://shop.local/no",
	})
	require.NoError(t, err)
	assert.Equal(t, payment.SessionPending, s.Status)
	assert.Equal(t, base.Add(15*time.Minute), s.ExpiresAt)
	assert.Equal(t, o.ID, s.OrderID)
	assert.Len(t, s.ID, 32, "hex of 16 random bytes")
	assert.True(t, strings.HasPrefix(url, "http://pay.local/checkout?session="))
	assert.Contains(t, url, s.ID)

	got, err := mgr.Fetch(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), got.AmountCents)
}

func TestOpen_AmountMismatchNotPersisted(t *testing.T) {
	mem := store.NewMemory()
	seedItem(t, mem, "X1", "10.00", 5)
	o := seedOrder(t, mem, "30.00", order.Line{ManufacturingID: "X1", Quantity: 3, UnitPrice: "10.00"})

	sessions := &countingSessions{SessionStore: mem.Sessions()}
	mgr := payment.NewManager(sessions, mem.Orders(), "http://pay.local/checkout", "testshop", 0)

	_, _, err := mgr.Open(context.Background(), payment.OpenParams{
		OrderID: o.ID, AmountCents: 3002, Currency: "EUR",
	})
	assert.ErrorIs(t, err, payment.ErrAmountMismatch)
	assert.Zero(t, sessions.creates, "no session may be persisted on mismatch")
}

func TestOpen_ToleratesOneCentRounding(t *testing.T) {
	mem := store.NewMemory()
	seedItem(t, mem, "X1", "10.00", 5)
	o := seedOrder(t, mem, "30.00", order.Line{ManufacturingID: "X1", Quantity: 3, UnitPrice: "10.00"})

	mgr := payment.NewManager(mem.Sessions(), mem.Orders(), "http://pay.local/checkout", "testshop", 0)

	for _, cents := range []int64{2999, 3000, 3001} {
		_, _, err := mgr.Open(context.Background(), payment.OpenParams{
			OrderID: o.ID, AmountCents: cents, Currency: "EUR",
		})
		assert.NoError(t, err, "amount %d", cents)
	}
}

func TestOpen_UnknownOrder(t *testing.T) {
	mem := store.NewMemory()
	mgr := payment.NewManager(mem.Sessions(), mem.Orders(), "http://pay.local/checkout", "testshop", 0)

	_, _, err := mgr.Open(context.Background(), payment.OpenParams{
		OrderID: uuid.NewString(), AmountCents: 100, Currency: "EUR",
	})
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestFetch_Unknown(t *testing.T) {
	mem := store.NewMemory()
	mgr := payment.NewManager(mem.Sessions(), mem.Orders(), "http://pay.local/checkout", "testshop", 0)

	_, err := mgr.Fetch(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, payment.ErrSessionNotFound)
}
