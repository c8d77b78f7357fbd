package payment

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/martynasv/shopcore/internal/order"
)

// DefaultTTL is how long a session stays decidable after creation. Expiry is
// enforced lazily on the next read or decision, not by a sweeper.
const DefaultTTL = 15 * time.Minute

// amountToleranceCents absorbs a 1-unit rounding difference between the
// client's minor-unit conversion and ours.
const amountToleranceCents = 1

type Manager struct {
	sessions SessionStore
	orders   order.Repository

	checkoutBase string
	merchant     string
	ttl          time.Duration

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

func NewManager(sessions SessionStore, orders order.Repository, checkoutBase, merchant string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions:     sessions,
		orders:       orders,
		checkoutBase: checkoutBase,
		merchant:     merchant,
		ttl:          ttl,
		Now:          time.Now,
	}
}

type OpenParams struct {
	OrderID     string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// Open validates the amount against the order total and persists a fresh
// pending session. It mutates neither the order nor any stock.
func (m *Manager) Open(ctx context.Context, p OpenParams) (*Session, string, error) {
	o, err := m.orders.GetByID(ctx, p.OrderID)
	if err != nil {
		return nil, "", err
	}

	total, err := decimal.NewFromString(o.Total)
	if err != nil {
		return nil, "", fmt.Errorf("order %s total: %w", o.ID, err)
	}
	expected := total.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if diff := expected - p.AmountCents; diff > amountToleranceCents || diff < -amountToleranceCents {
		return nil, "", fmt.Errorf("%w: expected %d, got %d", ErrAmountMismatch, expected, p.AmountCents)
	}

	id, err := newSessionID()
	if err != nil {
		return nil, "", err
	}
	now := m.Now()
	s := &Session{
		ID:          id,
		OrderID:     o.ID,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Status:      SessionPending,
		SuccessURL:  p.SuccessURL,
		CancelURL:   p.CancelURL,
		ExpiresAt:   now.Add(m.ttl),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.sessions.Create(ctx, s); err != nil {
		return nil, "", err
	}
	return s, m.checkoutURL(id), nil
}

// Fetch returns the session for the public payment UI projection.
func (m *Manager) Fetch(ctx context.Context, id string) (*Session, error) {
	return m.sessions.Get(ctx, id)
}

// Merchant is the display name shown by the payment UI.
func (m *Manager) Merchant() string { return m.merchant }

func (m *Manager) checkoutURL(sessionID string) string {
	return m.checkoutBase + "?session=" + url.QueryEscape(sessionID)
}
