// Package notify dispatches customer notification jobs. Everything here is
// best-effort: callers log and swallow dispatch errors, and a per-recipient
// rate limiter drops bursts instead of queueing them.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/martynasv/shopcore/internal/order"
)

// Publisher delivers a notification job to the transport that renders and
// sends the actual email.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

// Limiter throttles per recipient.
type Limiter interface {
	Allow(key string) bool
}

type Dispatcher struct {
	pub     Publisher
	limiter Limiter
}

func NewDispatcher(pub Publisher, limiter Limiter) *Dispatcher {
	return &Dispatcher{pub: pub, limiter: limiter}
}

type orderEvent struct {
	Kind        string    `json:"kind"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Email       string    `json:"email"`
	Locale      string    `json:"locale"`
	Status      string    `json:"status"`
	PrevStatus  string    `json:"prev_status,omitempty"`
	Total       string    `json:"total"`
	At          time.Time `json:"at"`
}

func (d *Dispatcher) OrderCreated(ctx context.Context, o *order.Order) error {
	return d.dispatch(ctx, "order.created", orderEvent{
		Kind:        "order.created",
		OrderID:     o.ID,
		OrderNumber: o.Number,
		Email:       o.EnteredEmail,
		Locale:      o.Locale,
		Status:      string(o.Status),
		Total:       o.Total,
		At:          time.Now().UTC(),
	})
}

func (d *Dispatcher) OrderStatusChanged(ctx context.Context, o *order.Order, prev order.Status) error {
	return d.dispatch(ctx, "order.status_changed", orderEvent{
		Kind:        "order.status_changed",
		OrderID:     o.ID,
		OrderNumber: o.Number,
		Email:       o.EnteredEmail,
		Locale:      o.Locale,
		Status:      string(o.Status),
		PrevStatus:  string(prev),
		Total:       o.Total,
		At:          time.Now().UTC(),
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, key string, ev orderEvent) error {
	if d.limiter != nil && !d.limiter.Allow(ev.Email) {
		log.Printf("[notify] rate limited %s for %s", key, ev.Email)
		return nil
	}
	if d.pub == nil {
		log.Printf("[notify] no publisher configured, dropping %s for %s", key, ev.OrderNumber)
		return nil
	}
	if err := d.pub.Publish(ctx, key, ev); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}
