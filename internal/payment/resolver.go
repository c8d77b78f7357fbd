package payment

import (
	"context"
	"log"
	"time"

	"github.com/martynasv/shopcore/internal/order"
)

// Decision results accepted on the decide endpoint. Anything else falls
// through to the failure path.
const (
	ResultSuccess = "success"
	ResultCancel  = "cancel"
)

// Tx is the settlement unit of work. Implementations must guarantee that
// everything done through one Tx commits or rolls back as a whole, and that
// ReserveStock is an atomic conditional decrement (never a read-modify-write).
type Tx interface {
	OrderByID(ctx context.Context, id string) (*order.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, st order.Status) error
	// ReserveStock decrements stock for one line iff enough is available.
	// It returns *InsufficientStockError when the item is missing or short.
	ReserveStock(ctx context.Context, manufacturingID string, quantity int) error
	UpdateSessionStatus(ctx context.Context, id string, st SessionStatus) error
}

type UnitOfWork interface {
	Run(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Notifier is the best-effort order-created hook fired after a successful
// settlement commits.
type Notifier interface {
	OrderCreated(ctx context.Context, o *order.Order) error
}

// Decision is the resolver's answer. The HTTP layer alone turns it (or the
// error beside it) into a response, so a decision can never be answered
// twice no matter how many abort branches the settlement has.
type Decision struct {
	RedirectURL string
	Order       *order.Order
}

type Resolver struct {
	sessions SessionStore
	orders   order.Repository
	uow      UnitOfWork
	notifier Notifier

	defaultSuccessURL string
	defaultCancelURL  string

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

func NewResolver(sessions SessionStore, orders order.Repository, uow UnitOfWork, n Notifier, successURL, cancelURL string) *Resolver {
	return &Resolver{
		sessions:          sessions,
		orders:            orders,
		uow:               uow,
		notifier:          n,
		defaultSuccessURL: successURL,
		defaultCancelURL:  cancelURL,
		Now:               time.Now,
	}
}

// Decide applies a gateway decision to a session.
//
// Expiry dominates: a "success" arriving after expiresAt is resolved as a
// failure regardless of stock. A session that already reached a terminal
// status is reported as-is and never mutated again. The success path runs a
// single atomic transaction: conditional stock decrement for every line,
// order -> created, session -> succeeded, all or nothing.
func (r *Resolver) Decide(ctx context.Context, sessionID, result string) (*Decision, error) {
	s, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if s.Status.Terminal() {
		return r.replay(s), nil
	}

	if !r.Now().Before(s.ExpiresAt) {
		r.finalize(ctx, s, SessionFailed)
		return nil, ErrSessionExpired
	}

	switch result {
	case ResultSuccess:
		return r.settle(ctx, s)
	case ResultCancel:
		r.finalize(ctx, s, SessionCancelled)
		return &Decision{RedirectURL: r.cancelRedirect(s)}, nil
	default:
		r.finalize(ctx, s, SessionFailed)
		return &Decision{RedirectURL: r.cancelRedirect(s)}, nil
	}
}

// settle runs the success transaction. The order is re-read inside the
// transaction; if a decision was already applied (a client retry racing us)
// the existing order is the result and no effect is re-applied.
func (r *Resolver) settle(ctx context.Context, s *Session) (*Decision, error) {
	var (
		settled *order.Order
		applied bool
	)
	err := r.uow.Run(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.OrderByID(ctx, s.OrderID)
		if err != nil {
			// The session stays pending: this is a data-integrity
			// problem with the order, not a payment outcome.
			return err
		}
		if o.Status != order.StatusPendingPayment {
			settled = o
			return nil
		}
		for _, ln := range o.Items {
			if err := tx.ReserveStock(ctx, ln.ManufacturingID, ln.Quantity); err != nil {
				return err
			}
		}
		if err := tx.UpdateOrderStatus(ctx, o.ID, order.StatusCreated); err != nil {
			return err
		}
		if err := tx.UpdateSessionStatus(ctx, s.ID, SessionSucceeded); err != nil {
			return err
		}
		o.Status = order.StatusCreated
		settled = o
		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if applied && r.notifier != nil {
		if nerr := r.notifier.OrderCreated(ctx, settled); nerr != nil {
			log.Printf("[payment] order-created notification for %s: %v", settled.Number, nerr)
		}
	}
	return &Decision{RedirectURL: r.successRedirect(s), Order: settled}, nil
}

// finalize applies the cancel/fail outcome. These are independent
// single-document updates; failures are logged, the decision stands.
func (r *Resolver) finalize(ctx context.Context, s *Session, st SessionStatus) {
	if err := r.sessions.UpdateStatus(ctx, s.ID, st); err != nil {
		log.Printf("[payment] session %s -> %s: %v", s.ID, st, err)
	}
	if err := r.orders.UpdateStatus(ctx, s.OrderID, order.StatusCancelled); err != nil {
		log.Printf("[payment] order %s -> cancelled: %v", s.OrderID, err)
	}
	s.Status = st
}

// replay reports a previously resolved session without touching state.
func (r *Resolver) replay(s *Session) *Decision {
	if s.Status == SessionSucceeded {
		return &Decision{RedirectURL: r.successRedirect(s)}
	}
	return &Decision{RedirectURL: r.cancelRedirect(s)}
}

func (r *Resolver) successRedirect(s *Session) string {
	if s.SuccessURL != "" {
		return s.SuccessURL
	}
	return r.defaultSuccessURL
}

func (r *Resolver) cancelRedirect(s *Session) string {
	if s.CancelURL != "" {
		return s.CancelURL
	}
	return r.defaultCancelURL
}
