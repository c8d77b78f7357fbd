package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/martynasv/shopcore/internal/catalog"
)

var (
	// ErrInvalid wraps every validation failure of an incoming request.
	ErrInvalid = errors.New("invalid order")
	// ErrBadTransition is returned when a status change is not allowed by
	// the lifecycle table.
	ErrBadTransition = errors.New("status transition not allowed")
)

// numberRetries bounds how often creation re-rolls the order number after a
// uniqueness violation before giving up.
const numberRetries = 3

// Notifier dispatches customer emails. Implementations are best-effort; the
// service logs and swallows their errors.
type Notifier interface {
	OrderCreated(ctx context.Context, o *Order) error
	OrderStatusChanged(ctx context.Context, o *Order, prev Status) error
}

type Service struct {
	repo     Repository
	catalog  catalog.Repository
	notifier Notifier
}

func NewService(repo Repository, cat catalog.Repository, n Notifier) *Service {
	return &Service{repo: repo, catalog: cat, notifier: n}
}

// Create validates the request, recomputes the total from current catalog
// prices (client-submitted prices are never trusted) and persists the order
// with status pending_payment.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, fmt.Errorf("%w: bad email", ErrInvalid)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: items are required", ErrInvalid)
	}
	if req.Delivery && strings.TrimSpace(req.Address) == "" {
		return nil, fmt.Errorf("%w: address is required for delivery", ErrInvalid)
	}
	locale := req.Locale
	if locale == "" {
		locale = "en"
	}
	if locale != "en" && locale != "lt" {
		return nil, fmt.Errorf("%w: unsupported locale %q", ErrInvalid, locale)
	}

	total := decimal.Zero
	lines := make([]Line, 0, len(req.Items))
	for _, reqLine := range req.Items {
		if reqLine.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for %s", ErrInvalid, reqLine.ManufacturingID)
		}
		it, err := s.catalog.GetByManufacturingID(ctx, reqLine.ManufacturingID)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown item %s", ErrInvalid, reqLine.ManufacturingID)
		}
		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog price for %s: %w", it.ManufacturingID, err)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(reqLine.Quantity))))
		lines = append(lines, Line{
			ManufacturingID: it.ManufacturingID,
			Quantity:        reqLine.Quantity,
			UnitPrice:       price.StringFixed(2),
		})
	}

	o := &Order{
		ID:           uuid.NewString(),
		EnteredEmail: req.Email,
		Delivery:     req.Delivery,
		Address:      strings.TrimSpace(req.Address),
		Items:        lines,
		Total:        total.StringFixed(2),
		Status:       StatusPendingPayment,
		Locale:       locale,
	}

	for attempt := 0; attempt < numberRetries; attempt++ {
		num, err := NewNumber()
		if err != nil {
			return nil, err
		}
		o.Number = num
		err = s.repo.Create(ctx, o)
		if errors.Is(err, ErrNumberTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return o, nil
	}
	return nil, fmt.Errorf("order number: exhausted %d attempts: %w", numberRetries, ErrNumberTaken)
}

// UpdateStatus applies an admin status override. The transition must be
// allowed by the lifecycle table; the status-changed email is best-effort.
func (s *Service) UpdateStatus(ctx context.Context, id string, raw string) (*Order, error) {
	st, err := ParseStatus(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(st) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrBadTransition, o.Status, st)
	}
	if err := s.repo.UpdateStatus(ctx, id, st); err != nil {
		return nil, err
	}
	prev := o.Status
	o.Status = st
	if s.notifier != nil {
		if err := s.notifier.OrderStatusChanged(ctx, o, prev); err != nil {
			log.Printf("[order] status-changed notification for %s: %v", o.Number, err)
		}
	}
	return o, nil
}
