// Package payment implements the mock payment gateway: ephemeral checkout
// sessions scoped to an order, and the decision resolver that settles them.
package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionSucceeded SessionStatus = "succeeded"
	SessionCancelled SessionStatus = "cancelled"
	SessionFailed    SessionStatus = "failed"
)

// Terminal reports whether the session has been resolved. A terminal session
// is never mutated again.
func (s SessionStatus) Terminal() bool {
	return s == SessionSucceeded || s == SessionCancelled || s == SessionFailed
}

// Session tracks one attempted payment for one order. The order remains the
// system of record; the session only references it.
type Session struct {
	ID          string        `json:"session_id"`
	OrderID     string        `json:"order_id"`
	AmountCents int64         `json:"amount_cents"`
	Currency    string        `json:"currency"`
	Status      SessionStatus `json:"status"`
	SuccessURL  string        `json:"success_url,omitempty"`
	CancelURL   string        `json:"cancel_url,omitempty"`
	ExpiresAt   time.Time     `json:"expires_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

var (
	ErrSessionNotFound = errors.New("payment session not found")
	ErrSessionExpired  = errors.New("payment session expired")
	ErrAmountMismatch  = errors.New("amount does not match order total")
)

// InsufficientStockError aborts a settlement and names the first line that
// could not be reserved.
type InsufficientStockError struct {
	ManufacturingID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.ManufacturingID)
}

type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	UpdateStatus(ctx context.Context, id string, st SessionStatus) error
}

const sessionIDBytes = 16

func newSessionID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
