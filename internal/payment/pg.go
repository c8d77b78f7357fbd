package payment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PGSessionStore struct{ db *pgxpool.Pool }

func NewPGSessionStore(db *pgxpool.Pool) *PGSessionStore { return &PGSessionStore{db: db} }

func (r *PGSessionStore) Create(ctx context.Context, s *Session) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO payment_sessions (id, order_id, amount_cents, currency, status, success_url, cancel_url, expires_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW())
	`, s.ID, s.OrderID, s.AmountCents, s.Currency, s.Status, s.SuccessURL, s.CancelURL, s.ExpiresAt)
	return err
}

func (r *PGSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s Session
	err := r.db.QueryRow(ctx, `
		SELECT id, order_id, amount_cents, currency, status, success_url, cancel_url, expires_at, created_at, updated_at
		FROM payment_sessions WHERE id=$1
	`, id).Scan(&s.ID, &s.OrderID, &s.AmountCents, &s.Currency, &s.Status, &s.SuccessURL, &s.CancelURL, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (r *PGSessionStore) UpdateStatus(ctx context.Context, id string, st SessionStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE payment_sessions SET status=$2, updated_at=NOW() WHERE id=$1
	`, id, st)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}
