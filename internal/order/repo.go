package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrNumberTaken signals a unique-constraint hit on the order number.
	// Creation retries with a fresh number a bounded number of times.
	ErrNumberTaken = errors.New("order number already taken")
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, limit, offset int) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, st Status) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    INSERT INTO orders (id, order_number, entered_email, delivery, address, total, status, locale, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW())
  `, o.ID, o.Number, o.EnteredEmail, o.Delivery, o.Address, o.Total, o.Status, o.Locale); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrNumberTaken
		}
		return err
	}

	for _, ln := range o.Items {
		if _, err := tx.Exec(ctx, `
      INSERT INTO order_lines (order_id, manufacturing_id, quantity, unit_price)
      VALUES ($1,$2,$3,$4)
    `, o.ID, ln.ManufacturingID, ln.Quantity, ln.UnitPrice); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	var o Order
	if err := r.db.QueryRow(ctx, `
    SELECT id,order_number,entered_email,delivery,address,total::text,status,locale,created_at,updated_at
    FROM orders WHERE id=$1
  `, id).Scan(&o.ID, &o.Number, &o.EnteredEmail, &o.Delivery, &o.Address, &o.Total, &o.Status, &o.Locale, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, ErrNotFound
	}
	rows, err := r.db.Query(ctx, `
    SELECT manufacturing_id,quantity,unit_price::text
    FROM order_lines WHERE order_id=$1 ORDER BY id
  `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ManufacturingID, &ln.Quantity, &ln.UnitPrice); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, ln)
	}
	return &o, rows.Err()
}

func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx, `
    SELECT id,order_number,entered_email,delivery,address,total::text,status,locale,created_at,updated_at
    FROM orders
    ORDER BY created_at DESC LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Number, &o.EnteredEmail, &o.Delivery, &o.Address, &o.Total, &o.Status, &o.Locale, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id string, st Status) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
    UPDATE orders
    SET status = $2, updated_at = NOW()
    WHERE id = $1
  `, id, st)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
