// Package store provides the settlement unit of work over PostgreSQL plus an
// in-memory implementation of every persistence contract, used by tests and
// local runs.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/martynasv/shopcore/internal/order"
	"github.com/martynasv/shopcore/internal/payment"
)

// PG runs settlement transactions on a pgx pool. Read-committed is enough:
// the order row is locked FOR UPDATE so duplicate decisions serialize, and
// the stock decrement carries its own guard in the WHERE clause.
type PG struct{ db *pgxpool.Pool }

func NewPG(db *pgxpool.Pool) *PG { return &PG{db: db} }

func (p *PG) Run(ctx context.Context, fn func(ctx context.Context, tx payment.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) OrderByID(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	if err := t.tx.QueryRow(ctx, `
		SELECT id,order_number,entered_email,delivery,address,total::text,status,locale,created_at,updated_at
		FROM orders WHERE id=$1
		FOR UPDATE
	`, id).Scan(&o.ID, &o.Number, &o.EnteredEmail, &o.Delivery, &o.Address, &o.Total, &o.Status, &o.Locale, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, order.ErrNotFound
	}
	rows, err := t.tx.Query(ctx, `
		SELECT manufacturing_id,quantity,unit_price::text
		FROM order_lines WHERE order_id=$1 ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ln order.Line
		if err := rows.Scan(&ln.ManufacturingID, &ln.Quantity, &ln.UnitPrice); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, ln)
	}
	return &o, rows.Err()
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, id string, st order.Status) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1
	`, id, st)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// ReserveStock is the only write path for stock. The availability check and
// the decrement are one statement, so concurrent settlements on the same
// item cannot both pass when stock covers only one of them.
func (t *pgTx) ReserveStock(ctx context.Context, manufacturingID string, quantity int) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE items
		SET stock = stock - $2, updated_at = NOW()
		WHERE manufacturing_id = $1 AND stock >= $2
	`, manufacturingID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &payment.InsufficientStockError{ManufacturingID: manufacturingID}
	}
	return nil
}

func (t *pgTx) UpdateSessionStatus(ctx context.Context, id string, st payment.SessionStatus) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE payment_sessions SET status=$2, updated_at=NOW() WHERE id=$1
	`, id, st)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrSessionNotFound
	}
	return nil
}
