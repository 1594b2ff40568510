package orders

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recordly/record-store/internal/records"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) CreateTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO orders(id, record_id, quantity, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.RecordID, o.Quantity, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

// GetForUpdate locks the order row so concurrent cancel/approve calls on the
// same order serialize instead of both seeing PENDING.
func (r *Repo) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Order, error) {
	var o Order
	err := tx.QueryRow(ctx, `
		SELECT id, record_id, quantity, status, created_at, updated_at
		FROM orders WHERE id=$1 FOR UPDATE`, id,
	).Scan(&o.ID, &o.RecordID, &o.Quantity, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id string, st Status, at time.Time) error {
	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, id, st, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) List(ctx context.Context, f Filter, p records.Page) (*PageResult, error) {
	where := ""
	args := []any{}
	if f.Status != "" {
		where = " WHERE status=$1"
		args = append(args, f.Status)
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	query := `SELECT id, record_id, quantity, status, created_at, updated_at FROM orders` + where
	if f.Status != "" {
		query += ` ORDER BY created_at DESC, id OFFSET $2 LIMIT $3`
	} else {
		query += ` ORDER BY created_at DESC, id OFFSET $1 LIMIT $2`
	}
	rows, err := r.DB.Query(ctx, query, append(args, p.Skip, p.Limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Order, 0, p.Limit)
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.RecordID, &o.Quantity, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &PageResult{Items: items, Total: total}, nil
}
