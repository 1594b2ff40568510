package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `id, artist, album, price, qty, format, category,
	COALESCE(mbid, ''), COALESCE(track_list, '[]'::jsonb),
	COALESCE(release_year, 0), COALESCE(country, ''), created_at, updated_at`

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, rec *Record) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO records(id, artist, album, price, qty, format, category,
		                    mbid, track_list, release_year, country, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),$9,NULLIF($10,0),NULLIF($11,''),$12,$13)`,
		rec.ID, rec.Artist, rec.Album, rec.Price, rec.Qty, rec.Format, rec.Category,
		rec.MBID, rec.TrackList, rec.ReleaseYear, rec.Country, rec.CreatedAt, rec.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// UpdateTx rewrites every mutable field under the transaction's row lock;
// the caller merges against a GetForUpdate read first, so a quantity written
// back here can never be stale.
func (r *Repo) UpdateTx(ctx context.Context, tx pgx.Tx, rec *Record) error {
	ct, err := tx.Exec(ctx, `
		UPDATE records
		SET artist=$2, album=$3, price=$4, qty=$5, format=$6, category=$7,
		    mbid=NULLIF($8,''), track_list=$9, release_year=NULLIF($10,0),
		    country=NULLIF($11,''), updated_at=$12
		WHERE id=$1`,
		rec.ID, rec.Artist, rec.Album, rec.Price, rec.Qty, rec.Format, rec.Category,
		rec.MBID, rec.TrackList, rec.ReleaseYear, rec.Country, rec.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get reads outside any transaction. Advisory only: never use the result to
// authorize a mutation.
func (r *Repo) Get(ctx context.Context, id string) (*Record, error) {
	return scanRecord(r.DB.QueryRow(ctx, `SELECT `+recordColumns+` FROM records WHERE id=$1`, id))
}

// GetForUpdate reads a record under the transaction's row lock, serializing
// concurrent quantity adjustments on the same record.
func (r *Repo) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Record, error) {
	return scanRecord(tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM records WHERE id=$1 FOR UPDATE`, id))
}

// AdjustQuantity applies delta to the record's quantity inside tx. The guard
// in the WHERE clause keeps the ledger from ever committing a negative value
// even if the caller's own check was stale.
func (r *Repo) AdjustQuantity(ctx context.Context, tx pgx.Tx, id string, delta int) error {
	ct, err := tx.Exec(ctx, `
		UPDATE records SET qty = qty + $2, updated_at = now()
		WHERE id = $1 AND qty + $2 >= 0`, id, delta)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *Repo) List(ctx context.Context, f Filter, p Page) (*PageResult, error) {
	where, args := f.whereClause()

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM records`+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM records%s ORDER BY created_at DESC, id OFFSET $%d LIMIT $%d`,
		recordColumns, where, len(args)+1, len(args)+2)
	rows, err := r.DB.Query(ctx, query, append(args, p.Skip, p.Limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Record, 0, p.Limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &PageResult{Items: items, Total: total}, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Artist, &rec.Album, &rec.Price, &rec.Qty,
		&rec.Format, &rec.Category, &rec.MBID, &rec.TrackList,
		&rec.ReleaseYear, &rec.Country, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
