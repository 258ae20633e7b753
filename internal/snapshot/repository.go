package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-wms/meridian/internal/platform/db"
	"github.com/meridian-wms/meridian/internal/shared"
)

// Repository reads the ledger-derived aggregate views. Strictly read-only;
// the ledger package owns all writes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const bucketColumns = `onhand_stock, onhand_consignment, onhand_hold,
	inbound_stock, inbound_consignment, inbound_hold,
	outbound_stock, outbound_consignment, outbound_hold,
	future_stock, future_consignment, future_hold`

// GetRows loads every snapshot row for the warehouse at or before the
// cutoff. Callers collapse them; keeping shadowed rows here preserves the
// historical query path.
func (r *Repository) GetRows(ctx context.Context, warehouse string, cutoff time.Time) ([]Row, error) {
	rows, err := r.pool.Query(ctx, `SELECT item_name, warehouse, snapshot_date, `+bucketColumns+`
		FROM inventory_snapshot_view
		WHERE warehouse = $1 AND snapshot_date <= $2
		ORDER BY item_name, snapshot_date`, warehouse, cutoff)
	if err != nil {
		return nil, wrapErr("snapshot: get rows", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ItemName, &row.Warehouse, &row.Date,
			&row.OnHand.Stock, &row.OnHand.Consignment, &row.OnHand.Hold,
			&row.Inbound.Stock, &row.Inbound.Consignment, &row.Inbound.Hold,
			&row.Outbound.Stock, &row.Outbound.Consignment, &row.Outbound.Hold,
			&row.Future.Stock, &row.Future.Consignment, &row.Future.Hold); err != nil {
			return nil, wrapErr("snapshot: scan row", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetRollup loads the per-item summary for a warehouse.
func (r *Repository) GetRollup(ctx context.Context, warehouse string) ([]RollupRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT item_name, warehouse, `+bucketColumns+`
		FROM inventory_rollup_view
		WHERE warehouse = $1
		ORDER BY item_name`, warehouse)
	if err != nil {
		return nil, wrapErr("snapshot: get rollup", err)
	}
	defer rows.Close()

	var out []RollupRow
	for rows.Next() {
		var row RollupRow
		if err := rows.Scan(&row.ItemName, &row.Warehouse,
			&row.OnHand.Stock, &row.OnHand.Consignment, &row.OnHand.Hold,
			&row.Inbound.Stock, &row.Inbound.Consignment, &row.Inbound.Hold,
			&row.Outbound.Stock, &row.Outbound.Consignment, &row.Outbound.Hold,
			&row.Future.Stock, &row.Future.Consignment, &row.Future.Hold); err != nil {
			return nil, wrapErr("snapshot: scan rollup", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func wrapErr(op string, err error) error {
	switch {
	case err == pgx.ErrNoRows:
		return shared.ErrNotFound
	case db.IsPermissionDenied(err):
		return fmt.Errorf("%s: %w", op, shared.ErrPermissionDenied)
	case db.IsTransient(err):
		return &shared.TransientError{Op: op, Cause: err}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
