package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-wms/meridian/internal/platform/db"
	"github.com/meridian-wms/meridian/internal/shared"
)

// referenceUniqueConstraint is the unique index backing reference numbers.
const referenceUniqueConstraint = "transaction_header_reference_number_key"

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by the service. One
// logical create runs entirely inside a single WithTx call so a failed detail
// insert rolls the header back with it.
type TxRepository interface {
	MaxReferenceSuffix(ctx context.Context, prefix string) (int, error)
	InsertHeader(ctx context.Context, h Header) error
	InsertDetails(ctx context.Context, details []Detail) error
	GetHeader(ctx context.Context, id string) (Header, error)
	GetDetail(ctx context.Context, txID, detailID string) (Detail, error)
	UpdateHeader(ctx context.Context, id string, fields HeaderUpdate) error
	UpdateDetail(ctx context.Context, txID, detailID string, fields DetailUpdate) error
	AdvancePending(ctx context.Context, txID string, to DetailStatus) (int64, error)
	DeleteDetail(ctx context.Context, txID, detailID string) error
	CountDetails(ctx context.Context, txID string) (int, error)
	DeleteDetails(ctx context.Context, txID string) error
	DeleteHeader(ctx context.Context, txID string) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const headerColumns = `transaction_id, transaction_type, transaction_date, warehouse, reference_type, reference_number,
	COALESCE(shipment_carrier, ''), COALESCE(shipping_document, ''), COALESCE(customer_po, ''), COALESCE(customer_name, ''),
	COALESCE(comments, ''), COALESCE(related_transaction_id::text, ''), created_at`

func scanHeader(row pgx.Row) (Header, error) {
	var h Header
	err := row.Scan(&h.ID, &h.Type, &h.Date, &h.Warehouse, &h.ReferenceType, &h.ReferenceNumber,
		&h.ShipmentCarrier, &h.ShippingDocument, &h.CustomerPO, &h.CustomerName,
		&h.Comments, &h.RelatedTransactionID, &h.CreatedAt)
	return h, err
}

// GetHeader loads a header outside a transaction.
func (r *Repository) GetHeader(ctx context.Context, id string) (Header, error) {
	h, err := scanHeader(r.pool.QueryRow(ctx, `SELECT `+headerColumns+` FROM transaction_header WHERE transaction_id = $1`, id))
	if err != nil {
		return Header{}, wrapErr("ledger: get header", err)
	}
	return h, nil
}

// GetDetails loads all detail lines of a header, stable order by item name.
func (r *Repository) GetDetails(ctx context.Context, txID string) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, `SELECT detail_id, transaction_id, item_name, quantity, inventory_status, status,
		COALESCE(lot_number, ''), COALESCE(comments, '')
		FROM transaction_detail WHERE transaction_id = $1 ORDER BY item_name, detail_id`, txID)
	if err != nil {
		return nil, wrapErr("ledger: get details", err)
	}
	defer rows.Close()

	var details []Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.TransactionID, &d.ItemName, &d.Quantity, &d.InventoryStatus, &d.Status, &d.LotNumber, &d.Comments); err != nil {
			return nil, wrapErr("ledger: scan detail", err)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// ListHeaders returns headers matching the filter, newest first, with total.
func (r *Repository) ListHeaders(ctx context.Context, filter ListFilter) ([]Header, int, error) {
	pagination := shared.NewPagination(filter.Page, filter.PerPage, 0)

	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transaction_header
		WHERE ($1 = '' OR warehouse = $1) AND ($2 = '' OR transaction_type = $2)`,
		filter.Warehouse, string(filter.Type)).Scan(&total)
	if err != nil {
		return nil, 0, wrapErr("ledger: count headers", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+headerColumns+` FROM transaction_header
		WHERE ($1 = '' OR warehouse = $1) AND ($2 = '' OR transaction_type = $2)
		ORDER BY transaction_date DESC, reference_number DESC
		LIMIT $3 OFFSET $4`,
		filter.Warehouse, string(filter.Type), pagination.PerPage, pagination.Offset())
	if err != nil {
		return nil, 0, wrapErr("ledger: list headers", err)
	}
	defer rows.Close()

	var headers []Header
	for rows.Next() {
		h, err := scanHeader(rows)
		if err != nil {
			return nil, 0, wrapErr("ledger: scan header", err)
		}
		headers = append(headers, h)
	}
	return headers, total, rows.Err()
}

// MaxReferenceSuffix returns the highest sequential suffix minted for a
// prefix, zero when none exists. The length guard keeps timestamp-shaped
// count references out of the sequence scan.
func (t *txRepo) MaxReferenceSuffix(ctx context.Context, prefix string) (int, error) {
	var ref string
	err := t.tx.QueryRow(ctx, `SELECT reference_number FROM transaction_header
		WHERE reference_number LIKE $1 || '%' AND length(reference_number) = length($1) + 5
		ORDER BY reference_number DESC LIMIT 1`, prefix).Scan(&ref)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, wrapErr("ledger: max reference suffix", err)
	}
	return ParseReferenceSuffix(ref), nil
}

func (t *txRepo) InsertHeader(ctx context.Context, h Header) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO transaction_header
		(transaction_id, transaction_type, transaction_date, warehouse, reference_type, reference_number,
		 shipment_carrier, shipping_document, customer_po, customer_name, comments, related_transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, '')::uuid, NOW())`,
		h.ID, string(h.Type), h.Date, h.Warehouse, h.ReferenceType, h.ReferenceNumber,
		h.ShipmentCarrier, h.ShippingDocument, h.CustomerPO, h.CustomerName, h.Comments, h.RelatedTransactionID)
	if err != nil {
		return wrapErr("ledger: insert header", err)
	}
	return nil
}

func (t *txRepo) InsertDetails(ctx context.Context, details []Detail) error {
	for _, d := range details {
		_, err := t.tx.Exec(ctx, `INSERT INTO transaction_detail
			(detail_id, transaction_id, item_name, quantity, inventory_status, status, lot_number, comments)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))`,
			d.ID, d.TransactionID, d.ItemName, d.Quantity, string(d.InventoryStatus), string(d.Status), d.LotNumber, d.Comments)
		if err != nil {
			return wrapErr("ledger: insert detail", err)
		}
	}
	return nil
}

func (t *txRepo) GetHeader(ctx context.Context, id string) (Header, error) {
	h, err := scanHeader(t.tx.QueryRow(ctx, `SELECT `+headerColumns+` FROM transaction_header WHERE transaction_id = $1 FOR UPDATE`, id))
	if err != nil {
		return Header{}, wrapErr("ledger: get header", err)
	}
	return h, nil
}

func (t *txRepo) GetDetail(ctx context.Context, txID, detailID string) (Detail, error) {
	var d Detail
	err := t.tx.QueryRow(ctx, `SELECT detail_id, transaction_id, item_name, quantity, inventory_status, status,
		COALESCE(lot_number, ''), COALESCE(comments, '')
		FROM transaction_detail WHERE transaction_id = $1 AND detail_id = $2 FOR UPDATE`, txID, detailID).
		Scan(&d.ID, &d.TransactionID, &d.ItemName, &d.Quantity, &d.InventoryStatus, &d.Status, &d.LotNumber, &d.Comments)
	if err != nil {
		return Detail{}, wrapErr("ledger: get detail", err)
	}
	return d, nil
}

func (t *txRepo) UpdateHeader(ctx context.Context, id string, fields HeaderUpdate) error {
	tag, err := t.tx.Exec(ctx, `UPDATE transaction_header SET
		transaction_date = COALESCE($2, transaction_date),
		warehouse = COALESCE($3, warehouse),
		reference_type = COALESCE($4, reference_type),
		shipment_carrier = COALESCE($5, shipment_carrier),
		shipping_document = COALESCE($6, shipping_document),
		customer_po = COALESCE($7, customer_po),
		customer_name = COALESCE($8, customer_name),
		comments = COALESCE($9, comments)
		WHERE transaction_id = $1`,
		id, fields.Date, fields.Warehouse, fields.ReferenceType, fields.ShipmentCarrier,
		fields.ShippingDocument, fields.CustomerPO, fields.CustomerName, fields.Comments)
	if err != nil {
		return wrapErr("ledger: update header", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepo) UpdateDetail(ctx context.Context, txID, detailID string, fields DetailUpdate) error {
	var status, invStatus *string
	if fields.Status != nil {
		s := string(*fields.Status)
		status = &s
	}
	if fields.InventoryStatus != nil {
		s := string(*fields.InventoryStatus)
		invStatus = &s
	}
	tag, err := t.tx.Exec(ctx, `UPDATE transaction_detail SET
		quantity = COALESCE($3, quantity),
		inventory_status = COALESCE($4, inventory_status),
		status = COALESCE($5, status),
		lot_number = COALESCE($6, lot_number),
		comments = COALESCE($7, comments)
		WHERE transaction_id = $1 AND detail_id = $2`,
		txID, detailID, fields.Quantity, invStatus, status, fields.LotNumber, fields.Comments)
	if err != nil {
		return wrapErr("ledger: update detail", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepo) AdvancePending(ctx context.Context, txID string, to DetailStatus) (int64, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE transaction_detail SET status = $2 WHERE transaction_id = $1 AND status = $3`,
		txID, string(to), string(StatusPending))
	if err != nil {
		return 0, wrapErr("ledger: advance pending", err)
	}
	return tag.RowsAffected(), nil
}

func (t *txRepo) DeleteDetail(ctx context.Context, txID, detailID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM transaction_detail WHERE transaction_id = $1 AND detail_id = $2`, txID, detailID)
	if err != nil {
		return wrapErr("ledger: delete detail", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepo) CountDetails(ctx context.Context, txID string) (int, error) {
	var n int
	if err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM transaction_detail WHERE transaction_id = $1`, txID).Scan(&n); err != nil {
		return 0, wrapErr("ledger: count details", err)
	}
	return n, nil
}

func (t *txRepo) DeleteDetails(ctx context.Context, txID string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM transaction_detail WHERE transaction_id = $1`, txID); err != nil {
		return wrapErr("ledger: delete details", err)
	}
	return nil
}

func (t *txRepo) DeleteHeader(ctx context.Context, txID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM transaction_header WHERE transaction_id = $1`, txID)
	if err != nil {
		return wrapErr("ledger: delete header", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// wrapErr translates store failures into the shared taxonomy. Reference
// collisions surface as ErrReferenceConflict so the mint loop can retry.
func wrapErr(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return shared.ErrNotFound
	case db.IsUniqueViolation(err, referenceUniqueConstraint):
		return fmt.Errorf("%s: %w", op, ErrReferenceConflict)
	case db.IsPermissionDenied(err):
		return fmt.Errorf("%s: %w", op, shared.ErrPermissionDenied)
	case db.IsTransient(err):
		return &shared.TransientError{Op: op, Cause: err}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
