// Package snapshot derives on-hand inventory from the transaction ledger.
// Rows are a view over the ledger, never authoritative state of their own.
package snapshot

import "time"

// BucketSet splits a quantity category by inventory sub-status.
type BucketSet struct {
	Stock       int64
	Consignment int64
	Hold        int64
}

// Total sums the sub-status buckets. Negative values pass through untouched.
func (b BucketSet) Total() int64 {
	return b.Stock + b.Consignment + b.Hold
}

// IsZero reports whether every sub-status bucket is exactly zero.
func (b BucketSet) IsZero() bool {
	return b.Stock == 0 && b.Consignment == 0 && b.Hold == 0
}

// Row is the derived inventory position of one item in one warehouse as of a
// date. On-hand can legitimately go negative when outbound movement lands
// before the compensating inbound.
type Row struct {
	ItemName  string
	Warehouse string
	Date      time.Time
	OnHand    BucketSet
	Inbound   BucketSet
	Outbound  BucketSet
	Future    BucketSet
}

// IsZero reports whether every bucket of the row is exactly zero. Zero rows
// are hidden from active views but retained for historical queries.
func (r Row) IsZero() bool {
	return r.OnHand.IsZero() && r.Inbound.IsZero() && r.Outbound.IsZero() && r.Future.IsZero()
}

// RollupRow is the per-item-per-warehouse summary across all dates.
type RollupRow struct {
	ItemName  string
	Warehouse string
	OnHand    BucketSet
	Inbound   BucketSet
	Outbound  BucketSet
	Future    BucketSet
}

// Report pairs the dated snapshot with the rollup summary for a warehouse.
type Report struct {
	Warehouse string
	Cutoff    time.Time
	Snapshot  []Row
	Rollup    []RollupRow
}
