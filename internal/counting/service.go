package counting

import (
	"context"
	"time"

	"github.com/meridian-wms/meridian/internal/ledger"
	"github.com/meridian-wms/meridian/internal/shared"
	"github.com/meridian-wms/meridian/internal/snapshot"
)

// LedgerPort is the slice of the ledger service the counting flow needs.
type LedgerPort interface {
	CreatePrevalidated(ctx context.Context, header ledger.Header, details []ledger.Detail) (ledger.Header, error)
}

// SnapshotPort provides calculated on-hand figures.
type SnapshotPort interface {
	GetSnapshot(ctx context.Context, warehouse string, cutoff time.Time, activeOnly bool) ([]snapshot.Row, error)
}

// Service runs the counting workflow: open a session, record physical counts,
// compute variances against the snapshot, and commit the correcting
// adjustment transaction.
type Service struct {
	sessions  *SessionStore
	ledger    LedgerPort
	snapshots SnapshotPort
	now       func() time.Time
}

// NewService builds Service.
func NewService(sessions *SessionStore, ledgerSvc LedgerPort, snapshots SnapshotPort) *Service {
	return &Service{
		sessions:  sessions,
		ledger:    ledgerSvc,
		snapshots: snapshots,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// StartSession opens a counting session for a warehouse.
func (s *Service) StartSession(ctx context.Context, warehouse string) (Session, error) {
	if warehouse == "" {
		return Session{}, shared.NewValidationError("warehouse", "", "must not be empty")
	}
	return s.sessions.Start(ctx, warehouse)
}

// RecordCount stores one physical count in the session. Counting the same
// item twice keeps only the latest sheet line.
func (s *Service) RecordCount(ctx context.Context, sessionID string, rec CountRecord) error {
	if rec.ItemName == "" {
		return shared.NewValidationError("item_name", "", "must not be empty")
	}
	if rec.Quantity < 0 {
		return shared.NewValidationError("quantity", rec.Quantity, "must not be negative")
	}
	return s.sessions.Record(ctx, sessionID, rec)
}

// Variances compares the session's count sheet against the current snapshot.
// Items never seen by the snapshot count against zero on-hand.
func (s *Service) Variances(ctx context.Context, sessionID string) ([]Variance, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	records, err := s.sessions.Records(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.snapshots.GetSnapshot(ctx, session.Warehouse, s.now(), false)
	if err != nil {
		return nil, err
	}
	return ComputeVariances(records, snapshot.OnHandByItem(rows)), nil
}

// CommitAdjustment turns the session's non-zero variances into a completed
// adjustment transaction and closes the session. With nothing to correct it
// fails validation rather than writing an empty transaction.
func (s *Service) CommitAdjustment(ctx context.Context, sessionID string) (ledger.Header, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return ledger.Header{}, err
	}
	variances, err := s.Variances(ctx, sessionID)
	if err != nil {
		return ledger.Header{}, err
	}
	created, err := s.GenerateAdjustment(ctx, session.Warehouse, s.now(), variances)
	if err != nil {
		return ledger.Header{}, err
	}
	if err := s.sessions.Discard(ctx, sessionID); err != nil {
		return created, &shared.PartialFailureError{
			Op:        "counting: commit adjustment",
			Completed: []string{"adjustment transaction " + created.ReferenceNumber},
			Cause:     err,
		}
	}
	return created, nil
}

// GenerateAdjustment writes the adjustment transaction correcting the given
// variances. Zero variances are dropped; each remaining line carries the
// absolute quantity, a Completed status, and an overage/shortage comment.
// Such a transaction starts and ends in its terminal state, so it bypasses
// the status lifecycle.
func (s *Service) GenerateAdjustment(ctx context.Context, warehouse string, date time.Time, variances []Variance) (ledger.Header, error) {
	lines := NonZero(variances)
	if len(lines) == 0 {
		return ledger.Header{}, shared.NewValidationError("variances", nil, "no non-zero variances to adjust")
	}

	header := ledger.Header{
		Type:            ledger.TxAdjustment,
		Date:            date,
		Warehouse:       warehouse,
		ReferenceType:   ledger.ReferenceTypeInventoryCount,
		ReferenceNumber: ledger.CountReference(date),
	}
	details := make([]ledger.Detail, len(lines))
	for i, v := range lines {
		qty := v.Variance
		if qty < 0 {
			qty = -qty
		}
		details[i] = ledger.Detail{
			ItemName:        v.ItemName,
			Quantity:        qty,
			InventoryStatus: ledger.InvStock,
			Status:          ledger.StatusCompleted,
			Comments:        v.Comment(),
		}
	}
	return s.ledger.CreatePrevalidated(ctx, header, details)
}

// AbandonSession discards a session without writing an adjustment.
func (s *Service) AbandonSession(ctx context.Context, sessionID string) error {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return err
	}
	return s.sessions.Discard(ctx, sessionID)
}

// SweepExpired removes index entries for sessions whose TTL has lapsed.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	return s.sessions.Sweep(ctx)
}
