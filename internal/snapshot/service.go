package snapshot

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-wms/meridian/internal/shared"
)

// RepositoryPort abstracts view reads for the service.
type RepositoryPort interface {
	GetRows(ctx context.Context, warehouse string, cutoff time.Time) ([]Row, error)
	GetRollup(ctx context.Context, warehouse string) ([]RollupRow, error)
}

// Service derives inventory positions from the ledger views. Reads are
// idempotent for a fixed warehouse+cutoff, so concurrent identical requests
// are collapsed into one store round trip.
type Service struct {
	repo RepositoryPort
	sf   singleflight.Group
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetSnapshot returns one row per item for the warehouse as of the cutoff.
// activeOnly hides rows whose buckets are all zero; historical queries keep
// them.
func (s *Service) GetSnapshot(ctx context.Context, warehouse string, cutoff time.Time, activeOnly bool) ([]Row, error) {
	if warehouse == "" {
		return nil, shared.NewValidationError("warehouse", "", "must not be empty")
	}
	if cutoff.IsZero() {
		cutoff = time.Now().UTC()
	}

	key := fmt.Sprintf("%s:%d", warehouse, cutoff.Unix())
	v, err, _ := s.sf.Do(key, func() (any, error) {
		raw, err := s.repo.GetRows(ctx, warehouse, cutoff)
		if err != nil {
			return nil, err
		}
		return Collapse(raw), nil
	})
	if err != nil {
		return nil, err
	}
	rows := v.([]Row)
	if activeOnly {
		return ActiveOnly(rows), nil
	}
	// Copy so callers cannot mutate the singleflight-shared slice.
	out := make([]Row, len(rows))
	copy(out, rows)
	return out, nil
}

// WarehouseReport pairs the dated snapshot with the rollup summary, fetching
// both concurrently.
func (s *Service) WarehouseReport(ctx context.Context, warehouse string, cutoff time.Time) (Report, error) {
	if warehouse == "" {
		return Report{}, shared.NewValidationError("warehouse", "", "must not be empty")
	}
	if cutoff.IsZero() {
		cutoff = time.Now().UTC()
	}

	var (
		snapshotRows []Row
		rollupRows   []RollupRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.GetSnapshot(gctx, warehouse, cutoff, true)
		if err != nil {
			return err
		}
		snapshotRows = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.GetRollup(gctx, warehouse)
		if err != nil {
			return err
		}
		rollupRows = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return Report{Warehouse: warehouse, Cutoff: cutoff, Snapshot: snapshotRows, Rollup: rollupRows}, nil
}
