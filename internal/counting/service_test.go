package counting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-wms/meridian/internal/ledger"
	"github.com/meridian-wms/meridian/internal/shared"
	"github.com/meridian-wms/meridian/internal/snapshot"
)

type fakeLedger struct {
	created []struct {
		Header  ledger.Header
		Details []ledger.Detail
	}
	fail error
}

func (l *fakeLedger) CreatePrevalidated(_ context.Context, header ledger.Header, details []ledger.Detail) (ledger.Header, error) {
	if l.fail != nil {
		return ledger.Header{}, l.fail
	}
	header.ID = "tx-1"
	l.created = append(l.created, struct {
		Header  ledger.Header
		Details []ledger.Detail
	}{header, details})
	return header, nil
}

type fakeSnapshot struct {
	rows []snapshot.Row
}

func (s *fakeSnapshot) GetSnapshot(context.Context, string, time.Time, bool) ([]snapshot.Row, error) {
	return s.rows, nil
}

func newTestService(t *testing.T, ledgerSvc LedgerPort, snapshots SnapshotPort, ttl time.Duration) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewService(NewSessionStore(client, ttl), ledgerSvc, snapshots)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC) }
	return svc, mr
}

func TestCountShortageBecomesAdjustment(t *testing.T) {
	led := &fakeLedger{}
	snaps := &fakeSnapshot{rows: []snapshot.Row{
		{ItemName: "widget", Warehouse: "WH-EAST", OnHand: snapshot.BucketSet{Stock: 50}},
	}}
	svc, _ := newTestService(t, led, snaps, time.Hour)
	ctx := context.Background()

	session, err := svc.StartSession(ctx, "WH-EAST")
	require.NoError(t, err)
	require.NoError(t, svc.RecordCount(ctx, session.ID, CountRecord{ItemName: "widget", Quantity: 45}))

	created, err := svc.CommitAdjustment(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.TxAdjustment, created.Type)
	require.Equal(t, ledger.ReferenceTypeInventoryCount, created.ReferenceType)
	require.Equal(t, "ADJ-20240315103000", created.ReferenceNumber)

	require.Len(t, led.created, 1)
	details := led.created[0].Details
	require.Len(t, details, 1)
	require.EqualValues(t, 5, details[0].Quantity, "line quantity is the absolute variance")
	require.Equal(t, ledger.StatusCompleted, details[0].Status)
	require.Equal(t, ledger.InvStock, details[0].InventoryStatus)
	require.Equal(t, CommentShortage, details[0].Comments)

	// Committing closes the session.
	_, err = svc.Variances(ctx, session.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestZeroVariancesExcluded(t *testing.T) {
	led := &fakeLedger{}
	snaps := &fakeSnapshot{rows: []snapshot.Row{
		{ItemName: "short", OnHand: snapshot.BucketSet{Stock: 10}},
		{ItemName: "exact", OnHand: snapshot.BucketSet{Stock: 7}},
	}}
	svc, _ := newTestService(t, led, snaps, time.Hour)
	ctx := context.Background()

	session, err := svc.StartSession(ctx, "WH-EAST")
	require.NoError(t, err)
	require.NoError(t, svc.RecordCount(ctx, session.ID, CountRecord{ItemName: "short", Quantity: 5}))
	require.NoError(t, svc.RecordCount(ctx, session.ID, CountRecord{ItemName: "exact", Quantity: 7}))
	require.NoError(t, svc.RecordCount(ctx, session.ID, CountRecord{ItemName: "extra", Quantity: 3}))

	_, err = svc.CommitAdjustment(ctx, session.ID)
	require.NoError(t, err)

	require.Len(t, led.created, 1)
	details := led.created[0].Details
	require.Len(t, details, 2, "exact matches produce no adjustment line")
	require.Equal(t, "extra", details[0].ItemName)
	require.Equal(t, CommentOverage, details[0].Comments)
	require.Equal(t, "short", details[1].ItemName)
	require.Equal(t, CommentShortage, details[1].Comments)
}

func TestCommitWithoutVariancesFails(t *testing.T) {
	led := &fakeLedger{}
	snaps := &fakeSnapshot{rows: []snapshot.Row{
		{ItemName: "widget", OnHand: snapshot.BucketSet{Stock: 9}},
	}}
	svc, _ := newTestService(t, led, snaps, time.Hour)
	ctx := context.Background()

	session, err := svc.StartSession(ctx, "WH-EAST")
	require.NoError(t, err)
	require.NoError(t, svc.RecordCount(ctx, session.ID, CountRecord{ItemName: "widget", Quantity: 9}))

	_, err = svc.CommitAdjustment(ctx, session.ID)
	var ve *shared.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Empty(t, led.created)

	// The session survives a rejected commit.
	variances, err := svc.Variances(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, variances, 1)
}

func TestRecountOverwritesEarlierLine(t *testing.T) {
	led := &fakeLedger{}
	svc, _ := newTestService(t, led, &fakeSnapshot{}, time.Hour)
	ctx := context.Background()

	session, err := svc.StartSession(ctx, "WH-EAST")
	require.NoError(t, err)
	require.NoError(t, svc.RecordCount(ctx, session.ID, CountRecord{ItemName: "widget", Quantity: 40}))
	require.NoError(t, svc.RecordCount(ctx, session.ID, CountRecord{ItemName: "widget", Quantity: 45}))

	variances, err := svc.Variances(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, variances, 1)
	require.EqualValues(t, 45, variances[0].PhysicalCount)
}

func TestSessionExpires(t *testing.T) {
	svc, mr := newTestService(t, &fakeLedger{}, &fakeSnapshot{}, time.Minute)
	ctx := context.Background()

	session, err := svc.StartSession(ctx, "WH-EAST")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	err = svc.RecordCount(ctx, session.ID, CountRecord{ItemName: "widget", Quantity: 1})
	require.ErrorIs(t, err, ErrSessionNotFound)

	swept, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, swept)
}

func TestCommitFailureKeepsSession(t *testing.T) {
	boom := errors.New("ledger down")
	led := &fakeLedger{fail: boom}
	snaps := &fakeSnapshot{rows: []snapshot.Row{
		{ItemName: "widget", OnHand: snapshot.BucketSet{Stock: 10}},
	}}
	svc, _ := newTestService(t, led, snaps, time.Hour)
	ctx := context.Background()

	session, err := svc.StartSession(ctx, "WH-EAST")
	require.NoError(t, err)
	require.NoError(t, svc.RecordCount(ctx, session.ID, CountRecord{ItemName: "widget", Quantity: 4}))

	_, err = svc.CommitAdjustment(ctx, session.ID)
	require.ErrorIs(t, err, boom)

	_, err = svc.Variances(ctx, session.ID)
	require.NoError(t, err, "a failed commit must not discard the sheet")
}

func TestRecordCountValidation(t *testing.T) {
	svc, _ := newTestService(t, &fakeLedger{}, &fakeSnapshot{}, time.Hour)
	ctx := context.Background()

	session, err := svc.StartSession(ctx, "WH-EAST")
	require.NoError(t, err)

	var ve *shared.ValidationError
	require.ErrorAs(t, svc.RecordCount(ctx, session.ID, CountRecord{ItemName: "", Quantity: 1}), &ve)
	require.ErrorAs(t, svc.RecordCount(ctx, session.ID, CountRecord{ItemName: "widget", Quantity: -1}), &ve)

	_, err = svc.StartSession(ctx, "")
	require.ErrorAs(t, err, &ve)
}
