package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-wms/meridian/internal/shared"
)

type memoryRepo struct {
	headers map[string]Header
	details map[string][]Detail

	failInsertHeader func(Header) error
	failDeleteHeader error
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{headers: make(map[string]Header), details: make(map[string][]Detail)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetHeader(ctx context.Context, id string) (Header, error) {
	h, ok := r.headers[id]
	if !ok {
		return Header{}, shared.ErrNotFound
	}
	return h, nil
}

func (r *memoryRepo) GetDetails(ctx context.Context, txID string) ([]Detail, error) {
	out := make([]Detail, len(r.details[txID]))
	copy(out, r.details[txID])
	return out, nil
}

func (r *memoryRepo) ListHeaders(ctx context.Context, filter ListFilter) ([]Header, int, error) {
	var headers []Header
	for _, h := range r.headers {
		if filter.Warehouse != "" && h.Warehouse != filter.Warehouse {
			continue
		}
		if filter.Type != "" && h.Type != filter.Type {
			continue
		}
		headers = append(headers, h)
	}
	return headers, len(headers), nil
}

func (t *memoryTx) MaxReferenceSuffix(ctx context.Context, prefix string) (int, error) {
	max := 0
	for _, h := range t.repo.headers {
		if !strings.HasPrefix(h.ReferenceNumber, prefix) {
			continue
		}
		if len(h.ReferenceNumber) != len(prefix)+5 {
			continue
		}
		if n := ParseReferenceSuffix(h.ReferenceNumber); n > max {
			max = n
		}
	}
	return max, nil
}

func (t *memoryTx) InsertHeader(ctx context.Context, h Header) error {
	if t.repo.failInsertHeader != nil {
		if err := t.repo.failInsertHeader(h); err != nil {
			return err
		}
	}
	for _, existing := range t.repo.headers {
		if existing.ReferenceNumber == h.ReferenceNumber {
			return ErrReferenceConflict
		}
	}
	t.repo.headers[h.ID] = h
	return nil
}

func (t *memoryTx) InsertDetails(ctx context.Context, details []Detail) error {
	for _, d := range details {
		t.repo.details[d.TransactionID] = append(t.repo.details[d.TransactionID], d)
	}
	return nil
}

func (t *memoryTx) GetHeader(ctx context.Context, id string) (Header, error) {
	return t.repo.GetHeader(ctx, id)
}

func (t *memoryTx) GetDetail(ctx context.Context, txID, detailID string) (Detail, error) {
	for _, d := range t.repo.details[txID] {
		if d.ID == detailID {
			return d, nil
		}
	}
	return Detail{}, shared.ErrNotFound
}

func (t *memoryTx) UpdateHeader(ctx context.Context, id string, fields HeaderUpdate) error {
	h, ok := t.repo.headers[id]
	if !ok {
		return shared.ErrNotFound
	}
	if fields.Warehouse != nil {
		h.Warehouse = *fields.Warehouse
	}
	if fields.Comments != nil {
		h.Comments = *fields.Comments
	}
	if fields.Date != nil {
		h.Date = *fields.Date
	}
	t.repo.headers[id] = h
	return nil
}

func (t *memoryTx) UpdateDetail(ctx context.Context, txID, detailID string, fields DetailUpdate) error {
	details := t.repo.details[txID]
	for i, d := range details {
		if d.ID != detailID {
			continue
		}
		if fields.Quantity != nil {
			d.Quantity = *fields.Quantity
		}
		if fields.Status != nil {
			d.Status = *fields.Status
		}
		if fields.InventoryStatus != nil {
			d.InventoryStatus = *fields.InventoryStatus
		}
		details[i] = d
		return nil
	}
	return shared.ErrNotFound
}

func (t *memoryTx) AdvancePending(ctx context.Context, txID string, to DetailStatus) (int64, error) {
	var advanced int64
	details := t.repo.details[txID]
	for i, d := range details {
		if d.Status == StatusPending {
			details[i].Status = to
			advanced++
		}
	}
	return advanced, nil
}

func (t *memoryTx) DeleteDetail(ctx context.Context, txID, detailID string) error {
	details := t.repo.details[txID]
	for i, d := range details {
		if d.ID == detailID {
			t.repo.details[txID] = append(details[:i], details[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (t *memoryTx) CountDetails(ctx context.Context, txID string) (int, error) {
	return len(t.repo.details[txID]), nil
}

func (t *memoryTx) DeleteDetails(ctx context.Context, txID string) error {
	delete(t.repo.details, txID)
	return nil
}

func (t *memoryTx) DeleteHeader(ctx context.Context, txID string) error {
	if t.repo.failDeleteHeader != nil {
		return t.repo.failDeleteHeader
	}
	if _, ok := t.repo.headers[txID]; !ok {
		return shared.ErrNotFound
	}
	delete(t.repo.headers, txID)
	return nil
}

func basicCreate(txType TxType) CreateInput {
	return CreateInput{
		Type:      txType,
		Date:      time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Warehouse: "WH-EAST",
		Items:     []ItemInput{{ItemName: "widget", Quantity: 10}},
	}
}

func TestSequentialReferences(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		header, err := svc.CreateTransaction(ctx, basicCreate(TxInbound))
		require.NoError(t, err)
		require.Equal(t, FormatReference("IB-", i), header.ReferenceNumber)
	}

	// Each prefix carries its own sequence.
	header, err := svc.CreateTransaction(ctx, basicCreate(TxOutbound))
	require.NoError(t, err)
	require.Equal(t, "OB-00001", header.ReferenceNumber)

	header, err = svc.CreateTransaction(ctx, basicCreate(TxAdjustment))
	require.NoError(t, err)
	require.Equal(t, "ADJ-00001", header.ReferenceNumber)
}

func TestCreateValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	var ve *shared.ValidationError

	input := basicCreate(TxInbound)
	input.Status = StatusShipped // outbound-only status
	_, err := svc.CreateTransaction(ctx, input)
	require.ErrorAs(t, err, &ve)

	input = basicCreate(TxType("RETURN"))
	_, err = svc.CreateTransaction(ctx, input)
	require.ErrorAs(t, err, &ve)

	input = basicCreate(TxInbound)
	input.Items = nil
	_, err = svc.CreateTransaction(ctx, input)
	require.ErrorAs(t, err, &ve)

	input = basicCreate(TxInbound)
	input.Items[0].Quantity = -4
	_, err = svc.CreateTransaction(ctx, input)
	require.ErrorAs(t, err, &ve)

	require.Empty(t, repo.headers, "validation failures must not write")
}

func TestTransferCreatesMirror(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	input := basicCreate(TxOutbound)
	input.ReferenceType = ReferenceTypeTransferOrder
	input.Status = StatusShipped
	input.Items = []ItemInput{
		{ItemName: "widget", Quantity: 10},
		{ItemName: "gadget", Quantity: 3},
	}
	input.Transfer = &TransferFields{DestinationWarehouse: "WH-WEST"}

	primary, err := svc.CreateTransaction(ctx, input)
	require.NoError(t, err)
	require.Len(t, repo.headers, 2)

	var mirror Header
	for _, h := range repo.headers {
		if h.ID != primary.ID {
			mirror = h
		}
	}
	require.Equal(t, TxInbound, mirror.Type)
	require.Equal(t, "WH-WEST", mirror.Warehouse)
	require.Equal(t, primary.ID, mirror.RelatedTransactionID)
	require.Equal(t, "IB-00001", mirror.ReferenceNumber)
	require.Equal(t, AddBusinessDays(input.Date, 2), mirror.Date)

	mirrorDetails := repo.details[mirror.ID]
	require.Len(t, mirrorDetails, 2)
	for _, d := range mirrorDetails {
		require.Equal(t, StatusPending, d.Status)
	}

	primaryDetails := repo.details[primary.ID]
	require.Len(t, primaryDetails, 2)
	for _, d := range primaryDetails {
		require.Equal(t, StatusShipped, d.Status)
	}
}

func TestTransferMirrorFailureCompensates(t *testing.T) {
	repo := newMemoryRepo()
	boom := errors.New("mirror insert refused")
	repo.failInsertHeader = func(h Header) error {
		if h.Type == TxInbound {
			return boom
		}
		return nil
	}
	svc := NewService(repo, nil, nil)

	input := basicCreate(TxOutbound)
	input.ReferenceType = ReferenceTypeTransferOrder
	input.Transfer = &TransferFields{DestinationWarehouse: "WH-WEST"}

	_, err := svc.CreateTransaction(context.Background(), input)
	require.ErrorIs(t, err, boom)

	var pf *shared.PartialFailureError
	require.False(t, errors.As(err, &pf), "compensated failure is not partial")
	require.Empty(t, repo.headers, "primary must be rolled back")
}

func TestTransferMirrorFailureSurfacesPartial(t *testing.T) {
	repo := newMemoryRepo()
	repo.failInsertHeader = func(h Header) error {
		if h.Type == TxInbound {
			return errors.New("mirror insert refused")
		}
		return nil
	}
	repo.failDeleteHeader = errors.New("store unavailable")
	svc := NewService(repo, nil, nil)

	input := basicCreate(TxOutbound)
	input.ReferenceType = ReferenceTypeTransferOrder
	input.Transfer = &TransferFields{DestinationWarehouse: "WH-WEST"}

	_, err := svc.CreateTransaction(context.Background(), input)

	var pf *shared.PartialFailureError
	require.ErrorAs(t, err, &pf)
	require.Contains(t, pf.Completed, "outbound header")
	require.Len(t, repo.headers, 1, "orphaned outbound leg remains for manual compensation")
}

func TestAdvance(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	input := basicCreate(TxOutbound)
	input.Items = []ItemInput{
		{ItemName: "widget", Quantity: 10},
		{ItemName: "gadget", Quantity: 3},
	}
	header, err := svc.CreateTransaction(ctx, input)
	require.NoError(t, err)

	// Pre-advance one line by hand; advancing must leave it untouched.
	details := repo.details[header.ID]
	details[0].Status = StatusShipped

	advanced, err := svc.Advance(ctx, header.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, advanced)
	for _, d := range repo.details[header.ID] {
		require.Equal(t, StatusShipped, d.Status)
	}

	// No pending lines left: a successful no-op.
	advanced, err = svc.Advance(ctx, header.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, advanced)
}

func TestAdvanceUnknownTypeFails(t *testing.T) {
	repo := newMemoryRepo()
	repo.headers["tx-1"] = Header{ID: "tx-1", Type: TxType("RETURN")}
	repo.details["tx-1"] = []Detail{{ID: "d-1", TransactionID: "tx-1", Status: StatusPending}}
	svc := NewService(repo, nil, nil)

	_, err := svc.Advance(context.Background(), "tx-1")
	var ve *shared.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, StatusPending, repo.details["tx-1"][0].Status, "failed advance must not mutate")
}

func TestUpdateDetailRevalidatesStatus(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	header, err := svc.CreateTransaction(ctx, basicCreate(TxInbound))
	require.NoError(t, err)
	detail := repo.details[header.ID][0]

	bad := StatusShipped
	err = svc.UpdateDetail(ctx, header.ID, detail.ID, DetailUpdate{Status: &bad})
	var ve *shared.ValidationError
	require.ErrorAs(t, err, &ve)

	good := StatusReceived
	require.NoError(t, svc.UpdateDetail(ctx, header.ID, detail.ID, DetailUpdate{Status: &good}))
	require.Equal(t, StatusReceived, repo.details[header.ID][0].Status)
}

func TestDeleteLastDetailRemovesHeader(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	input := basicCreate(TxInbound)
	input.Items = []ItemInput{
		{ItemName: "widget", Quantity: 10},
		{ItemName: "gadget", Quantity: 3},
	}
	header, err := svc.CreateTransaction(ctx, input)
	require.NoError(t, err)

	first := repo.details[header.ID][0]
	require.NoError(t, svc.DeleteDetail(ctx, header.ID, first.ID))
	require.Contains(t, repo.headers, header.ID)

	second := repo.details[header.ID][0]
	require.NoError(t, svc.DeleteDetail(ctx, header.ID, second.ID))
	require.NotContains(t, repo.headers, header.ID, "deleting the last line removes the header")
}

func TestCreatePrevalidatedBumpsOnConflict(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	at := time.Date(2024, 3, 15, 9, 30, 45, 0, time.UTC)
	header := Header{
		Type:            TxAdjustment,
		Date:            at,
		Warehouse:       "WH-EAST",
		ReferenceType:   ReferenceTypeInventoryCount,
		ReferenceNumber: CountReference(at),
	}
	details := []Detail{{ItemName: "widget", Quantity: 5, InventoryStatus: InvStock, Status: StatusCompleted}}

	first, err := svc.CreatePrevalidated(ctx, header, details)
	require.NoError(t, err)
	require.Equal(t, "ADJ-20240315093045", first.ReferenceNumber)

	second, err := svc.CreatePrevalidated(ctx, header, details)
	require.NoError(t, err)
	require.Equal(t, "ADJ-20240315093045-2", second.ReferenceNumber)
	require.NotEqual(t, first.ID, second.ID)
}
