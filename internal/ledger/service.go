package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-wms/meridian/internal/shared"
)

// mintAttempts bounds reference-number retries on unique-index conflicts.
const mintAttempts = 3

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetHeader(ctx context.Context, id string) (Header, error)
	GetDetails(ctx context.Context, txID string) ([]Detail, error)
	ListHeaders(ctx context.Context, filter ListFilter) ([]Header, int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the transaction lifecycle: create, edit, advance,
// delete, and the transfer mirror.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem}
}

// CreateTransaction validates the request, mints a reference number, and
// persists header plus detail lines in one store transaction. A "Transfer
// Order" request with a destination warehouse additionally creates the
// mirrored inbound transaction after the primary commits.
func (s *Service) CreateTransaction(ctx context.Context, input CreateInput) (Header, error) {
	if err := validateCreate(&input); err != nil {
		return Header{}, err
	}

	insertedKey := false
	if input.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "ledger"); err != nil {
			return Header{}, err
		}
		insertedKey = true
	}

	header := Header{
		Type:             input.Type,
		Date:             input.Date,
		Warehouse:        input.Warehouse,
		ReferenceType:    input.ReferenceType,
		ShipmentCarrier:  input.ShipmentCarrier,
		ShippingDocument: input.ShippingDocument,
		CustomerPO:       input.CustomerPO,
		CustomerName:     input.CustomerName,
		Comments:         input.Comments,
	}
	details := make([]Detail, len(input.Items))
	for i, item := range input.Items {
		details[i] = Detail{
			ItemName:        item.ItemName,
			Quantity:        item.Quantity,
			InventoryStatus: input.InventoryStatus,
			Status:          input.Status,
			LotNumber:       item.LotNumber,
			Comments:        item.Comments,
		}
	}

	created, err := s.createSequenced(ctx, header, details)
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return Header{}, err
	}

	if isTransfer(input) {
		if err := s.createMirror(ctx, created, details, *input.Transfer); err != nil {
			if insertedKey {
				_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
			}
			return Header{}, err
		}
	}

	s.recordAudit(ctx, "ledger:create:"+string(created.Type), created.ID, map[string]any{
		"reference_number": created.ReferenceNumber,
		"warehouse":        created.Warehouse,
		"lines":            len(details),
	})
	return created, nil
}

// createSequenced mints the next sequential reference for the header type and
// inserts header plus details atomically, retrying the mint when a concurrent
// creator takes the same suffix first.
func (s *Service) createSequenced(ctx context.Context, header Header, details []Detail) (Header, error) {
	prefix := ReferencePrefix(header.Type)
	header.ID = uuid.NewString()

	var lastErr error
	for attempt := 0; attempt < mintAttempts; attempt++ {
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			suffix, err := tx.MaxReferenceSuffix(ctx, prefix)
			if err != nil {
				return err
			}
			header.ReferenceNumber = FormatReference(prefix, suffix+1)
			if err := tx.InsertHeader(ctx, header); err != nil {
				return err
			}
			return tx.InsertDetails(ctx, withOwner(details, header.ID))
		})
		if err == nil {
			return header, nil
		}
		if !errors.Is(err, ErrReferenceConflict) {
			return Header{}, err
		}
		lastErr = err
	}
	return Header{}, fmt.Errorf("ledger: reference sequence exhausted retries: %w: %w", shared.ErrConflict, lastErr)
}

// createMirror inserts the inbound half of a transfer. The primary has
// already committed; a mirror failure triggers compensation (delete the
// primary), and a failed compensation is surfaced as a partial failure so the
// orphaned outbound leg is never silent.
func (s *Service) createMirror(ctx context.Context, primary Header, details []Detail, fields TransferFields) error {
	mirror, mirrored := BuildMirror(primary, details, fields)
	created, err := s.createSequenced(ctx, mirror, mirrored)
	if err == nil {
		s.recordAudit(ctx, "ledger:create:mirror", created.ID, map[string]any{
			"reference_number": created.ReferenceNumber,
			"primary_id":       primary.ID,
			"warehouse":        created.Warehouse,
		})
		return nil
	}

	compErr := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteDetails(ctx, primary.ID); err != nil {
			return err
		}
		return tx.DeleteHeader(ctx, primary.ID)
	})
	if compErr != nil {
		return &shared.PartialFailureError{
			Op:        "ledger: create transfer",
			Completed: []string{"outbound header", "outbound details"},
			Cause:     fmt.Errorf("mirror insert failed (%w) and compensation failed (%v)", err, compErr),
		}
	}
	return fmt.Errorf("ledger: transfer mirror failed, outbound leg rolled back: %w", err)
}

func isTransfer(input CreateInput) bool {
	return input.ReferenceType == ReferenceTypeTransferOrder &&
		input.Transfer != nil && input.Transfer.DestinationWarehouse != ""
}

// CreatePrevalidated inserts a header whose detail statuses were already
// reconciled by the caller, bypassing the status policy. The reference number
// must be pre-assigned; collisions bump a counter suffix instead of drawing
// from the sequential generator.
func (s *Service) CreatePrevalidated(ctx context.Context, header Header, details []Detail) (Header, error) {
	if header.ReferenceNumber == "" {
		return Header{}, shared.NewValidationError("reference_number", nil, "required for prevalidated create")
	}
	if len(details) == 0 {
		return Header{}, shared.NewValidationError("items", nil, "at least one detail line required")
	}
	header.ID = uuid.NewString()

	var lastErr error
	for attempt := 0; attempt < mintAttempts; attempt++ {
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if err := tx.InsertHeader(ctx, header); err != nil {
				return err
			}
			return tx.InsertDetails(ctx, withOwner(details, header.ID))
		})
		if err == nil {
			s.recordAudit(ctx, "ledger:create:"+string(header.Type), header.ID, map[string]any{
				"reference_number": header.ReferenceNumber,
				"warehouse":        header.Warehouse,
				"lines":            len(details),
			})
			return header, nil
		}
		if !errors.Is(err, ErrReferenceConflict) {
			return Header{}, err
		}
		lastErr = err
		header.ReferenceNumber = BumpReference(header.ReferenceNumber)
	}
	return Header{}, fmt.Errorf("ledger: prevalidated reference exhausted retries: %w: %w", shared.ErrConflict, lastErr)
}

// GetTransaction loads a header with its detail lines.
func (s *Service) GetTransaction(ctx context.Context, id string) (Header, []Detail, error) {
	header, err := s.repo.GetHeader(ctx, id)
	if err != nil {
		return Header{}, nil, err
	}
	details, err := s.repo.GetDetails(ctx, id)
	if err != nil {
		return Header{}, nil, err
	}
	return header, details, nil
}

// ListTransactions lists headers matching the filter.
func (s *Service) ListTransactions(ctx context.Context, filter ListFilter) ([]Header, shared.Pagination, error) {
	headers, total, err := s.repo.ListHeaders(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return headers, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// UpdateHeader edits scalar header fields. Type and reference number are not
// editable.
func (s *Service) UpdateHeader(ctx context.Context, id string, fields HeaderUpdate) error {
	if fields.Warehouse != nil && *fields.Warehouse == "" {
		return shared.NewValidationError("warehouse", "", "must not be empty")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateHeader(ctx, id, fields)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "ledger:update:header", id, nil)
	return nil
}

// UpdateDetail edits a detail line, re-validating any status change against
// the owning header's type before touching the store.
func (s *Service) UpdateDetail(ctx context.Context, txID, detailID string, fields DetailUpdate) error {
	if fields.Quantity != nil && *fields.Quantity <= 0 {
		return shared.NewValidationError("quantity", *fields.Quantity, "must be positive")
	}
	if fields.InventoryStatus != nil && !KnownInventoryStatus(*fields.InventoryStatus) {
		return shared.NewValidationError("inventory_status", string(*fields.InventoryStatus), "unknown inventory status")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		header, err := tx.GetHeader(ctx, txID)
		if err != nil {
			return err
		}
		if fields.Status != nil && !ValidStatus(header.Type, *fields.Status) {
			return shared.NewValidationError("status", string(*fields.Status),
				fmt.Sprintf("not valid for %s transactions", header.Type))
		}
		return tx.UpdateDetail(ctx, txID, detailID, fields)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "ledger:update:detail", detailID, map[string]any{"transaction_id": txID})
	return nil
}

// Advance flips every Pending detail line of the transaction to the terminal
// status of its type. Lines already advanced are left untouched; zero pending
// lines is a successful no-op. Returns the number of lines advanced.
func (s *Service) Advance(ctx context.Context, txID string) (int64, error) {
	var advanced int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		header, err := tx.GetHeader(ctx, txID)
		if err != nil {
			return err
		}
		next, ok := NextStatus(header.Type)
		if !ok {
			return shared.NewValidationError("transaction_type", string(header.Type), "no next step defined")
		}
		advanced, err = tx.AdvancePending(ctx, txID, next)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, "ledger:advance", txID, map[string]any{"lines": advanced})
	return advanced, nil
}

// DeleteDetail removes one detail line; removing the last line removes the
// header with it.
func (s *Service) DeleteDetail(ctx context.Context, txID, detailID string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteDetail(ctx, txID, detailID); err != nil {
			return err
		}
		remaining, err := tx.CountDetails(ctx, txID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return tx.DeleteHeader(ctx, txID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "ledger:delete:detail", detailID, map[string]any{"transaction_id": txID})
	return nil
}

// DeleteTransaction removes a header and all of its detail lines.
func (s *Service) DeleteTransaction(ctx context.Context, txID string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteDetails(ctx, txID); err != nil {
			return err
		}
		return tx.DeleteHeader(ctx, txID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "ledger:delete:transaction", txID, nil)
	return nil
}

func validateCreate(input *CreateInput) error {
	if !KnownType(input.Type) {
		return shared.NewValidationError("transaction_type", string(input.Type), "unsupported transaction type")
	}
	if input.Warehouse == "" {
		return shared.NewValidationError("warehouse", "", "must not be empty")
	}
	if len(input.Items) == 0 {
		return shared.NewValidationError("items", nil, "at least one detail line required")
	}
	for i, item := range input.Items {
		if item.ItemName == "" {
			return shared.NewValidationError(fmt.Sprintf("items[%d].item_name", i), "", "must not be empty")
		}
		if item.Quantity <= 0 {
			return shared.NewValidationError(fmt.Sprintf("items[%d].quantity", i), item.Quantity, "must be positive")
		}
	}
	if input.Status == "" {
		input.Status = StatusPending
	}
	if !ValidStatus(input.Type, input.Status) {
		return shared.NewValidationError("status", string(input.Status),
			fmt.Sprintf("not valid for %s transactions", input.Type))
	}
	if input.InventoryStatus == "" {
		input.InventoryStatus = InvStock
	}
	if !KnownInventoryStatus(input.InventoryStatus) {
		return shared.NewValidationError("inventory_status", string(input.InventoryStatus), "unknown inventory status")
	}
	if input.Date.IsZero() {
		input.Date = time.Now().UTC()
	}
	if input.Transfer != nil && input.Transfer.DestinationWarehouse == input.Warehouse && input.Transfer.DestinationWarehouse != "" {
		return shared.NewValidationError("transfer.destination_warehouse", input.Transfer.DestinationWarehouse,
			"must differ from the source warehouse")
	}
	return nil
}

func withOwner(details []Detail, txID string) []Detail {
	owned := make([]Detail, len(details))
	for i, d := range details {
		d.ID = uuid.NewString()
		d.TransactionID = txID
		owned[i] = d
	}
	return owned
}

func (s *Service) recordAudit(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	actor := shared.ActorFromContext(ctx)
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "ledger_transaction",
		EntityID: entityID,
		Meta:     meta,
	})
}
