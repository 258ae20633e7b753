package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-wms/meridian/internal/authz"
	"github.com/meridian-wms/meridian/internal/platform/httpx"
	"github.com/meridian-wms/meridian/internal/shared"
)

// Handler wires HTTP endpoints for the transaction ledger.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	authz     authz.Middleware
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service, authzMW authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), authz: authzMW}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.authz.Require(authz.PermLedgerView))
			r.Get("/", h.listTransactions)
			r.Get("/{id}", h.getTransaction)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.authz.Require(authz.PermLedgerEdit))
			r.Post("/", h.createTransaction)
			r.Patch("/{id}", h.updateHeader)
			r.Delete("/{id}", h.deleteTransaction)
			r.Post("/{id}/advance", h.advance)
			r.Patch("/{id}/details/{detailID}", h.updateDetail)
			r.Delete("/{id}/details/{detailID}", h.deleteDetail)
		})
	})
}

type createItemRequest struct {
	ItemName  string `json:"item_name" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
	LotNumber string `json:"lot_number"`
	Comments  string `json:"comments"`
}

type transferRequest struct {
	DestinationWarehouse    string `json:"destination_warehouse" validate:"required"`
	TransferDate            string `json:"transfer_date" validate:"omitempty,datetime=2006-01-02"`
	InventoryStatusOverride string `json:"inventory_status_override"`
}

type createTransactionRequest struct {
	Type             string              `json:"type" validate:"required"`
	Date             string              `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Warehouse        string              `json:"warehouse" validate:"required"`
	ReferenceType    string              `json:"reference_type"`
	Status           string              `json:"status"`
	InventoryStatus  string              `json:"inventory_status"`
	Items            []createItemRequest `json:"items" validate:"required,min=1,dive"`
	ShipmentCarrier  string              `json:"shipment_carrier"`
	ShippingDocument string              `json:"shipping_document"`
	CustomerPO       string              `json:"customer_po"`
	CustomerName     string              `json:"customer_name"`
	Comments         string              `json:"comments"`
	Transfer         *transferRequest    `json:"transfer"`
	IdempotencyKey   string              `json:"idempotency_key"`
}

type headerResponse struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Date                 string `json:"date"`
	Warehouse            string `json:"warehouse"`
	ReferenceType        string `json:"reference_type,omitempty"`
	ReferenceNumber      string `json:"reference_number"`
	ShipmentCarrier      string `json:"shipment_carrier,omitempty"`
	ShippingDocument     string `json:"shipping_document,omitempty"`
	CustomerPO           string `json:"customer_po,omitempty"`
	CustomerName         string `json:"customer_name,omitempty"`
	Comments             string `json:"comments,omitempty"`
	RelatedTransactionID string `json:"related_transaction_id,omitempty"`
}

type detailResponse struct {
	ID              string `json:"id"`
	ItemName        string `json:"item_name"`
	Quantity        int64  `json:"quantity"`
	InventoryStatus string `json:"inventory_status"`
	Status          string `json:"status"`
	LotNumber       string `json:"lot_number,omitempty"`
	Comments        string `json:"comments,omitempty"`
}

func toHeaderResponse(h Header) headerResponse {
	return headerResponse{
		ID:                   h.ID,
		Type:                 string(h.Type),
		Date:                 h.Date.Format("2006-01-02"),
		Warehouse:            h.Warehouse,
		ReferenceType:        h.ReferenceType,
		ReferenceNumber:      h.ReferenceNumber,
		ShipmentCarrier:      h.ShipmentCarrier,
		ShippingDocument:     h.ShippingDocument,
		CustomerPO:           h.CustomerPO,
		CustomerName:         h.CustomerName,
		Comments:             h.Comments,
		RelatedTransactionID: h.RelatedTransactionID,
	}
}

func toDetailResponses(details []Detail) []detailResponse {
	out := make([]detailResponse, len(details))
	for i, d := range details {
		out[i] = detailResponse{
			ID:              d.ID,
			ItemName:        d.ItemName,
			Quantity:        d.Quantity,
			InventoryStatus: string(d.InventoryStatus),
			Status:          string(d.Status),
			LotNumber:       d.LotNumber,
			Comments:        d.Comments,
		}
	}
	return out
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", nil, "malformed JSON"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}

	input := CreateInput{
		Type:             TxType(req.Type),
		Warehouse:        req.Warehouse,
		ReferenceType:    req.ReferenceType,
		Status:           DetailStatus(req.Status),
		InventoryStatus:  InventoryStatus(req.InventoryStatus),
		ShipmentCarrier:  req.ShipmentCarrier,
		ShippingDocument: req.ShippingDocument,
		CustomerPO:       req.CustomerPO,
		CustomerName:     req.CustomerName,
		Comments:         req.Comments,
		IdempotencyKey:   req.IdempotencyKey,
	}
	if req.Date != "" {
		input.Date, _ = time.Parse("2006-01-02", req.Date)
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, ItemInput{
			ItemName:  item.ItemName,
			Quantity:  item.Quantity,
			LotNumber: item.LotNumber,
			Comments:  item.Comments,
		})
	}
	if req.Transfer != nil {
		fields := TransferFields{
			DestinationWarehouse:    req.Transfer.DestinationWarehouse,
			InventoryStatusOverride: InventoryStatus(req.Transfer.InventoryStatusOverride),
		}
		if req.Transfer.TransferDate != "" {
			fields.TransferDate, _ = time.Parse("2006-01-02", req.Transfer.TransferDate)
		}
		input.Transfer = &fields
	}

	header, err := h.service.CreateTransaction(r.Context(), input)
	if err != nil {
		h.logger.Error("create transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("transaction created",
		slog.String("id", header.ID),
		slog.String("reference", header.ReferenceNumber),
		slog.String("type", string(header.Type)))
	httpx.JSON(w, http.StatusCreated, toHeaderResponse(header))
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	header, details, err := h.service.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"header":  toHeaderResponse(header),
		"details": toDetailResponses(details),
	})
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Warehouse: q.Get("warehouse"),
		Type:      TxType(q.Get("type")),
		Page:      atoiDefault(q.Get("page"), 1),
		PerPage:   atoiDefault(q.Get("per_page"), 20),
	}
	headers, pagination, err := h.service.ListTransactions(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]headerResponse, len(headers))
	for i, header := range headers {
		out[i] = toHeaderResponse(header)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"transactions": out,
		"pagination": map[string]int{
			"page":        pagination.Page,
			"per_page":    pagination.PerPage,
			"total":       pagination.Total,
			"total_pages": pagination.TotalPages,
		},
	})
}

type updateHeaderRequest struct {
	Date             *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Warehouse        *string `json:"warehouse"`
	ReferenceType    *string `json:"reference_type"`
	ShipmentCarrier  *string `json:"shipment_carrier"`
	ShippingDocument *string `json:"shipping_document"`
	CustomerPO       *string `json:"customer_po"`
	CustomerName     *string `json:"customer_name"`
	Comments         *string `json:"comments"`
}

func (h *Handler) updateHeader(w http.ResponseWriter, r *http.Request) {
	var req updateHeaderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", nil, "malformed JSON"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}
	fields := HeaderUpdate{
		Warehouse:        req.Warehouse,
		ReferenceType:    req.ReferenceType,
		ShipmentCarrier:  req.ShipmentCarrier,
		ShippingDocument: req.ShippingDocument,
		CustomerPO:       req.CustomerPO,
		CustomerName:     req.CustomerName,
		Comments:         req.Comments,
	}
	if req.Date != nil {
		date, _ := time.Parse("2006-01-02", *req.Date)
		fields.Date = &date
	}
	if err := h.service.UpdateHeader(r.Context(), chi.URLParam(r, "id"), fields); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateDetailRequest struct {
	Quantity        *int64  `json:"quantity" validate:"omitempty,gt=0"`
	InventoryStatus *string `json:"inventory_status"`
	Status          *string `json:"status"`
	LotNumber       *string `json:"lot_number"`
	Comments        *string `json:"comments"`
}

func (h *Handler) updateDetail(w http.ResponseWriter, r *http.Request) {
	var req updateDetailRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", nil, "malformed JSON"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}
	fields := DetailUpdate{
		Quantity:  req.Quantity,
		LotNumber: req.LotNumber,
		Comments:  req.Comments,
	}
	if req.InventoryStatus != nil {
		s := InventoryStatus(*req.InventoryStatus)
		fields.InventoryStatus = &s
	}
	if req.Status != nil {
		s := DetailStatus(*req.Status)
		fields.Status = &s
	}
	err := h.service.UpdateDetail(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "detailID"), fields)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	advanced, err := h.service.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"advanced": advanced})
}

func (h *Handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteDetail(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteDetail(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "detailID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validationError(err error) error {
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return shared.NewValidationError(fe.Field(), fe.Value(), "failed "+fe.Tag()+" check")
	}
	return shared.NewValidationError("body", nil, err.Error())
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
