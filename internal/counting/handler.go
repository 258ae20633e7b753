package counting

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-wms/meridian/internal/authz"
	"github.com/meridian-wms/meridian/internal/platform/httpx"
	"github.com/meridian-wms/meridian/internal/shared"
)

// Handler wires HTTP endpoints for counting sessions.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	authz     authz.Middleware
}

// NewHandler constructs the counting handler.
func NewHandler(logger *slog.Logger, service *Service, authzMW authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), authz: authzMW}
}

// MountRoutes registers counting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/counts/sessions", func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermCountingEdit))
		r.Post("/", h.startSession)
		r.Post("/{id}/records", h.recordCount)
		r.Get("/{id}/variances", h.getVariances)
		r.Post("/{id}/adjustment", h.commitAdjustment)
		r.Delete("/{id}", h.abandonSession)
	})
}

type startSessionRequest struct {
	Warehouse string `json:"warehouse" validate:"required"`
}

type recordCountRequest struct {
	ItemName string `json:"item_name" validate:"required"`
	Quantity int64  `json:"quantity" validate:"gte=0"`
	Notes    string `json:"notes"`
}

type varianceResponse struct {
	ItemName      string `json:"item_name"`
	PhysicalCount int64  `json:"physical_count"`
	OnHand        int64  `json:"on_hand"`
	Variance      int64  `json:"variance"`
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}
	session, err := h.service.StartSession(r.Context(), req.Warehouse)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"session_id": session.ID,
		"warehouse":  session.Warehouse,
		"started_at": session.StartedAt,
	})
}

func (h *Handler) recordCount(w http.ResponseWriter, r *http.Request) {
	var req recordCountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}
	err := h.service.RecordCount(r.Context(), chi.URLParam(r, "id"), CountRecord{
		ItemName: req.ItemName,
		Quantity: req.Quantity,
		Notes:    req.Notes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getVariances(w http.ResponseWriter, r *http.Request) {
	variances, err := h.service.Variances(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]varianceResponse, len(variances))
	for i, v := range variances {
		out[i] = varianceResponse(v)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"variances": out})
}

func (h *Handler) commitAdjustment(w http.ResponseWriter, r *http.Request) {
	created, err := h.service.CommitAdjustment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("count adjustment committed",
		slog.String("transaction_id", created.ID),
		slog.String("reference_number", created.ReferenceNumber),
	)
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":               created.ID,
		"reference_number": created.ReferenceNumber,
		"warehouse":        created.Warehouse,
	})
}

func (h *Handler) abandonSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.AbandonSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	first := verrs[0]
	return shared.NewValidationError(first.Field(), first.Value(), "failed "+first.Tag()+" validation")
}
