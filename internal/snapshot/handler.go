package snapshot

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-wms/meridian/internal/authz"
	"github.com/meridian-wms/meridian/internal/platform/httpx"
	"github.com/meridian-wms/meridian/internal/shared"
)

// Handler wires HTTP endpoints for snapshot reads.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authz   authz.Middleware
}

// NewHandler constructs the snapshot handler.
func NewHandler(logger *slog.Logger, service *Service, authzMW authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: authzMW}
}

// MountRoutes registers snapshot routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/snapshot", func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermSnapshotView))
		r.Get("/", h.getSnapshot)
		r.Get("/report", h.getReport)
		r.Get("/export", h.exportSnapshot)
	})
}

type rowResponse struct {
	ItemName  string           `json:"item_name"`
	Warehouse string           `json:"warehouse"`
	Date      string           `json:"date"`
	OnHand    bucketized       `json:"on_hand"`
	Inbound   bucketized       `json:"inbound"`
	Outbound  bucketized       `json:"scheduled_outbound"`
	Future    bucketized       `json:"future"`
	Totals    map[string]int64 `json:"totals"`
}

type bucketized struct {
	Stock       int64 `json:"stock"`
	Consignment int64 `json:"consignment"`
	Hold        int64 `json:"hold"`
}

func toBucketized(b BucketSet) bucketized {
	return bucketized{Stock: b.Stock, Consignment: b.Consignment, Hold: b.Hold}
}

func toRowResponse(row Row) rowResponse {
	return rowResponse{
		ItemName:  row.ItemName,
		Warehouse: row.Warehouse,
		Date:      row.Date.Format("2006-01-02"),
		OnHand:    toBucketized(row.OnHand),
		Inbound:   toBucketized(row.Inbound),
		Outbound:  toBucketized(row.Outbound),
		Future:    toBucketized(row.Future),
		Totals: map[string]int64{
			"on_hand":            row.OnHand.Total(),
			"inbound":            row.Inbound.Total(),
			"scheduled_outbound": row.Outbound.Total(),
			"future":             row.Future.Total(),
		},
	}
}

func (h *Handler) loadSnapshot(r *http.Request) ([]Row, error) {
	q := r.URL.Query()
	warehouse := q.Get("warehouse")
	cutoff, err := parseCutoff(q.Get("cutoff"))
	if err != nil {
		return nil, err
	}
	activeOnly := q.Get("active") != "false"
	return h.service.GetSnapshot(r.Context(), warehouse, cutoff, activeOnly)
}

func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	rows, err := h.loadSnapshot(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]rowResponse, len(rows))
	for i, row := range rows {
		out[i] = toRowResponse(row)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": out})
}

func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cutoff, err := parseCutoff(q.Get("cutoff"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.WarehouseReport(r.Context(), q.Get("warehouse"), cutoff)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	snapshotOut := make([]rowResponse, len(report.Snapshot))
	for i, row := range report.Snapshot {
		snapshotOut[i] = toRowResponse(row)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"warehouse": report.Warehouse,
		"cutoff":    report.Cutoff.Format("2006-01-02"),
		"snapshot":  snapshotOut,
		"rollup":    report.Rollup,
	})
}

func (h *Handler) exportSnapshot(w http.ResponseWriter, r *http.Request) {
	rows, err := h.loadSnapshot(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=inventory_snapshot.csv")
	writer := csv.NewWriter(w)
	for _, record := range ExportRows(rows) {
		if err := writer.Write(record); err != nil {
			h.logger.Error("write snapshot csv", slog.Any("error", err))
			break
		}
	}
	writer.Flush()
}

func parseCutoff(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	cutoff, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, shared.NewValidationError("cutoff", raw, "expected YYYY-MM-DD")
	}
	// Include the whole cutoff day.
	return cutoff.Add(24*time.Hour - time.Nanosecond), nil
}
