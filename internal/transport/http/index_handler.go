package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "hinosemi/internal/errors"
	"hinosemi/internal/exporter"
	"hinosemi/internal/index"
	"hinosemi/internal/operations"
	"hinosemi/internal/services"
)

// IndexHandler serves the index resources.
type IndexHandler struct {
	service      IndexServiceInterface
	location     *time.Location
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewIndexHandler creates the handler. Timestamps in responses use loc.
func NewIndexHandler(service IndexServiceInterface, loc *time.Location, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *IndexHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &IndexHandler{
		service:      service,
		location:     loc,
		logger:       logger.With(slog.String("handler", "index")),
		errorHandler: errorHandler,
	}
}

// Routes returns the index routes. refresh wraps the refresh endpoint only.
func (h *IndexHandler) Routes(refresh ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/snapshot", h.GetSnapshot)
	r.Get("/series", h.GetSeries)
	r.Get("/series.csv", h.GetSeriesCSV)
	r.Get("/chart.svg", h.GetChart)
	r.Get("/status", h.GetStatus)
	r.With(refresh...).Post("/refresh", h.Refresh)
	return r
}

// SeriesPoint is one entry of the series response.
type SeriesPoint struct {
	Timestamp string  `json:"timestamp"`
	Pct       float64 `json:"pct"`
}

// SeriesResponse is the body of GET /series.
type SeriesResponse struct {
	Unit   string        `json:"unit"`
	Count  int           `json:"count"`
	Points []SeriesPoint `json:"points"`
}

// GetSnapshot handles GET /api/index/snapshot
func (h *IndexHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, snap)
}

// GetSeries handles GET /api/index/series
func (h *IndexHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	series, ok := h.loadSeries(w, r)
	if !ok {
		return
	}
	resp := SeriesResponse{Unit: index.Unit, Count: len(series), Points: make([]SeriesPoint, len(series))}
	for i, p := range series {
		resp.Points[i] = SeriesPoint{Timestamp: p.Time.In(h.location).Format(time.RFC3339), Pct: p.Percent}
	}
	render.JSON(w, r, resp)
}

// GetSeriesCSV handles GET /api/index/series.csv
func (h *IndexHandler) GetSeriesCSV(w http.ResponseWriter, r *http.Request) {
	series, ok := h.loadSeries(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	if err := exporter.WriteSeriesCSV(w, series, h.location); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to stream series CSV", slog.String("error", err.Error()))
	}
}

// GetChart handles GET /api/index/chart.svg
func (h *IndexHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	svg, err := h.service.Chart(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(svg)
}

// GetStatus handles GET /api/index/status
func (h *IndexHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status())
}

// Refresh handles POST /api/index/refresh
func (h *IndexHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Refresh(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

func (h *IndexHandler) loadSeries(w http.ResponseWriter, r *http.Request) (index.IndexSeries, bool) {
	q := r.URL.Query()

	var since time.Time
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidParameter("since", "expected an RFC3339 timestamp"))
			return nil, false
		}
		since = t
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.errorHandler.HandleError(w, r, apierrors.InvalidParameter("limit", "expected a non-negative integer"))
			return nil, false
		}
		limit = n
	}

	series, err := h.service.Series(r.Context(), since, limit)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return series, true
}

// fail maps service errors onto API errors.
func (h *IndexHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNoSnapshot):
		err = apierrors.ErrSnapshotNotFound
	case errors.Is(err, services.ErrRefreshDisabled):
		err = apierrors.NewWithDetails(http.StatusForbidden, apierrors.ErrForbidden.ErrorCode, "Manual refresh is disabled", nil)
	case errors.Is(err, operations.ErrRunInProgress):
		err = apierrors.ErrRunInProgress
	}
	h.errorHandler.HandleError(w, r, err)
}
