// Package http exposes the orchestration layer over a chi router:
// triggering loads and exports, reading snapshots and summaries, and
// cancelling in-flight work.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"muniflow/internal/async"
	apierrors "muniflow/internal/errors"
	"muniflow/internal/viewmodel"
)

// Handler wires the view-models into HTTP routes
type Handler struct {
	logger      *slog.Logger
	vm          *viewmodel.EnterpriseViewModel
	exporter    *viewmodel.ReportExporter
	broadcaster *async.Broadcaster
	validate    *validator.Validate
}

// NewHandler creates the HTTP handler
func NewHandler(logger *slog.Logger, vm *viewmodel.EnterpriseViewModel, exporter *viewmodel.ReportExporter, broadcaster *async.Broadcaster) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		vm:          vm,
		exporter:    exporter,
		broadcaster: broadcaster,
		validate:    validator.New(),
	}
}

// RouterConfig carries the router's middleware settings and extra mounts
type RouterConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	Registry       *prometheus.Registry
	WSHandler      http.HandlerFunc
}

// Routes builds the chi router
func (h *Handler) Routes(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.logger))
	r.Use(middleware.Recoverer)
	if cfg.RateLimitRPS > 0 {
		r.Use(RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	r.Get("/healthz", h.handleHealth)
	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}
	if cfg.WSHandler != nil {
		r.Get("/ws", cfg.WSHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/enterprises", h.handleEnterprises)
		r.Get("/summary", h.handleSummary)
		r.Post("/enterprises/load", h.handleLoad)
		r.Post("/enterprises/refresh", h.handleLoad)
		r.Post("/export", h.handleExport)
		r.Get("/operations", h.handleOperations)
		r.Get("/operations/{id}", h.handleOperation)
		r.Post("/operations/cancel", h.handleCancel)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (h *Handler) handleEnterprises(w http.ResponseWriter, r *http.Request) {
	enterprises, err := h.vm.Snapshot(r.Context())
	if err != nil {
		render.Render(w, r, apierrors.ErrInternal)
		return
	}
	render.JSON(w, r, enterprises)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.vm.BudgetSummary())
}

// handleLoad triggers a load in the background. The HTTP response only
// acknowledges the trigger; progress flows over the websocket.
func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	if h.vm.Executor().Running() {
		render.Render(w, r, apierrors.ErrAlreadyRunning)
		return
	}

	go func() {
		// Detach from the request context: the load outlives the
		// trigger request and is cancelled via the executor epoch.
		if err := h.vm.Load(context.Background()); err != nil && !async.IsDuplicate(err) {
			h.logger.Error("background_load_failed",
				slog.String("error", err.Error()))
		}
	}()

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "accepted"})
}

// ExportRequest is the payload for POST /api/export
type ExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv xlsx"`
}

// Bind implements render.Binder
func (e *ExportRequest) Bind(r *http.Request) error { return nil }

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, apierrors.ErrInvalidRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		render.Render(w, r, apierrors.New(http.StatusBadRequest, "VALIDATION_FAILED", err.Error()))
		return
	}

	path, tracker, err := h.exporter.Export(r.Context(), viewmodel.ReportFormat(req.Format))
	if err != nil {
		render.Render(w, r, apierrors.FromOperationError(err))
		return
	}

	render.JSON(w, r, map[string]any{
		"path":  path,
		"steps": tracker.Steps(),
	})
}

func (h *Handler) handleOperations(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.broadcaster.Snapshots())
}

func (h *Handler) handleOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snapshot, ok := h.broadcaster.GetSnapshot(id)
	if !ok {
		render.Render(w, r, apierrors.ErrOperationNotFound)
		return
	}
	render.JSON(w, r, snapshot)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.vm.Executor().CancelOperations()
	h.vm.Executor().ResetCancellation()
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "cancelled"})
}
