package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/vmihailenco/msgpack/v5"

	apierrors "datalens/internal/errors"
	"datalens/internal/jobs"
	"datalens/pkg/contracts/domain"
)

// JobsHandler serves the analysis-job endpoints.
type JobsHandler struct {
	service      JobServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewJobsHandler creates the handler.
func NewJobsHandler(service JobServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *JobsHandler {
	return &JobsHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "jobs_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the job routes.
func (h *JobsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListJobs)
	r.Post("/", h.SubmitJob)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetJob)
		r.Delete("/", h.DeleteJob)
		r.Post("/cancel", h.CancelJob)
		r.Get("/charts", h.GetCharts)
	})

	return r
}

// ListJobs handles GET /api/jobs.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := domain.JobFilter{
		Status:       domain.JobStatus(r.URL.Query().Get("status")),
		Kind:         domain.JobKind(r.URL.Query().Get("kind")),
		SourceFileID: r.URL.Query().Get("source_file_id"),
	}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("since", "must be RFC 3339"))
			return
		}
		filter.Since = t
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("limit", "must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}

	listed := h.service.List(filter)
	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   listed,
		"count":  len(listed),
	})
}

// SubmitJob handles POST /api/jobs.
func (h *JobsHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	var req jobs.SubmitRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("body", "invalid JSON body"))
		return
	}

	job, err := h.service.Submit(r.Context(), req)
	if err != nil {
		h.logger.WarnContext(r.Context(), "job submission rejected",
			slog.String("request_id", reqID),
			slog.String("kind", string(req.Kind)),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]any{"status": "success", "data": job})
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"status": "success", "data": job})
}

// CancelJob handles POST /api/jobs/{id}/cancel.
func (h *JobsHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Cancel(id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"status": "success", "id": id})
}

// DeleteJob handles DELETE /api/jobs/{id}.
func (h *JobsHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Remove(id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"status": "success", "id": id})
}

// GetCharts handles GET /api/jobs/{id}/charts. Chart payloads are served
// as MessagePack for the plotting frontend.
func (h *JobsHandler) GetCharts(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if job.Status != domain.JobStatusCompleted {
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusConflict, "CHARTS_NOT_READY",
			"job has not completed"))
		return
	}

	payload, err := msgpack.Marshal(job.Charts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/msgpack")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}
