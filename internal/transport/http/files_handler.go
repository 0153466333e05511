package http

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "datalens/internal/errors"
	"datalens/internal/ingest"
	"datalens/pkg/contracts/domain"
)

// FilesHandler serves the file registry endpoints.
type FilesHandler struct {
	service       FileServiceInterface
	logger        *slog.Logger
	errorHandler  *apierrors.ErrorHandler
	maxUploadSize int64
}

// NewFilesHandler creates the handler. maxUploadSize bounds multipart
// request bodies.
func NewFilesHandler(service FileServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxUploadSize int64) *FilesHandler {
	return &FilesHandler{
		service:       service,
		logger:        logger.With(slog.String("component", "files_handler")),
		errorHandler:  errorHandler,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the file registry routes.
func (h *FilesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListFiles)
	r.Post("/", h.UploadFile)
	r.Post("/batch", h.UploadBatch)
	r.Post("/presets/reload", h.ReloadPresets)
	r.Get("/selected", h.GetSelected)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetFile)
		r.Delete("/", h.DeleteFile)
		r.Post("/select", h.SelectFile)
		r.Get("/table", h.GetTable)
		r.Get("/statistics", h.GetStatistics)
	})

	return r
}

// ListFiles handles GET /api/files.
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	filter := domain.FileFilter{
		Status: domain.FileStatus(r.URL.Query().Get("status")),
		Text:   r.URL.Query().Get("q"),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("from", "must be RFC 3339"))
			return
		}
		filter.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("to", "must be RFC 3339"))
			return
		}
		filter.To = t
	}

	files := h.service.List(filter)
	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   files,
		"count":  len(files),
	})
}

// UploadFile handles POST /api/files with one multipart "file" part.
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	name, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "upload received",
		slog.String("request_id", reqID),
		slog.String("name", name),
		slog.Int("bytes", len(data)))

	file, err := h.service.Upload(r.Context(), name, data)
	if err != nil && file == nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// Pipeline failures still produced a registry record; report it with
	// its error status rather than failing the request.
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]any{"status": "success", "data": file})
}

// UploadBatch handles POST /api/files/batch with several "file" parts.
func (h *FilesHandler) UploadBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("body", "invalid multipart request"))
		return
	}

	parts := r.MultipartForm.File["file"]
	if len(parts) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "at least one file part is required"))
		return
	}

	uploads := make([]ingest.UploadRequest, 0, len(parts))
	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "unreadable file part"))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "unreadable file part"))
			return
		}
		uploads = append(uploads, ingest.UploadRequest{Name: part.Filename, Data: data})
	}

	outcomes := h.service.UploadBatch(r.Context(), uploads)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   outcomes,
		"count":  len(outcomes),
	})
}

// ReloadPresets handles POST /api/files/presets/reload. The manual reload
// runs best-effort; startup is where fail-fast applies.
func (h *FilesHandler) ReloadPresets(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.LoadPresets(r.Context(), ingest.BestEffort)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"status": "success", "data": report})
}

// GetFile handles GET /api/files/{id}.
func (h *FilesHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	file, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"status": "success", "data": file})
}

// GetTable handles GET /api/files/{id}/table.
func (h *FilesHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	file, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if file.Table == nil {
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusConflict, "TABLE_NOT_READY",
			"file has no parsed table"))
		return
	}
	render.JSON(w, r, map[string]any{"status": "success", "data": file.Table})
}

// GetStatistics handles GET /api/files/{id}/statistics.
func (h *FilesHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	file, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"status": "success", "data": file.Statistics})
}

// DeleteFile handles DELETE /api/files/{id}.
func (h *FilesHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Remove(id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"status": "success", "id": id})
}

// SelectFile handles POST /api/files/{id}/select.
func (h *FilesHandler) SelectFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Select(id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"status": "success", "id": id})
}

// GetSelected handles GET /api/files/selected.
func (h *FilesHandler) GetSelected(w http.ResponseWriter, r *http.Request) {
	selected := h.service.Selected()
	if selected == nil {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("selected file"))
		return
	}
	render.JSON(w, r, map[string]any{"status": "success", "data": selected})
}

// readUpload extracts the single multipart "file" part.
func (h *FilesHandler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("body", "invalid multipart request"))
		return "", nil, false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "file part is required"))
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "unreadable file part"))
		return "", nil, false
	}
	return header.Filename, data, true
}
