package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/audiofetch-api/internal/download"
	"github.com/maauso/audiofetch-api/internal/status"
)

const apiMessage = "YouTube Audio Downloader API"

// responseWriteWindow is the write deadline granted once a download settles.
// Time spent queued for a pool slot does not count against it.
const responseWriteWindow = 30 * time.Second

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidJSON     = "INVALID_JSON"
	CodeValidationError = "VALIDATION_ERROR"
	CodeDownloadFailed  = "DOWNLOAD_FAILED"
	CodeFileNotFound    = "FILE_NOT_FOUND"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Downloader is the part of download.Service the handlers use.
type Downloader interface {
	Submit(ctx context.Context, req download.Request) (*download.Result, error)
	Resolve(ctx context.Context, fileID string) (*download.FileEntry, error)
	Discard(ctx context.Context, fileID string) error
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	downloads   Downloader
	statuses    status.Repository
	validator   *validator.Validate
	logger      *slog.Logger
	healthCheck func(context.Context) error
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithHealthCheck makes GET /api/health report "degraded" when check fails.
func WithHealthCheck(check func(context.Context) error) HandlerOption {
	return func(h *Handlers) {
		h.healthCheck = check
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(downloads Downloader, statuses status.Repository, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		downloads: downloads,
		statuses:  statuses,
		validator: validator.New(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Root handles GET /api/ requests.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{Message: apiMessage})
}

// Health handles GET /api/health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.healthCheck != nil {
		if err := h.healthCheck(r.Context()); err != nil {
			h.logger.Warn("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Download handles POST /api/download requests.
// The request blocks until the extraction finishes.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.downloads.Submit(r.Context(), download.Request{
		URL:      req.URL,
		Format:   download.Format(req.Format),
		Quality:  download.Quality(req.Quality),
		PushToS3: req.PushToS3,
	})
	// The server write timeout started with the request; restart it for the reply.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(responseWriteWindow))
	if err != nil {
		var verr *download.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message, CodeValidationError)
			return
		}
		h.logger.Error("download could not be run",
			slog.String("url", req.URL),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error", CodeInternalError)
		return
	}

	if !result.Success {
		writeError(w, http.StatusBadRequest, result.Message, CodeDownloadFailed)
		return
	}

	writeJSON(w, http.StatusOK, DownloadResponse{
		Success:     true,
		Message:     result.Message,
		FileID:      result.FileID,
		FileName:    result.FileName,
		Title:       result.Title,
		DownloadURL: "/api/download-file/" + result.FileID,
		URL:         result.URL,
	})
}

// DownloadFile handles GET /api/download-file/{id} requests.
func (h *Handlers) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("id")

	entry, err := h.downloads.Resolve(r.Context(), fileID)
	if err != nil {
		h.writeFileError(w, fileID, err)
		return
	}

	f, err := os.Open(entry.Path)
	if err != nil {
		// Removed between Resolve and Open.
		writeError(w, http.StatusNotFound, "File not found", CodeFileNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.writeFileError(w, fileID, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": entry.FileName(),
	}))
	http.ServeContent(w, r, entry.FileName(), info.ModTime(), f)
}

// DeleteFile handles DELETE /api/download-file/{id} requests.
// The file and its workspace are removed and the token stops resolving.
func (h *Handlers) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("id")

	if err := h.downloads.Discard(r.Context(), fileID); err != nil {
		h.writeFileError(w, fileID, err)
		return
	}

	h.logger.Info("file discarded", slog.String("file_id", fileID))
	w.WriteHeader(http.StatusNoContent)
}

// CreateStatus handles POST /api/status requests.
func (h *Handlers) CreateStatus(w http.ResponseWriter, r *http.Request) {
	var req CreateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	record, err := status.NewRecord(req.ClientName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), CodeValidationError)
		return
	}

	if err := h.statuses.Insert(r.Context(), record); err != nil {
		h.logger.Error("failed to insert status record", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error", CodeInternalError)
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(record))
}

// ListStatus handles GET /api/status requests.
func (h *Handlers) ListStatus(w http.ResponseWriter, r *http.Request) {
	records, err := h.statuses.List(r.Context(), status.DefaultListLimit)
	if err != nil {
		h.logger.Error("failed to list status records", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error", CodeInternalError)
		return
	}

	resp := make([]StatusResponse, len(records))
	for i, rec := range records {
		resp[i] = toStatusResponse(rec)
	}
	writeJSON(w, http.StatusOK, resp)
}

// NotFound handles every unmatched route.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not Found", CodeNotFound)
}

// decode reads and validates a JSON body, writing the error response itself.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", CodeInvalidJSON)
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), CodeValidationError)
		return false
	}
	return true
}

func (h *Handlers) writeFileError(w http.ResponseWriter, fileID string, err error) {
	if errors.Is(err, download.ErrFileNotFound) {
		writeError(w, http.StatusNotFound, "File not found", CodeFileNotFound)
		return
	}
	h.logger.Error("file lookup failed",
		slog.String("file_id", fileID),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "internal server error", CodeInternalError)
}

func toStatusResponse(r *status.Record) StatusResponse {
	return StatusResponse{
		ID:         r.ID,
		ClientName: r.ClientName,
		Timestamp:  r.Timestamp,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, httpStatus int, detail, code string) {
	writeJSON(w, httpStatus, ErrorResponse{
		Detail: detail,
		Code:   code,
	})
}
