package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/previewvault/backend/internal/common"
	"github.com/previewvault/backend/internal/storage"
	"go.uber.org/zap"
)

// FileOpener opens locally stored media files
type FileOpener interface {
	OpenFile(namespace, name string) (*os.File, error)
}

// MediaAuthorizer decides whether a stored file may be served
type MediaAuthorizer interface {
	// Method AuthorizeMedia checks that name is linked from the current view of the submission.
	//
	// Returns common.ErrNotFound for files the view does not link to and *common.ExpiredError for expired submissions.
	AuthorizeMedia(ctx context.Context, submissionID, name string, now time.Time) error
}

// MediaHandler serves media files of the local storage backend
type MediaHandler struct {
	BaseHandler
	files      FileOpener
	authorizer MediaAuthorizer
	now        func() time.Time
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(files FileOpener, authorizer MediaAuthorizer, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		BaseHandler: BaseHandler{Logger: logger},
		files:       files,
		authorizer:  authorizer,
		now:         time.Now,
	}
}

// RegisterRoutes registers all media handler routes
func (h *MediaHandler) RegisterRoutes(r chi.Router) {
	r.Get("/media/{namespace}/{filename}", h.DownloadFile)
}

// DownloadFile handles GET /media/{namespace}/{filename}
// @Summary Download media file
// @Description Streams a stored photo, video or thumbnail linked from the current customer view. Locked originals are not served until the submission is paid. Range requests are supported.
// @Tags media
// @Produce application/octet-stream
// @Param namespace path string true "Submission ID"
// @Param filename path string true "File name"
// @Param Range header string false "Range"
// @Success 200 "File content"
// @Success 206 "Partial file content"
// @Failure 404 {object} ErrorResponse "File not found"
// @Failure 410 {object} ErrorResponse "Link expired"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /media/{namespace}/{filename} [get]
func (h *MediaHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	filename := chi.URLParam(r, "filename")

	if err := h.authorizer.AuthorizeMedia(r.Context(), namespace, filename, h.now()); err != nil {
		switch {
		case errors.Is(err, common.ErrExpired):
			h.RespondError(w, http.StatusGone, "link expired")
		case errors.Is(err, common.ErrNotFound):
			h.RespondError(w, http.StatusNotFound, "file not found")
		default:
			h.Logger.Error("failed to authorize media", zap.String("namespace", namespace), zap.Error(err))
			h.RespondError(w, http.StatusInternalServerError, "failed to open file")
		}
		return
	}

	file, err := h.files.OpenFile(namespace, filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrInvalidName) {
			h.RespondError(w, http.StatusNotFound, "file not found")
			return
		}
		h.Logger.Error("failed to open file", zap.String("namespace", namespace), zap.String("filename", filename), zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to open file")
		return
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		h.Logger.Error("failed to get file info", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to get file info")
		return
	}
	if fileInfo.IsDir() {
		h.RespondError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, filename, fileInfo.ModTime(), file)
}
