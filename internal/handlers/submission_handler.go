package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/previewvault/backend/internal/common"
	"github.com/previewvault/backend/internal/models"
	"github.com/previewvault/backend/internal/services"
	"go.uber.org/zap"
)

// multipartMemory is how much of a multipart form is kept in memory before spilling to disk
const multipartMemory = 32 << 20

// IngestService defines the interface for submission ingestion
type IngestService interface {
	// Method Ingest validates and processes an upload and stores it as a new submission.
	//
	// Validation failures wrap common.ErrValidation; nothing is stored for them.
	Ingest(ctx context.Context, req services.IngestRequest) (*models.SubmissionSummary, error)
}

// AccessService defines the interface for customer access and payment status
type AccessService interface {
	// Method Access returns the view of a submission as of "now".
	//
	// Returns common.ErrNotFound for unknown tokens and *common.ExpiredError for expired links.
	Access(ctx context.Context, token string, now time.Time) (*models.GatedView, error)
	// Method SetPaymentStatus sets the paid flag of a submission.
	//
	// Returns common.ErrNotFound if no submission has the id.
	SetPaymentStatus(ctx context.Context, id string, isPaid bool) error
}

// SubmissionHandler handles submission and customer link requests
type SubmissionHandler struct {
	BaseHandler
	ingestService IngestService
	accessService AccessService
	now           func() time.Time
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(ingestService IngestService, accessService AccessService, logger *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		BaseHandler:   BaseHandler{Logger: logger},
		ingestService: ingestService,
		accessService: accessService,
		now:           time.Now,
	}
}

// RegisterRoutes registers all submission handler routes
func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/submissions", h.CreateSubmission)
	r.Patch("/submissions/{id}/payment", h.SetPaymentStatus)
	r.Get("/customers/{token}", h.GetCustomerView)
}

// ExpiredResponse is returned for expired customer links
type ExpiredResponse struct {
	Error     string    `json:"error"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PaymentStatusRequest is the body of a payment status update
type PaymentStatusRequest struct {
	IsPaid *bool `json:"isPaid"`
}

// videoMeta is the per video metadata sent as videoMeta_<i>
type videoMeta struct {
	IsFree bool `json:"isFree"`
}

// CreateSubmission handles POST /submissions
// @Summary Create a submission
// @Description Upload photos and videos for a customer. Exactly one video must be marked as the free preview through videoMeta_<i>.
// @Tags submissions
// @Accept multipart/form-data
// @Produce json
// @Param customerName formData string true "Customer name"
// @Param customerEmail formData string false "Customer email"
// @Param isPaid formData boolean false "Whether the customer has already paid"
// @Param expiryDays formData integer false "Days until the link expires"
// @Param customMessage formData string false "Message shown to the customer"
// @Param paymentLink formData string false "Payment page URL"
// @Param photos formData file false "Photos"
// @Param videos formData file false "Videos"
// @Param videoCount formData integer false "Number of videos"
// @Param videoMeta_0 formData string false "Metadata of video 0, e.g. {\"isFree\":true}"
// @Success 201 {object} models.SubmissionSummary
// @Failure 400 {object} ErrorResponse "Invalid submission"
// @Failure 413 {object} ErrorResponse "Request body too large"
// @Failure 500 {object} ErrorResponse "Processing failed"
// @Router /submissions [post]
func (h *SubmissionHandler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.RespondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, files, fieldErr, err := parseIngestRequest(r.MultipartForm)
	defer closeAll(files)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErr != nil {
		// missing name, empty media and the free preview count are reported ahead of malformed fields
		if verr := services.ValidateIngestRequest(req); verr != nil {
			h.RespondError(w, http.StatusBadRequest, validationMessage(verr))
			return
		}
		h.RespondError(w, http.StatusBadRequest, fieldErr.Error())
		return
	}

	summary, err := h.ingestService.Ingest(r.Context(), req)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			h.RespondError(w, http.StatusBadRequest, validationMessage(err))
			return
		}
		h.Logger.Error("failed to process submission", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to process submission")
		return
	}

	h.RespondJSON(w, http.StatusCreated, summary)
}

// GetCustomerView handles GET /customers/{token}
// @Summary Get the customer view
// @Description Returns photos and videos of a submission. Unpaid links expose only the watermarked free preview and thumbnails of locked videos.
// @Tags customers
// @Produce json
// @Param token path string true "Customer token"
// @Success 200 {object} models.GatedView
// @Failure 404 {object} ErrorResponse "Link not found"
// @Failure 410 {object} ExpiredResponse "Link expired"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /customers/{token} [get]
func (h *SubmissionHandler) GetCustomerView(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	view, err := h.accessService.Access(r.Context(), token, h.now())
	if err != nil {
		var expired *common.ExpiredError
		switch {
		case errors.As(err, &expired):
			h.RespondJSON(w, http.StatusGone, ExpiredResponse{Error: "link expired", ExpiresAt: expired.ExpiresAt})
		case errors.Is(err, common.ErrNotFound):
			h.RespondError(w, http.StatusNotFound, "link not found")
		default:
			h.Logger.Error("failed to get customer view", zap.Error(err))
			h.RespondError(w, http.StatusInternalServerError, "failed to get customer view")
		}
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.RespondJSON(w, http.StatusOK, view)
}

// SetPaymentStatus handles PATCH /submissions/{id}/payment
// @Summary Set payment status
// @Description Marks a submission as paid or unpaid
// @Tags submissions
// @Accept json
// @Param id path string true "Submission ID"
// @Param request body PaymentStatusRequest true "Payment status"
// @Success 204 "Updated"
// @Failure 400 {object} ErrorResponse "Invalid request body"
// @Failure 404 {object} ErrorResponse "Submission not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /submissions/{id}/payment [patch]
func (h *SubmissionHandler) SetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PaymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IsPaid == nil {
		h.RespondError(w, http.StatusBadRequest, "isPaid is required")
		return
	}

	if err := h.accessService.SetPaymentStatus(r.Context(), id, *req.IsPaid); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			h.RespondError(w, http.StatusNotFound, "submission not found")
			return
		}
		h.Logger.Error("failed to set payment status", zap.String("submission_id", id), zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to set payment status")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseIngestRequest maps the multipart form onto an ingest request.
//
// Malformed optional fields do not stop parsing: the first of them is returned as fieldErr
// next to a request that holds everything else, so the caller can run the core checks first.
// err is set only when an uploaded file cannot be read.
func parseIngestRequest(form *multipart.Form) (req services.IngestRequest, files []multipart.File, fieldErr, err error) {
	req = services.IngestRequest{
		CustomerName:  formValue(form, "customerName"),
		CustomerEmail: formValue(form, "customerEmail"),
		CustomMessage: formValue(form, "customMessage"),
		PaymentLink:   formValue(form, "paymentLink"),
	}
	invalid := func(format string, args ...any) {
		if fieldErr == nil {
			fieldErr = fmt.Errorf(format, args...)
		}
	}

	if v := formValue(form, "isPaid"); v != "" {
		isPaid, perr := strconv.ParseBool(v)
		if perr != nil {
			invalid("isPaid must be true or false")
		}
		req.IsPaid = isPaid
	}

	if v := formValue(form, "expiryDays"); v != "" {
		days, perr := strconv.Atoi(v)
		if perr != nil {
			invalid("expiryDays must be a whole number")
		} else {
			req.ExpiryDays = &days
		}
	}

	for _, fh := range form.File["photos"] {
		f, oerr := fh.Open()
		if oerr != nil {
			return req, files, fieldErr, fmt.Errorf("failed to read photo %q", fh.Filename)
		}
		files = append(files, f)
		req.Photos = append(req.Photos, services.MediaUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     f,
		})
	}

	videoHeaders := form.File["videos"]
	if v := formValue(form, "videoCount"); v != "" {
		if count, perr := strconv.Atoi(v); perr != nil || count != len(videoHeaders) {
			invalid("videoCount does not match the number of uploaded videos")
		}
	}

	for i, fh := range videoHeaders {
		var meta videoMeta
		if raw := formValue(form, fmt.Sprintf("videoMeta_%d", i)); raw != "" {
			if jerr := json.Unmarshal([]byte(raw), &meta); jerr != nil {
				invalid("videoMeta_%d is not valid JSON", i)
			}
		}

		f, oerr := fh.Open()
		if oerr != nil {
			return req, files, fieldErr, fmt.Errorf("failed to read video %q", fh.Filename)
		}
		files = append(files, f)
		req.Videos = append(req.Videos, services.VideoUpload{
			MediaUpload: services.MediaUpload{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Content:     f,
			},
			IsFree: meta.IsFree,
		})
	}

	return req, files, fieldErr, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func closeAll(files []multipart.File) {
	for _, f := range files {
		f.Close()
	}
}

// validationMessage strips the generic prefix off a validation error
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), common.ErrValidation.Error()+": ")
}
