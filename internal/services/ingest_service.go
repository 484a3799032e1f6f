package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/previewvault/backend/internal/common"
	"github.com/previewvault/backend/internal/media"
	"github.com/previewvault/backend/internal/metrics"
	"github.com/previewvault/backend/internal/models"
	"github.com/previewvault/backend/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultIngestTimeout bounds a whole ingestion including every engine call
	DefaultIngestTimeout = 5 * time.Minute

	cleanupTimeout     = 30 * time.Second
	defaultVideoExt    = ".mp4"
	defaultVideoMime   = "video/mp4"
	defaultPhotoMime   = "application/octet-stream"
	thumbnailExt       = ".jpg"
	thumbnailMediaType = "image/jpeg"
)

// SubmissionRepository defines the interface for submission data access
type SubmissionRepository interface {
	GetByToken(ctx context.Context, token string) (*models.Submission, error)
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	Create(ctx context.Context, sub *models.Submission) error
	SetPaymentStatus(ctx context.Context, id string, isPaid bool) error
}

// MediaStore defines the interface for artifact storage
type MediaStore interface {
	// Put persists r as name inside namespace and returns a stable locator
	Put(ctx context.Context, namespace, name string, r io.Reader, size int64, contentType string) (string, error)

	// DeleteNamespace removes every artifact of the namespace
	DeleteNamespace(ctx context.Context, namespace string) error
}

// VideoEncoder produces the watermarked rendition of the free preview
type VideoEncoder interface {
	Encode(ctx context.Context, inputPath, outputPath string) error
}

// FrameExtractor produces a still image of a locked video
type FrameExtractor interface {
	Extract(ctx context.Context, inputPath, outputPath string) error
}

// EnginePool runs engine jobs on a bounded set of workers
type EnginePool interface {
	Do(ctx context.Context, fn func(context.Context) error) error
}

// MediaUpload is a single uploaded file. Size is -1 when unknown.
type MediaUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// VideoUpload is an uploaded video with its free preview flag
type VideoUpload struct {
	MediaUpload
	IsFree bool
}

// IngestRequest is everything the uploader sends for one customer
type IngestRequest struct {
	CustomerName  string
	CustomerEmail string
	IsPaid        bool
	ExpiryDays    *int
	CustomMessage string
	PaymentLink   string
	Photos        []MediaUpload
	Videos        []VideoUpload
}

// IngestConfig holds ingestion settings
type IngestConfig struct {
	// Timeout bounds a whole ingestion; DefaultIngestTimeout when zero
	Timeout time.Duration
	// RetryTranscode allows one more encoding attempt after a failure
	RetryTranscode bool
	// BaseURL is the public address customer links are built on
	BaseURL string
	// WorkspaceDir is where scratch directories are created; os.TempDir when empty
	WorkspaceDir string
}

// ValidateIngestRequest checks the request before anything is written.
// Errors wrap common.ErrValidation together with the specific cause.
func ValidateIngestRequest(req IngestRequest) error {
	if strings.TrimSpace(req.CustomerName) == "" {
		return common.Validation(common.ErrMissingName)
	}
	if len(req.Photos) == 0 && len(req.Videos) == 0 {
		return common.Validation(common.ErrEmptyMedia)
	}
	if len(req.Videos) > 0 {
		free := 0
		for _, v := range req.Videos {
			if v.IsFree {
				free++
			}
		}
		if free != 1 {
			return common.Validation(fmt.Errorf("%w: got %d", common.ErrFreePreviewCount, free))
		}
	}
	if req.ExpiryDays != nil && *req.ExpiryDays < 1 {
		return common.Validation(common.ErrInvalidExpiry)
	}
	if req.PaymentLink != "" {
		u, err := url.Parse(req.PaymentLink)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return common.Validation(common.ErrInvalidPaymentLink)
		}
	}
	return nil
}

// IngestService turns an upload into a stored, immutable submission
type IngestService struct {
	repo      SubmissionRepository
	store     MediaStore
	encoder   VideoEncoder
	extractor FrameExtractor
	pool      EnginePool
	cfg       IngestConfig
	logger    *zap.Logger

	now      func() time.Time
	newToken func() (string, error)
}

// NewIngestService creates a new ingestion service
func NewIngestService(
	repo SubmissionRepository,
	store MediaStore,
	encoder VideoEncoder,
	extractor FrameExtractor,
	pool EnginePool,
	cfg IngestConfig,
	logger *zap.Logger,
) *IngestService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultIngestTimeout
	}
	return &IngestService{
		repo:      repo,
		store:     store,
		encoder:   encoder,
		extractor: extractor,
		pool:      pool,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		newToken:  newAccessToken,
	}
}

// Ingest validates the request, processes and stores every file and records the submission.
// Either the whole submission becomes visible or nothing does: on failure every stored
// artifact is removed and no record is written.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*models.SubmissionSummary, error) {
	start := time.Now()

	if err := ValidateIngestRequest(req); err != nil {
		metrics.ObserveIngestion("invalid", time.Since(start))
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	sub, err := s.ingest(ctx, req)
	if err != nil {
		metrics.ObserveIngestion(ingestResult(err), time.Since(start))
		return nil, err
	}
	metrics.ObserveIngestion("ok", time.Since(start))

	s.logger.Info("submission ingested",
		zap.String("submission_id", sub.ID),
		zap.Int("photos", len(sub.Photos)),
		zap.Int("videos", len(sub.Videos)),
		zap.Duration("duration", time.Since(start)),
	)

	return s.summarize(sub), nil
}

func (s *IngestService) ingest(ctx context.Context, req IngestRequest) (_ *models.Submission, err error) {
	id := uuid.NewString()
	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	ws, err := media.NewWorkspace(s.cfg.WorkspaceDir, "ingest-"+id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := ws.Close(); closeErr != nil {
			s.logger.Warn("failed to remove workspace", zap.String("dir", ws.Dir()), zap.Error(closeErr))
		}
	}()

	defer func() {
		if err != nil {
			s.rollback(ctx, id, err)
		}
	}()

	photos, err := s.storePhotos(ctx, id, req.Photos)
	if err != nil {
		return nil, err
	}

	videos, err := s.processVideos(ctx, ws, id, req.Videos)
	if err != nil {
		return nil, err
	}

	createdAt := s.now().UTC()
	sub := &models.Submission{
		ID:            id,
		Token:         token,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		IsPaid:        req.IsPaid,
		CustomMessage: req.CustomMessage,
		PaymentLink:   req.PaymentLink,
		CreatedAt:     createdAt,
		Photos:        photos,
		Videos:        videos,
	}
	if req.ExpiryDays != nil {
		expiresAt := createdAt.Add(time.Duration(*req.ExpiryDays) * 24 * time.Hour)
		sub.ExpiresAt = &expiresAt
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	return sub, nil
}

// rollback removes everything stored for the submission.
// It runs on a context detached from the request so that a timeout does not prevent cleanup.
func (s *IngestService) rollback(ctx context.Context, id string, cause error) {
	s.logger.Error("ingestion failed, removing stored artifacts",
		zap.String("submission_id", id),
		zap.Error(cause),
	)

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.store.DeleteNamespace(cleanupCtx, id); err != nil {
		s.logger.Error("failed to remove stored artifacts",
			zap.String("submission_id", id),
			zap.Error(err),
		)
	}
}

func (s *IngestService) storePhotos(ctx context.Context, namespace string, uploads []MediaUpload) ([]models.Photo, error) {
	photos := make([]models.Photo, 0, len(uploads))
	for _, upload := range uploads {
		photoID, name := storage.GenerateFileName("photo", "", filepath.Ext(upload.Filename))

		// known sizes pass the upload through untouched so backends can seek it;
		// unknown sizes are counted while streaming
		content, size := upload.Content, upload.Size
		sw := storage.NewSizeWriter()
		if size < 0 {
			content = io.TeeReader(content, sw)
		}

		locator, err := s.store.Put(ctx, namespace, name, content, size, contentTypeOr(upload.ContentType, defaultPhotoMime))
		if err != nil {
			return nil, fmt.Errorf("failed to store photo %q: %w", upload.Filename, err)
		}
		if size < 0 {
			size = sw.Size()
		}

		photos = append(photos, models.Photo{
			ID:       photoID,
			Filename: upload.Filename,
			Locator:  locator,
			Size:     size,
		})
	}
	return photos, nil
}

// spooledVideo is an uploaded video copied into the workspace
type spooledVideo struct {
	upload VideoUpload
	path   string
	ext    string
	size   int64
}

func (s *IngestService) processVideos(ctx context.Context, ws *media.Workspace, namespace string, uploads []VideoUpload) ([]models.Video, error) {
	// uploads may share one request body, so they are read sequentially
	spooled := make([]spooledVideo, len(uploads))
	for i, upload := range uploads {
		ext := strings.ToLower(filepath.Ext(upload.Filename))
		if ext == "" {
			ext = defaultVideoExt
		}
		path, size, err := ws.Spool(fmt.Sprintf("upload-%d%s", i, ext), upload.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to receive video %q: %w", upload.Filename, err)
		}
		spooled[i] = spooledVideo{upload: upload, path: path, ext: ext, size: size}
	}

	videos := make([]models.Video, len(spooled))
	g, gctx := errgroup.WithContext(ctx)
	for i := range spooled {
		g.Go(func() error {
			v, err := s.processVideo(gctx, ws, namespace, i, spooled[i])
			if err != nil {
				return err
			}
			videos[i] = *v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return videos, nil
}

func (s *IngestService) processVideo(ctx context.Context, ws *media.Workspace, namespace string, index int, sv spooledVideo) (*models.Video, error) {
	videoID := uuid.NewString()
	contentType := contentTypeOr(sv.upload.ContentType, defaultVideoMime)
	video := &models.Video{
		ID:            videoID,
		Filename:      sv.upload.Filename,
		IsFreePreview: sv.upload.IsFree,
		Size:          sv.size,
	}

	if sv.upload.IsFree {
		out := ws.Path(fmt.Sprintf("watermarked-%d%s", index, sv.ext))
		if err := s.encode(ctx, sv.path, out); err != nil {
			return nil, fmt.Errorf("failed to watermark video %q: %w", sv.upload.Filename, err)
		}

		_, name := storage.GenerateFileName("preview", "", sv.ext)
		locator, err := s.putFile(ctx, namespace, name, out, contentType)
		if err != nil {
			return nil, fmt.Errorf("failed to store watermarked video %q: %w", sv.upload.Filename, err)
		}
		video.WatermarkedLocator = locator
	} else {
		locator, err := s.thumbnail(ctx, ws, namespace, index, sv)
		if err != nil {
			return nil, err
		}
		video.ThumbnailLocator = locator
	}

	// artifact keys are independent random names, none derivable from another
	_, name := storage.GenerateFileName("original", "", sv.ext)
	locator, err := s.putFile(ctx, namespace, name, sv.path, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store video %q: %w", sv.upload.Filename, err)
	}
	video.OriginalLocator = locator

	return video, nil
}

// encode runs the watermark encoder on the pool, retrying once when configured
func (s *IngestService) encode(ctx context.Context, in, out string) error {
	run := func(ctx context.Context) error {
		return s.encoder.Encode(ctx, in, out)
	}

	err := s.pool.Do(ctx, run)
	if err == nil || !s.cfg.RetryTranscode || ctx.Err() != nil || errors.Is(err, common.ErrWatermarkMissing) {
		return err
	}

	s.logger.Warn("retrying watermark encoding", zap.String("input", in), zap.Error(err))
	return s.pool.Do(ctx, run)
}

// thumbnail extracts and stores the still of a locked video.
// Extraction failures only cost the thumbnail; an empty locator is returned for them.
func (s *IngestService) thumbnail(ctx context.Context, ws *media.Workspace, namespace string, index int, sv spooledVideo) (string, error) {
	out := ws.Path(fmt.Sprintf("thumbnail-%d%s", index, thumbnailExt))
	err := s.pool.Do(ctx, func(ctx context.Context) error {
		return s.extractor.Extract(ctx, sv.path, out)
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Warn("storing video without thumbnail",
			zap.String("submission_id", namespace),
			zap.String("filename", sv.upload.Filename),
			zap.Error(err),
		)
		return "", nil
	}

	_, name := storage.GenerateFileName("thumbnail", "", thumbnailExt)
	locator, err := s.putFile(ctx, namespace, name, out, thumbnailMediaType)
	if err != nil {
		return "", fmt.Errorf("failed to store thumbnail of %q: %w", sv.upload.Filename, err)
	}
	return locator, nil
}

func (s *IngestService) putFile(ctx context.Context, namespace, name, path, contentType string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStore, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStore, err)
	}

	return s.store.Put(ctx, namespace, name, f, info.Size(), contentType)
}

func (s *IngestService) summarize(sub *models.Submission) *models.SubmissionSummary {
	summary := &models.SubmissionSummary{
		ID:           sub.ID,
		Token:        sub.Token,
		CustomerName: sub.CustomerName,
		CustomerURL:  strings.TrimRight(s.cfg.BaseURL, "/") + "/customer/" + sub.Token,
		IsPaid:       sub.IsPaid,
		ExpiresAt:    sub.ExpiresAt,
		PhotoCount:   len(sub.Photos),
		VideoCount:   len(sub.Videos),
	}
	if free := sub.FreeVideo(); free != nil {
		summary.WatermarkedURL = free.WatermarkedLocator
	}
	return summary
}

// newAccessToken returns 32 hex characters of cryptographic randomness
func newAccessToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func ingestResult(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, common.ErrTranscode):
		return "transcode_error"
	case errors.Is(err, common.ErrStore):
		return "store_error"
	default:
		return "error"
	}
}

func contentTypeOr(contentType, fallback string) string {
	if contentType == "" {
		return fallback
	}
	return contentType
}
