package services

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/previewvault/backend/internal/common"
	"github.com/previewvault/backend/internal/media"
	"github.com/previewvault/backend/internal/models"
	"github.com/previewvault/backend/internal/repositories"
	"github.com/previewvault/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeFFmpeg writes a marker of the job into the output file, which is always the last argument
type fakeFFmpeg struct{}

func (fakeFFmpeg) Run(ctx context.Context, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	job := "thumbnail"
	for _, a := range args {
		if a == "-filter_complex" {
			job = "watermarked"
		}
	}
	return nil, os.WriteFile(args[len(args)-1], []byte(job), 0o644)
}

type pipeline struct {
	ingest    *IngestService
	access    *AccessService
	repo      SubmissionRepository
	mediaRoot string
	now       time.Time
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	logger := zap.NewNop()

	watermark := filepath.Join(t.TempDir(), "watermark.png")
	require.NoError(t, os.WriteFile(watermark, []byte("png"), 0o644))

	encoder, err := media.NewWatermarkEncoder(fakeFFmpeg{}, watermark, media.DefaultPreset, media.DefaultCRF, logger)
	require.NoError(t, err)
	extractor := media.NewThumbnailExtractor(fakeFFmpeg{}, 5*time.Second, 1280, 720, logger)

	pool := media.NewPool(2)
	t.Cleanup(pool.Close)

	p := &pipeline{
		mediaRoot: t.TempDir(),
		now:       time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	repo := repositories.NewMemorySubmissionRepository()
	store := storage.NewLocalStorage(p.mediaRoot, "http://localhost:8080")

	p.ingest = NewIngestService(repo, store, encoder, extractor, pool, IngestConfig{
		BaseURL:      "http://localhost:3000",
		WorkspaceDir: t.TempDir(),
	}, logger)
	p.ingest.now = func() time.Time { return p.now }
	p.access = NewAccessService(repo, logger)
	p.repo = repo
	return p
}

func (p *pipeline) read(t *testing.T, locator string) string {
	t.Helper()
	rel := strings.TrimPrefix(locator, "http://localhost:8080/media/")
	data, err := os.ReadFile(filepath.Join(p.mediaRoot, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func twoPhotosTwoVideos() IngestRequest {
	return IngestRequest{
		CustomerName: "Alice",
		Photos:       []MediaUpload{upload("p1.jpg", "photo-1"), upload("p2.jpg", "photo-2")},
		Videos: []VideoUpload{
			videoUpload("A.mp4", "video-A", true),
			videoUpload("B.mp4", "video-B", false),
		},
	}
}

func TestPipeline_UnpaidPreview(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	summary, err := p.ingest.Ingest(ctx, twoPhotosTwoVideos())
	require.NoError(t, err)

	view, err := p.access.Access(ctx, summary.Token, p.now.Add(24*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, models.AccessUnpaidPreview, view.State)
	require.Len(t, view.Photos, 2)
	assert.Equal(t, "photo-1", p.read(t, view.Photos[0].URL))
	assert.Equal(t, "photo-2", p.read(t, view.Photos[1].URL))

	require.Len(t, view.Videos, 2)
	a, b := view.Videos[0], view.Videos[1]
	assert.False(t, a.IsLocked)
	require.NotNil(t, a.URL)
	assert.Equal(t, summary.WatermarkedURL, *a.URL)
	assert.Equal(t, "watermarked", p.read(t, *a.URL))
	assert.True(t, b.IsLocked)
	assert.Nil(t, b.URL)
	assert.Equal(t, "thumbnail", p.read(t, b.ThumbnailURL))
}

func TestPipeline_PaymentUnlocksOriginals(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	summary, err := p.ingest.Ingest(ctx, twoPhotosTwoVideos())
	require.NoError(t, err)

	require.NoError(t, p.access.SetPaymentStatus(ctx, summary.ID, true))

	view, err := p.access.Access(ctx, summary.Token, p.now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, models.AccessPaidFull, view.State)
	require.Len(t, view.Videos, 2)
	for i, want := range []string{"video-A", "video-B"} {
		v := view.Videos[i]
		assert.False(t, v.IsLocked)
		require.NotNil(t, v.URL)
		assert.Contains(t, *v.URL, "/original-")
		assert.Equal(t, want, p.read(t, *v.URL))
	}
	assert.Len(t, view.Photos, 2)
}

func TestPipeline_LockedOriginalNotDerivableFromUnpaidView(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	at := p.now.Add(time.Hour)

	summary, err := p.ingest.Ingest(ctx, twoPhotosTwoVideos())
	require.NoError(t, err)
	view, err := p.access.Access(ctx, summary.Token, at)
	require.NoError(t, err)
	b := view.Videos[1]
	require.True(t, b.IsLocked)

	thumbnail := path.Base(b.ThumbnailURL)
	guesses := []string{
		strings.Replace(strings.Replace(thumbnail, "thumbnail-", "original-", 1), ".jpg", ".mp4", 1),
		strings.Replace(thumbnail, ".jpg", ".mp4", 1),
		"video-" + b.ID + "-original.mp4",
		"original-" + b.ID + ".mp4",
	}
	for _, name := range guesses {
		assert.NoFileExists(t, filepath.Join(p.mediaRoot, view.SubmissionID, name))
		assert.ErrorIs(t, p.access.AuthorizeMedia(ctx, view.SubmissionID, name, at), common.ErrNotFound, name)
	}

	sub, err := p.repo.GetByToken(ctx, summary.Token)
	require.NoError(t, err)
	locked := path.Base(sub.Videos[1].OriginalLocator)
	assert.Equal(t, "video-B", p.read(t, sub.Videos[1].OriginalLocator))

	body, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(body), locked)
	assert.ErrorIs(t, p.access.AuthorizeMedia(ctx, view.SubmissionID, locked, at), common.ErrNotFound)
	assert.NoError(t, p.access.AuthorizeMedia(ctx, view.SubmissionID, thumbnail, at))

	require.NoError(t, p.access.SetPaymentStatus(ctx, summary.ID, true))
	assert.NoError(t, p.access.AuthorizeMedia(ctx, view.SubmissionID, locked, at))
}

func TestPipeline_ExpiredRegardlessOfPayment(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	req := twoPhotosTwoVideos()
	req.ExpiryDays = intPtr(1)
	summary, err := p.ingest.Ingest(ctx, req)
	require.NoError(t, err)

	later := p.now.Add(48 * time.Hour)
	_, err = p.access.Access(ctx, summary.Token, later)
	assert.ErrorIs(t, err, common.ErrExpired)

	require.NoError(t, p.access.SetPaymentStatus(ctx, summary.ID, true))
	_, err = p.access.Access(ctx, summary.Token, later)
	assert.ErrorIs(t, err, common.ErrExpired)

	view, err := p.access.Access(ctx, summary.Token, p.now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.AccessPaidFull, view.State)
}

func TestPipeline_UnknownToken(t *testing.T) {
	p := newPipeline(t)

	view, err := p.access.Access(context.Background(), "does-not-exist", p.now)

	assert.Nil(t, view)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPipeline_WatermarkRemovedFailsIngestion(t *testing.T) {
	logger := zap.NewNop()
	watermark := filepath.Join(t.TempDir(), "watermark.png")
	require.NoError(t, os.WriteFile(watermark, []byte("png"), 0o644))
	encoder, err := media.NewWatermarkEncoder(fakeFFmpeg{}, watermark, media.DefaultPreset, media.DefaultCRF, logger)
	require.NoError(t, err)
	require.NoError(t, os.Remove(watermark))

	mediaRoot := t.TempDir()
	service := NewIngestService(
		repositories.NewMemorySubmissionRepository(),
		storage.NewLocalStorage(mediaRoot, ""),
		encoder,
		media.NewThumbnailExtractor(fakeFFmpeg{}, time.Second, 320, 180, logger),
		inlinePool{},
		IngestConfig{WorkspaceDir: t.TempDir(), RetryTranscode: true},
		logger,
	)

	_, err = service.Ingest(context.Background(), twoPhotosTwoVideos())

	assert.ErrorIs(t, err, common.ErrTranscode)
	assert.ErrorIs(t, err, common.ErrWatermarkMissing)
	entries, err := os.ReadDir(mediaRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// slowStopEncoder needs a while to exit after its context is cancelled
type slowStopEncoder struct {
	exited atomic.Bool
}

func (e *slowStopEncoder) Encode(ctx context.Context, in, out string) error {
	<-ctx.Done()
	time.Sleep(100 * time.Millisecond)
	e.exited.Store(true)
	return ctx.Err()
}

func TestPipeline_TimeoutWaitsForRunningEngineJob(t *testing.T) {
	pool := media.NewPool(1)
	t.Cleanup(pool.Close)

	encoder := &slowStopEncoder{}
	store := newMockMediaStore()
	workDir := t.TempDir()
	ingest := NewIngestService(&mockSubmissionRepository{}, store, encoder, &mockExtractor{}, pool, IngestConfig{
		Timeout:      50 * time.Millisecond,
		WorkspaceDir: workDir,
	}, zap.NewNop())

	_, err := ingest.Ingest(context.Background(), IngestRequest{
		CustomerName: "Alice",
		Videos:       []VideoUpload{videoUpload("a.mp4", "A", true)},
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, encoder.exited.Load(), "ingestion returned while the engine job was still running")
	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, store.objects)
}
