package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/previewvault/backend/internal/common"
	"github.com/previewvault/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubAuthorizer answers AuthorizeMedia from a fixed set of errors per file name
type stubAuthorizer struct {
	denied map[string]error
	calls  []string
}

func (a *stubAuthorizer) AuthorizeMedia(ctx context.Context, submissionID, name string, now time.Time) error {
	a.calls = append(a.calls, submissionID+"/"+name)
	return a.denied[name]
}

func TestMediaHandler_DownloadFile(t *testing.T) {
	store := storage.NewLocalStorage(t.TempDir(), "")
	_, err := store.Put(context.Background(), "sub-1", "video-original.mp4", strings.NewReader("0123456789"), 10, "video/mp4")
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "sub-1", "original-locked.mp4", strings.NewReader("locked"), 6, "video/mp4")
	require.NoError(t, err)

	authorizer := &stubAuthorizer{denied: map[string]error{
		"original-locked.mp4": common.ErrNotFound,
		"expired.mp4":         &common.ExpiredError{ExpiresAt: time.Now()},
		"broken.mp4":          errors.New("database error"),
	}}
	r := chi.NewRouter()
	NewMediaHandler(store, authorizer, zap.NewNop()).RegisterRoutes(r)

	tests := []struct {
		name           string
		path           string
		rangeHeader    string
		expectedStatus int
		expectedBody   string
	}{
		{name: "full file", path: "/media/sub-1/video-original.mp4", expectedStatus: http.StatusOK, expectedBody: "0123456789"},
		{name: "range", path: "/media/sub-1/video-original.mp4", rangeHeader: "bytes=2-5", expectedStatus: http.StatusPartialContent, expectedBody: "2345"},
		{name: "missing file", path: "/media/sub-1/nope.mp4", expectedStatus: http.StatusNotFound},
		{name: "missing namespace", path: "/media/sub-2/video-original.mp4", expectedStatus: http.StatusNotFound},
		{name: "dot namespace", path: "/media/../video-original.mp4", expectedStatus: http.StatusNotFound},
		{name: "locked original is not served", path: "/media/sub-1/original-locked.mp4", expectedStatus: http.StatusNotFound},
		{name: "expired link", path: "/media/sub-1/expired.mp4", expectedStatus: http.StatusGone},
		{name: "authorization failure", path: "/media/sub-1/broken.mp4", expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.rangeHeader != "" {
				req.Header.Set("Range", tt.rangeHeader)
			}
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			body, err := io.ReadAll(rec.Body)
			require.NoError(t, err)
			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, string(body))
			}
			assert.NotContains(t, string(body), "locked")
		})
	}

	assert.Contains(t, authorizer.calls, "sub-1/original-locked.mp4")
}

// stubPinger is a Pinger with a fixed result
type stubPinger struct {
	err error
}

func (p stubPinger) PingContext(ctx context.Context) error {
	return p.err
}

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		name           string
		db             Pinger
		expectedStatus int
	}{
		{name: "no database", expectedStatus: http.StatusOK},
		{name: "database up", db: stubPinger{}, expectedStatus: http.StatusOK},
		{name: "database down", db: stubPinger{err: io.ErrUnexpectedEOF}, expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, zap.NewNop())
			rec := httptest.NewRecorder()

			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}
