package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/previewvault/backend/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFileName(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		suffix    string
		extension string
		wantSufx  string
	}{
		{name: "with suffix", prefix: "video", suffix: "original", extension: ".MP4", wantSufx: "-original.mp4"},
		{name: "without suffix", prefix: "photo", extension: ".jpg", wantSufx: ".jpg"},
		{name: "extension without dot", prefix: "thumb", suffix: "0", extension: "jpg", wantSufx: "-0.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, name := GenerateFileName(tt.prefix, tt.suffix, tt.extension)

			assert.NotEmpty(t, id)
			assert.True(t, strings.HasPrefix(name, tt.prefix+"-"+id))
			assert.True(t, strings.HasSuffix(name, tt.wantSufx))
		})
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		file      string
		want      string
		wantErr   bool
	}{
		{name: "plain", namespace: "abc", file: "photo.jpg", want: "abc/photo.jpg"},
		{name: "parent namespace", namespace: "..", file: "photo.jpg", wantErr: true},
		{name: "traversal in name", namespace: "abc", file: "../photo.jpg", wantErr: true},
		{name: "nested name", namespace: "abc", file: "x/photo.jpg", wantErr: true},
		{name: "backslash", namespace: "abc", file: `x\photo.jpg`, wantErr: true},
		{name: "empty namespace", namespace: "", file: "photo.jpg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ObjectKey(tt.namespace, tt.file)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
		})
	}
}

func TestLocalStorage_Put(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStorage(dir, "http://localhost:8080/")

	locator, err := store.Put(context.Background(), "sub-1", "photo.jpg", strings.NewReader("jpeg"), 4, "image/jpeg")

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/sub-1/photo.jpg", locator)
	data, err := os.ReadFile(filepath.Join(dir, "sub-1", "photo.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	f, err := store.OpenFile("sub-1", "photo.jpg")
	require.NoError(t, err)
	defer f.Close()
	read, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(read))
}

func TestLocalStorage_PutErrors(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		file      string
		size      int64
	}{
		{name: "traversal", namespace: "sub-1", file: "../escape.jpg", size: -1},
		{name: "short write", namespace: "sub-1", file: "short.jpg", size: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store := NewLocalStorage(dir, "")

			_, err := store.Put(context.Background(), tt.namespace, tt.file, strings.NewReader("data"), tt.size, "image/jpeg")

			assert.ErrorIs(t, err, common.ErrStore)
			_, statErr := os.Stat(filepath.Join(dir, tt.namespace, tt.file))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestLocalStorage_PutCanceled(t *testing.T) {
	store := NewLocalStorage(t.TempDir(), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Put(ctx, "sub-1", "a.jpg", strings.NewReader("x"), 1, "image/jpeg")

	assert.ErrorIs(t, err, common.ErrStore)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalStorage_DeleteNamespace(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStorage(dir, "")
	ctx := context.Background()

	_, err := store.Put(ctx, "sub-1", "a.jpg", strings.NewReader("a"), 1, "image/jpeg")
	require.NoError(t, err)
	_, err = store.Put(ctx, "sub-2", "b.jpg", strings.NewReader("b"), 1, "image/jpeg")
	require.NoError(t, err)

	require.NoError(t, store.DeleteNamespace(ctx, "sub-1"))

	_, err = os.Stat(filepath.Join(dir, "sub-1"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "sub-2", "b.jpg"))
	assert.NoError(t, err)

	// deleting a missing namespace is not an error
	assert.NoError(t, store.DeleteNamespace(ctx, "sub-1"))
	assert.ErrorIs(t, store.DeleteNamespace(ctx, ".."), ErrInvalidName)
}

// fakeS3 is an in-memory implementation of s3API
type fakeS3 struct {
	objects   map[string]string
	putErr    error
	deleteErr error
	pageSize  int
	deletes   int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]string{}, pageSize: 2}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.StartAfter) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	if len(keys) > f.pageSize {
		keys = keys[:f.pageSize]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deletes++
	for _, obj := range in.Delete.Objects {
		delete(f.objects, aws.ToString(obj.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func TestS3Storage_Put(t *testing.T) {
	tests := []struct {
		name        string
		putErr      error
		namespace   string
		wantLocator string
		wantErr     bool
	}{
		{name: "success", namespace: "sub-1", wantLocator: "https://cdn.example.com/sub-1/a.mp4"},
		{name: "client error", namespace: "sub-1", putErr: errors.New("boom"), wantErr: true},
		{name: "invalid namespace", namespace: "a/b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeS3()
			client.putErr = tt.putErr
			store := newS3Storage(client, "bucket", "https://cdn.example.com")

			locator, err := store.Put(context.Background(), tt.namespace, "a.mp4", strings.NewReader("video"), 5, "video/mp4")

			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrStore)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLocator, locator)
			assert.Equal(t, "video", client.objects["sub-1/a.mp4"])
		})
	}
}

func TestS3Storage_DeleteNamespace(t *testing.T) {
	client := newFakeS3()
	client.objects = map[string]string{
		"sub-1/a.jpg":  "a",
		"sub-1/b.jpg":  "b",
		"sub-1/c.mp4":  "c",
		"sub-10/d.jpg": "d",
		"sub-2/e.jpg":  "e",
	}
	store := newS3Storage(client, "bucket", "")

	require.NoError(t, store.DeleteNamespace(context.Background(), "sub-1"))

	assert.Equal(t, map[string]string{"sub-10/d.jpg": "d", "sub-2/e.jpg": "e"}, client.objects)
	assert.Equal(t, 2, client.deletes)
}

func TestS3Storage_DeleteNamespaceError(t *testing.T) {
	client := newFakeS3()
	client.objects["sub-1/a.jpg"] = "a"
	client.deleteErr = errors.New("denied")
	store := newS3Storage(client, "bucket", "")

	err := store.DeleteNamespace(context.Background(), "sub-1")

	assert.Error(t, err)
	assert.ErrorIs(t, store.DeleteNamespace(context.Background(), ""), ErrInvalidName)
}
