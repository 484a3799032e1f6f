package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/previewvault/backend/internal/common"
)

// localStorage implements media storage using the local filesystem
// Every namespace is a directory directly under basePath
type localStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage creates a new localStorage instance
// Locators are built as "<baseURL>/media/<namespace>/<name>"
func NewLocalStorage(basePath, baseURL string) *localStorage {
	return &localStorage{
		basePath: basePath,
		baseURL:  baseURL,
	}
}

// generatePath generates the full file path based on namespace and name
func (s *localStorage) generatePath(namespace, name string) (string, error) {
	key, err := ObjectKey(namespace, name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(key)), nil
}

// Put writes r to namespace/name and returns the locator of the new file
// A partially written file is removed before the error is returned
func (s *localStorage) Put(ctx context.Context, namespace, name string, r io.Reader, size int64, contentType string) (string, error) {
	path, err := s.generatePath(namespace, name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStore, err)
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStore, err)
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create directory: %w", common.ErrStore, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create file: %w", common.ErrStore, err)
	}

	sw := NewSizeWriter()
	_, err = io.Copy(file, io.TeeReader(r, sw))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil && size >= 0 && sw.Size() != size {
		err = fmt.Errorf("short write: %d of %d bytes", sw.Size(), size)
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: failed to write file: %w", common.ErrStore, err)
	}

	return joinURL(s.baseURL, "media/"+namespace+"/"+name), nil
}

// OpenFile opens a stored file and returns *os.File for use with http.ServeContent
func (s *localStorage) OpenFile(namespace, name string) (*os.File, error) {
	path, err := s.generatePath(namespace, name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// DeleteNamespace removes every file stored under namespace
func (s *localStorage) DeleteNamespace(ctx context.Context, namespace string) error {
	if !isPlainName(namespace) {
		return fmt.Errorf("%w: %q", ErrInvalidName, namespace)
	}
	if err := os.RemoveAll(filepath.Join(s.basePath, namespace)); err != nil {
		return fmt.Errorf("failed to delete namespace: %w", err)
	}
	return nil
}
