package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidName is returned for namespaces or names that are not a single path element
var ErrInvalidName = errors.New("invalid object name")

// GenerateFileName generates a new file name based on a prefix, a suffix and the file extension
// It creates a UUID-based filename, e.g. "video-<uuid>-original.mp4"
func GenerateFileName(prefix, suffix, extension string) (string, string) {
	id := uuid.New().String()
	if extension != "" && extension[0] != '.' {
		extension = "." + extension
	}
	name := prefix + "-" + id
	if suffix != "" {
		name += "-" + suffix
	}
	return id, name + strings.ToLower(extension)
}

// ObjectKey joins namespace and name into a storage key
// Both parts must be plain names so that a namespace can never reach outside itself
func ObjectKey(namespace, name string) (string, error) {
	if !isPlainName(namespace) || !isPlainName(name) {
		return "", fmt.Errorf("%w: %q/%q", ErrInvalidName, namespace, name)
	}
	return namespace + "/" + name, nil
}

func isPlainName(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`) && path.Base(s) == s
}

// joinURL appends a key to a base URL
func joinURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + key
}

// sizeWriter tracks the total number of bytes written
type sizeWriter struct {
	size int64
}

// Write implements io.Writer interface
func (sw *sizeWriter) Write(p []byte) (int, error) {
	n := len(p)
	sw.size += int64(n)
	return n, nil
}

// Size returns the total number of bytes written
func (sw *sizeWriter) Size() int64 {
	return sw.size
}

// NewSizeWriter creates a new SizeWriter instance
func NewSizeWriter() *sizeWriter {
	return &sizeWriter{}
}
