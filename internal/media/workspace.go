package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Workspace is a scratch directory owned by one ingestion.
// Close removes it with everything inside; it is safe to call more than once.
type Workspace struct {
	dir string
}

// NewWorkspace creates a fresh directory under baseDir (os.TempDir when empty)
func NewWorkspace(baseDir, prefix string) (*Workspace, error) {
	dir, err := os.MkdirTemp(baseDir, prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the path of name inside the workspace
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, filepath.Base(name))
}

// Spool copies r into a new file called name and returns its path and size
func (w *Workspace) Spool(name string, r io.Reader) (string, int64, error) {
	path := w.Path(name)
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create scratch file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return "", 0, fmt.Errorf("failed to write scratch file: %w", err)
	}
	return path, n, nil
}

// Close removes the workspace
func (w *Workspace) Close() error {
	return os.RemoveAll(w.dir)
}
