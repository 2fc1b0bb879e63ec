package files

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrWouldOverwriteInput is returned when an output path names an input file.
var ErrWouldOverwriteInput = errors.New("output would overwrite an input file")

// ErrAlreadyWritten is returned when an output path was already written by the
// same manager.
var ErrAlreadyWritten = errors.New("output already written in this run")

// Manager writes output files into one directory
type Manager struct {
	dir     string
	inputs  []string
	written []string
	logger  *slog.Logger
}

// NewManager creates a manager writing into dir. Paths in inputs, and paths the
// manager has written itself, are never overwritten.
func NewManager(dir string, inputs []string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{dir: dir, inputs: inputs, logger: logger}
}

// EnsureDirectory creates the output directory if it doesn't exist
func (m *Manager) EnsureDirectory() error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Path returns where a file called name is written.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.dir, filepath.Base(name))
}

// WriteFile writes data to name inside the output directory and returns the
// full path. name may also be an absolute or relative path outside the
// directory when it contains a separator.
func (m *Manager) WriteFile(name string, data []byte) (string, error) {
	path := name
	if filepath.Base(name) == name {
		path = m.Path(name)
	}

	for _, in := range m.inputs {
		if SameFile(path, in) {
			return "", fmt.Errorf("%w: %s", ErrWouldOverwriteInput, path)
		}
	}
	for _, out := range m.written {
		if SameFile(path, out) {
			return "", fmt.Errorf("%w: %s", ErrAlreadyWritten, path)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".sweep-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	m.written = append(m.written, path)
	m.logger.Debug("file written",
		slog.String("path", path),
		slog.Int("size_bytes", len(data)))
	return path, nil
}

// SameFile reports whether a and b name the same existing file.
func SameFile(a, b string) bool {
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}
