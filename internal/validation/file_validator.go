package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"datasweeper/internal/dataset"
)

var (
	// ErrFileTooLarge is returned for uploads above the configured size.
	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")
	// ErrTemporaryFile is returned for Office lock files such as "~$book.xlsx".
	ErrTemporaryFile = errors.New("temporary office file")
)

// FileValidator checks uploaded and local files before they are parsed.
type FileValidator struct {
	logger            *slog.Logger
	allowedExtensions []string
	maxFileSize       int64
}

// NewFileValidator creates a new file validator. A maxFileSize of zero
// disables the size check.
func NewFileValidator(logger *slog.Logger, allowedExtensions []string, maxFileSize int64) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	exts := make([]string, 0, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	return &FileValidator{
		logger:            logger,
		allowedExtensions: exts,
		maxFileSize:       maxFileSize,
	}
}

// ValidateUpload checks a file's name and size. The returned error wraps
// dataset.ErrUnsupportedFileType for extensions outside the allowed set.
func (v *FileValidator) ValidateUpload(name string, size int64) error {
	base := filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(base))

	if !slices.Contains(v.allowedExtensions, ext) {
		v.logger.Warn("Rejected file with unsupported extension",
			slog.String("file", base),
			slog.String("extension", ext))
		return &dataset.UnsupportedTypeError{Ext: ext}
	}
	if _, err := dataset.FormatForName(base); err != nil {
		return err
	}

	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Skipping temporary Excel file",
			slog.String("file", base))
		return fmt.Errorf("%s: %w", base, ErrTemporaryFile)
	}

	if v.maxFileSize > 0 && size > v.maxFileSize {
		v.logger.Warn("Rejected oversized file",
			slog.String("file", base),
			slog.Int64("size", size),
			slog.Int64("max_size", v.maxFileSize))
		return fmt.Errorf("%s is %d bytes (limit %d): %w", base, size, v.maxFileSize, ErrFileTooLarge)
	}

	if size == 0 {
		return fmt.Errorf("%s: %w", base, dataset.ErrEmptyFile)
	}

	return nil
}

// ValidateFile checks that a local file exists, is readable, and passes
// ValidateUpload. It returns the file size.
func (v *FileValidator) ValidateFile(path string) (int64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return 0, fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory, not a file", path)
	}

	if err := v.ValidateUpload(path, info.Size()); err != nil {
		return 0, err
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return 0, fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return info.Size(), nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	return nil
}

// IsRejected reports whether err came from upload validation rather than
// from an I/O failure.
func IsRejected(err error) bool {
	return errors.Is(err, dataset.ErrUnsupportedFileType) ||
		errors.Is(err, dataset.ErrEmptyFile) ||
		errors.Is(err, ErrTemporaryFile) ||
		errors.Is(err, ErrFileTooLarge)
}
