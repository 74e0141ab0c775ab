package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsupportedExtension is returned for paths without a .yaml or .yml extension.
	ErrUnsupportedExtension = errors.New("unsupported file extension")

	// ErrInvalidEncoding is returned for files that are not valid UTF-8.
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
)

// IsYAML reports whether path has a YAML extension.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// ReadDocument returns the text of a YAML file.
func ReadDocument(path string) (string, error) {
	if !IsYAML(path) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedExtension, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrInvalidEncoding, path)
	}
	return string(data), nil
}

// WriteDocument replaces the content of a YAML file atomically.
func WriteDocument(path, text string) error {
	if !IsYAML(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedExtension, path)
	}
	if err := writeAtomic(path, []byte(text)); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// writeAtomic writes to a temporary file in the destination directory,
// syncs it and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath) // gone after a successful rename
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if the destination exists.
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove existing file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
