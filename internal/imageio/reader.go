// Package imageio reads candidate images from disk and writes them into an
// interpreter's input tensor.
package imageio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

var (
	ErrIO           = errors.New("image io")
	ErrSizeMismatch = errors.New("image size mismatch")
)

// ReadFile reads the whole file at path. Failures wrap ErrIO and name the path.
func ReadFile(logger *slog.Logger, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		logger.Error("Failed to open file", "path", path, "error", err)
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		logger.Error("Failed to stat file", "path", path, "error", err)
		return nil, fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
	}

	buf := make([]byte, info.Size())
	if _, err := io.ReadFull(f, buf); err != nil {
		logger.Error("Failed to read file", "path", path, "error", err)
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}

	logger.Info("Successfully loaded image", "path", path, "bytes", len(buf))
	return buf, nil
}

// Exists reports whether path can be opened for reading.
func Exists(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
