// Package safe reads operator-supplied files with size bounds.
package safe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// MaxConfigSize bounds config files.
	MaxConfigSize = 1 << 20
	// MaxTraceSize bounds recorded trace files.
	MaxTraceSize = 64 << 20
)

// ErrTooLarge is returned when a file exceeds the requested bound.
var ErrTooLarge = errors.New("file too large")

// ReadFile reads the regular file at path, refusing anything larger than
// maxSize bytes. Symlinks are followed.
func ReadFile(path string, maxSize int64) ([]byte, error) {
	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path %q is not a regular file", path)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %q is %d bytes, limit is %d", ErrTooLarge, path, info.Size(), maxSize)
	}

	// #nosec G304 - path has been validated above.
	return os.ReadFile(cleanPath)
}
