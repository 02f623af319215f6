package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to name inside a fresh temp dir and returns the
// full path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
