package job

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeTemp writes data to a uniquely-named file under the OS temp
// directory so internal/loader's DuckDB reader (which requires a real
// filesystem path) can read what internal/storage downloaded into memory.
func writeTemp(name string, data []byte) (string, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("recflow-%s-%d", name, os.Getpid()))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write temp file for %s: %w", name, err)
	}
	return path, nil
}
