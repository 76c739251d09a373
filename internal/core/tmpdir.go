package core

import (
	"fmt"
	"os"
	"path/filepath"
)

// secureTempDir creates (if needed) and returns the private .tmp directory
// used for transient memory-mapped distance matrices, per spec §6.
func secureTempDir(schemeDir string) (string, error) {
	dir := filepath.Join(schemeDir, ".tmp")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create secure temp dir: %w", err)
	}
	return dir, nil
}

// cleanTempDir removes any leftover *.dismat files from a prior crashed
// run, matching the best-effort cleanup spec §4.9/§5 describe for
// termination handling.
func cleanTempDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var firstErr error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if filepath.Ext(e.Name()) == ".dismat" {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
