package core

import (
	"fmt"
	"os"
	"path/filepath"
)

// Archiver copies a snapshot of the authoritative labeled-set log into a
// separate checkpoint directory after each batch, per SPEC_FULL §4.11. A
// nil Archiver is valid and Archive becomes a no-op: the archive is a
// convenience, never a dependency of correctness, and the TSV log under
// scheme.Dir remains the only source of truth.
type Archiver struct {
	root    string
	scheme  Scheme
	logger  Logger
	nextSeq int
}

// NewArchiver binds a checkpoint root directory to a scheme.
func NewArchiver(root string, scheme Scheme, logger Logger) *Archiver {
	if logger == nil {
		logger = NewNoopLogger()
	}
	return &Archiver{root: root, scheme: scheme, logger: logger}
}

// Archive copies the current lincodes log into the checkpoint directory
// under a sequence-numbered name, created fresh each time so an earlier
// checkpoint is never silently overwritten. Failures are logged and
// swallowed: they must never abort or alter the outcome of an assignment
// batch (testable property 9).
func (a *Archiver) Archive() {
	if a == nil || a.root == "" {
		return
	}
	src := schemeFile(a.scheme.Dir, a.scheme.ID, "lincodes.tsv")
	data, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		a.logger.Warn("checkpoint archive read failed", "file", src, "error", err)
		return
	}

	if err := os.MkdirAll(a.root, 0o750); err != nil {
		a.logger.Warn("checkpoint archive mkdir failed", "dir", a.root, "error", err)
		return
	}

	a.nextSeq++
	dst := filepath.Join(a.root, fmt.Sprintf("scheme_%d_lincodes_%05d.tsv", a.scheme.ID, a.nextSeq))
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		a.logger.Warn("checkpoint archive create failed", "file", dst, "error", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		a.logger.Warn("checkpoint archive write failed", "file", dst, "error", err)
		return
	}
	a.logger.Debug("checkpoint archived", "file", dst, "bytes", len(data))
}
