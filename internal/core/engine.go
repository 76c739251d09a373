package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Stats summarizes one Run invocation, used by the CLI front end for its
// final report and exercised directly by testable property 10 (metrics
// counters equal the number of profiles actually appended).
type Stats struct {
	Batches  int
	Assigned int
	Reused   int
}

// Engine owns everything the assignment loop (C8) needs: configuration,
// the scheme, the in-memory labeled set, and the optional accelerator
// index / archiver / metrics recorder. Consolidating global state into one
// value that's passed by reference, rather than a process-wide options map
// and lazily populated caches (spec §9).
type Engine struct {
	cfg     Config
	scheme  Scheme
	store   *Store
	kernel  Kernel
	deriver Deriver
	lock    *Lock
	tmpDir  string
	logger  Logger

	labeled    []LabeledProfile
	labeledIDs map[string]struct{}

	debugLog *os.File

	index   Index
	archive *Archiver
	metrics *Metrics
}

var errBatchFull = errors.New("lincode: batch full")

// NewEngine loads the scheme, acquires the single-writer lock, loads the
// existing labeled set, and merges any externally supplied profiles, per
// spec §4.8 and §4.9. The returned Engine must be closed with Close,
// whether or not Run is ever called.
func NewEngine(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = NewNoopLogger()
	}

	scheme, err := LoadScheme(cfg.Dir, cfg.SchemeID)
	if err != nil {
		return nil, err
	}

	lock, err := NewLock(cfg.Dir, cfg.SchemeID)
	if err != nil {
		return nil, err
	}
	if err := lock.Acquire(); err != nil {
		return nil, err
	}

	tmpDir, err := secureTempDir(cfg.Dir)
	if err != nil {
		lock.Release()
		return nil, err
	}
	if err := cleanTempDir(tmpDir); err != nil {
		logger.Warn("stale temp file cleanup failed", "dir", tmpDir, "error", err)
	}

	store := NewStore(scheme)

	e := &Engine{
		cfg:     cfg,
		scheme:  scheme,
		store:   store,
		kernel:  NewKernel(scheme.L()),
		deriver: NewDeriver(NewKernel(scheme.L()), scheme.Thresholds),
		lock:    lock,
		tmpDir:  tmpDir,
		logger:  logger,
		index:   cfg.Index,
		archive: cfg.Archive,
		metrics: cfg.Metrics,
	}

	if cfg.InputProfiles != "" {
		records, err := store.LoadExternalProfiles(cfg.InputProfiles)
		if err != nil {
			e.Close()
			return nil, err
		}
		if err := store.AppendProfiles(records); err != nil {
			e.Close()
			return nil, err
		}
	}

	if err := e.reloadLabeled(); err != nil {
		e.Close()
		return nil, err
	}

	// Replay the authoritative log into the accelerator index so that
	// hasLabel, which consults only the index when one is configured,
	// agrees with the labeled set on disk.
	if e.index != nil {
		for _, lp := range e.labeled {
			if err := e.index.Put(lp.ID, lp.Code); err != nil {
				e.logger.Warn("labeled-set index rebuild failed", "id", lp.ID, "error", err)
			}
		}
	}

	if cfg.DebugLog != "" {
		f, err := os.Create(cfg.DebugLog)
		if err != nil {
			e.Close()
			return nil, &ConfigError{File: cfg.DebugLog, Reason: err.Error()}
		}
		fmt.Fprintln(f, "profile_id\tclosest_profile_id\tcommon_alleles\tmissing_alleles\tmissing_in_either\tidentity\tdistance\tchosen_prefix\tnew_lincode")
		e.debugLog = f
	}

	return e, nil
}

// reloadLabeled re-reads the authoritative log into memory, the restart
// condition spec §4.8 describes between batches.
func (e *Engine) reloadLabeled() error {
	labeled, err := e.store.LoadLabeled()
	if err != nil {
		return err
	}
	e.labeled = labeled
	e.labeledIDs = make(map[string]struct{}, len(labeled))
	for _, lp := range labeled {
		e.labeledIDs[lp.ID] = struct{}{}
	}
	return nil
}

func (e *Engine) hasLabel(id string) (bool, error) {
	if e.index != nil {
		return e.index.Has(id)
	}
	_, ok := e.labeledIDs[id]
	return ok, nil
}

// nextBatch collects up to the configured batch size of unlabeled
// profiles, in id order, applying the missing-allele budget and the
// [min,max] id-range filter (spec §6). Already-labeled ids are skipped:
// the unlabeled queue is the set-difference between the store and the
// labeled set (spec §3).
func (e *Engine) nextBatch() ([]UnlabeledProfile, error) {
	batch := make([]UnlabeledProfile, 0, e.cfg.batchSize())
	err := e.store.IterateProfiles(e.cfg.MinID, e.cfg.MaxID, e.cfg.MaxMissing, func(u UnlabeledProfile) error {
		has, err := e.hasLabel(u.ID)
		if err != nil {
			return err
		}
		if has {
			return nil
		}
		batch = append(batch, u)
		if len(batch) >= e.cfg.batchSize() {
			return errBatchFull
		}
		return nil
	})
	if err != nil && !errors.Is(err, errBatchFull) {
		return nil, err
	}
	return batch, nil
}

// Run drives the assignment loop to completion: repeatedly pick a batch,
// order it, derive codes, and append them, until the unlabeled queue is
// empty (spec §4.8). Re-running on an already-complete store is a no-op
// (invariant 6).
func (e *Engine) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	for {
		start := time.Now()
		batch, err := e.nextBatch()
		if err != nil {
			return stats, err
		}
		if len(batch) == 0 {
			return stats, nil
		}

		order, comparisons, err := e.orderBatch(batch)
		if err != nil {
			return stats, err
		}

		profilesByID := make(map[string]Profile, len(batch))
		for _, u := range batch {
			profilesByID[u.ID] = u.Profile
		}

		assignedThisBatch := 0
		for _, id := range order {
			p := profilesByID[id]
			code, reused, nearest, identity, distance := e.deriveWithTrace(p)

			if err := e.store.AppendLabeled(id, p, code); err != nil {
				return stats, err
			}
			e.labeled = append(e.labeled, LabeledProfile{ID: id, Profile: p.Clone(), Code: code})
			e.labeledIDs[id] = struct{}{}

			if e.index != nil {
				if err := e.index.Put(id, code); err != nil {
					e.logger.Warn("labeled-set index mirror write failed", "id", id, "error", err)
				}
			}

			e.writeDebugLine(id, nearest, p, identity, distance, code)

			assignedThisBatch++
			stats.Assigned++
			if reused {
				stats.Reused++
				e.metrics.observeReuse()
			}
		}

		stats.Batches++
		e.metrics.observeComparisons(comparisons)
		e.metrics.observeBatch(time.Since(start).Seconds(), assignedThisBatch)
		if e.archive != nil {
			e.archive.Archive()
		}

		// Restart condition for the next batch: re-read the authoritative
		// log from disk so a crash mid-batch resumes correctly (spec
		// §4.8). The in-memory labeled set above is already authoritative
		// for what this process just wrote, so this is a consistency
		// check rather than a requirement (spec §9 open question).
		if err := e.reloadLabeled(); err != nil {
			return stats, err
		}
	}
}

// orderBatch builds the distance matrix and Prim order for a multi-member
// batch (skipped for singletons), then rotates it toward the labeled set
// via AnchorAdjust unless the labeled set is empty (spec §4.8).
func (e *Engine) orderBatch(batch []UnlabeledProfile) ([]string, int, error) {
	ids := make([]string, len(batch))
	profiles := make([]Profile, len(batch))
	for i, u := range batch {
		ids[i] = u.ID
		profiles[i] = u.Profile
	}

	var order []string
	comparisons := 0
	if len(batch) > 1 {
		matrix, err := BuildMatrix(e.kernel, profiles, e.cfg.UseMmap, e.tmpDir)
		if err != nil {
			return nil, 0, err
		}
		defer matrix.Close()
		order = PrimOrder(ids, matrix)
		comparisons = len(batch) * (len(batch) - 1) / 2
	} else {
		order = ids
	}

	if len(e.labeled) > 0 {
		profilesByID := make(map[string]Profile, len(batch))
		for i, id := range ids {
			profilesByID[id] = profiles[i]
		}
		order = AnchorAdjust(e.kernel, e.labeled, order, profilesByID)
	}
	return order, comparisons, nil
}

// deriveWithTrace derives a code for p and also returns the tracing detail
// the debug log (spec §6 `log` option) records. It runs its own
// nearest-neighbor scan for the trace; when no code is reused, Derive then
// repeats that scan to compute the code.
func (e *Engine) deriveWithTrace(p Profile) (code LINCode, reused bool, nearestID string, identity, distance float64) {
	closest := -1
	minDistance := infDistance
	for i, lp := range e.labeled {
		diffs, d, denomZero := e.kernel.Compare(p, lp.Profile)
		if denomZero {
			d = 100.0
		} else if diffs == 0 {
			return lp.Code.Clone(), true, lp.ID, 100.0, 0.0
		}
		if d < minDistance {
			minDistance = d
			closest = i
		}
	}
	code = e.deriver.Derive(e.labeled, p)
	if closest >= 0 {
		nearestID = e.labeled[closest].ID
		distance = minDistance
		identity = 100 - minDistance
	}
	return code, false, nearestID, identity, distance
}

func (e *Engine) writeDebugLine(id, nearestID string, p Profile, identity, distance float64, code LINCode) {
	if e.debugLog == nil {
		return
	}
	common, missing, missingEither := 0, 0, 0
	if nearestID != "" {
		for _, lp := range e.labeled {
			if lp.ID == nearestID {
				for i := range p {
					av, bv := p[i], lp.Profile[i]
					switch {
					case av == Missing || bv == Missing:
						missingEither++
					case av == bv:
						common++
					default:
						missing++
					}
				}
				break
			}
		}
	}
	fmt.Fprintf(e.debugLog, "%s\t%s\t%d\t%d\t%d\t%.4f\t%.4f\t%s\t%s\n",
		id, nearestID, common, missing, missingEither, identity, distance, prefixOf(code), code.String())
}

func prefixOf(code LINCode) string {
	if len(code) == 0 {
		return ""
	}
	return code[:len(code)-1].String()
}

// Close closes the debug log and the accelerator index, cleans the secure
// temp directory, and releases the lock, in that order. Safe to call once after NewEngine
// regardless of whether Run succeeded.
func (e *Engine) Close() error {
	var firstErr error
	if e.debugLog != nil {
		if err := e.debugLog.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.index != nil {
		if err := e.index.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.tmpDir != "" {
		if err := cleanTempDir(e.tmpDir); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.lock != nil {
		if err := e.lock.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
