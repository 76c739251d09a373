// Command lincode-assign drives the LINcode assignment engine over a
// scheme directory: a thin flag-based front end wiring internal/core
// together, per spec.md's "external collaborator" framing. It owns flag
// parsing, help text, and verbosity; everything else lives in
// internal/core.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lincode/internal/core"
)

var (
	flagDir           = ""
	flagSchemeID      = 0
	flagBatchSize     = 10000
	flagMissing       = 0
	flagMin           = 0
	flagMax           = 0
	flagMmap          = false
	flagInputProfiles = ""
	flagLog           = ""
	flagCreate        = false
	flagQuiet         = false
	flagDebug         = false

	flagIndexDriver = "memory"
	flagIndexDSN    = ""
	flagArchiveRoot = ""
	flagMetricsAddr = ""
)

func init() {
	log.SetFlags(0)

	flag.StringVar(&flagDir, "dir", flagDir, "Scheme directory (required).")
	flag.IntVar(&flagSchemeID, "scheme_id", flagSchemeID, "Integer scheme selector (required).")
	flag.IntVar(&flagBatchSize, "batch_size", flagBatchSize, "Maximum profiles per inner iteration.")
	flag.IntVar(&flagMissing, "missing", flagMissing, "Per-profile missing-allele budget.")
	flag.IntVar(&flagMin, "min", flagMin, "Inclusive minimum profile id filter.")
	flag.IntVar(&flagMax, "max", flagMax, "Inclusive maximum profile id filter.")
	flag.BoolVar(&flagMmap, "mmap", flagMmap, "Use a disk-backed distance matrix instead of RAM.")
	flag.StringVar(&flagInputProfiles, "input_profiles", flagInputProfiles, "TSV of new profiles to append before assignment begins.")
	flag.StringVar(&flagLog, "log", flagLog, "Path to a TSV debug log of per-assignment detail.")
	flag.BoolVar(&flagCreate, "create", flagCreate, "Produce an example schema directory and exit.")
	flag.BoolVar(&flagQuiet, "quiet", flagQuiet, "Suppress informational output.")
	flag.BoolVar(&flagDebug, "debug", flagDebug, "Enable verbose debug logging.")

	flag.StringVar(&flagIndexDriver, "index-driver", flagIndexDriver, "Labeled-set accelerator index: memory|sqlite|postgres.")
	flag.StringVar(&flagIndexDSN, "index-dsn", flagIndexDSN, "SQLite file path or Postgres DSN for the accelerator index.")
	flag.StringVar(&flagArchiveRoot, "archive-root", flagArchiveRoot, "Checkpoint archive directory, optional (default disabled).")
	flag.StringVar(&flagMetricsAddr, "metrics-addr", flagMetricsAddr, "host:port to serve /metrics on, optional.")

	flag.Usage = usage
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s -dir <dir> -scheme_id <id> [options]\n\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	if flagCreate {
		if err := createExampleScheme(flagDir, flagSchemeID); err != nil {
			fatalf("create example scheme: %v", err)
		}
		os.Exit(0)
	}

	if flagDir == "" || flagSchemeID == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := core.NewStdLogger(flagDebug, flagQuiet)
	ctx := context.Background()

	var minID, maxID *int
	if isFlagSet("min") {
		v := flagMin
		minID = &v
	}
	if isFlagSet("max") {
		v := flagMax
		maxID = &v
	}

	index, err := core.OpenIndex(core.IndexDriver(flagIndexDriver), flagIndexDSN)
	if err != nil {
		fatalf("open index: %v", err)
	}

	metrics := core.NewMetrics()
	if flagMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(flagMetricsAddr, mux); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	scheme, err := core.LoadScheme(flagDir, flagSchemeID)
	if err != nil {
		fatalf("%v", err)
	}

	archiver := core.OpenArchiver(flagArchiveRoot, scheme, logger)

	cfg := core.Config{
		Dir:           flagDir,
		SchemeID:      flagSchemeID,
		BatchSize:     flagBatchSize,
		MaxMissing:    flagMissing,
		MinID:         minID,
		MaxID:         maxID,
		UseMmap:       flagMmap,
		InputProfiles: flagInputProfiles,
		DebugLog:      flagLog,
		Quiet:         flagQuiet,
		Debug:         flagDebug,
		IndexDriver:   core.IndexDriver(flagIndexDriver),
		IndexDSN:      flagIndexDSN,
		Logger:        logger,
		Index:         index,
		Archive:       archiver,
		Metrics:       metrics,
	}

	engine, err := core.NewEngine(cfg)
	if err != nil {
		reportFatal(err)
	}
	defer engine.Close()

	stats, err := engine.Run(ctx)
	if err != nil {
		reportFatal(err)
	}

	logger.Info("assignment run complete", "batches", stats.Batches, "assigned", stats.Assigned, "reused", stats.Reused)
	os.Exit(0)
}

// reportFatal distinguishes contention (exit 1, spec §6) from every other
// fatal condition (non-zero with diagnostic).
func reportFatal(err error) {
	if _, ok := err.(*core.ContentionError); ok {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fatalf("%v", err)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}

func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// createExampleScheme scaffolds a minimal scheme directory (4 loci, two
// thresholds, two identical example profiles) so a new user can see the
// on-disk layout spec.md §6 describes without hand-writing it.
func createExampleScheme(dir string, schemeID int) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	loci := "locus1\nlocus2\nlocus3\nlocus4\n"
	thresholds := "1;2\n"
	profiles := "id\tallele1,allele2,allele3,allele4\n1\t1,1,1,1\n2\t1,1,1,1\n"

	writes := map[string]string{
		fmt.Sprintf("scheme_%d_loci.txt", schemeID):       loci,
		fmt.Sprintf("scheme_%d_thresholds.txt", schemeID): thresholds,
		fmt.Sprintf("scheme_%d_profiles.tsv", schemeID):   profiles,
	}
	for name, content := range writes {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue // don't clobber an existing scheme
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
