// -----------------------------------------------------------------------
// Herald - Item Data Acquisition CLI
// Resolves game items from the catalog site into the local item database
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/camelotware/herald/internal/common"
	"github.com/camelotware/herald/internal/interfaces"
	"github.com/camelotware/herald/internal/models"
	"github.com/camelotware/herald/internal/services/catalog"
	"github.com/camelotware/herald/internal/services/navigator"
	"github.com/camelotware/herald/internal/services/resolver"
	"github.com/camelotware/herald/internal/services/session"
	"github.com/camelotware/herald/internal/services/snapshot"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles    configPaths // Multiple -config flags supported
	itemName       = flag.String("item", "", "Resolve a single item by name")
	batchFile      = flag.String("batch", "", "Resolve items listed in a YAML batch file")
	skipFilters    = flag.Bool("skip-filters", false, "Disable the business-rule filters")
	replaceMode    = flag.Bool("replace", false, "Replace the catalog instead of merging into it")
	keepDuplicates = flag.Bool("keep-duplicates", false, "Let later records overwrite earlier ones instead of skipping")
	showVersion    = flag.Bool("version", false, "Print version information")
	showVersionV   = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	// A .version file next to the binary overrides the compiled-in version.
	common.LoadVersionFromFile()

	if *showVersion || *showVersionV {
		fmt.Printf("Herald version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	if *itemName == "" && *batchFile == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -item <name> or -batch <file>")
		flag.Usage()
		os.Exit(2)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Initialize logger
	// 3. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("herald.toml"); err == nil {
			configFiles = append(configFiles, "herald.toml")
		}
	}

	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("base_url", config.Herald.BaseURL).
		Str("catalog", config.ActiveCatalogPath()).
		Msg("Configuration loaded")

	if err := run(); err != nil {
		switch {
		case models.IsAuthenticationError(err):
			logger.Error().Err(err).Msg("Session rejected: log in with a browser and re-export cookies")
		default:
			logger.Error().Err(err).Msg("Run failed")
		}
		os.Exit(1)
	}
}

func run() error {
	// Ctrl+C cancels at the next item boundary; partial results still merge.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.NewService(config.Catalog, logger)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	if err := cat.Bootstrap(); err != nil {
		return fmt.Errorf("failed to bootstrap personal catalog: %w", err)
	}

	var snapshots interfaces.SnapshotStorage
	if config.Snapshots.Enabled {
		store, err := snapshot.NewService(config.Snapshots.Path, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Snapshot store unavailable, continuing without snapshots")
		} else {
			snapshots = store
			defer store.Close()
			pruneSnapshots(store)
		}
	}

	sessions := session.NewManager(config.Herald, logger)
	nav := navigator.NewService(config.Herald, logger)
	res := resolver.NewService(config, sessions, nav, cat, snapshots, logger)

	items, err := itemList()
	if err != nil {
		return err
	}

	progress := make(chan models.ProgressEvent, 64)
	go reportProgress(progress)

	opts := resolver.Options{
		SkipFilters: *skipFilters,
		Progress:    progress,
	}

	result, runErr := res.ResolveBatch(ctx, items, opts)
	close(progress)

	if result != nil && (len(result.Resolved) > 0 || len(result.Filtered) > 0) {
		if *batchFile == "" {
			// Single-item lookups write straight through the cache; the
			// merge path (with its backup) is for batch runs.
			if err := storeResolved(cat, result.Resolved); err != nil {
				return fmt.Errorf("catalog write failed: %w", err)
			}
			logger.Info().Int("resolved", len(result.Resolved)).Int("filtered", len(result.Filtered)).Msg("Catalog updated")
		} else {
			mode := models.MergeModeMerge
			if *replaceMode {
				mode = models.MergeModeReplace
			}
			report, err := cat.Merge(result.Resolved, catalog.MergeOptions{
				Mode:             mode,
				RemoveDuplicates: !*keepDuplicates,
				FilteredOut:      result.Filtered,
			})
			if err != nil {
				return fmt.Errorf("merge failed: %w", err)
			}
			fmt.Println(report.Summary())
		}
	}

	if runErr != nil {
		if result != nil && result.Cancelled {
			logger.Warn().Msg("Run cancelled, partial results merged")
			return nil
		}
		return runErr
	}

	if result != nil {
		for name, reason := range result.Failed {
			logger.Warn().Str("item", name).Str("reason", reason).Msg("Item did not resolve")
		}
	}
	return nil
}

// storeResolved writes each record through the cache individually.
func storeResolved(cache interfaces.ItemCache, records []*models.ItemRecord) error {
	for _, record := range records {
		if record == nil {
			continue
		}
		if err := cache.Put(record.Name, record.Realm, record); err != nil {
			return err
		}
	}
	return nil
}

// itemList assembles the work list from the flags.
func itemList() ([]string, error) {
	var items []string
	if *batchFile != "" {
		fromFile, err := resolver.LoadBatchFile(*batchFile)
		if err != nil {
			return nil, err
		}
		items = append(items, fromFile...)
	}
	if *itemName != "" {
		items = append(items, *itemName)
	}
	return items, nil
}

// reportProgress drains the progress channel to the log until it closes.
func reportProgress(progress <-chan models.ProgressEvent) {
	for ev := range progress {
		entry := logger.Info().
			Str("stage", string(ev.Stage))
		if ev.ItemName != "" {
			entry = entry.Str("item", ev.ItemName)
		}
		if ev.Total > 0 {
			entry = entry.Str("progress", fmt.Sprintf("%d/%d", ev.Current, ev.Total))
		}
		if ev.Message != "" {
			entry = entry.Str("detail", ev.Message)
		}
		entry.Msg("Progress")
	}
}

// pruneSnapshots applies the configured retention to the snapshot store.
func pruneSnapshots(store interfaces.SnapshotStorage) {
	if config.Snapshots.MaxAge == "" {
		return
	}
	maxAge, err := time.ParseDuration(config.Snapshots.MaxAge)
	if err != nil {
		logger.Warn().Str("max_age", config.Snapshots.MaxAge).Msg("Invalid snapshot max_age, skipping prune")
		return
	}
	if _, err := store.PruneOlderThan(time.Now().Add(-maxAge)); err != nil {
		logger.Warn().Err(err).Msg("Snapshot prune failed")
	}
}
