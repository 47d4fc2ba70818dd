package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/camelotware/herald/internal/models"
)

// MergeOptions controls a batch merge run.
type MergeOptions struct {
	// Mode selects merge (fold into existing) or replace (start empty).
	Mode models.MergeMode

	// RemoveDuplicates keeps the first record per key and counts the rest
	// as skipped. When false, later records overwrite earlier ones.
	RemoveDuplicates bool

	// FilteredOut carries the business-rule rejections from resolution so
	// the report reflects the full run, not just the survivors.
	FilteredOut []models.FilteredItem
}

// Merge folds a batch of resolved records into the active catalog and
// persists the result. A timestamped zip backup of the existing catalog
// file is written before any mutation. Records that failed to resolve
// arrive as nil and are counted, never dropped silently.
func (s *Service) Merge(batch []*models.ItemRecord, opts MergeOptions) (*models.MergeReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.writable {
		return nil, fmt.Errorf("merge: %w", models.ErrReadOnlyCatalog)
	}

	started := time.Now()
	report := &models.MergeReport{
		RunID:       uuid.New().String(),
		Mode:        opts.Mode,
		StartedAt:   started,
		FilteredOut: opts.FilteredOut,
	}

	if len(s.active.Items) > 0 {
		backupPath, err := writeBackup(s.activePath, s.config.BackupDir, started)
		if err != nil {
			return nil, fmt.Errorf("merge aborted, backup failed: %w", err)
		}
		report.BackupPath = backupPath
		s.logger.Info().Str("backup", backupPath).Msg("Catalog backup written")
	}

	var working map[string]*models.ItemRecord
	switch opts.Mode {
	case models.MergeModeReplace:
		working = make(map[string]*models.ItemRecord)
	default:
		working = s.active.Clone().Items
	}

	for _, rec := range batch {
		if rec == nil {
			report.Failed++
			continue
		}

		key := rec.Key()
		_, present := working[key]

		if present && opts.RemoveDuplicates {
			report.DuplicatesSkipped++
			continue
		}

		stored := rec.Clone()
		if stored.Source == "" {
			stored.Source = models.SourceScraped
		}
		working[key] = stored

		if present {
			report.Updated++
		} else {
			report.Added++
		}
	}

	s.active.Items = working
	s.active.Version = s.config.Version
	if err := s.saveLocked(); err != nil {
		return nil, err
	}

	report.FinishedAt = time.Now()
	report.TotalItems = len(working)

	s.logger.Info().
		Str("run_id", report.RunID).
		Str("mode", string(opts.Mode)).
		Int("added", report.Added).
		Int("updated", report.Updated).
		Int("duplicates_skipped", report.DuplicatesSkipped).
		Int("failed", report.Failed).
		Int("filtered", len(report.FilteredOut)).
		Int("total", report.TotalItems).
		Msg("Catalog merge finished")

	return report, nil
}
