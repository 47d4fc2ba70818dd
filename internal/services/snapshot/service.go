// Package snapshot persists the pages the engine actually fetched so
// operators can review filtered items and low-confidence extractions after
// the fact. Snapshots live in an embedded Badger store with a readable
// markdown rendition alongside the raw HTML.
package snapshot

import (
	"fmt"
	"os"
	"sort"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/camelotware/herald/internal/interfaces"
	"github.com/camelotware/herald/internal/models"
)

// Service implements SnapshotStorage over badgerhold.
type Service struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// NewService opens (or creates) the snapshot store at path.
func NewService(path string, logger arbor.ILogger) (*Service, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // arbor does the logging

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Snapshot store opened")

	return &Service{
		store:  store,
		logger: logger,
	}, nil
}

// SaveSnapshot assigns an ID, renders the markdown rendition, and persists
// the snapshot. A markdown conversion failure degrades to HTML-only.
func (s *Service) SaveSnapshot(snapshot *models.PageSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now()
	}

	if snapshot.Markdown == "" && snapshot.HTML != "" {
		converter := md.NewConverter(snapshot.URL, true, nil)
		markdown, err := converter.ConvertString(snapshot.HTML)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", snapshot.URL).Msg("Markdown rendition failed, storing HTML only")
		} else {
			snapshot.Markdown = markdown
		}
	}

	if err := s.store.Upsert(snapshot.ID, snapshot); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

// GetSnapshot fetches one snapshot by ID.
func (s *Service) GetSnapshot(id string) (*models.PageSnapshot, error) {
	var snap models.PageSnapshot
	if err := s.store.Get(id, &snap); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("snapshot not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &snap, nil
}

// ListSnapshots returns snapshots of a kind, newest first. A zero limit
// means no limit; an empty kind matches all.
func (s *Service) ListSnapshots(kind models.SnapshotKind, limit int) ([]*models.PageSnapshot, error) {
	var query *badgerhold.Query
	if kind != "" {
		query = badgerhold.Where("Kind").Eq(kind)
	}

	var snaps []models.PageSnapshot
	if err := s.store.Find(&snaps, query); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].FetchedAt.After(snaps[j].FetchedAt)
	})

	result := make([]*models.PageSnapshot, 0, len(snaps))
	for i := range snaps {
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, &snaps[i])
	}
	return result, nil
}

// PruneOlderThan deletes snapshots fetched before the cutoff and returns
// how many were removed.
func (s *Service) PruneOlderThan(cutoff time.Time) (int, error) {
	var stale []models.PageSnapshot
	if err := s.store.Find(&stale, badgerhold.Where("FetchedAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to find stale snapshots: %w", err)
	}

	removed := 0
	for i := range stale {
		if err := s.store.Delete(stale[i].ID, &models.PageSnapshot{}); err != nil {
			s.logger.Warn().Err(err).Str("id", stale[i].ID).Msg("Failed to prune snapshot")
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Pruned stale snapshots")
	}
	return removed, nil
}

// Close releases the underlying store.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Ensure Service implements the snapshot storage interface
var _ interfaces.SnapshotStorage = (*Service)(nil)
