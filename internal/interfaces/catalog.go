package interfaces

import (
	"time"

	"github.com/camelotware/herald/internal/models"
)

// ItemCache - composite-key lookup with realm fallback over the persisted
// catalog. Writes are write-through to the personal catalog file.
type ItemCache interface {
	// Get returns the record for (name, realm), falling back to the
	// realm-agnostic "all" key before declaring a miss.
	Get(name string, realm models.RealmTag) (*models.ItemRecord, bool)

	// Put upserts a record and persists the whole catalog immediately.
	// Returns models.ErrReadOnlyCatalog when only the internal catalog is
	// active.
	Put(name string, realm models.RealmTag, record *models.ItemRecord) error

	// Bootstrap creates the personal catalog by copying the internal one
	// when no personal file exists yet. The internal file is never written.
	Bootstrap() error
}

// SnapshotStorage persists page snapshots for operator review.
type SnapshotStorage interface {
	SaveSnapshot(snapshot *models.PageSnapshot) error
	GetSnapshot(id string) (*models.PageSnapshot, error)
	ListSnapshots(kind models.SnapshotKind, limit int) ([]*models.PageSnapshot, error)
	PruneOlderThan(cutoff time.Time) (int, error)
	Close() error
}
