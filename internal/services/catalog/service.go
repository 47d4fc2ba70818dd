// Package catalog owns the persisted item database: composite-key lookups
// with realm fallback, write-through persistence to the personal catalog,
// and batch merges with backup-before-write.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/camelotware/herald/internal/common"
	"github.com/camelotware/herald/internal/interfaces"
	"github.com/camelotware/herald/internal/models"
)

// Service manages the active catalog. Two files coexist: the shipped
// internal catalog (never written) and the personal catalog that all
// mutation targets. A single mutex enforces the single-writer invariant on
// persistence.
type Service struct {
	config common.CatalogConfig
	logger arbor.ILogger

	mu         sync.Mutex
	active     *models.Catalog
	activePath string
	writable   bool
}

// NewService loads the active catalog. The personal catalog is selected
// when enabled and present; otherwise the internal catalog is opened
// read-only.
func NewService(config common.CatalogConfig, logger arbor.ILogger) (*Service, error) {
	s := &Service{
		config: config,
		logger: logger,
	}

	if err := s.reload(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("path", s.activePath).
		Bool("writable", s.writable).
		Int("items", len(s.active.Items)).
		Msg("Catalog loaded")

	return s, nil
}

// reload selects and loads the active catalog file (mutex not required
// during construction; Bootstrap takes it before calling).
func (s *Service) reload() error {
	path := s.config.InternalPath
	writable := false

	if s.config.UsePersonal && s.config.PersonalPath != "" {
		if _, err := os.Stat(s.config.PersonalPath); err == nil {
			path = s.config.PersonalPath
			writable = true
		} else {
			s.logger.Debug().
				Str("personal_path", s.config.PersonalPath).
				Msg("Personal catalog missing, falling back to internal (read-only)")
		}
	}

	cat, err := loadCatalogFile(path)
	if err != nil {
		return err
	}

	s.active = cat
	s.activePath = path
	s.writable = writable
	return nil
}

// loadCatalogFile reads a catalog document. A missing file yields an empty
// catalog rather than an error so first runs work against a blank slate.
func loadCatalogFile(path string) (*models.Catalog, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return models.NewCatalog("1"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var cat models.Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	if cat.Items == nil {
		cat.Items = make(map[string]*models.ItemRecord)
	}
	return &cat, nil
}

// Bootstrap creates the personal catalog by copying the internal one
// verbatim when no personal file exists yet. The internal file is never
// written.
func (s *Service) Bootstrap() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.UsePersonal || s.config.PersonalPath == "" {
		return nil
	}
	if _, err := os.Stat(s.config.PersonalPath); err == nil {
		return nil // already bootstrapped
	}

	data, err := os.ReadFile(s.config.InternalPath)
	if os.IsNotExist(err) {
		// No internal baseline shipped; start the personal catalog empty.
		empty := models.NewCatalog(s.config.Version)
		empty.Touch(time.Now())
		data, err = json.MarshalIndent(empty, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode empty catalog: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to read internal catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.config.PersonalPath), 0755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	if err := os.WriteFile(s.config.PersonalPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write personal catalog: %w", err)
	}

	s.logger.Info().
		Str("internal", s.config.InternalPath).
		Str("personal", s.config.PersonalPath).
		Msg("Personal catalog bootstrapped from internal baseline")

	return s.reload()
}

// Get returns the record for (name, realm). On a miss it retries with the
// realm-agnostic "all" key before declaring a true miss, because many items
// are not realm-specific.
func (s *Service) Get(name string, realm models.RealmTag) (*models.ItemRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.active.Items[models.ItemKey(name, realm)]; ok {
		return rec.Clone(), true
	}
	if rec, ok := s.active.Items[models.ItemKey(name, models.RealmAll)]; ok {
		return rec.Clone(), true
	}
	return nil, false
}

// Put upserts a single record and immediately persists the whole catalog
// with a refreshed last-updated stamp. Writing while only the internal
// catalog is active is a caller error.
func (s *Service) Put(name string, realm models.RealmTag, record *models.ItemRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.writable {
		return fmt.Errorf("put %q: %w", name, models.ErrReadOnlyCatalog)
	}

	stored := record.Clone()
	if stored.Name == "" {
		stored.Name = name
	}
	if stored.Realm == "" {
		stored.Realm = realm
	}
	if stored.Source == "" {
		stored.Source = models.SourceScraped
	}

	s.active.Items[models.ItemKey(name, realm)] = stored

	if err := s.saveLocked(); err != nil {
		return err
	}

	s.logger.Debug().
		Str("name", name).
		Str("realm", string(realm)).
		Msg("Catalog entry stored")

	return nil
}

// Snapshot returns a deep copy of the active catalog.
func (s *Service) Snapshot() *models.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active.Clone()
}

// ActivePath returns the file path of the active catalog.
func (s *Service) ActivePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePath
}

// Writable reports whether the active catalog accepts writes.
func (s *Service) Writable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writable
}

// saveLocked persists the active catalog. Callers must hold the mutex.
func (s *Service) saveLocked() error {
	s.active.Touch(time.Now())

	data, err := json.MarshalIndent(s.active, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.activePath), 0755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	if err := os.WriteFile(s.activePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog %s: %w", s.activePath, err)
	}
	return nil
}

// Ensure Service implements the cache interface
var _ interfaces.ItemCache = (*Service)(nil)
