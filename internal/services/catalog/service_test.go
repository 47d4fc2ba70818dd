package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/camelotware/herald/internal/common"
	"github.com/camelotware/herald/internal/models"
)

func testConfig(t *testing.T) common.CatalogConfig {
	t.Helper()
	dir := t.TempDir()
	return common.CatalogConfig{
		InternalPath: filepath.Join(dir, "items_database_internal.json"),
		PersonalPath: filepath.Join(dir, "items_database_src.json"),
		UsePersonal:  true,
		BackupDir:    filepath.Join(dir, "backups"),
		Version:      "2",
	}
}

func writeCatalogFile(t *testing.T, path string, cat *models.Catalog) {
	t.Helper()
	data, err := json.MarshalIndent(cat, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func record(name string, realm models.RealmTag) *models.ItemRecord {
	return &models.ItemRecord{Name: name, Realm: realm, Source: models.SourceScraped}
}

func TestGetRealmFallback(t *testing.T) {
	cfg := testConfig(t)

	cat := models.NewCatalog("1")
	cat.Items[models.ItemKey("Dragonseye Strand", models.RealmAll)] = record("Dragonseye Strand", models.RealmAll)
	cat.Items[models.ItemKey("Cudgel of the Undead", models.RealmAlbion)] = record("Cudgel of the Undead", models.RealmAlbion)
	writeCatalogFile(t, cfg.PersonalPath, cat)

	svc, err := NewService(cfg, arbor.NewLogger())
	require.NoError(t, err)

	// Exact realm hit
	rec, ok := svc.Get("Cudgel of the Undead", models.RealmAlbion)
	require.True(t, ok)
	assert.Equal(t, models.RealmAlbion, rec.Realm)

	// Realm-specific miss falls back to the "all" entry
	rec, ok = svc.Get("Dragonseye Strand", models.RealmHibernia)
	require.True(t, ok)
	assert.Equal(t, models.RealmAll, rec.Realm)

	// True miss
	_, ok = svc.Get("Cudgel of the Undead", models.RealmMidgard)
	assert.False(t, ok)
}

func TestGetIsCaseInsensitive(t *testing.T) {
	cfg := testConfig(t)

	cat := models.NewCatalog("1")
	cat.Items[models.ItemKey("Troll Belt", models.RealmMidgard)] = record("Troll Belt", models.RealmMidgard)
	writeCatalogFile(t, cfg.PersonalPath, cat)

	svc, err := NewService(cfg, arbor.NewLogger())
	require.NoError(t, err)

	_, ok := svc.Get("TROLL BELT", models.RealmMidgard)
	assert.True(t, ok)
}

func TestPutWritesThrough(t *testing.T) {
	cfg := testConfig(t)
	writeCatalogFile(t, cfg.PersonalPath, models.NewCatalog("1"))

	svc, err := NewService(cfg, arbor.NewLogger())
	require.NoError(t, err)

	require.NoError(t, svc.Put("Troll Belt", models.RealmMidgard, record("Troll Belt", models.RealmMidgard)))

	// The personal file on disk reflects the write immediately.
	reloaded, err := NewService(cfg, arbor.NewLogger())
	require.NoError(t, err)
	_, ok := reloaded.Get("Troll Belt", models.RealmMidgard)
	assert.True(t, ok)

	data, err := os.ReadFile(cfg.PersonalPath)
	require.NoError(t, err)
	var onDisk models.Catalog
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.False(t, onDisk.LastUpdated.IsZero(), "write-through must refresh last_updated")
}

func TestPutRejectedOnInternalCatalog(t *testing.T) {
	cfg := testConfig(t)
	cfg.UsePersonal = false
	writeCatalogFile(t, cfg.InternalPath, models.NewCatalog("1"))

	svc, err := NewService(cfg, arbor.NewLogger())
	require.NoError(t, err)
	require.False(t, svc.Writable())

	err = svc.Put("Troll Belt", models.RealmMidgard, record("Troll Belt", models.RealmMidgard))
	assert.ErrorIs(t, err, models.ErrReadOnlyCatalog)
}

func TestFallbackToInternalWhenPersonalMissing(t *testing.T) {
	cfg := testConfig(t)

	cat := models.NewCatalog("1")
	cat.Items[models.ItemKey("Troll Belt", models.RealmMidgard)] = record("Troll Belt", models.RealmMidgard)
	writeCatalogFile(t, cfg.InternalPath, cat)

	svc, err := NewService(cfg, arbor.NewLogger())
	require.NoError(t, err)

	assert.Equal(t, cfg.InternalPath, svc.ActivePath())
	assert.False(t, svc.Writable())
	_, ok := svc.Get("Troll Belt", models.RealmMidgard)
	assert.True(t, ok)
}

func TestBootstrapCopiesInternal(t *testing.T) {
	cfg := testConfig(t)

	cat := models.NewCatalog("1")
	cat.Items[models.ItemKey("Troll Belt", models.RealmMidgard)] = record("Troll Belt", models.RealmMidgard)
	writeCatalogFile(t, cfg.InternalPath, cat)

	svc, err := NewService(cfg, arbor.NewLogger())
	require.NoError(t, err)
	require.NoError(t, svc.Bootstrap())

	assert.Equal(t, cfg.PersonalPath, svc.ActivePath())
	assert.True(t, svc.Writable())
	_, ok := svc.Get("Troll Belt", models.RealmMidgard)
	assert.True(t, ok)

	// Bootstrap is idempotent: a second call must not clobber writes.
	require.NoError(t, svc.Put("Seal of the Dragon", models.RealmAll, record("Seal of the Dragon", models.RealmAll)))
	require.NoError(t, svc.Bootstrap())
	_, ok = svc.Get("Seal of the Dragon", models.RealmAll)
	assert.True(t, ok)
}

func TestBootstrapWithoutInternalBaseline(t *testing.T) {
	cfg := testConfig(t)

	svc, err := NewService(cfg, arbor.NewLogger())
	require.NoError(t, err)
	require.NoError(t, svc.Bootstrap())

	assert.True(t, svc.Writable())
	require.NoError(t, svc.Put("Troll Belt", models.RealmMidgard, record("Troll Belt", models.RealmMidgard)))
}

func TestGetReturnsCopy(t *testing.T) {
	cfg := testConfig(t)

	cat := models.NewCatalog("1")
	cat.Items[models.ItemKey("Troll Belt", models.RealmMidgard)] = record("Troll Belt", models.RealmMidgard)
	writeCatalogFile(t, cfg.PersonalPath, cat)

	svc, err := NewService(cfg, arbor.NewLogger())
	require.NoError(t, err)

	rec, ok := svc.Get("Troll Belt", models.RealmMidgard)
	require.True(t, ok)
	rec.Name = "Mutated"

	again, ok := svc.Get("Troll Belt", models.RealmMidgard)
	require.True(t, ok)
	assert.Equal(t, "Troll Belt", again.Name)
}
