package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camelotware/herald/internal/models"
)

func TestLoadBatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
items:
  - Cudgel of the Undead
  - "  Troll Belt  "
  - ""
  - Dragonseye Strand
`), 0644))

	items, err := LoadBatchFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cudgel of the Undead", "Troll Belt", "Dragonseye Strand"}, items)
}

func TestLoadBatchFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("items: []\n"), 0644))

	_, err := LoadBatchFile(path)
	assert.ErrorContains(t, err, "no items")
}

func TestLoadBatchFileMissing(t *testing.T) {
	_, err := LoadBatchFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestResolveBatchFullyCached(t *testing.T) {
	cache := newFakeCache()
	require.NoError(t, cache.Put("Troll Belt", models.RealmMidgard,
		&models.ItemRecord{Name: "Troll Belt", Realm: models.RealmMidgard}))
	require.NoError(t, cache.Put("Dragonseye Strand", models.RealmAll,
		&models.ItemRecord{Name: "Dragonseye Strand", Realm: models.RealmAll}))

	nav := &fakeNavigator{pages: map[string]string{}}
	mgr := &fakeSessionManager{session: &fakeSession{}}
	svc := testService(t, nav, mgr, cache)

	result, err := svc.ResolveBatch(context.Background(), []string{"Troll Belt", "Dragonseye Strand"}, Options{})
	require.NoError(t, err)
	assert.Len(t, result.Resolved, 2)
	assert.Zero(t, mgr.authed, "fully cached batch must not open a browser")
}

func TestResolveBatchSharesOneSession(t *testing.T) {
	nav := &fakeNavigator{pages: map[string]string{
		"search:Cudgel of the Undead": searchPage,
		"detail:101":                  detailPage("Cudgel of the Undead", "45", "5p"),
		"detail:102":                  detailPage("Cudgel of the Undead", "45", "5p"),
		"detail:103":                  detailPage("Cudgel of the Undead", "45", "5p"),
		"search:Troll Belt": `<html><body><table class="item-search-results">
<tr class="realm-mid" onclick="showItem(601)"><td>Troll Belt</td></tr>
</table></body></html>`,
		"detail:601": detailPage("Troll Belt", "40", "3p"),
	}}
	mgr := &fakeSessionManager{session: &fakeSession{}}
	svc := testService(t, nav, mgr, newFakeCache())

	result, err := svc.ResolveBatch(context.Background(), []string{"Cudgel of the Undead", "Troll Belt"}, Options{})
	require.NoError(t, err)
	assert.Len(t, result.Resolved, 4)
	assert.Equal(t, 1, mgr.authed, "batch must authenticate exactly once")
	assert.True(t, mgr.session.closed)
}

func TestResolveBatchContinuesPastItemFailure(t *testing.T) {
	nav := &fakeNavigator{
		pages: map[string]string{
			"search:Troll Belt": `<html><body><table class="item-search-results">
<tr class="realm-mid" onclick="showItem(601)"><td>Troll Belt</td></tr>
</table></body></html>`,
			"detail:601": detailPage("Troll Belt", "40", "3p"),
		},
		errs: map[string]error{
			"search:Broken Item": assert.AnError,
		},
	}
	mgr := &fakeSessionManager{session: &fakeSession{}}
	svc := testService(t, nav, mgr, newFakeCache())

	result, err := svc.ResolveBatch(context.Background(), []string{"Broken Item", "Troll Belt"}, Options{})
	require.NoError(t, err)
	assert.Len(t, result.Resolved, 1)
	require.Contains(t, result.Failed, "Broken Item")
}

func TestResolveBatchAbortsOnAuthFailure(t *testing.T) {
	mgr := &fakeSessionManager{err: &models.AuthenticationError{ProbeURL: "probe"}}
	nav := &fakeNavigator{pages: map[string]string{}}
	svc := testService(t, nav, mgr, newFakeCache())

	result, err := svc.ResolveBatch(context.Background(), []string{"Troll Belt"}, Options{})
	require.Error(t, err)
	assert.True(t, models.IsAuthenticationError(err))
	assert.NotNil(t, result, "a report is produced even on abort")
	assert.Empty(t, result.Resolved)
}

func TestResolveBatchHonorsCancellation(t *testing.T) {
	nav := &fakeNavigator{pages: map[string]string{
		"search:Troll Belt": `<html><body><table class="item-search-results">
<tr class="realm-mid" onclick="showItem(601)"><td>Troll Belt</td></tr>
</table></body></html>`,
		"detail:601": detailPage("Troll Belt", "40", "3p"),
	}}
	mgr := &fakeSessionManager{session: &fakeSession{}}
	svc := testService(t, nav, mgr, newFakeCache())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.ResolveBatch(ctx, []string{"Troll Belt", "Glass Sliver"}, Options{})
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, result.Cancelled)
}
