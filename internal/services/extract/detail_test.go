package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camelotware/herald/internal/models"
)

const detailPageFull = `
<html><body>
<h1 class="item-name">Cudgel of the Undead</h1>
<div class="item-details">
  <div>Realm: Albion</div>
  <div>Type: Crush</div>
  <div>Slot: Right Hand</div>
  <div>Level: 50</div>
  <div>Quality: 100%</div>
  <div>DPS: 16.5</div>
  <div>Spd: 3.2</div>
  <div>Damage Type: Crush</div>
  <div>Usable by: Armsman, Paladin, Cleric</div>
  <div>Model: 13</div>
</div>
<div class="from-merchants">
  <div>Brother Aldous</div>
  <div>Level: 55</div>
  <div>in Camelot (Cam)</div>
  <div>Loc: 27k, 10k</div>
  <div>Price: 5p 50g 25s 10c</div>
</div>
</body></html>`

const detailPageNoMerchants = `
<html><body>
<h1 class="item-name">Shade Cloak</h1>
<div class="item-details">
  <div>Type: Cloak</div>
  <div>Slot: Cloak</div>
  <div>Level: 45</div>
</div>
<p>This item is a quest reward.</p>
</body></html>`

func TestItemDetailFullPage(t *testing.T) {
	result := ItemDetail(detailPageFull)
	require.NotNil(t, result)

	rec := result.Record
	assert.Equal(t, "Cudgel of the Undead", rec.Name)
	assert.Equal(t, models.RealmAlbion, rec.Realm)
	require.NotNil(t, rec.Type)
	assert.Equal(t, "Crush", *rec.Type)
	assert.Equal(t, "Right Hand", rec.Slot)
	require.NotNil(t, rec.Level)
	assert.Equal(t, "50", *rec.Level)
	require.NotNil(t, rec.Quality)
	assert.Equal(t, "100%", *rec.Quality)
	require.NotNil(t, rec.Model)
	assert.Equal(t, "13", *rec.Model)
	assert.Equal(t, []string{"Armsman", "Paladin", "Cleric"}, rec.UsableBy)

	require.NotNil(t, rec.Weapon)
	assert.Equal(t, "16.5", rec.Weapon.DPS)
	assert.Equal(t, "3.2", rec.Weapon.Speed)
	assert.Equal(t, "Crush", rec.Weapon.DamageType)

	// All five scored fields present.
	assert.InDelta(t, 1.0, result.Confidence, 0.001)
	assert.Nil(t, rec.Category)

	require.Len(t, result.Merchants, 1)
	offer := result.Merchants[0]
	assert.Equal(t, "Brother Aldous", offer.Merchant)
	assert.Equal(t, "Camelot", offer.ZoneFull)
	assert.Equal(t, "Cam", offer.ZoneAbbr)
	require.NotNil(t, offer.Location)
	assert.Equal(t, "27k, 10k", *offer.Location)
	require.NotNil(t, offer.Price)
	assert.Equal(t, "Gold", offer.Price.Currency)
	assert.Equal(t, "5p, 50g, 25s, 10c", offer.Price.Display)
}

func TestItemDetailNoMerchantSection(t *testing.T) {
	result := ItemDetail(detailPageNoMerchants)

	assert.Equal(t, "Shade Cloak", result.Record.Name)
	assert.Empty(t, result.Merchants)

	require.NotNil(t, result.Record.Category)
	assert.Equal(t, models.CategoryQuestReward, *result.Record.Category)

	// Only 3 of 5 scored fields present.
	assert.InDelta(t, 0.6, result.Confidence, 0.001)
}

func TestItemDetailMissingSectionsDegradeToNil(t *testing.T) {
	result := ItemDetail(`<html><body><p>maintenance page</p></body></html>`)
	require.NotNil(t, result)

	assert.Nil(t, result.Record.Type)
	assert.Nil(t, result.Record.Level)
	assert.Empty(t, result.Merchants)
	assert.Zero(t, result.Confidence)
	require.NotNil(t, result.Record.Category)
	assert.Equal(t, models.CategoryUnknown, *result.Record.Category)
}

func TestItemDetailEventReward(t *testing.T) {
	page := `<html><body>
		<h1>Midsummer Crown</h1>
		<div class="item-details"><div>Slot: Helm</div></div>
		<p>Granted as an event reward.</p>
	</body></html>`

	result := ItemDetail(page)
	require.NotNil(t, result.Record.Category)
	assert.Equal(t, models.CategoryEventReward, *result.Record.Category)
}

func TestItemDetailKeyMatchingIsCaseInsensitive(t *testing.T) {
	page := `<html><body>
		<div class="item-details">
			<div>TYPE: Thrust</div>
			<div>Item Slot: Left Hand</div>
		</div>
	</body></html>`

	result := ItemDetail(page)
	require.NotNil(t, result.Record.Type)
	assert.Equal(t, "Thrust", *result.Record.Type)
	assert.Equal(t, "Left Hand", result.Record.Slot)
}
