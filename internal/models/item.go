package models

import (
	"fmt"
	"strings"
	"time"
)

// RealmTag identifies the realm an item belongs to. RealmAll is a sentinel
// for realm-agnostic items and doubles as the cache fallback key.
type RealmTag string

const (
	RealmAlbion   RealmTag = "albion"
	RealmHibernia RealmTag = "hibernia"
	RealmMidgard  RealmTag = "midgard"
	RealmAll      RealmTag = "all"
)

// ParseRealmTag normalizes free-text realm names from page metadata.
// Unrecognized input maps to RealmAll rather than failing.
func ParseRealmTag(s string) RealmTag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "albion", "alb":
		return RealmAlbion
	case "hibernia", "hib":
		return RealmHibernia
	case "midgard", "mid":
		return RealmMidgard
	default:
		return RealmAll
	}
}

// IsRealmSpecific reports whether the tag names one of the three realms.
func (r RealmTag) IsRealmSpecific() bool {
	return r == RealmAlbion || r == RealmHibernia || r == RealmMidgard
}

// ItemKey computes the composite catalog key for a name/realm pair.
// Keys are case-insensitive on both components.
func ItemKey(name string, realm RealmTag) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(string(realm))
}

// VariantCandidate is a lightweight search hit: an external item id paired
// with the realm inferred from the result row, not yet fully detailed.
type VariantCandidate struct {
	ExternalID string   `json:"external_id"`
	Realm      RealmTag `json:"realm"`
}

// PriceInfo is a normalized price. Amount is always in the smallest unit of
// its currency family (copper for the coin composite). Display is rendered
// from Amount, never copied verbatim from page text.
type PriceInfo struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
	Display  string `json:"display"`
}

// MerchantOffer describes a single merchant selling an item.
type MerchantOffer struct {
	Merchant string     `json:"merchant,omitempty"`
	ZoneAbbr string     `json:"zone_abbr,omitempty"`
	ZoneFull string     `json:"zone_full,omitempty"`
	Location *string    `json:"location,omitempty"`
	Price    *PriceInfo `json:"price,omitempty"`
}

// WeaponStats carries the dps/speed/damage-type triple present only on
// weapon detail pages.
type WeaponStats struct {
	DPS        string `json:"dps,omitempty"`
	Speed      string `json:"speed,omitempty"`
	DamageType string `json:"damage_type,omitempty"`
}

// ItemCategory tags items that are not normally purchasable.
type ItemCategory string

const (
	CategoryQuestReward ItemCategory = "questReward"
	CategoryEventReward ItemCategory = "eventReward"
	CategoryUnknown     ItemCategory = "unknown"
)

// ItemSource records where a catalog entry came from.
type ItemSource string

const (
	SourceInternal ItemSource = "internal"
	SourceUser     ItemSource = "user"
	SourceScraped  ItemSource = "scraped"
)

// ItemRecord is a fully resolved catalog entry. Optional detail fields are
// pointers so a missing value is a typed absence, not an empty string guess.
type ItemRecord struct {
	ExternalID string         `json:"external_id,omitempty"`
	Name       string         `json:"name"`
	Realm      RealmTag       `json:"realm"`
	Slot       string         `json:"slot,omitempty"`
	Type       *string        `json:"type,omitempty"`
	Level      *string        `json:"level,omitempty"`
	Quality    *string        `json:"quality,omitempty"`
	Model      *string        `json:"model,omitempty"`
	Weapon     *WeaponStats   `json:"weapon,omitempty"`
	UsableBy   []string       `json:"usable_by,omitempty"`
	Merchant   *MerchantOffer `json:"merchant,omitempty"`
	Category   *ItemCategory  `json:"category,omitempty"`
	IgnoreFlag bool           `json:"ignore_flag,omitempty"`
	Source     ItemSource     `json:"source"`
}

// Key returns the record's composite catalog key.
func (i *ItemRecord) Key() string {
	return ItemKey(i.Name, i.Realm)
}

// Clone returns a deep copy so catalog mutation never aliases caller state.
func (i *ItemRecord) Clone() *ItemRecord {
	if i == nil {
		return nil
	}
	out := *i
	out.Type = clonePtr(i.Type)
	out.Level = clonePtr(i.Level)
	out.Quality = clonePtr(i.Quality)
	out.Model = clonePtr(i.Model)
	if i.Weapon != nil {
		w := *i.Weapon
		out.Weapon = &w
	}
	if i.UsableBy != nil {
		out.UsableBy = append([]string(nil), i.UsableBy...)
	}
	if i.Merchant != nil {
		m := *i.Merchant
		m.Location = clonePtr(i.Merchant.Location)
		if i.Merchant.Price != nil {
			p := *i.Merchant.Price
			m.Price = &p
		}
		out.Merchant = &m
	}
	if i.Category != nil {
		c := *i.Category
		out.Category = &c
	}
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Catalog is the persisted item database. Two instances coexist at runtime:
// the shipped internal catalog (read-only) and the personal catalog that all
// mutation targets.
type Catalog struct {
	Version     string                 `json:"version"`
	LastUpdated time.Time              `json:"last_updated"`
	ItemCount   int                    `json:"item_count"`
	Items       map[string]*ItemRecord `json:"items"`
}

// NewCatalog creates an empty catalog with the given schema version.
func NewCatalog(version string) *Catalog {
	return &Catalog{
		Version: version,
		Items:   make(map[string]*ItemRecord),
	}
}

// Clone deep-copies the catalog, including every item record.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{
		Version:     c.Version,
		LastUpdated: c.LastUpdated,
		ItemCount:   c.ItemCount,
		Items:       make(map[string]*ItemRecord, len(c.Items)),
	}
	for k, v := range c.Items {
		out.Items[k] = v.Clone()
	}
	return out
}

// Touch refreshes the catalog bookkeeping before a save.
func (c *Catalog) Touch(now time.Time) {
	c.LastUpdated = now
	c.ItemCount = len(c.Items)
}

// FilterReason is the machine-readable tag attached to rejected variants so
// operators can decide whether to re-run with filters disabled.
type FilterReason string

const (
	ReasonCurrencyNotSupported FilterReason = "currency_not_supported"
	ReasonNoMerchant           FilterReason = "no_merchant"
	ReasonLevelFiltered        FilterReason = "level_filtered"
	ReasonDuplicate            FilterReason = "duplicate"
)

// FilteredItem is a discovered variant excluded by a business rule. It is
// retained for the final report rather than silently dropped.
type FilteredItem struct {
	Item   *ItemRecord  `json:"item"`
	Reason FilterReason `json:"reason"`
	Detail string       `json:"detail,omitempty"`
}

// MergeMode selects how a merge run seeds its working set.
type MergeMode string

const (
	MergeModeMerge   MergeMode = "merge"
	MergeModeReplace MergeMode = "replace"
)

// MergeReport summarizes one merge run. A fresh report is produced per run
// and discarded once surfaced to the caller.
type MergeReport struct {
	RunID             string         `json:"run_id"`
	Mode              MergeMode      `json:"mode"`
	Added             int            `json:"added"`
	Updated           int            `json:"updated"`
	DuplicatesSkipped int            `json:"duplicates_skipped"`
	Failed            int            `json:"failed"`
	TotalItems        int            `json:"total_items"`
	FilteredOut       []FilteredItem `json:"filtered_out,omitempty"`
	BackupPath        string         `json:"backup_path,omitempty"`
	StartedAt         time.Time      `json:"started_at"`
	FinishedAt        time.Time      `json:"finished_at"`
}

// Summary renders a one-line operator summary of the run.
func (r *MergeReport) Summary() string {
	return fmt.Sprintf("added=%d updated=%d duplicates=%d failed=%d filtered=%d",
		r.Added, r.Updated, r.DuplicatesSkipped, r.Failed, len(r.FilteredOut))
}
