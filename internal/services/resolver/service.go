// -----------------------------------------------------------------------
// Variant Resolver - Search, Fetch, Filter
// Orchestrates the scrape pipeline: cache short-circuit, authenticated
// search, sequential detail fetches, price normalization, and the
// business-rule filters
// -----------------------------------------------------------------------

package resolver

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/camelotware/herald/internal/common"
	"github.com/camelotware/herald/internal/interfaces"
	"github.com/camelotware/herald/internal/models"
	"github.com/camelotware/herald/internal/services/extract"
	"github.com/camelotware/herald/internal/services/session"
)

// Options tunes a single resolve or batch run.
type Options struct {
	// SkipFilters disables the business-rule filters; everything that
	// parses is returned.
	SkipFilters bool

	// Progress receives pipeline events. Publishing never blocks: events
	// are dropped when the consumer falls behind.
	Progress chan<- models.ProgressEvent
}

// Service resolves item names to fully populated records by scraping the
// catalog site. All navigation within a run is strictly sequential on one
// session.
type Service struct {
	config    *common.Config
	sessions  interfaces.SessionManager
	navigator interfaces.Navigator
	cache     interfaces.ItemCache
	snapshots interfaces.SnapshotStorage
	logger    arbor.ILogger
}

// NewService wires the resolver. The snapshot store may be nil when
// snapshots are disabled.
func NewService(
	config *common.Config,
	sessions interfaces.SessionManager,
	navigator interfaces.Navigator,
	cache interfaces.ItemCache,
	snapshots interfaces.SnapshotStorage,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:    config,
		sessions:  sessions,
		navigator: navigator,
		cache:     cache,
		snapshots: snapshots,
		logger:    logger,
	}
}

// FindAllVariants resolves every realm variant of an item name. Cached
// entries short-circuit the scrape entirely. Business-rule rejections come
// back as FilteredItem values; only technical failures are errors.
func (s *Service) FindAllVariants(ctx context.Context, itemName string, opts Options) ([]*models.ItemRecord, []models.FilteredItem, error) {
	if cached := s.cachedVariants(itemName); len(cached) > 0 {
		s.logger.Debug().
			Str("item", itemName).
			Int("variants", len(cached)).
			Msg("Cache hit, skipping scrape")
		return cached, nil, nil
	}

	jar, err := session.LoadCookieJar(s.config.Cookies.Path)
	if err != nil {
		return nil, nil, err
	}

	s.publish(opts.Progress, models.ProgressEvent{
		Stage:    models.StageAuthenticating,
		ItemName: itemName,
	})

	sess, err := s.sessions.EnsureAuthenticated(ctx, jar)
	if err != nil {
		return nil, nil, err
	}
	defer sess.Close()

	return s.resolveWithSession(ctx, sess, itemName, opts)
}

// resolveWithSession runs search and detail fetches on an already
// established session so batch runs can share one browser.
func (s *Service) resolveWithSession(ctx context.Context, sess interfaces.Session, itemName string, opts Options) ([]*models.ItemRecord, []models.FilteredItem, error) {
	s.publish(opts.Progress, models.ProgressEvent{
		Stage:    models.StageSearching,
		ItemName: itemName,
	})

	searchURL := s.navigator.SearchURL(itemName)
	searchHTML, err := s.navigator.NavigateAndWait(ctx, sess, searchURL,
		s.config.Herald.SearchSettle, s.config.Herald.SearchWaitFor)
	if err != nil {
		return nil, nil, fmt.Errorf("search for %q failed: %w", itemName, err)
	}
	s.saveSnapshot(searchURL, models.SnapshotSearch, itemName, searchHTML, 0)

	candidates := extract.VariantCandidates(searchHTML)
	if len(candidates) == 0 {
		s.logger.Info().Str("item", itemName).Msg("No search results")
		return nil, nil, nil
	}

	var (
		records  []*models.ItemRecord
		filtered []models.FilteredItem
		seen     = make(map[string]bool)
	)

	for i, cand := range candidates {
		if err := ctx.Err(); err != nil {
			s.publish(opts.Progress, models.ProgressEvent{
				Stage:    models.StageCancelled,
				ItemName: itemName,
			})
			return records, filtered, err
		}

		s.publish(opts.Progress, models.ProgressEvent{
			Stage:    models.StageFetchingDetail,
			ItemName: itemName,
			Realm:    cand.Realm,
			Current:  i + 1,
			Total:    len(candidates),
		})

		detailURL := s.navigator.DetailURL(cand.ExternalID)
		detailHTML, err := s.navigator.NavigateAndWait(ctx, sess, detailURL,
			s.config.Herald.DetailSettle, s.config.Herald.DetailWaitFor)
		if err != nil {
			// One broken detail page does not sink the run.
			s.logger.Warn().
				Err(err).
				Str("item", itemName).
				Str("external_id", cand.ExternalID).
				Msg("Detail fetch failed, skipping variant")
			continue
		}

		detail := extract.ItemDetail(detailHTML)
		s.saveSnapshot(detailURL, models.SnapshotDetail, itemName, detailHTML, detail.Confidence)

		record := s.buildRecord(itemName, cand, detail)

		if fi := s.applyFilters(record, detail, opts.SkipFilters); fi != nil {
			filtered = append(filtered, *fi)
			s.publish(opts.Progress, models.ProgressEvent{
				Stage:    models.StageFiltered,
				ItemName: record.Name,
				Realm:    record.Realm,
				Message:  string(fi.Reason),
			})
			continue
		}

		if seen[record.Key()] {
			filtered = append(filtered, models.FilteredItem{
				Item:   record,
				Reason: models.ReasonDuplicate,
				Detail: record.Key(),
			})
			continue
		}
		seen[record.Key()] = true
		records = append(records, record)
	}

	s.publish(opts.Progress, models.ProgressEvent{
		Stage:    models.StageResolved,
		ItemName: itemName,
		Current:  len(records),
		Total:    len(candidates),
	})

	return records, filtered, nil
}

// cachedVariants probes the cache for every realm tag and dedupes hits by
// key. An item already resolved never touches the site again.
func (s *Service) cachedVariants(itemName string) []*models.ItemRecord {
	var hits []*models.ItemRecord
	seen := make(map[string]bool)
	for _, realm := range []models.RealmTag{models.RealmAlbion, models.RealmHibernia, models.RealmMidgard, models.RealmAll} {
		rec, ok := s.cache.Get(itemName, realm)
		if !ok || seen[rec.Key()] {
			continue
		}
		seen[rec.Key()] = true
		hits = append(hits, rec)
	}
	return hits
}

// buildRecord assembles the catalog record for one variant. The search
// row's realm wins over the detail page when it is realm-specific, since
// the row is what disambiguates same-named variants.
func (s *Service) buildRecord(queryName string, cand models.VariantCandidate, detail *extract.DetailResult) *models.ItemRecord {
	record := detail.Record.Clone()
	record.ExternalID = cand.ExternalID
	record.Source = models.SourceScraped

	if record.Name == "" {
		record.Name = queryName
	}
	if cand.Realm.IsRealmSpecific() || record.Realm == "" {
		record.Realm = cand.Realm
	}

	record.Merchant = s.pickMerchant(detail.Merchants)
	return record
}

// pickMerchant selects the record's merchant offer: the first offer whose
// price parsed into a supported currency, falling back to the first offer
// at all so zone and location survive even when the price did not parse.
func (s *Service) pickMerchant(offers []models.MerchantOffer) *models.MerchantOffer {
	for i := range offers {
		o := offers[i]
		if o.Price != nil && !s.unsupportedCurrency(o.Price.Currency) {
			return &o
		}
	}
	if len(offers) > 0 {
		o := offers[0]
		return &o
	}
	return nil
}

// applyFilters runs the business rules. A non-nil result is the rejection;
// rejections are values, never errors.
func (s *Service) applyFilters(record *models.ItemRecord, detail *extract.DetailResult, skip bool) *models.FilteredItem {
	if skip {
		return nil
	}

	// Merchant-less items (commonly quest or event rewards) are excluded;
	// the category stays on the filtered record so operators can see why
	// and re-run with filters disabled to admit them.
	if len(detail.Merchants) == 0 {
		note := ""
		if record.Category != nil {
			note = string(*record.Category)
		}
		return &models.FilteredItem{Item: record, Reason: models.ReasonNoMerchant, Detail: note}
	}

	// Items sold only for unsupported currencies are excluded.
	if record.Merchant == nil || (record.Merchant.Price != nil && s.unsupportedCurrency(record.Merchant.Price.Currency)) {
		if s.allOffersUnsupported(detail.Merchants) {
			return &models.FilteredItem{
				Item:   record,
				Reason: models.ReasonCurrencyNotSupported,
				Detail: offerCurrency(detail.Merchants),
			}
		}
	}

	// Level band, when configured. Unparseable levels pass through.
	if record.Level != nil {
		if lvl, err := strconv.Atoi(*record.Level); err == nil {
			min := s.config.Filters.MinLevel
			max := s.config.Filters.MaxLevel
			if lvl < min || (max > 0 && lvl > max) {
				return &models.FilteredItem{
					Item:   record,
					Reason: models.ReasonLevelFiltered,
					Detail: *record.Level,
				}
			}
		}
	}

	return nil
}

func (s *Service) unsupportedCurrency(currency string) bool {
	for _, c := range s.config.Filters.UnsupportedCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}

// allOffersUnsupported reports whether every priced offer uses an
// unsupported currency. Offers whose price never parsed do not count
// either way.
func (s *Service) allOffersUnsupported(offers []models.MerchantOffer) bool {
	priced := 0
	for i := range offers {
		if offers[i].Price == nil {
			continue
		}
		priced++
		if !s.unsupportedCurrency(offers[i].Price.Currency) {
			return false
		}
	}
	return priced > 0
}

func offerCurrency(offers []models.MerchantOffer) string {
	for i := range offers {
		if offers[i].Price != nil {
			return offers[i].Price.Currency
		}
	}
	return ""
}

// saveSnapshot persists a page snapshot when the store is wired. Snapshot
// failures are logged and ignored; review artifacts never break a run.
func (s *Service) saveSnapshot(url string, kind models.SnapshotKind, itemName, html string, confidence float64) {
	if s.snapshots == nil {
		return
	}
	snap := models.NewPageSnapshot(url, kind, itemName, html, confidence)
	if err := s.snapshots.SaveSnapshot(snap); err != nil {
		s.logger.Warn().Err(err).Str("url", url).Msg("Failed to save page snapshot")
	}
}

// publish sends a progress event without ever blocking the pipeline.
func (s *Service) publish(ch chan<- models.ProgressEvent, ev models.ProgressEvent) {
	if ch == nil {
		return
	}
	ev.ID = uuid.New().String()
	ev.Timestamp = time.Now()
	select {
	case ch <- ev:
	default:
		// Consumer fell behind; drop rather than stall navigation.
	}
}
