// -----------------------------------------------------------------------
// Navigator - Scripted Page Navigation
// Fixed settle delays plus bounded element waits over an authenticated
// ChromeDP session, paced by a shared rate limiter
// -----------------------------------------------------------------------

package navigator

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/camelotware/herald/internal/common"
	"github.com/camelotware/herald/internal/interfaces"
)

// Service drives page loads on an established session. The site renders
// its tables with JavaScript after load, so every navigation sleeps a
// fixed settle delay; selector waits are best-effort on top of that.
type Service struct {
	config  common.HeraldConfig
	logger  arbor.ILogger
	limiter *rate.Limiter
}

// NewService creates a navigator. The limiter spreads requests across the
// minute so a batch run does not hammer the site.
func NewService(config common.HeraldConfig, logger arbor.ILogger) *Service {
	perMin := config.RequestsPerMin
	if perMin <= 0 {
		perMin = 20
	}
	return &Service{
		config:  config,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1),
	}
}

// Navigate loads a URL with the detail-page settle delay and no element wait.
func (s *Service) Navigate(ctx context.Context, sess interfaces.Session, url string) (string, error) {
	return s.NavigateAndWait(ctx, sess, url, s.config.DetailSettle, "")
}

// NavigateAndWait loads a URL, sleeps the settle delay, then optionally
// waits (bounded) for waitSelector to appear. A wait timeout downgrades to
// a warning and the page is extracted as-is; the extractors decide whether
// what rendered is usable.
func (s *Service) NavigateAndWait(ctx context.Context, sess interfaces.Session, url string, settle time.Duration, waitSelector string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("navigation pacing aborted: %w", err)
	}

	timeout := s.config.NavigateTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	navCtx, cancel := context.WithTimeout(sess.Context(), timeout)
	defer cancel()

	started := time.Now()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(settle),
	); err != nil {
		return "", fmt.Errorf("failed to load %s: %w", url, err)
	}

	if waitSelector != "" {
		elementWait := s.config.ElementWait
		if elementWait <= 0 {
			elementWait = 8 * time.Second
		}
		waitCtx, waitCancel := context.WithTimeout(navCtx, elementWait)
		err := chromedp.Run(waitCtx, chromedp.WaitVisible(waitSelector, chromedp.ByQuery))
		waitCancel()
		if err != nil {
			s.logger.Warn().
				Str("url", url).
				Str("selector", waitSelector).
				Str("waited", elementWait.String()).
				Msg("Element never appeared, extracting page as-is")
		}
	}

	var html string
	if err := chromedp.Run(navCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", url, err)
	}

	s.logger.Debug().
		Str("url", url).
		Int("content_length", len(html)).
		Str("duration", time.Since(started).String()).
		Msg("Page loaded")

	return html, nil
}

// SearchURL builds the item-search URL for a query.
func (s *Service) SearchURL(query string) string {
	return s.config.BaseURL + fmt.Sprintf(s.config.SearchPath, url.QueryEscape(query))
}

// DetailURL builds the item-detail URL for an external item ID.
func (s *Service) DetailURL(itemID string) string {
	return s.config.BaseURL + fmt.Sprintf(s.config.DetailPath, itemID)
}

// Ensure Service implements the navigator interface
var _ interfaces.Navigator = (*Service)(nil)
