// -----------------------------------------------------------------------
// Session Manager - Authenticated Browser Sessions
// Injects captured cookies into ChromeDP and validates them with a
// content probe against a login-gated page
// -----------------------------------------------------------------------

package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/camelotware/herald/internal/common"
	"github.com/camelotware/herald/internal/interfaces"
	"github.com/camelotware/herald/internal/models"
)

// browserSession wraps a live ChromeDP browser context. Close tears down
// the browser before the allocator, in that order.
type browserSession struct {
	ctx             context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
}

func (s *browserSession) Context() context.Context { return s.ctx }

func (s *browserSession) Close() {
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocatorCancel != nil {
		s.allocatorCancel()
	}
}

// Manager establishes authenticated browser sessions. Cookie expiry stamps
// are not trusted: the only authoritative validity signal is the content
// probe against a page the site gates behind login.
type Manager struct {
	config common.HeraldConfig
	logger arbor.ILogger
}

// NewManager creates a session manager for the configured site.
func NewManager(config common.HeraldConfig, logger arbor.ILogger) *Manager {
	return &Manager{
		config: config,
		logger: logger,
	}
}

// EnsureAuthenticated starts a browser, injects the jar's cookies, and
// validates the session with a content probe. On success the returned
// session is ready for navigation; the caller owns Close. The whole flow
// is bounded by the configured session timeout.
func (m *Manager) EnsureAuthenticated(ctx context.Context, jar *models.CookieJar) (interfaces.Session, error) {
	if jar.IsEmpty() {
		return nil, fmt.Errorf("ensure authenticated: %w", models.ErrNoCredentials)
	}
	if jar.AllExpired(time.Now()) {
		m.logger.Warn().Msg("All stored cookies carry past expiry stamps, probing anyway")
	}

	baseURL, err := url.Parse(m.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", m.config.BaseURL, err)
	}

	timeout := m.config.SessionTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, m.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx,
		chromedp.WithLogf(func(s string, i ...interface{}) {
			m.logger.Debug().Msgf("chromedp: "+s, i...)
		}),
	)

	sess := &browserSession{
		ctx:             browserCtx,
		browserCancel:   browserCancel,
		allocatorCancel: allocatorCancel,
	}

	authCtx, authCancel := context.WithTimeout(browserCtx, timeout)
	defer authCancel()

	// Startup test before anything else so a missing or broken Chrome
	// surfaces as a driver problem, not an auth problem.
	if err := chromedp.Run(authCtx, chromedp.Navigate("about:blank")); err != nil {
		sess.Close()
		return nil, fmt.Errorf("%w: startup test failed: %v", models.ErrDriverInit, err)
	}

	if err := m.injectCookies(authCtx, jar, baseURL.Host); err != nil {
		sess.Close()
		return nil, err
	}

	// Navigate to the site root so the cookies attach to a real origin,
	// re-apply them, then reload. Some of the session cookies only stick
	// once the origin has been visited.
	if err := chromedp.Run(authCtx,
		chromedp.Navigate(m.config.BaseURL),
		chromedp.Sleep(1*time.Second),
	); err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to open site root: %w", err)
	}
	if err := m.injectCookies(authCtx, jar, baseURL.Host); err != nil {
		sess.Close()
		return nil, err
	}
	if err := chromedp.Run(authCtx, chromedp.Reload()); err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to reload site root: %w", err)
	}

	// Content probe: fetch a login-gated page and look for the marker the
	// site serves to anonymous visitors.
	probeURL := m.config.BaseURL + m.config.ProbePath
	var probeHTML string
	if err := chromedp.Run(authCtx,
		chromedp.Navigate(probeURL),
		chromedp.Sleep(1*time.Second),
		chromedp.OuterHTML("html", &probeHTML),
	); err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to fetch probe page %s: %w", probeURL, err)
	}

	if SessionRejected(probeHTML, m.config.ProbeMarker) {
		sess.Close()
		return nil, &models.AuthenticationError{
			ProbeURL: probeURL,
			Hint:     "stored session cookies were rejected by the site; log in with a browser and re-export cookies",
		}
	}

	m.logger.Info().
		Str("probe_url", probeURL).
		Int("cookies", len(jar.Cookies)).
		Msg("Session validated")

	return sess, nil
}

// SessionRejected reports whether a probe page shows the marker the site
// serves when the session is not authenticated. An empty page also counts
// as rejected since a valid session always renders content.
func SessionRejected(html, marker string) bool {
	if strings.TrimSpace(html) == "" {
		return true
	}
	return marker != "" && strings.Contains(html, marker)
}

// allocatorOptions builds the Chrome flags. The stealth set matters: the
// site fronts its pages with bot detection that blocks bare automation.
func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(m.config.UserAgent),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.WindowSize(1920, 1080),
	}
	if m.config.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	return opts
}

// injectCookies applies the jar to the live browser via the CDP network
// domain. Injection failures on individual cookies are logged and skipped;
// the probe decides whether what stuck is enough.
func (m *Manager) injectCookies(browserCtx context.Context, jar *models.CookieJar, defaultDomain string) error {
	params := cookieParams(jar, defaultDomain, time.Now())

	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		return fmt.Errorf("failed to enable network domain: %w", err)
	}

	return chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range params {
				if err := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly).
					WithSameSite(c.SameSite).
					WithExpires(c.Expires).
					Do(ctx); err != nil {
					m.logger.Warn().
						Err(err).
						Str("cookie", c.Name).
						Str("domain", c.Domain).
						Msg("Failed to inject cookie, continuing")
					continue
				}
				m.logger.Debug().
					Str("cookie", c.Name).
					Str("domain", c.Domain).
					Msg("Cookie injected")
			}
			return nil
		}),
	)
}

// cookieParams converts jar records to CDP cookie parameters. Leading-dot
// domains are normalized, past expiry stamps are dropped so the browser
// treats those cookies as session cookies, and the default domain fills in
// for records without one.
func cookieParams(jar *models.CookieJar, defaultDomain string, now time.Time) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(jar.Cookies))
	for i := range jar.Cookies {
		c := &jar.Cookies[i]

		domain := strings.TrimPrefix(c.Domain, ".")
		if domain == "" {
			domain = defaultDomain
		}

		path := c.Path
		if path == "" {
			path = "/"
		}

		var expires *cdp.TimeSinceEpoch
		if c.Expires > 0 {
			if t := time.Unix(c.Expires, 0); t.After(now) {
				ts := cdp.TimeSinceEpoch(t)
				expires = &ts
			}
		}

		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   domain,
			Path:     path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			Expires:  expires,
		}
		switch strings.ToLower(c.SameSite) {
		case "strict":
			param.SameSite = network.CookieSameSiteStrict
		case "lax":
			param.SameSite = network.CookieSameSiteLax
		case "none":
			param.SameSite = network.CookieSameSiteNone
		}

		params = append(params, param)
	}
	return params
}

// Ensure Manager implements the session interface
var _ interfaces.SessionManager = (*Manager)(nil)
