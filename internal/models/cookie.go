package models

import "time"

// CookieRecord is one captured session cookie. Expiry is advisory only: the
// site keeps session validity server-side, so the content probe in the
// session manager is what actually decides whether we are authenticated.
type CookieRecord struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Value    string `json:"value"`
	Secure   bool   `json:"secure,omitempty"`
	HTTPOnly bool   `json:"http_only,omitempty"`
	SameSite string `json:"same_site,omitempty"`
	Expires  int64  `json:"expires,omitempty"` // unix seconds, 0 = session cookie
}

// Expired reports whether the cookie carries an expiry in the past.
// Session cookies (Expires == 0) never report expired.
func (c *CookieRecord) Expired(now time.Time) bool {
	return c.Expires > 0 && time.Unix(c.Expires, 0).Before(now)
}

// CookieJar is the ordered collection of session cookies loaded from the
// cookie store. Order is preserved because the site sets related cookies in
// sequence and they are replayed the same way.
type CookieJar struct {
	Cookies []CookieRecord `json:"cookies"`
}

// IsEmpty reports whether the jar holds no cookies at all.
func (j *CookieJar) IsEmpty() bool {
	return j == nil || len(j.Cookies) == 0
}

// AllExpired reports whether every cookie with an expiry is already past it.
// Advisory only: the session manager's content probe is authoritative.
func (j *CookieJar) AllExpired(now time.Time) bool {
	if j.IsEmpty() {
		return true
	}
	sawExpiring := false
	for i := range j.Cookies {
		c := &j.Cookies[i]
		if c.Expires == 0 {
			continue
		}
		sawExpiring = true
		if !c.Expired(now) {
			return false
		}
	}
	return sawExpiring
}
