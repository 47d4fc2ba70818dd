// -----------------------------------------------------------------------
// Session Manager - Cookie Store
// -----------------------------------------------------------------------

package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/camelotware/herald/internal/models"
)

// LoadCookieJar reads the captured session cookies from the cookie store.
// A missing, unreadable, corrupt, or empty store all surface as
// models.ErrNoCredentials since the remedy is the same: capture a fresh
// session in a real browser and export the cookies again.
func LoadCookieJar(path string) (*models.CookieJar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cookie store %s: %w", path, models.ErrNoCredentials)
	}

	var jar models.CookieJar
	if err := json.Unmarshal(data, &jar); err != nil {
		return nil, fmt.Errorf("cookie store %s is corrupt: %w", path, models.ErrNoCredentials)
	}
	if jar.IsEmpty() {
		return nil, fmt.Errorf("cookie store %s holds no cookies: %w", path, models.ErrNoCredentials)
	}

	return &jar, nil
}

// SaveCookieJar persists the jar back to the cookie store.
func SaveCookieJar(path string, jar *models.CookieJar) error {
	data, err := json.MarshalIndent(jar, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cookie jar: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cookie store directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write cookie store %s: %w", path, err)
	}
	return nil
}
