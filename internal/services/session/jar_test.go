package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camelotware/herald/internal/models"
)

func TestLoadCookieJar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cookies.json")

	jar := &models.CookieJar{
		Cookies: []models.CookieRecord{
			{Name: "session_id", Domain: ".eden-daoc.net", Path: "/", Value: "abc123", Secure: true},
			{Name: "remember", Domain: "eden-daoc.net", Path: "/", Value: "1", Expires: time.Now().Add(24 * time.Hour).Unix()},
		},
	}
	require.NoError(t, SaveCookieJar(path, jar))

	loaded, err := LoadCookieJar(path)
	require.NoError(t, err)
	require.Len(t, loaded.Cookies, 2)
	assert.Equal(t, "session_id", loaded.Cookies[0].Name)
	assert.Equal(t, "abc123", loaded.Cookies[0].Value)
}

func TestLoadCookieJarMissingFile(t *testing.T) {
	_, err := LoadCookieJar(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, models.ErrNoCredentials)
}

func TestLoadCookieJarCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := LoadCookieJar(path)
	assert.ErrorIs(t, err, models.ErrNoCredentials)
}

func TestLoadCookieJarEmptyJar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"cookies":[]}`), 0600))

	_, err := LoadCookieJar(path)
	assert.ErrorIs(t, err, models.ErrNoCredentials)
}
