package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into a fresh directory so local config reads do
// not pick up anything from the source tree.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadScopeMissingFile(t *testing.T) {
	chdirTemp(t)
	cfg, err := LoadScope(ScopeLocal)
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.Style())
	assert.Equal(t, int64(DefaultMaxAttachment), cfg.MaxAttachment())
	assert.Equal(t, "", cfg.AuthorString())
}

func TestLoadPrefersLocal(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".tmd"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmd", "config.yaml"),
		[]byte("render:\n  style: dark\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ScopeLocal, cfg.Scope())
	assert.Equal(t, "dark", cfg.Style())
}

func TestSaveRoundTrip(t *testing.T) {
	chdirTemp(t)
	cfg := &Config{scope: ScopeLocal}
	cfg.Author = Author{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, cfg.SaveScope(ScopeLocal))

	loaded, err := LoadScope(ScopeLocal)
	require.NoError(t, err)
	assert.Equal(t, "Ada <ada@example.com>", loaded.AuthorString())
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	bad := int64(0)
	cfg := &Config{Limits: Limits{MaxAttachment: &bad}}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidValue)
}

func TestLoadScopeMalformedYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".tmd"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmd", "config.yaml"),
		[]byte("render: [broken"), 0o644))

	_, err := LoadScope(ScopeLocal)
	assert.Error(t, err)
}

func TestAuthorStringVariants(t *testing.T) {
	assert.Equal(t, "Ada", (&Config{Author: Author{Name: "Ada"}}).AuthorString())
	assert.Equal(t, "ada@example.com", (&Config{Author: Author{Email: "ada@example.com"}}).AuthorString())
}
