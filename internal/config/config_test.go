package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Parser.ChunkSize)
	assert.Equal(t, 0, cfg.Parser.MaxEntries)
	assert.Equal(t, 64*1024, cfg.Parser.ReadWindow)
	assert.Equal(t, 10_000, cfg.Parser.MaxRecordChars)
	assert.Equal(t, 100_000, cfg.Parser.ProgressEvery)
	assert.False(t, cfg.KeepTransient)
	assert.Equal(t, filepath.Join(cfg.DataDir, "films.db"), cfg.DatabasePath())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeConfig(t, "filmlist.yaml", `
dataDir: /srv/filmlist
parser:
  chunkSize: 1000
  maxEntries: 50
limitDays: 7
keepTransient: true
`)
	t.Setenv(EnvChunkSize, "2000")
	t.Setenv(EnvDatabase, "/tmp/other.db")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/filmlist", cfg.DataDir)
	assert.Equal(t, 2000, cfg.Parser.ChunkSize, "environment wins over file")
	assert.Equal(t, 50, cfg.Parser.MaxEntries)
	assert.Equal(t, 64*1024, cfg.Parser.ReadWindow, "unset keys keep defaults")
	assert.Equal(t, 7, cfg.LimitDays)
	assert.True(t, cfg.KeepTransient)
	assert.Equal(t, "/tmp/other.db", cfg.DatabasePath())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "filmlist.yaml", "parser:\n  chunksize: 10\n")
	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict config parse error")
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	path := writeConfig(t, "filmlist.yaml", "limitDays: 1\n---\nlimitDays: 2\n")
	_, err := NewLoader(path).Load()
	require.Error(t, err)
}

func TestLoadRejectsOtherFormats(t *testing.T) {
	path := writeConfig(t, "filmlist.json", "{}")
	_, err := NewLoader(path).Load()
	require.Error(t, err)
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeConfig(t, "filmlist.yml", "")
	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Parser.ChunkSize)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Parser.ChunkSize = 0
	cfg.Parser.MaxEntries = -1
	cfg.LimitDays = -3

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parser.chunkSize")
	assert.Contains(t, err.Error(), "parser.maxEntries")
	assert.Contains(t, err.Error(), "limitDays")
}

func TestEnvParsing(t *testing.T) {
	t.Setenv("FILMLIST_TEST_INT", "abc")
	assert.Equal(t, 7, ParseInt("FILMLIST_TEST_INT", 7))

	t.Setenv("FILMLIST_TEST_INT", " 12 ")
	assert.Equal(t, 12, ParseInt("FILMLIST_TEST_INT", 7))

	for v, want := range map[string]bool{"yes": true, "1": true, "TRUE": true, "no": false, "0": false} {
		t.Setenv("FILMLIST_TEST_BOOL", v)
		assert.Equal(t, want, ParseBool("FILMLIST_TEST_BOOL", !want), v)
	}
	t.Setenv("FILMLIST_TEST_BOOL", "maybe")
	assert.True(t, ParseBool("FILMLIST_TEST_BOOL", true))

	t.Setenv("FILMLIST_TEST_STR", "")
	assert.Equal(t, "fallback", ParseString("FILMLIST_TEST_STR", "fallback"))
}

func TestLimitDate(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	cfg := Defaults()
	assert.Zero(t, cfg.LimitDate(now))

	cfg.LimitDays = 2
	assert.Equal(t, now.Add(-48*time.Hour).Unix(), cfg.LimitDate(now))
}

func TestParserOptions(t *testing.T) {
	cfg := Defaults()
	cfg.Parser.MaxEntries = 10
	opts := cfg.ParserOptions()
	assert.Equal(t, 10, opts.MaxEntries)
	assert.Equal(t, cfg.Parser.ChunkSize, opts.ChunkSize)
}
