package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odvcencio/revdiff/pkg/linediff"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, int64(0), cfg.Diff.MaxFileSizeBytes)
	require.Equal(t, linediff.WhitespaceNone, cfg.Diff.Whitespace)
	require.Equal(t, 4096, cfg.Cache.MaxEntries)
	require.True(t, cfg.AutoMerge.Save)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, "revdiff.toml", `
[diff]
max_file_size_bytes = 1000
whitespace = "change"

[cache]
dir = "/var/cache/revdiff"

[automerge]
save = false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, int64(1000), cfg.Diff.MaxFileSizeBytes)
	require.Equal(t, linediff.WhitespaceChange, cfg.Diff.Whitespace)
	require.Equal(t, "/var/cache/revdiff", cfg.Cache.Dir)
	require.Equal(t, 4096, cfg.Cache.MaxEntries)
	require.False(t, cfg.AutoMerge.Save)
	require.Equal(t, "Auto-Merge", cfg.AutoMerge.AuthorName)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "revdiff.toml", "[diff]\nmax_file_size = 10\n")
	_, err := Load(path)
	require.ErrorContains(t, err, "unknown key")
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "revdiff.yaml", `
diff:
  max_file_size_bytes: 2048
  whitespace: trailing
automerge:
  author_name: Merge Bot
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, int64(2048), cfg.Diff.MaxFileSizeBytes)
	require.Equal(t, linediff.WhitespaceTrailing, cfg.Diff.Whitespace)
	require.Equal(t, "Merge Bot", cfg.AutoMerge.AuthorName)
	require.True(t, cfg.AutoMerge.Save)
}

func TestLoadYAMLRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "revdiff.yml", "cache:\n  entries: 10\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadEmptyYAMLUsesDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "revdiff.yaml", ""))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadRejectsBadWhitespace(t *testing.T) {
	path := writeFile(t, "revdiff.toml", "[diff]\nwhitespace = \"sometimes\"\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Diff.MaxFileSizeBytes = -1
	cfg.Cache.MaxEntries = 0
	cfg.AutoMerge.AuthorEmail = "bad<addr>"

	err := cfg.Validate()
	require.Error(t, err)

	var errs ValidateErrors
	require.ErrorAs(t, err, &errs)
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	require.ElementsMatch(t, []string{"diff.max_file_size_bytes", "cache.max_entries", "automerge.author_email"}, fields)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("REVDIFF_MAX_FILE_SIZE_BYTES", "2048")
	t.Setenv("REVDIFF_WHITESPACE", "trailing")
	t.Setenv("REVDIFF_CACHE_DIR", "/tmp/rd")
	t.Setenv("REVDIFF_AUTOMERGE_SAVE", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, int64(2048), cfg.Diff.MaxFileSizeBytes)
	require.Equal(t, linediff.WhitespaceTrailing, cfg.Diff.Whitespace)
	require.Equal(t, "/tmp/rd", cfg.Cache.Dir)
	require.False(t, cfg.AutoMerge.Save)
}

func TestApplyEnvOverridesRejectsGarbage(t *testing.T) {
	t.Setenv("REVDIFF_MAX_FILE_SIZE_BYTES", "lots")
	_, err := Load("")
	require.ErrorContains(t, err, "REVDIFF_MAX_FILE_SIZE_BYTES")
}
