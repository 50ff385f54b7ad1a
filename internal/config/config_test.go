package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 3000, cfg.Port)
	assert.True(t, cfg.DirectExpandArray)
	assert.True(t, cfg.SkipUnresolved)
	assert.Equal(t, []string{"typescript", "typescriptreact"}, cfg.Languages)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(`
port: 4100
compactOptionalType: true
compactPropertyLength: 20
validate: [typescriptreact]
strictExports: true
render:
  maxDepth: 5
log:
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4100, cfg.Port)
	assert.True(t, cfg.CompactOptionalType)
	assert.Equal(t, 20, cfg.CompactPropertyLength)
	assert.Equal(t, []string{"typescriptreact"}, cfg.Languages)
	assert.True(t, cfg.StrictExports)
	assert.Equal(t, 5, cfg.Render.MaxDepth)
	assert.Equal(t, 100, cfg.Render.MaxCalls, "unset keys keep defaults")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "port: [1"},
		{"unknown language", "validate: [javascript]"},
		{"no languages", "validate: []"},
		{"negative truncation", "compactPropertyLength: -1"},
		{"zero depth", "render:\n  maxDepth: 0"},
		{"log format", "log:\n  format: xml"},
		{"port range", "port: 70000"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestIndexPath(t *testing.T) {
	t.Parallel()
	cfg := Default()
	assert.Equal(t, filepath.Join("/proj", ".tsexpand", "index.db"), cfg.IndexPath("/proj"))

	cfg.Index.Path = "/var/db/idx.db"
	assert.Equal(t, "/var/db/idx.db", cfg.IndexPath("/proj"))
}

func TestWrite_RoundTrips(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", DefaultPath)
	want := Default()
	want.Port = 3333

	require.NoError(t, Write(path, want))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
