package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittfreight/deeppack/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deeppack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "bl", cfg.Method)
	assert.Equal(t, "generated", cfg.Source)
	assert.Equal(t, 32, cfg.BinSize.Width)
	require.NoError(t, cfg.Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
method: baf
lookahead: 3
bin_size: {width: 16, height: 16, depth: 16}
bins: 2
max_bins: 10
replace: max
rotate: false
source: generated
generator:
  seed: 7
  min_size: {width: 3, height: 3, depth: 3}
  max_size: {width: 6, height: 6, depth: 6}
  max_items: 50
export:
  pdf: plan.pdf
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "baf", cfg.Method)
	assert.Equal(t, 3, cfg.Lookahead)
	assert.Equal(t, int64(7), cfg.Generator.Seed)
	assert.Equal(t, "plan.pdf", cfg.Export.PDF)
	assert.False(t, cfg.Rotate)

	s := cfg.Settings()
	assert.Equal(t, model.ReplaceMax, s.Replace)
	assert.Equal(t, 2, s.Bins)
	assert.Equal(t, 16, s.BinSize.H)
}

func TestLoad_RejectsBadSource(t *testing.T) {
	path := writeConfig(t, "source: carrier-pigeon\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source")
}

func TestLoad_FileSourceNeedsPath(t *testing.T) {
	path := writeConfig(t, "source: file\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path")
}

func TestLoad_RejectsGeneratorMaxBelowMin(t *testing.T) {
	path := writeConfig(t, `
source: generated
generator:
  min_size: {width: 8, height: 8, depth: 8}
  max_size: {width: 4, height: 8, depth: 8}
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "width")
}

func TestLoad_RejectsBadReplace(t *testing.T) {
	path := writeConfig(t, "replace: some\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestNormalize_FillsBlanks(t *testing.T) {
	cfg := Config{BinSize: SizeSpec{Width: 10, Height: 10, Depth: 10}, Bins: 1, Lookahead: 1}
	cfg.Normalize()

	assert.Equal(t, "bl", cfg.Method)
	assert.Equal(t, "generated", cfg.Source)
	assert.Equal(t, 0.25, cfg.Generator.P)
}
