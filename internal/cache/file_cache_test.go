package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tileSummary struct {
	TileID string  `json:"tile_id"`
	Mean   float64 `json:"mean_ndvi"`
}

func TestFileCacheRoundTrip(t *testing.T) {
	t.Setenv("ROOT_PATH", t.TempDir())
	fc := NewFileCache[tileSummary]("reports")

	key := fc.GenerateKey("tile1", 0.65)
	_, ok := fc.Get(key)
	assert.False(t, ok)

	require.NoError(t, fc.Set(key, tileSummary{TileID: "tile1", Mean: 0.7}))

	got, ok := fc.Get(key)
	require.True(t, ok)
	assert.Equal(t, tileSummary{TileID: "tile1", Mean: 0.7}, got)

	_, err := os.Stat(filepath.Join(fc.Dir(), key+".json.tmp"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileCacheRejectsTamperedEntry(t *testing.T) {
	t.Setenv("ROOT_PATH", t.TempDir())
	fc := NewFileCache[tileSummary]("reports")
	key := fc.GenerateKey("tile1")
	require.NoError(t, fc.Set(key, tileSummary{TileID: "tile1", Mean: 0.7}))

	path := filepath.Join(fc.Dir(), key+".json")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(raw), `"mean_ndvi":0.7`, `"mean_ndvi":0.9`, 1)
	require.NotEqual(t, string(raw), tampered)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0644))

	_, ok := fc.Get(key)
	assert.False(t, ok)
}

func TestFileKeyTracksFileChanges(t *testing.T) {
	t.Setenv("ROOT_PATH", t.TempDir())
	fc := NewFileCache[tileSummary]("reports")

	band := filepath.Join(t.TempDir(), "B04.tif")
	require.NoError(t, os.WriteFile(band, []byte("v1"), 0644))

	first := fc.FileKey([]string{band}, 0.65)
	assert.Equal(t, first, fc.FileKey([]string{band}, 0.65))
	assert.NotEqual(t, first, fc.FileKey([]string{band}, 0.5))

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(band, later, later))
	assert.NotEqual(t, first, fc.FileKey([]string{band}, 0.65))
}
