package properties

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	t.Setenv("ROOT_PATH", "/srv/ndvi")
	t.Setenv("NDVI_DEFAULT_THRESHOLD", "")
	t.Setenv("NDVI_BATCH_WORKERS", "")
	t.Setenv("NDVI_SCALE_FACTOR", "")
	t.Setenv("NDVI_LOG_LEVEL", "")
	t.Setenv("NDVI_LOG_FORMAT", "")

	assert.Equal(t, filepath.Join("/srv/ndvi", "data"), DataPath())
	assert.Equal(t, 0.65, DefaultThreshold())
	assert.Equal(t, 4, BatchWorkers())
	assert.Equal(t, 0.0001, ScaleFactor())
	assert.Equal(t, "info", LogLevel())
	assert.Equal(t, "console", LogFormat())
}

func TestOverrides(t *testing.T) {
	t.Setenv("NDVI_DEFAULT_THRESHOLD", "0.4")
	t.Setenv("NDVI_BATCH_WORKERS", "0")
	t.Setenv("NDVI_SCALE_FACTOR", "not-a-number")
	t.Setenv("NDVI_THRESHOLDS_FILE", "classes.csv")
	t.Setenv("NDVI_LOG_FORMAT", "json")

	assert.Equal(t, 0.4, DefaultThreshold())
	assert.Equal(t, 1, BatchWorkers())
	assert.Equal(t, 0.0001, ScaleFactor())
	assert.Equal(t, "classes.csv", ThresholdsFile())
	assert.Equal(t, "json", LogFormat())
}
