package properties

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
)

const (
	defaultThreshold   = 0.65
	defaultWorkers     = 4
	defaultScaleFactor = 0.0001
)

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

// DataPath is where caches and run outputs live unless overridden.
func DataPath() string {
	return filepath.Join(RootPath(), "data")
}

func DefaultThreshold() float64 {
	return floatEnv("NDVI_DEFAULT_THRESHOLD", defaultThreshold)
}

func BatchWorkers() int {
	v := intEnv("NDVI_BATCH_WORKERS", defaultWorkers)
	if v < 1 {
		return 1
	}
	return v
}

// ThresholdsFile is an optional CSV of class definitions.
func ThresholdsFile() string {
	return os.Getenv("NDVI_THRESHOLDS_FILE")
}

func LogLevel() string {
	if v := os.Getenv("NDVI_LOG_LEVEL"); v != "" {
		return v
	}
	return "info"
}

// LogFormat is "console" for human readable logs or "json".
func LogFormat() string {
	if v := os.Getenv("NDVI_LOG_FORMAT"); v != "" {
		return v
	}
	return "console"
}

func ScaleFactor() float64 {
	return floatEnv("NDVI_SCALE_FACTOR", defaultScaleFactor)
}

func floatEnv(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid number in environment, using default")
		return fallback
	}
	return v
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid integer in environment, using default")
		return fallback
	}
	return v
}
