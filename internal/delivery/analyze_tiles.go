package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/verigreen-hackathon/verigreen/internal/band"
	"github.com/verigreen-hackathon/verigreen/internal/cache"
	"github.com/verigreen-hackathon/verigreen/internal/classify"
	"github.com/verigreen-hackathon/verigreen/internal/ndvi"
	"github.com/verigreen-hackathon/verigreen/internal/output"
	"github.com/verigreen-hackathon/verigreen/internal/properties"
	"github.com/verigreen-hackathon/verigreen/internal/stats"
)

var ErrAllTilesFailed = errors.New("all tiles failed")

const (
	reportFileName     = "report.csv"
	footprintsFileName = "footprints.geojson"
	reportCacheDir     = "reports"
)

type Request struct {
	ManifestPath string
	// OutputDir defaults to <ROOT_PATH>/data/result.
	OutputDir string
	// Threshold defaults to NDVI_DEFAULT_THRESHOLD.
	Threshold *float64
	// Thresholds are the class bands; empty means the default six classes.
	Thresholds []classify.ThresholdDefinition
	Workers    int
	Progress   bool
	NoCache    bool
	// Source defaults to a GDAL loader using NDVI_SCALE_FACTOR.
	Source ndvi.BandSource
}

type Run struct {
	Reports        []output.TileReport
	Failures       map[string]error
	Cached         []string
	ReportPath     string
	FootprintsPath string
}

// AnalyzeTiles computes NDVI, statistics and classes for every tile of the
// manifest and writes a PNG per tile plus a CSV report and GeoJSON footprints
// for the run. Tiles fail independently; the run only fails when none
// succeeded or the run-level outputs can't be written.
func AnalyzeTiles(ctx context.Context, req Request) (*Run, error) {
	rows, err := LoadManifest(req.ManifestPath)
	if err != nil {
		return nil, err
	}

	thresholds := req.Thresholds
	if len(thresholds) == 0 {
		thresholds = classify.DefaultThresholds()
	}
	validation := classify.ValidateThresholds(thresholds)
	for _, w := range validation.Warnings {
		log.Warn().Str("warning", w).Msg("threshold definitions")
	}
	if !validation.Valid {
		return nil, fmt.Errorf("invalid threshold definitions: %s", strings.Join(validation.Errors, "; "))
	}

	threshold := properties.DefaultThreshold()
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	outDir := req.OutputDir
	if outDir == "" {
		outDir = filepath.Join(properties.DataPath(), "result")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	src := req.Source
	if src == nil {
		src = band.NewLoader(properties.ScaleFactor())
	}
	workers := req.Workers
	if workers < 1 {
		workers = properties.BatchWorkers()
	}

	log.Info().
		Str("manifest", req.ManifestPath).
		Int("tiles", len(rows)).
		Float64("threshold", threshold).
		Msg("analyzing tiles")

	run := &Run{Failures: map[string]error{}}
	var reportCache cache.CacheService[output.TileReport] = cache.NewFileCache[output.TileReport](reportCacheDir)
	thresholdsKey := reportCache.GenerateKey(thresholdParams(thresholds)...)
	// reports point at images in outDir and hold values scaled by the source
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	scale := sourceScale(src)

	keys := make(map[string]string, len(rows))
	pending := make(map[string]ndvi.TilePaths, len(rows))
	for _, row := range rows {
		key := reportCache.FileKey([]string{row.Red, row.NIR, row.CloudMask}, threshold, thresholdsKey, absOut, scale)
		keys[row.TileID] = key
		if !req.NoCache {
			if report, ok := reportCache.Get(key); ok && fileExists(report.ImagePath) {
				log.Debug().Str("tile_id", row.TileID).Msg("using cached report")
				run.Reports = append(run.Reports, report)
				run.Cached = append(run.Cached, row.TileID)
				continue
			}
		}
		pending[row.TileID] = row.Paths()
	}

	calc := ndvi.NewCalculator(threshold)
	batch := calc.Batch(ctx, src, pending, ndvi.BatchOptions{
		Threshold: &threshold,
		Workers:   workers,
		Progress:  req.Progress,
	})
	for tileID, err := range batch.Failures {
		run.Failures[tileID] = err
	}

	for _, tileID := range batch.Succeeded() {
		report, err := finishTile(batch.Results[tileID], thresholds, outDir)
		if err != nil {
			log.Error().Err(err).Str("tile_id", tileID).Msg("failed to write tile outputs")
			run.Failures[tileID] = err
			continue
		}
		if !req.NoCache {
			if err := reportCache.Set(keys[tileID], report); err != nil {
				log.Warn().Err(err).Str("tile_id", tileID).Msg("failed to cache report")
			}
		}
		run.Reports = append(run.Reports, report)
	}

	sort.Slice(run.Reports, func(i, j int) bool { return run.Reports[i].TileID < run.Reports[j].TileID })
	sort.Strings(run.Cached)

	if len(rows) > 0 && len(run.Reports) == 0 {
		return run, fmt.Errorf("%d of %d tiles: %w", len(run.Failures), len(rows), ErrAllTilesFailed)
	}

	if err := writeRunOutputs(run, outDir); err != nil {
		return run, err
	}

	if len(run.Failures) > 0 {
		log.Warn().
			Int("failed", len(run.Failures)).
			Int("total", len(rows)).
			Msg("tile analysis completed with errors")
	}
	log.Info().Str("report", run.ReportPath).Msg("tile analysis complete")
	return run, nil
}

func finishTile(result *ndvi.Result, thresholds []classify.ThresholdDefinition, outDir string) (output.TileReport, error) {
	summary := stats.Comprehensive(result.Values,
		stats.WithThreshold(result.ThresholdValue),
		stats.WithSpatial(),
	)
	classes := classify.Classify(result.Values, thresholds)
	if classes.DominantDefaulted {
		log.Warn().Str("tile_id", result.TileID).Msg("tile has no valid pixels, dominant class is a placeholder")
	}

	report := output.NewTileReport(result, summary, classes, result.Metadata.Georef)
	report.ImagePath = filepath.Join(outDir, safeFileName(result.TileID)+".png")

	err := writeFile(report.ImagePath, func(w io.Writer) error {
		return output.RenderClassification(w, classes, output.WithLegend())
	})
	if err != nil {
		return output.TileReport{}, fmt.Errorf("failed to write classification image: %w", err)
	}
	return report, nil
}

func writeRunOutputs(run *Run, outDir string) error {
	run.ReportPath = filepath.Join(outDir, reportFileName)
	err := writeFile(run.ReportPath, func(w io.Writer) error {
		return output.WriteReportCSV(w, run.Reports)
	})
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	run.FootprintsPath = filepath.Join(outDir, footprintsFileName)
	return output.WriteGeoJSON(run.FootprintsPath, output.FootprintFeatureCollection(run.Reports))
}

// writeFile creates path and fills it with write. A failed write or close
// removes the file so no truncated output is left behind.
func writeFile(path string, write func(io.Writer) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	return write(file)
}

// sourceScale is the reflectance scale the band values were loaded with.
func sourceScale(src ndvi.BandSource) float64 {
	if l, ok := src.(*band.Loader); ok {
		return l.ScaleFactor
	}
	return properties.ScaleFactor()
}

func thresholdParams(defs []classify.ThresholdDefinition) []interface{} {
	params := make([]interface{}, 0, len(defs))
	for _, d := range defs {
		params = append(params, d)
	}
	return params
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func safeFileName(tileID string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, tileID)
}
