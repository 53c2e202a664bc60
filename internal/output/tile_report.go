package output

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/verigreen-hackathon/verigreen/internal/band"
	"github.com/verigreen-hackathon/verigreen/internal/classify"
	"github.com/verigreen-hackathon/verigreen/internal/ndvi"
	"github.com/verigreen-hackathon/verigreen/internal/stats"
)

// TileReport is the flat per-tile record written to report.csv, the GeoJSON
// footprints and the report cache.
type TileReport struct {
	TileID                 string  `csv:"tile_id" json:"tile_id"`
	MeanNDVI               float64 `csv:"mean_ndvi" json:"mean_ndvi"`
	MedianNDVI             float64 `csv:"median_ndvi" json:"median_ndvi"`
	MinNDVI                float64 `csv:"min_ndvi" json:"min_ndvi"`
	MaxNDVI                float64 `csv:"max_ndvi" json:"max_ndvi"`
	StdNDVI                float64 `csv:"std_ndvi" json:"std_ndvi"`
	ValidPixels            int     `csv:"valid_pixels" json:"valid_pixels"`
	TotalPixels            int     `csv:"total_pixels" json:"total_pixels"`
	ValidPercentage        float64 `csv:"valid_percentage" json:"valid_percentage"`
	ThresholdValue         float64 `csv:"threshold_value" json:"threshold_value"`
	ThresholdPassed        bool    `csv:"threshold_passed" json:"threshold_passed"`
	DominantClass          string  `csv:"dominant_class" json:"dominant_class"`
	DominantDefaulted      bool    `csv:"dominant_class_defaulted" json:"dominant_class_defaulted"`
	SpatialAutocorrelation float64 `csv:"spatial_autocorrelation" json:"spatial_autocorrelation"`
	SpatialVariability     float64 `csv:"spatial_variability" json:"spatial_variability"`
	ImagePath              string  `csv:"image_path" json:"image_path"`

	Width        int        `csv:"-" json:"width"`
	Height       int        `csv:"-" json:"height"`
	Transform    [6]float64 `csv:"-" json:"transform"`
	HasTransform bool       `csv:"-" json:"has_transform"`
	SpatialRef   string     `csv:"-" json:"spatial_ref,omitempty"`
}

func NewTileReport(result *ndvi.Result, summary stats.Summary, classes classify.ClassificationResult, georef band.Georef) TileReport {
	r := TileReport{
		TileID:            result.TileID,
		MeanNDVI:          result.Mean,
		MedianNDVI:        summary.Median,
		MinNDVI:           result.Min,
		MaxNDVI:           result.Max,
		StdNDVI:           result.Std,
		ValidPixels:       result.ValidPixels,
		TotalPixels:       result.TotalPixels,
		ValidPercentage:   result.ValidPercentage,
		ThresholdValue:    result.ThresholdValue,
		ThresholdPassed:   result.ThresholdPassed,
		DominantClass:     string(classes.DominantClass),
		DominantDefaulted: classes.DominantDefaulted,
		Width:             result.Values.Cols,
		Height:            result.Values.Rows,
		Transform:         georef.Transform,
		HasTransform:      georef.HasTransform,
		SpatialRef:        georef.SpatialRef,
	}
	if summary.SpatialAutocorrelation != nil {
		r.SpatialAutocorrelation = *summary.SpatialAutocorrelation
	}
	if summary.SpatialVariability != nil {
		r.SpatialVariability = *summary.SpatialVariability
	}
	return r
}

func WriteReportCSV(w io.Writer, reports []TileReport) error {
	if err := gocsv.Marshal(&reports, w); err != nil {
		return fmt.Errorf("failed to write report CSV: %w", err)
	}
	return nil
}
