package classify

import (
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/verigreen-hackathon/verigreen/internal/raster"
)

// InvalidClass marks pixels that are NaN or fall in no band.
const InvalidClass = -1

type ClassStatistics struct {
	PixelCount int     `json:"pixel_count"`
	Percentage float64 `json:"percentage"`
	Mean       float64 `json:"mean_ndvi"`
	Std        float64 `json:"std_ndvi"`
	Min        float64 `json:"min_ndvi"`
	Max        float64 `json:"max_ndvi"`
}

type ClassificationResult struct {
	// ClassificationMap holds the index into Thresholds for every pixel, or
	// InvalidClass.
	ClassificationMap raster.IntGrid                      `json:"classification_map"`
	ClassStatistics   map[VegetationClass]ClassStatistics `json:"class_statistics"`
	ClassPercentages  map[VegetationClass]float64         `json:"class_percentages"`
	DominantClass     VegetationClass                     `json:"dominant_class"`
	// DominantDefaulted is set when there were no valid pixels and
	// DominantClass is the Water placeholder rather than a computed answer.
	DominantDefaulted bool                  `json:"dominant_class_defaulted"`
	TotalValidPixels  int                   `json:"total_valid_pixels"`
	Thresholds        []ThresholdDefinition `json:"threshold_definitions"`
}

// Classify assigns every pixel of values to a band of thresholds, or of
// DefaultThresholds when none are given. Thresholds are sorted by MinValue and
// the result indexes into that sorted copy.
func Classify(values raster.Grid, thresholds []ThresholdDefinition) ClassificationResult {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds()
	}
	sorted := sortByMin(thresholds)
	log.Info().Int("classes", len(sorted)).Msg("classifying vegetation")

	result := ClassificationResult{
		ClassificationMap: raster.NewIntGrid(values.Rows, values.Cols, InvalidClass),
		ClassStatistics:   make(map[VegetationClass]ClassStatistics, len(sorted)),
		ClassPercentages:  make(map[VegetationClass]float64, len(sorted)),
		Thresholds:        sorted,
	}

	top := topBand(sorted)
	members := make([][]float64, len(sorted))
	for i, v := range values.Values {
		if math.IsNaN(v) {
			continue
		}
		result.TotalValidPixels++
		class := InvalidClass
		for j, d := range sorted {
			if v < d.MinValue {
				continue
			}
			if v < d.MaxValue || (j == top && v == d.MaxValue) {
				class = j
			}
		}
		result.ClassificationMap.Values[i] = class
		if class != InvalidClass {
			members[class] = append(members[class], v)
		}
	}

	if result.TotalValidPixels == 0 {
		log.Warn().Msg("no valid pixels found for vegetation classification")
	}

	for j, d := range sorted {
		s := classStatistics(members[j], result.TotalValidPixels)
		result.ClassStatistics[d.Class] = s
		result.ClassPercentages[d.Class] = s.Percentage
	}

	result.DominantClass, result.DominantDefaulted = dominant(sorted, result)
	return result
}

// topBand is the index of the band with the largest MaxValue, the one whose
// upper bound is closed. Ties go to the later band.
func topBand(sorted []ThresholdDefinition) int {
	top := 0
	for i, d := range sorted {
		if d.MaxValue >= sorted[top].MaxValue {
			top = i
		}
	}
	return top
}

func classStatistics(members []float64, totalValid int) ClassStatistics {
	if len(members) == 0 {
		return ClassStatistics{}
	}
	mean, std := stat.PopMeanStdDev(members, nil)
	return ClassStatistics{
		PixelCount: len(members),
		Percentage: float64(len(members)) / float64(totalValid) * 100,
		Mean:       mean,
		Std:        std,
		Min:        floats.Min(members),
		Max:        floats.Max(members),
	}
}

// dominant picks the first class in threshold order with the highest share.
// Without valid pixels it falls back to Water and reports the fallback.
func dominant(sorted []ThresholdDefinition, result ClassificationResult) (VegetationClass, bool) {
	if result.TotalValidPixels == 0 {
		return Water, true
	}
	best := sorted[0].Class
	bestPct := result.ClassPercentages[best]
	for _, d := range sorted[1:] {
		if pct := result.ClassPercentages[d.Class]; pct > bestPct {
			best, bestPct = d.Class, pct
		}
	}
	return best, false
}

// ColorMap maps every class index of result to its display color, with white
// for InvalidClass.
func ColorMap(result ClassificationResult) map[int]string {
	colors := make(map[int]string, len(result.Thresholds)+1)
	colors[InvalidClass] = "#FFFFFF"
	for i, d := range result.Thresholds {
		colors[i] = d.Color
	}
	return colors
}
