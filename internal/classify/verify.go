package classify

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/verigreen-hackathon/verigreen/internal/raster"
	"github.com/verigreen-hackathon/verigreen/internal/stats"
)

// Method decides how a grid passes a single threshold.
type Method string

const (
	// MethodMean passes when the mean of the valid pixels reaches the threshold.
	MethodMean Method = "mean"
	// MethodMedian passes when their median does.
	MethodMedian Method = "median"
	// MethodPercentage passes when at least half of them do individually.
	MethodPercentage Method = "percentage"
)

func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodMean, MethodMedian, MethodPercentage:
		return m, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownMethod)
	}
}

// ParseMethodLenient falls back to MethodMean for unknown names.
func ParseMethodLenient(s string) Method {
	m, err := ParseMethod(s)
	if err != nil {
		log.Warn().Str("method", s).Msg("unknown classification method, using 'mean'")
		return MethodMean
	}
	return m
}

type ThresholdResult struct {
	ThresholdValue   float64 `json:"threshold_value"`
	Passed           bool    `json:"passed"`
	PixelsAbove      int     `json:"pixels_above_threshold"`
	PixelsBelow      int     `json:"pixels_below_threshold"`
	PercentageAbove  float64 `json:"percentage_above_threshold"`
	PercentageBelow  float64 `json:"percentage_below_threshold"`
	MeanAbove        float64 `json:"mean_above_threshold"`
	MeanBelow        float64 `json:"mean_below_threshold"`
	TotalValidPixels int     `json:"total_valid_pixels"`
	Method           Method  `json:"classification_method"`
	// ClassificationMap holds 1 at or above the threshold, 0 below and -1
	// for invalid pixels. It is nil when there were no valid pixels.
	ClassificationMap *raster.IntGrid `json:"classification_map,omitempty"`
}

// VerifyThreshold tests the valid pixels of values against one threshold. An
// unknown method behaves like MethodMean.
func VerifyThreshold(values raster.Grid, threshold float64, method Method) ThresholdResult {
	method = ParseMethodLenient(string(method))
	log.Debug().Float64("threshold", threshold).Str("method", string(method)).Msg("verifying threshold")

	result := ThresholdResult{ThresholdValue: threshold, Method: method}

	valid := values.ValidValues()
	if len(valid) == 0 {
		log.Warn().Msg("no valid pixels found for threshold verification")
		return result
	}

	var above, below []float64
	for _, v := range valid {
		if v >= threshold {
			above = append(above, v)
		} else {
			below = append(below, v)
		}
	}
	n := float64(len(valid))
	result.TotalValidPixels = len(valid)
	result.PixelsAbove = len(above)
	result.PixelsBelow = len(below)
	result.PercentageAbove = float64(len(above)) / n * 100
	result.PercentageBelow = float64(len(below)) / n * 100
	result.MeanAbove = stats.Mean(above)
	result.MeanBelow = stats.Mean(below)

	switch method {
	case MethodMedian:
		sorted := append([]float64(nil), valid...)
		sort.Float64s(sorted)
		result.Passed = stats.Median(sorted) >= threshold
	case MethodPercentage:
		result.Passed = result.PercentageAbove >= 50
	default:
		result.Passed = stats.Mean(valid) >= threshold
	}

	binary := raster.NewIntGrid(values.Rows, values.Cols, -1)
	for i, v := range values.Values {
		switch {
		case math.IsNaN(v):
		case v >= threshold:
			binary.Values[i] = 1
		default:
			binary.Values[i] = 0
		}
	}
	result.ClassificationMap = &binary
	return result
}
