package classify

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verigreen-hackathon/verigreen/internal/raster"
)

func row(values ...float64) raster.Grid {
	return raster.Grid{Rows: 1, Cols: len(values), Values: values}
}

func TestClassifyDefaultCoverage(t *testing.T) {
	values := row(-0.5, 0.15, 0.3, 0.5, 0.7, 0.95, 1.0)

	result := Classify(values, nil)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 5}, result.ClassificationMap.Values)
	assert.Equal(t, 7, result.TotalValidPixels)
	assert.Equal(t, VeryDenseVegetation, result.DominantClass)
	assert.False(t, result.DominantDefaulted)

	veryDense := result.ClassStatistics[VeryDenseVegetation]
	assert.Equal(t, 2, veryDense.PixelCount)
	assert.InDelta(t, 2.0/7*100, veryDense.Percentage, 1e-9)
	assert.InDelta(t, 0.975, veryDense.Mean, 1e-12)
	assert.Equal(t, 0.95, veryDense.Min)
	assert.Equal(t, 1.0, veryDense.Max)

	assert.Len(t, result.ClassPercentages, 6)
	assert.InDelta(t, 1.0/7*100, result.ClassPercentages[Water], 1e-9)
}

func TestClassifyBoundariesAreHalfOpen(t *testing.T) {
	values := row(-1.0, 0.1, 0.2, 0.4, 0.65, 0.8)

	result := Classify(values, DefaultThresholds())

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, result.ClassificationMap.Values)
}

func TestClassifyInvalidPixels(t *testing.T) {
	nan := math.NaN()
	custom := []ThresholdDefinition{
		{Name: "high", Class: DenseVegetation, Color: "#00FF00", MinValue: 0.5, MaxValue: 0.9},
		{Name: "low", Class: BareSoil, Color: "#AA5500", MinValue: 0.0, MaxValue: 0.5},
	}
	values := row(nan, -0.2, 0.2, 0.9, 0.95)

	result := Classify(values, custom)

	// sorted copy: low is 0, high is 1; 0.9 sits on the closed top bound
	require.Len(t, result.Thresholds, 2)
	assert.Equal(t, "low", result.Thresholds[0].Name)
	assert.Equal(t, "high", custom[0].Name, "caller slice is untouched")
	assert.Equal(t, []int{-1, -1, 0, 1, -1}, result.ClassificationMap.Values)
	assert.Equal(t, 4, result.TotalValidPixels)
	assert.InDelta(t, 25.0, result.ClassPercentages[BareSoil], 1e-12)
	assert.InDelta(t, 25.0, result.ClassPercentages[DenseVegetation], 1e-12)
	assert.Equal(t, BareSoil, result.DominantClass, "ties go to the first class in threshold order")
}

func TestClassifyNoValidPixels(t *testing.T) {
	result := Classify(raster.Filled(3, 2, math.NaN()), nil)

	assert.Equal(t, [2]int{3, 2}, result.ClassificationMap.Shape())
	for _, v := range result.ClassificationMap.Values {
		assert.Equal(t, InvalidClass, v)
	}
	assert.Equal(t, 0, result.TotalValidPixels)
	assert.Equal(t, Water, result.DominantClass)
	assert.True(t, result.DominantDefaulted)
	assert.Len(t, result.ClassStatistics, 6)
	for class, s := range result.ClassStatistics {
		assert.Equal(t, ClassStatistics{}, s, class)
	}
}

func TestColorMap(t *testing.T) {
	result := Classify(row(0.5), nil)

	colors := ColorMap(result)

	assert.Equal(t, map[int]string{
		-1: "#FFFFFF",
		0:  "#0066CC",
		1:  "#8B4513",
		2:  "#FFD700",
		3:  "#9ACD32",
		4:  "#228B22",
		5:  "#006400",
	}, colors)
}
