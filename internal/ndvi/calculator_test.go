package ndvi

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verigreen-hackathon/verigreen/internal/band"
	"github.com/verigreen-hackathon/verigreen/internal/raster"
)

func sampleOf(t *testing.T, rows [][]float64) band.Sample {
	t.Helper()
	g, err := raster.FromRows(rows)
	require.NoError(t, err)
	return band.NewSample(g, 1, 0, nil)
}

func fixedCalculator() *Calculator {
	c := NewCalculator(DefaultThreshold)
	c.Now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestCalculateKnownValues(t *testing.T) {
	red := sampleOf(t, [][]float64{{0.1, 0.2}, {0.1, 0.3}})
	nir := sampleOf(t, [][]float64{{0.5, 0.6}, {0.1, 0.9}})

	result, err := fixedCalculator().Calculate(red, nir, WithTileID("test_tile"))
	require.NoError(t, err)

	assert.Equal(t, "test_tile", result.TileID)
	assert.Equal(t, [2]int{2, 2}, result.Values.Shape())
	assert.Equal(t, 4, result.ValidPixels)
	assert.Equal(t, 4, result.TotalPixels)
	assert.Equal(t, 100.0, result.ValidPercentage)

	assert.InDelta(t, 0.6666667, result.Values.At(0, 0), 1e-6)
	assert.InDelta(t, 0.5, result.Values.At(0, 1), 1e-12)
	assert.Equal(t, 0.0, result.Values.At(1, 0), "equal non-zero bands give exactly zero")
	assert.InDelta(t, 0.5, result.Values.At(1, 1), 1e-12)
	assert.Equal(t, MethodStandard, result.Metadata.Method)
	assert.Equal(t, [2]int{2, 2}, result.Metadata.Red.Shape)
}

func TestCalculateDegenerateDenominators(t *testing.T) {
	red := sampleOf(t, [][]float64{{0, 0.1, 1e-11, -0.2}})
	nir := sampleOf(t, [][]float64{{0, 0.1, 1e-11, 0.2}})

	result, err := fixedCalculator().Calculate(red, nir)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(result.Values.At(0, 0)), "both bands zero")
	assert.Equal(t, 0.0, result.Values.At(0, 1))
	assert.True(t, math.IsNaN(result.Values.At(0, 2)), "both bands below epsilon")
	assert.True(t, math.IsNaN(result.Values.At(0, 3)), "denominator cancels to zero")
}

func TestCalculateNaNPropagates(t *testing.T) {
	nan := math.NaN()
	red := sampleOf(t, [][]float64{{0.1, nan}, {0.2, 0.2}})
	nir := sampleOf(t, [][]float64{{0.5, 0.5}, {nan, 0.6}})

	result, err := fixedCalculator().Calculate(red, nir)
	require.NoError(t, err)

	assert.False(t, math.IsNaN(result.Values.At(0, 0)))
	assert.True(t, math.IsNaN(result.Values.At(0, 1)))
	assert.True(t, math.IsNaN(result.Values.At(1, 0)))
	assert.False(t, math.IsNaN(result.Values.At(1, 1)))
	assert.Equal(t, 2, result.ValidPixels)
}

func TestCalculateClipsAnomalies(t *testing.T) {
	// negative reflectance pushes the ratio outside [-1, 1]
	red := sampleOf(t, [][]float64{{-0.1, 0.3}})
	nir := sampleOf(t, [][]float64{{0.3, -0.1}})

	result, err := fixedCalculator().Calculate(red, nir)
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.Values.At(0, 0))
	assert.Equal(t, -1.0, result.Values.At(0, 1))
}

func TestCalculateValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		red     band.Sample
		nir     band.Sample
		wantErr error
	}{
		{
			name:    "shape mismatch",
			red:     band.NewSample(raster.Filled(4, 4, 0.1), 1, 0, nil),
			nir:     band.NewSample(raster.Filled(3, 3, 0.5), 1, 0, nil),
			wantErr: ErrShapeMismatch,
		},
		{
			name:    "empty bands",
			red:     band.NewSample(raster.NewGrid(0, 0), 1, 0, nil),
			nir:     band.NewSample(raster.NewGrid(0, 0), 1, 0, nil),
			wantErr: ErrEmptyInput,
		},
		{
			name:    "values disagree with declared shape",
			red:     band.NewSample(raster.Grid{Rows: 2, Cols: 2, Values: []float64{1}}, 1, 0, nil),
			nir:     band.NewSample(raster.Filled(2, 2, 0.5), 1, 0, nil),
			wantErr: ErrShapeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := fixedCalculator().Calculate(tt.red, tt.nir)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, result)
		})
	}
}

func TestCalculateAllNaN(t *testing.T) {
	red := band.NewSample(raster.Filled(5, 5, math.NaN()), 1, 0, nil)
	nir := band.NewSample(raster.Filled(5, 5, math.NaN()), 1, 0, nil)

	result, err := fixedCalculator().Calculate(red, nir, WithThreshold(-1))
	require.NoError(t, err)

	assert.Equal(t, 0, result.ValidPixels)
	assert.Equal(t, 25, result.TotalPixels)
	assert.Equal(t, 0.0, result.Mean)
	assert.Equal(t, 0.0, result.Min)
	assert.Equal(t, 0.0, result.Max)
	assert.Equal(t, 0.0, result.Std)
	assert.Equal(t, 0.0, result.ValidPercentage)
	assert.False(t, result.ThresholdPassed)
}

func TestCalculateThresholdBoundaryIsInclusive(t *testing.T) {
	// every pixel is (0.75-0.25)/(0.75+0.25) = 0.5 exactly
	red := band.NewSample(raster.Filled(3, 3, 0.25), 1, 0, nil)
	nir := band.NewSample(raster.Filled(3, 3, 0.75), 1, 0, nil)

	c := fixedCalculator()

	result, err := c.Calculate(red, nir, WithThreshold(0.5))
	require.NoError(t, err)
	assert.Equal(t, 0.5, result.Mean)
	assert.True(t, result.ThresholdPassed)
	assert.Equal(t, 0.5, result.ThresholdValue)

	result, err = c.Calculate(red, nir)
	require.NoError(t, err)
	assert.False(t, result.ThresholdPassed)
	assert.Equal(t, DefaultThreshold, result.ThresholdValue)
}

func TestCalculateAppliesBandMetadata(t *testing.T) {
	nodata := 0.0
	redRaw, err := raster.FromRows([][]float64{{0, 1000}, {1000, 1000}})
	require.NoError(t, err)
	nirRaw, err := raster.FromRows([][]float64{{0, 5000}, {5000, 5000}})
	require.NoError(t, err)
	mask, err := raster.MaskFromRows([][]bool{{false, false}, {false, true}})
	require.NoError(t, err)

	red := band.NewSample(redRaw, 0.0001, 0, &nodata).WithCloudMask(mask)
	nir := band.NewSample(nirRaw, 0.0001, 0, &nodata).WithCloudMask(mask)

	result, err := fixedCalculator().Calculate(red, nir)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ValidPixels)
	assert.InDelta(t, 0.6666667, result.Mean, 1e-6)
	require.NotNil(t, result.Metadata.Red.NoData)
	assert.True(t, result.Metadata.NIR.CloudMasked)
}

func TestCalculateIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	redRaw := raster.NewGrid(16, 16)
	nirRaw := raster.NewGrid(16, 16)
	for i := range redRaw.Values {
		redRaw.Values[i] = rng.Float64()
		nirRaw.Values[i] = rng.Float64()
	}
	red := band.NewSample(redRaw, 1, 0, nil)
	nir := band.NewSample(nirRaw, 1, 0, nil)

	c := fixedCalculator()
	first, err := c.Calculate(red, nir)
	require.NoError(t, err)
	second, err := c.Calculate(red, nir)
	require.NoError(t, err)

	require.Equal(t, len(first.Values.Values), len(second.Values.Values))
	for i := range first.Values.Values {
		assert.Equal(t, math.Float64bits(first.Values.Values[i]), math.Float64bits(second.Values.Values[i]))
	}
}

func TestComputeRangeInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	red := raster.NewGrid(50, 50)
	nir := raster.NewGrid(50, 50)
	for i := range red.Values {
		red.Values[i] = rng.NormFloat64()
		nir.Values[i] = rng.NormFloat64()
	}

	out := Compute(red, nir)
	for _, v := range out.Values {
		if math.IsNaN(v) {
			continue
		}
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

// The denominator rule and the per-band rule overlap but are not identical:
// two same-signed bands just under epsilon sum past it. Either rule firing
// must yield NaN.
func TestDegenerateRules(t *testing.T) {
	small := []float64{0, 1e-12, -1e-12, 5e-11, -5e-11, 9.9e-11, 0.3}
	var red, nir []float64
	for _, r := range small {
		for _, n := range small {
			red = append(red, r)
			nir = append(nir, n)
		}
	}
	out := Compute(
		raster.Grid{Rows: 1, Cols: len(red), Values: red},
		raster.Grid{Rows: 1, Cols: len(nir), Values: nir},
	)

	disagreements := 0
	for i, v := range out.Values {
		r, n := red[i], nir[i]
		byDenominator := math.Abs(r+n) <= Epsilon
		byBands := math.Abs(r) < Epsilon && math.Abs(n) < Epsilon
		if byDenominator != byBands {
			disagreements++
		}
		if byDenominator || byBands {
			assert.True(t, math.IsNaN(v), "red=%g nir=%g", r, n)
		} else {
			assert.False(t, math.IsNaN(v), "red=%g nir=%g", r, n)
		}
	}
	assert.Positive(t, disagreements)
}
