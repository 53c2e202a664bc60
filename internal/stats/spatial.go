package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/verigreen-hackathon/verigreen/internal/raster"
)

// minAutocorrelationPixels is the fewest valid pixels worth correlating.
const minAutocorrelationPixels = 10

var ErrGridTooSmall = errors.New("grid needs at least 2 rows and 2 columns")

// SpatialAutocorrelation is a simplified Moran's I. Every valid interior pixel
// is paired with its valid 4-connected neighbours and the mean cross-product
// of their deviations is scaled by the grid variance. The result is clipped
// to [-1, 1] and is 0 when there is too little data to pair.
func SpatialAutocorrelation(g raster.Grid) float64 {
	valid := g.ValidValues()
	// a constant grid has no autocorrelation, whatever rounding leaves in the mean
	if len(valid) < minAutocorrelationPixels || floats.Min(valid) == floats.Max(valid) {
		return 0
	}
	mean, variance := stat.PopMeanVariance(valid, nil)

	var (
		sum   float64
		pairs int
	)
	for r := 1; r < g.Rows-1; r++ {
		for c := 1; c < g.Cols-1; c++ {
			center := g.At(r, c)
			if math.IsNaN(center) {
				continue
			}
			dc := center - mean
			for _, n := range [4][2]int{{r - 1, c}, {r + 1, c}, {r, c - 1}, {r, c + 1}} {
				neighbour := g.At(n[0], n[1])
				if math.IsNaN(neighbour) {
					continue
				}
				sum += dc * (neighbour - mean)
				pairs++
			}
		}
	}
	if pairs == 0 || variance <= 0 {
		return 0
	}

	autocorr := sum / float64(pairs) / variance
	return math.Max(-1, math.Min(1, autocorr))
}

// SpatialVariability is the coefficient of variation of the gradient
// magnitude. Gradients use central differences inside the grid and one-sided
// differences on its border; NaN magnitudes are dropped.
func SpatialVariability(g raster.Grid) (float64, error) {
	if g.Rows < 2 || g.Cols < 2 {
		return 0, fmt.Errorf("shape %v: %w", g.Shape(), ErrGridTooSmall)
	}

	magnitudes := make([]float64, 0, g.Len())
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			gy := gradient(g.Rows, r, func(i int) float64 { return g.At(i, c) })
			gx := gradient(g.Cols, c, func(j int) float64 { return g.At(r, j) })
			m := math.Sqrt(gx*gx + gy*gy)
			if !math.IsNaN(m) {
				magnitudes = append(magnitudes, m)
			}
		}
	}
	if len(magnitudes) == 0 {
		return 0, nil
	}

	mean, variance := stat.PopMeanVariance(magnitudes, nil)
	if mean <= 0 {
		return 0, nil
	}
	return stdFromVariance(variance) / mean, nil
}

// gradient is the first difference of an axis of length n at index i.
func gradient(n, i int, at func(int) float64) float64 {
	switch i {
	case 0:
		return at(1) - at(0)
	case n - 1:
		return at(n-1) - at(n-2)
	default:
		return (at(i+1) - at(i-1)) / 2
	}
}
