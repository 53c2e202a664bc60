package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Percentile returns the p-th percentile (0-100) of an ascending slice,
// interpolating linearly between the two closest ranks at (n-1)*p/100.
// It returns NaN for an empty slice.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	p = math.Max(0, math.Min(100, p))
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Median of an ascending slice.
func Median(sorted []float64) float64 {
	return Percentile(sorted, 50)
}

// Skewness is the population skewness, the mean of the standardised cubes.
// It is 0 for fewer than 3 values or a constant sample.
func Skewness(values []float64) float64 {
	if len(values) < 3 {
		return 0
	}
	_, variance := stat.PopMeanVariance(values, nil)
	std := stdFromVariance(variance)
	if std == 0 {
		return 0
	}
	return stat.Moment(3, values, nil) / math.Pow(std, 3)
}

// Kurtosis is the population excess kurtosis. It is 0 for fewer than 4
// values or a constant sample.
func Kurtosis(values []float64) float64 {
	if len(values) < 4 {
		return 0
	}
	_, variance := stat.PopMeanVariance(values, nil)
	std := stdFromVariance(variance)
	if std == 0 {
		return 0
	}
	return stat.Moment(4, values, nil)/math.Pow(std, 4) - 3
}

func stdFromVariance(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}
