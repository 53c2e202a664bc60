package stats

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Histogram struct {
	Counts     []int     `json:"counts"`
	BinEdges   []float64 `json:"bin_edges"`
	BinCenters []float64 `json:"bin_centers"`
	TotalCount int       `json:"total_count"`
	BinWidth   float64   `json:"bin_width"`
}

func emptyHistogram() Histogram {
	return Histogram{Counts: []int{}, BinEdges: []float64{}, BinCenters: []float64{}}
}

// safeHistogram never panics; a failed binning is logged and yields an empty
// histogram.
func safeHistogram(sorted []float64) (h Histogram) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("failed to calculate histogram")
			h = emptyHistogram()
		}
	}()
	h, err := HistogramAuto(sorted)
	if err != nil {
		log.Warn().Err(err).Msg("failed to calculate histogram")
		return emptyHistogram()
	}
	return h
}

// HistogramAuto bins an ascending slice of finite values into equal-width
// bins. The width is the smaller of the Freedman-Diaconis and Sturges
// estimates, or Sturges alone when the interquartile range is zero. The last
// bin includes its upper edge.
func HistogramAuto(sorted []float64) (Histogram, error) {
	n := len(sorted)
	if n == 0 {
		return emptyHistogram(), fmt.Errorf("no values to bin")
	}
	lo, hi := sorted[0], sorted[n-1]
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return emptyHistogram(), fmt.Errorf("range [%v, %v] is not finite", lo, hi)
	}

	width := autoBinWidth(sorted)
	first, last := lo, hi
	if first == last {
		first -= 0.5
		last += 0.5
	}

	bins := 1
	if width > 0 {
		bins = int(math.Ceil((last - first) / width))
		if bins < 1 {
			bins = 1
		}
	}

	edges := floats.Span(make([]float64, bins+1), first, last)

	// stat.Histogram bins half-open intervals, so nudge the outer divider to
	// keep the maximum in the last bin.
	dividers := append([]float64(nil), edges...)
	dividers[bins] = math.Nextafter(last, math.Inf(1))
	weighted := stat.Histogram(nil, dividers, sorted, nil)

	h := Histogram{
		Counts:     make([]int, bins),
		BinEdges:   edges,
		BinCenters: make([]float64, bins),
		TotalCount: n,
		BinWidth:   edges[1] - edges[0],
	}
	for i := range weighted {
		h.Counts[i] = int(weighted[i])
		h.BinCenters[i] = (edges[i] + edges[i+1]) / 2
	}
	return h, nil
}

func autoBinWidth(sorted []float64) float64 {
	n := float64(len(sorted))
	ptp := sorted[len(sorted)-1] - sorted[0]
	sturges := ptp / (math.Log2(n) + 1)

	iqr := Percentile(sorted, 75) - Percentile(sorted, 25)
	fd := 2 * iqr * math.Pow(n, -1.0/3)
	if fd > 0 {
		return math.Min(fd, sturges)
	}
	return sturges
}
