package stats

import (
	"sort"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/verigreen-hackathon/verigreen/internal/raster"
)

// DefaultPercentiles returns the percentiles reported when none are requested.
func DefaultPercentiles() []int {
	return []int{1, 5, 10, 25, 50, 75, 90, 95, 99}
}

// Summary describes the distribution of the valid pixels of a grid. The
// optional fields are nil unless the matching option was given.
type Summary struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Std      float64 `json:"std"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min_value"`
	Max      float64 `json:"max_value"`
	Range    float64 `json:"range_value"`

	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`

	Percentiles map[int]float64    `json:"percentiles"`
	Quartiles   map[string]float64 `json:"quartiles"`

	TotalPixels     int     `json:"total_pixels"`
	ValidPixels     int     `json:"valid_pixels"`
	InvalidPixels   int     `json:"invalid_pixels"`
	ValidPercentage float64 `json:"valid_percentage"`

	Histogram Histogram `json:"histogram"`

	SpatialAutocorrelation *float64 `json:"spatial_autocorrelation,omitempty"`
	SpatialVariability     *float64 `json:"spatial_variability,omitempty"`

	AboveThresholdCount      *int     `json:"above_threshold_count,omitempty"`
	AboveThresholdPercentage *float64 `json:"above_threshold_percentage,omitempty"`
	ThresholdValue           *float64 `json:"threshold_value,omitempty"`
}

type options struct {
	threshold   *float64
	percentiles []int
	spatial     bool
}

type Option func(*options)

// WithThreshold adds the count and share of valid pixels >= v.
func WithThreshold(v float64) Option {
	return func(o *options) { o.threshold = &v }
}

func WithPercentiles(ps ...int) Option {
	return func(o *options) { o.percentiles = append([]int(nil), ps...) }
}

// WithSpatial adds spatial autocorrelation and variability.
func WithSpatial() Option {
	return func(o *options) { o.spatial = true }
}

// Comprehensive summarises the non-NaN pixels of values. A grid without valid
// pixels gives a zeroed summary rather than an error.
func Comprehensive(values raster.Grid, opts ...Option) Summary {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.percentiles == nil {
		o.percentiles = DefaultPercentiles()
	}

	shape := values.Shape()
	log.Debug().Ints("shape", shape[:]).Msg("calculating comprehensive statistics")

	valid := values.ValidValues()
	total := values.Len()
	if len(valid) == 0 {
		log.Warn().Int("total_pixels", total).Msg("no valid pixels found in NDVI array")
		return empty(total)
	}

	sorted := append([]float64(nil), valid...)
	sort.Float64s(sorted)

	s := Summary{
		TotalPixels:     total,
		ValidPixels:     len(valid),
		InvalidPixels:   total - len(valid),
		ValidPercentage: float64(len(valid)) / float64(total) * 100,
	}

	s.Mean, s.Variance = stat.PopMeanVariance(valid, nil)
	s.Std = stdFromVariance(s.Variance)
	s.Median = Percentile(sorted, 50)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Range = s.Max - s.Min
	s.Skewness = Skewness(valid)
	s.Kurtosis = Kurtosis(valid)

	s.Percentiles = make(map[int]float64, len(o.percentiles))
	for _, p := range o.percentiles {
		s.Percentiles[p] = Percentile(sorted, float64(p))
	}
	q1, q3 := Percentile(sorted, 25), Percentile(sorted, 75)
	s.Quartiles = map[string]float64{
		"Q1":  q1,
		"Q2":  s.Median,
		"Q3":  q3,
		"IQR": q3 - q1,
	}

	s.Histogram = safeHistogram(sorted)

	if o.threshold != nil {
		threshold := *o.threshold
		above := countAtLeast(valid, threshold)
		pct := float64(above) / float64(len(valid)) * 100
		s.AboveThresholdCount = &above
		s.AboveThresholdPercentage = &pct
		s.ThresholdValue = &threshold
	}

	if o.spatial {
		autocorr := SpatialAutocorrelation(values)
		variability, err := SpatialVariability(values)
		if err != nil {
			log.Warn().Err(err).Msg("failed to calculate spatial variability")
			variability = 0
		}
		s.SpatialAutocorrelation = &autocorr
		s.SpatialVariability = &variability
	}

	return s
}

func empty(total int) Summary {
	return Summary{
		Percentiles:   map[int]float64{},
		Quartiles:     map[string]float64{},
		TotalPixels:   total,
		InvalidPixels: total,
		Histogram:     emptyHistogram(),
	}
}

func countAtLeast(values []float64, threshold float64) int {
	n := 0
	for _, v := range values {
		if v >= threshold {
			n++
		}
	}
	return n
}

// Mean of the valid pixels, 0 when there are none.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Sum(values) / float64(len(values))
}
