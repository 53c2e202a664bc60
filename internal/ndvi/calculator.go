package ndvi

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/verigreen-hackathon/verigreen/internal/band"
	"github.com/verigreen-hackathon/verigreen/internal/raster"
)

const (
	DefaultThreshold = 0.65

	// Epsilon is the smallest denominator (and per-band magnitude) treated as non-zero.
	Epsilon = 1e-10

	MethodStandard = "standard_ndvi_formula"
)

type Metadata struct {
	Red    band.Info   `json:"red_band_info"`
	NIR    band.Info   `json:"nir_band_info"`
	Method string      `json:"calculation_method"`
	Georef band.Georef `json:"georef"`
}

// Result is one NDVI computation. Summary scalars only consider non-NaN pixels.
type Result struct {
	Values          raster.Grid `json:"ndvi_array"`
	TileID          string      `json:"tile_id,omitempty"`
	Mean            float64     `json:"mean_ndvi"`
	Min             float64     `json:"min_ndvi"`
	Max             float64     `json:"max_ndvi"`
	Std             float64     `json:"std_ndvi"`
	ValidPixels     int         `json:"valid_pixel_count"`
	TotalPixels     int         `json:"total_pixel_count"`
	ValidPercentage float64     `json:"valid_pixel_percentage"`
	ThresholdPassed bool        `json:"threshold_passed"`
	ThresholdValue  float64     `json:"threshold_value"`
	ProcessedAt     time.Time   `json:"processed_at"`
	Metadata        Metadata    `json:"metadata"`
}

type Calculator struct {
	DefaultThreshold float64
	Now              func() time.Time
}

func NewCalculator(defaultThreshold float64) *Calculator {
	return &Calculator{DefaultThreshold: defaultThreshold, Now: time.Now}
}

type options struct {
	threshold *float64
	tileID    string
}

type Option func(*options)

func WithThreshold(v float64) Option {
	return func(o *options) { o.threshold = &v }
}

func WithTileID(id string) Option {
	return func(o *options) { o.tileID = id }
}

// Calculate computes (NIR - RED) / (NIR + RED) over the usable values of
// both bands and summarises the result.
func (c *Calculator) Calculate(red, nir band.Sample, opts ...Option) (*Result, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	threshold := c.DefaultThreshold
	if o.threshold != nil {
		threshold = *o.threshold
	}

	tileLog := log.With().Str("tile_id", tileLabel(o.tileID)).Logger()
	tileLog.Info().Msg("calculating NDVI")

	redData := red.Usable()
	nirData := nir.Usable()
	if err := validate(redData, nirData); err != nil {
		return nil, err
	}
	warnQuality("RED", redData)
	warnQuality("NIR", nirData)

	values := Compute(redData, nirData)

	result := &Result{
		Values:         values,
		TileID:         o.tileID,
		ThresholdValue: threshold,
		ProcessedAt:    c.now(),
		Metadata: Metadata{
			Red:    red.Info(),
			NIR:    nir.Info(),
			Method: MethodStandard,
			Georef: red.Georef,
		},
	}
	summarize(result)

	tileLog.Info().
		Float64("mean", result.Mean).
		Int("valid_pixels", result.ValidPixels).
		Int("total_pixels", result.TotalPixels).
		Str("valid_percentage", fmt.Sprintf("%.1f", result.ValidPercentage)).
		Msg("NDVI calculation complete")

	return result, nil
}

func (c *Calculator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func tileLabel(id string) string {
	if id == "" {
		return "unknown"
	}
	return id
}

func validate(red, nir raster.Grid) error {
	if len(red.Values) != red.Len() || len(nir.Values) != nir.Len() {
		return fmt.Errorf("grid values don't match declared shape: %w", ErrShapeMismatch)
	}
	if !red.SameShape(nir) {
		return fmt.Errorf("RED %v vs NIR %v: %w", red.Shape(), nir.Shape(), ErrShapeMismatch)
	}
	if red.Empty() || nir.Empty() {
		return ErrEmptyInput
	}
	return nil
}

func warnQuality(name string, g raster.Grid) {
	valid := g.ValidValues()
	if len(valid) == 0 {
		log.Warn().Str("band", name).Msg("band contains only NaN values")
		return
	}
	if floats.Min(valid) < 0 {
		log.Warn().Str("band", name).Msg("band contains negative values, which may indicate data quality issues")
	}
}

// Compute is the per-pixel NDVI formula. Near-zero denominators and pixels
// where both bands are near zero yield NaN; everything else is clipped to
// [-1, 1]. NaN inputs propagate.
func Compute(red, nir raster.Grid) raster.Grid {
	out := raster.NewGrid(red.Rows, red.Cols)
	zeroDenominators := 0
	for i := range out.Values {
		r, n := red.Values[i], nir.Values[i]
		numerator := n - r
		denominator := n + r

		v := math.NaN()
		if math.Abs(denominator) > Epsilon {
			v = numerator / denominator
		} else if !math.IsNaN(denominator) {
			zeroDenominators++
		}
		if math.Abs(r) < Epsilon && math.Abs(n) < Epsilon {
			v = math.NaN()
		}
		out.Values[i] = clip(v, -1, 1)
	}
	log.Debug().
		Int("valid_pixels", out.ValidCount()).
		Int("zero_denominators", zeroDenominators).
		Msg("computed NDVI formula")
	return out
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func summarize(r *Result) {
	valid := r.Values.ValidValues()
	r.TotalPixels = r.Values.Len()
	r.ValidPixels = len(valid)
	if r.TotalPixels > 0 {
		r.ValidPercentage = float64(r.ValidPixels) / float64(r.TotalPixels) * 100
	}
	if len(valid) == 0 {
		r.Mean, r.Min, r.Max, r.Std = 0, 0, 0, 0
		r.ThresholdPassed = false
		return
	}
	r.Mean, r.Std = stat.PopMeanStdDev(valid, nil)
	r.Min = floats.Min(valid)
	r.Max = floats.Max(valid)
	r.ThresholdPassed = r.Mean >= r.ThresholdValue
}
