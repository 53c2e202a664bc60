package classify

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInvalidThreshold = errors.New("invalid threshold definition")
	ErrNoThresholds     = errors.New("no thresholds provided")
	ErrUnknownClass     = errors.New("unknown vegetation class")
	ErrUnknownMethod    = errors.New("unknown classification method")
)

// VegetationClass is an NDVI derived land cover category.
type VegetationClass string

const (
	Water               VegetationClass = "water"
	BareSoil            VegetationClass = "bare_soil"
	SparseVegetation    VegetationClass = "sparse_vegetation"
	ModerateVegetation  VegetationClass = "moderate_vegetation"
	DenseVegetation     VegetationClass = "dense_vegetation"
	VeryDenseVegetation VegetationClass = "very_dense_vegetation"
)

var classLabels = map[VegetationClass]string{
	Water:               "Water/Snow",
	BareSoil:            "Bare Soil",
	SparseVegetation:    "Sparse Vegetation",
	ModerateVegetation:  "Moderate Vegetation",
	DenseVegetation:     "Dense Vegetation",
	VeryDenseVegetation: "Very Dense Vegetation",
}

func ParseVegetationClass(s string) (VegetationClass, error) {
	c := VegetationClass(s)
	if _, ok := classLabels[c]; !ok {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownClass)
	}
	return c, nil
}

// Label is the display name of the class.
func (c VegetationClass) Label() string {
	if l, ok := classLabels[c]; ok {
		return l
	}
	return string(c)
}

// UnmarshalCSV lets gocsv reject unknown classes while decoding.
func (c *VegetationClass) UnmarshalCSV(s string) error {
	parsed, err := ParseVegetationClass(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ThresholdDefinition is one class band. The band is [MinValue, MaxValue),
// closed at the top for the band with the largest MaxValue of its set.
type ThresholdDefinition struct {
	Name        string          `json:"name" csv:"name"`
	Value       float64         `json:"value" csv:"value"`
	Class       VegetationClass `json:"vegetation_class" csv:"class"`
	Color       string          `json:"color" csv:"color"`
	Description string          `json:"description" csv:"description"`
	MinValue    float64         `json:"min_value" csv:"min_value"`
	MaxValue    float64         `json:"max_value" csv:"max_value"`
}

// NewThresholdDefinition builds and validates a definition. An empty color
// defaults to white.
func NewThresholdDefinition(name string, value float64, class VegetationClass, color, description string, minValue, maxValue float64) (ThresholdDefinition, error) {
	if color == "" {
		color = "#FFFFFF"
	}
	d := ThresholdDefinition{
		Name:        name,
		Value:       value,
		Class:       class,
		Color:       color,
		Description: description,
		MinValue:    minValue,
		MaxValue:    maxValue,
	}
	if err := d.Validate(); err != nil {
		return ThresholdDefinition{}, err
	}
	return d, nil
}

// Validate checks value, min and max lie in [-1, 1] and min < max.
func (d ThresholdDefinition) Validate() error {
	if !inNDVIRange(d.Value) {
		return fmt.Errorf("%s: threshold value %v must be between -1 and 1: %w", d.Name, d.Value, ErrInvalidThreshold)
	}
	if !inNDVIRange(d.MinValue) {
		return fmt.Errorf("%s: min value %v must be between -1 and 1: %w", d.Name, d.MinValue, ErrInvalidThreshold)
	}
	if !inNDVIRange(d.MaxValue) {
		return fmt.Errorf("%s: max value %v must be between -1 and 1: %w", d.Name, d.MaxValue, ErrInvalidThreshold)
	}
	if d.MinValue >= d.MaxValue {
		return fmt.Errorf("%s: min value %v must be less than max value %v: %w", d.Name, d.MinValue, d.MaxValue, ErrInvalidThreshold)
	}
	return nil
}

func inNDVIRange(v float64) bool {
	return v >= -1 && v <= 1
}

// DefaultThresholds returns a new copy of the six standard classes on every
// call.
func DefaultThresholds() []ThresholdDefinition {
	return []ThresholdDefinition{
		{
			Name:        "Water/Snow",
			Value:       -0.1,
			Class:       Water,
			Color:       "#0066CC",
			Description: "Water bodies, snow, ice, or built-up areas",
			MinValue:    -1.0,
			MaxValue:    0.1,
		},
		{
			Name:        "Bare Soil",
			Value:       0.1,
			Class:       BareSoil,
			Color:       "#8B4513",
			Description: "Bare soil, rocks, urban areas",
			MinValue:    0.1,
			MaxValue:    0.2,
		},
		{
			Name:        "Sparse Vegetation",
			Value:       0.2,
			Class:       SparseVegetation,
			Color:       "#FFD700",
			Description: "Sparse vegetation, grassland, crops in early growth",
			MinValue:    0.2,
			MaxValue:    0.4,
		},
		{
			Name:        "Moderate Vegetation",
			Value:       0.4,
			Class:       ModerateVegetation,
			Color:       "#9ACD32",
			Description: "Moderate vegetation density, healthy grassland",
			MinValue:    0.4,
			MaxValue:    0.65,
		},
		{
			Name:        "Dense Vegetation",
			Value:       0.65,
			Class:       DenseVegetation,
			Color:       "#228B22",
			Description: "Dense vegetation, healthy forests, crops at peak",
			MinValue:    0.65,
			MaxValue:    0.8,
		},
		{
			Name:        "Very Dense Vegetation",
			Value:       0.8,
			Class:       VeryDenseVegetation,
			Color:       "#006400",
			Description: "Very dense vegetation, tropical forests",
			MinValue:    0.8,
			MaxValue:    1.0,
		},
	}
}

func sortByMin(defs []ThresholdDefinition) []ThresholdDefinition {
	out := append([]ThresholdDefinition(nil), defs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MinValue < out[j].MinValue })
	return out
}

type Validation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidateThresholds checks a set for classification use. Overlaps and
// malformed definitions are errors; gaps and incomplete coverage of [-1, 1]
// are warnings.
func ValidateThresholds(defs []ThresholdDefinition) Validation {
	v := Validation{Valid: true, Errors: []string{}, Warnings: []string{}}
	if len(defs) == 0 {
		v.Valid = false
		v.Errors = append(v.Errors, ErrNoThresholds.Error())
		return v
	}

	sorted := sortByMin(defs)
	for _, d := range sorted {
		if err := d.Validate(); err != nil {
			v.Valid = false
			v.Errors = append(v.Errors, err.Error())
		}
	}

	for i := 0; i < len(sorted)-1; i++ {
		cur, next := sorted[i], sorted[i+1]
		if cur.MaxValue < next.MinValue {
			v.Warnings = append(v.Warnings, fmt.Sprintf("gap between %s (max: %v) and %s (min: %v)",
				cur.Name, cur.MaxValue, next.Name, next.MinValue))
		}
		if cur.MaxValue > next.MinValue {
			v.Valid = false
			v.Errors = append(v.Errors, fmt.Sprintf("overlap between %s and %s", cur.Name, next.Name))
		}
	}

	if first := sorted[0]; first.MinValue > -1 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("NDVI range not fully covered: starts at %v instead of -1.0", first.MinValue))
	}
	if last := sorted[len(sorted)-1]; last.MaxValue < 1 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("NDVI range not fully covered: ends at %v instead of 1.0", last.MaxValue))
	}
	return v
}
