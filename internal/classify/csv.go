package classify

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
)

// LoadThresholdsCSV reads definitions with the columns
// name,value,class,color,description,min_value,max_value. Every row must
// pass Validate; set level problems are left to ValidateThresholds.
func LoadThresholdsCSV(r io.Reader) ([]ThresholdDefinition, error) {
	var defs []ThresholdDefinition
	if err := gocsv.Unmarshal(r, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse thresholds CSV: %w", err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("thresholds CSV has no rows: %w", ErrNoThresholds)
	}

	var errs []error
	for i := range defs {
		if defs[i].Color == "" {
			defs[i].Color = "#FFFFFF"
		}
		if _, err := ParseVegetationClass(string(defs[i].Class)); err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i+1, err))
		}
		if err := defs[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i+1, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return defs, nil
}

func LoadThresholdsFile(path string) ([]ThresholdDefinition, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open thresholds file: %w", err)
	}
	defer file.Close()
	return LoadThresholdsCSV(file)
}
