package ndvi

import (
	"errors"

	"github.com/verigreen-hackathon/verigreen/internal/band"
)

var (
	// ErrShapeMismatch means RED and NIR don't cover the same pixel grid. The
	// band loader returns the same value for mismatched files.
	ErrShapeMismatch = band.ErrShapeMismatch

	// ErrEmptyInput means a band has no pixels at all.
	ErrEmptyInput = errors.New("band data arrays are empty")

	// ErrNonNumericInput is raised by the band loader for rasters whose data
	// type is not real valued. It is the same value as band.ErrNonNumericInput
	// so errors.Is works on either.
	ErrNonNumericInput = band.ErrNonNumericInput
)
