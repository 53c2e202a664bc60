package band

import (
	"math"

	"github.com/verigreen-hackathon/verigreen/internal/raster"
)

// Georef is the geospatial metadata GDAL reports for a band's dataset.
type Georef struct {
	Transform    [6]float64 `json:"transform"`
	HasTransform bool       `json:"has_transform"`
	SpatialRef   string     `json:"spatial_ref,omitempty"`
}

// Sample is one band reading plus the metadata needed to turn it into
// reflectance. Raw values are never modified after construction.
type Sample struct {
	Raw         raster.Grid
	ScaleFactor float64
	Offset      float64
	NoData      *float64
	CloudMask   *raster.Mask
	Georef      Georef
}

func NewSample(raw raster.Grid, scaleFactor, offset float64, nodata *float64) Sample {
	return Sample{
		Raw:         raw,
		ScaleFactor: scaleFactor,
		Offset:      offset,
		NoData:      nodata,
	}
}

// WithCloudMask returns a copy of the sample with the mask attached.
func (s Sample) WithCloudMask(mask raster.Mask) Sample {
	s.CloudMask = &mask
	return s
}

// Usable applies scale and offset, replacing nodata and cloudy pixels with NaN.
func (s Sample) Usable() raster.Grid {
	out := raster.NewGrid(s.Raw.Rows, s.Raw.Cols)
	hasMask := s.CloudMask != nil && len(s.CloudMask.Values) == len(s.Raw.Values)
	for i, v := range s.Raw.Values {
		if s.NoData != nil && v == *s.NoData {
			out.Values[i] = math.NaN()
			continue
		}
		if hasMask && s.CloudMask.Values[i] {
			out.Values[i] = math.NaN()
			continue
		}
		out.Values[i] = v*s.ScaleFactor + s.Offset
	}
	return out
}

// Info summarises the sample for result metadata.
func (s Sample) Info() Info {
	return Info{
		Shape:       s.Raw.Shape(),
		ScaleFactor: s.ScaleFactor,
		Offset:      s.Offset,
		NoData:      s.NoData,
		CloudMasked: s.CloudMask != nil,
	}
}

type Info struct {
	Shape       [2]int   `json:"shape"`
	ScaleFactor float64  `json:"scale_factor"`
	Offset      float64  `json:"offset"`
	NoData      *float64 `json:"nodata_value"`
	CloudMasked bool     `json:"cloud_masked"`
}
