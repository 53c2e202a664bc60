package band

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/verigreen-hackathon/verigreen/internal/raster"
)

// Sentinel2ScaleFactor converts Sentinel-2 L2A digital numbers to reflectance.
const Sentinel2ScaleFactor = 0.0001

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrInvalidBand       = errors.New("invalid band number")
	ErrNonNumericInput   = errors.New("band data must be numeric")
	ErrShapeMismatch     = errors.New("band shapes don't match")
)

var supportedFormats = map[string]bool{
	".tif":  true,
	".tiff": true,
	".jp2":  true,
	".hdf":  true,
	".h5":   true,
}

var registerOnce sync.Once

type LoadOptions struct {
	Band        int // 1-indexed, 0 means 1
	ScaleFactor float64
	Offset      float64
}

type Loader struct {
	ScaleFactor float64
}

func NewLoader(scaleFactor float64) *Loader {
	registerOnce.Do(godal.RegisterAll)
	if scaleFactor == 0 {
		scaleFactor = Sentinel2ScaleFactor
	}
	return &Loader{ScaleFactor: scaleFactor}
}

func openDataset(path string) (*godal.Dataset, error) {
	return godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			log.Debug().Str("path", path).Int("code", code).Msg(msg)
			return nil
		}
		return errors.New(msg)
	}))
}

func checkPath(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("band file not found: %s: %w", path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedFormats[ext] {
		return fmt.Errorf("%q: %w", ext, ErrUnsupportedFormat)
	}
	return nil
}

func isNumeric(dt godal.DataType) bool {
	switch dt {
	case godal.Unknown, godal.CInt16, godal.CInt32, godal.CFloat32, godal.CFloat64:
		return false
	}
	return true
}

func readBand(b godal.Band) (raster.Grid, error) {
	xSize := b.Structure().SizeX
	ySize := b.Structure().SizeY
	data := make([]float64, xSize*ySize)
	if err := b.Read(0, 0, data, xSize, ySize); err != nil {
		return raster.Grid{}, err
	}
	return raster.Grid{Rows: ySize, Cols: xSize, Values: data}, nil
}

func readGeoref(ds *godal.Dataset) Georef {
	var ref Georef
	if gt, err := ds.GeoTransform(); err == nil {
		ref.Transform = gt
		ref.HasTransform = true
	}
	sr := ds.SpatialRef()
	if sr != nil {
		if wkt, err := sr.WKT(); err == nil {
			ref.SpatialRef = wkt
		}
		sr.Close()
	}
	return ref
}

// Load reads a single band from a raster file. The dataset's nodata value
// and geotransform are carried onto the sample.
func (l *Loader) Load(path string, opts LoadOptions) (Sample, error) {
	if err := checkPath(path); err != nil {
		return Sample{}, err
	}
	bandNumber := opts.Band
	if bandNumber == 0 {
		bandNumber = 1
	}

	log.Info().Str("path", path).Int("band", bandNumber).Msg("loading band")

	ds, err := openDataset(path)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer ds.Close()

	bands := ds.Bands()
	if bandNumber < 1 || bandNumber > len(bands) {
		return Sample{}, fmt.Errorf("band %d, file has %d bands: %w", bandNumber, len(bands), ErrInvalidBand)
	}
	b := bands[bandNumber-1]
	if dt := b.Structure().DataType; !isNumeric(dt) {
		return Sample{}, fmt.Errorf("%s has data type %v: %w", path, dt, ErrNonNumericInput)
	}

	raw, err := readBand(b)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read band %d of %s: %w", bandNumber, path, err)
	}
	log.Debug().Int("rows", raw.Rows).Int("cols", raw.Cols).Msg("loaded band")

	var nodata *float64
	if nd, ok := b.NoData(); ok {
		nodata = &nd
	}

	scale := opts.ScaleFactor
	if scale == 0 {
		scale = 1
	}
	sample := NewSample(raw, scale, opts.Offset, nodata)
	sample.Georef = readGeoref(ds)
	return sample, nil
}

// LoadSentinel2Pair loads RED (B04) and NIR (B08) concurrently, checks they
// line up and attaches the optional cloud mask to both.
func (l *Loader) LoadSentinel2Pair(ctx context.Context, redPath, nirPath, cloudMaskPath string) (Sample, Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, Sample{}, err
	}

	var red, nir Sample
	g, gctx := errgroup.WithContext(ctx)
	load := func(path string, dst *Sample) func() error {
		return func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := l.Load(path, LoadOptions{ScaleFactor: l.ScaleFactor})
			if err != nil {
				return err
			}
			*dst = s
			return nil
		}
	}
	g.Go(load(redPath, &red))
	g.Go(load(nirPath, &nir))
	if err := g.Wait(); err != nil {
		return Sample{}, Sample{}, err
	}

	if err := checkCompatibility(red, nir); err != nil {
		return Sample{}, Sample{}, err
	}

	if cloudMaskPath != "" {
		if mask, ok := l.loadCloudMask(cloudMaskPath, red.Raw.Rows, red.Raw.Cols); ok {
			red = red.WithCloudMask(mask)
			nir = nir.WithCloudMask(mask)
		}
	}
	return red, nir, nil
}

func checkCompatibility(a, b Sample) error {
	if !a.Raw.SameShape(b.Raw) {
		return fmt.Errorf("%v vs %v: %w", a.Raw.Shape(), b.Raw.Shape(), ErrShapeMismatch)
	}
	if a.Georef.SpatialRef != b.Georef.SpatialRef {
		log.Warn().Msg("band spatial references don't match")
	}
	if a.Georef.HasTransform && b.Georef.HasTransform && !transformsClose(a.Georef.Transform, b.Georef.Transform) {
		log.Warn().
			Floats64("red_transform", a.Georef.Transform[:]).
			Floats64("nir_transform", b.Georef.Transform[:]).
			Msg("band transforms don't match exactly")
	}
	return nil
}

func transformsClose(a, b [6]float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-10*math.Abs(b[i]) {
			return false
		}
	}
	return true
}

// loadCloudMask reads band 1 of the mask file, any non-zero value meaning
// cloud. A mask that cannot be read is skipped rather than failing the pair.
func (l *Loader) loadCloudMask(path string, rows, cols int) (raster.Mask, bool) {
	ds, err := openDataset(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not load cloud mask")
		return raster.Mask{}, false
	}
	defer ds.Close()

	bands := ds.Bands()
	if len(bands) == 0 {
		log.Warn().Str("path", path).Msg("cloud mask has no bands")
		return raster.Mask{}, false
	}
	data, err := readBand(bands[0])
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not read cloud mask")
		return raster.Mask{}, false
	}

	mask := raster.NewMask(data.Rows, data.Cols)
	for i, v := range data.Values {
		mask.Values[i] = v != 0 && !math.IsNaN(v)
	}
	if mask.Rows != rows || mask.Cols != cols {
		log.Warn().
			Ints("mask_shape", []int{mask.Rows, mask.Cols}).
			Ints("band_shape", []int{rows, cols}).
			Msg("cloud mask shape doesn't match band shape, resizing")
		mask = mask.Resize(rows, cols)
	}
	return mask, true
}

// FileReport describes a raster file without loading its pixels.
type FileReport struct {
	Path     string        `json:"file_path"`
	Exists   bool          `json:"exists"`
	Valid    bool          `json:"is_valid"`
	Metadata *FileMetadata `json:"metadata,omitempty"`
	Errors   []string      `json:"errors"`
}

type FileMetadata struct {
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Count     int        `json:"count"`
	DataType  string     `json:"dtype"`
	CRS       string     `json:"crs,omitempty"`
	Transform [6]float64 `json:"transform"`
	NoData    *float64   `json:"nodata"`
}

func (l *Loader) Inspect(path string) FileReport {
	report := FileReport{Path: path, Errors: []string{}}
	if _, err := os.Stat(path); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("file does not exist: %s", path))
		return report
	}
	report.Exists = true

	ds, err := openDataset(path)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("error reading file: %v", err))
		return report
	}
	defer ds.Close()

	st := ds.Structure()
	ref := readGeoref(ds)
	meta := &FileMetadata{
		Width:     st.SizeX,
		Height:    st.SizeY,
		Count:     st.NBands,
		CRS:       ref.SpatialRef,
		Transform: ref.Transform,
	}
	if bands := ds.Bands(); len(bands) > 0 {
		meta.DataType = fmt.Sprintf("%v", bands[0].Structure().DataType)
		if nd, ok := bands[0].NoData(); ok {
			meta.NoData = &nd
		}
	}
	report.Metadata = meta
	report.Valid = true
	return report
}
