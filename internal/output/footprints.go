package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/rs/zerolog/log"
)

// Footprint is the outline of a tile in its own coordinate reference system,
// derived from the GDAL geotransform. The ring is counterclockwise for
// north-up rasters.
func Footprint(report TileReport) orb.Polygon {
	corner := func(col, row float64) orb.Point {
		gt := report.Transform
		return orb.Point{
			gt[0] + col*gt[1] + row*gt[2],
			gt[3] + col*gt[4] + row*gt[5],
		}
	}
	w, h := float64(report.Width), float64(report.Height)
	return orb.Polygon{orb.Ring{
		corner(0, 0),
		corner(0, h),
		corner(w, h),
		corner(w, 0),
		corner(0, 0),
	}}
}

// FootprintFeatureCollection has one polygon per georeferenced tile. Tiles
// without a geotransform are left out.
func FootprintFeatureCollection(reports []TileReport) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, report := range reports {
		if !report.HasTransform {
			log.Debug().Str("tile_id", report.TileID).Msg("tile has no geotransform, skipping footprint")
			continue
		}
		polygon := Footprint(report)
		feature := geojson.NewFeature(polygon)
		feature.Properties["tile_id"] = report.TileID
		feature.Properties["mean_ndvi"] = report.MeanNDVI
		feature.Properties["threshold_passed"] = report.ThresholdPassed
		feature.Properties["dominant_class"] = report.DominantClass
		if centroid, area := planar.CentroidArea(polygon); area > 0 {
			feature.Properties["centroid"] = []float64{centroid.X(), centroid.Y()}
			feature.Properties["area"] = area
		}
		fc.Append(feature)
	}
	return fc
}

func WriteGeoJSON(path string, fc *geojson.FeatureCollection) error {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write GeoJSON: %w", err)
	}
	return nil
}
