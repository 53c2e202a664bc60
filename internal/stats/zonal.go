package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/verigreen-hackathon/verigreen/internal/raster"
)

// Bounds is a pixel bounding box, inclusive on both ends.
type Bounds struct {
	MinRow int `json:"min_row"`
	MinCol int `json:"min_col"`
	MaxRow int `json:"max_row"`
	MaxCol int `json:"max_col"`
}

type ZoneStatistics struct {
	ZoneID     int     `json:"zone_id"`
	AreaPixels int     `json:"zone_area_pixels"`
	Bounds     Bounds  `json:"zone_bounds"`
	Statistics Summary `json:"statistics"`
}

// Zonal summarises values separately for every zone label in zones. Negative
// labels are treated as outside any zone. Each zone is summarised over its
// bounding box with pixels of other zones masked out, so spatial options see
// the zone's own neighbourhood.
func Zonal(values raster.Grid, zones raster.IntGrid, opts ...Option) ([]ZoneStatistics, error) {
	if values.Shape() != zones.Shape() {
		return nil, fmt.Errorf("values %v vs zones %v: %w", values.Shape(), zones.Shape(), raster.ErrShapeMismatch)
	}

	bounds := map[int]*Bounds{}
	area := map[int]int{}
	for r := 0; r < zones.Rows; r++ {
		for c := 0; c < zones.Cols; c++ {
			id := zones.At(r, c)
			if id < 0 {
				continue
			}
			area[id]++
			b, ok := bounds[id]
			if !ok {
				bounds[id] = &Bounds{MinRow: r, MinCol: c, MaxRow: r, MaxCol: c}
				continue
			}
			b.MinRow = min(b.MinRow, r)
			b.MinCol = min(b.MinCol, c)
			b.MaxRow = max(b.MaxRow, r)
			b.MaxCol = max(b.MaxCol, c)
		}
	}

	ids := make([]int, 0, len(bounds))
	for id := range bounds {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]ZoneStatistics, 0, len(ids))
	for _, id := range ids {
		b := *bounds[id]
		crop := raster.NewGrid(b.MaxRow-b.MinRow+1, b.MaxCol-b.MinCol+1)
		for r := b.MinRow; r <= b.MaxRow; r++ {
			for c := b.MinCol; c <= b.MaxCol; c++ {
				v := math.NaN()
				if zones.At(r, c) == id {
					v = values.At(r, c)
				}
				crop.Set(r-b.MinRow, c-b.MinCol, v)
			}
		}

		s := Comprehensive(crop, opts...)
		s.TotalPixels = area[id]
		s.InvalidPixels = area[id] - s.ValidPixels
		s.ValidPercentage = float64(s.ValidPixels) / float64(area[id]) * 100

		out = append(out, ZoneStatistics{
			ZoneID:     id,
			AreaPixels: area[id],
			Bounds:     b,
			Statistics: s,
		})
	}
	return out, nil
}
