package band

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verigreen-hackathon/verigreen/internal/raster"
)

func ptr(v float64) *float64 { return &v }

func TestSampleUsable(t *testing.T) {
	raw, err := raster.FromRows([][]float64{{0, 1000}, {2000, 3000}})
	require.NoError(t, err)

	tests := []struct {
		name   string
		sample Sample
		want   [][]float64
	}{
		{
			name:   "scale and offset",
			sample: NewSample(raw, 0.0001, 0.1, nil),
			want:   [][]float64{{0.1, 0.2}, {0.3, 0.4}},
		},
		{
			name:   "nodata becomes NaN",
			sample: NewSample(raw, 0.0001, 0, ptr(0)),
			want:   [][]float64{{math.NaN(), 0.1}, {0.2, 0.3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.sample.Usable()
			require.Equal(t, raw.Shape(), got.Shape())
			for r, row := range tt.want {
				for c, want := range row {
					if math.IsNaN(want) {
						assert.True(t, math.IsNaN(got.At(r, c)), "pixel (%d,%d)", r, c)
						continue
					}
					assert.InDelta(t, want, got.At(r, c), 1e-12, "pixel (%d,%d)", r, c)
				}
			}
		})
	}
}

func TestSampleCloudMask(t *testing.T) {
	raw, err := raster.FromRows([][]float64{{100, 200}, {300, 400}})
	require.NoError(t, err)
	mask, err := raster.MaskFromRows([][]bool{{true, false}, {false, true}})
	require.NoError(t, err)

	plain := NewSample(raw, 0.0001, 0, nil)
	masked := plain.WithCloudMask(mask)

	got := masked.Usable()
	assert.True(t, math.IsNaN(got.At(0, 0)))
	assert.InDelta(t, 0.02, got.At(0, 1), 1e-12)
	assert.InDelta(t, 0.03, got.At(1, 0), 1e-12)
	assert.True(t, math.IsNaN(got.At(1, 1)))

	assert.Nil(t, plain.CloudMask, "attaching a mask must not touch the original")
	assert.Equal(t, 100.0, masked.Raw.At(0, 0), "raw values are never rewritten")
}

func TestSampleNoDataAndMaskBothApply(t *testing.T) {
	raw, err := raster.FromRows([][]float64{{0, 5}, {5, 5}})
	require.NoError(t, err)
	mask, err := raster.MaskFromRows([][]bool{{false, true}, {false, false}})
	require.NoError(t, err)

	got := NewSample(raw, 1, 0, ptr(0)).WithCloudMask(mask).Usable()

	assert.True(t, math.IsNaN(got.At(0, 0)))
	assert.True(t, math.IsNaN(got.At(0, 1)))
	assert.Equal(t, 5.0, got.At(1, 0))
	assert.Equal(t, 2, got.ValidCount())
}
