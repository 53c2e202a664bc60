package raster

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRows(t *testing.T) {
	t.Run("copies values row-major", func(t *testing.T) {
		g, err := FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
		require.NoError(t, err)
		assert.Equal(t, [2]int{2, 3}, g.Shape())
		assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, g.Values)
		assert.Equal(t, 6.0, g.At(1, 2))
	})

	t.Run("rejects ragged rows", func(t *testing.T) {
		_, err := FromRows([][]float64{{1, 2}, {3}})
		assert.ErrorIs(t, err, ErrRaggedRows)
	})

	t.Run("empty input gives empty grid", func(t *testing.T) {
		g, err := FromRows(nil)
		require.NoError(t, err)
		assert.True(t, g.Empty())
	})
}

func TestGridValidValues(t *testing.T) {
	g, err := FromRows([][]float64{{1, math.NaN()}, {math.NaN(), 4}})
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 4}, g.ValidValues())
	assert.Equal(t, 2, g.ValidCount())
}

func TestGridCloneIsIndependent(t *testing.T) {
	g := Filled(2, 2, 0.5)
	c := g.Clone()
	c.Set(0, 0, -1)

	assert.Equal(t, 0.5, g.At(0, 0))
	assert.Equal(t, -1.0, c.At(0, 0))
}

func TestGridJSONRoundTripKeepsNaN(t *testing.T) {
	g, err := FromRows([][]float64{{0.25, math.NaN()}, {-1, 1}})
	require.NoError(t, err)

	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `[[0.25,null],[-1,1]]`, string(data))

	var back Grid
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, g.Shape(), back.Shape())
	assert.True(t, math.IsNaN(back.At(0, 1)))
	assert.Equal(t, 0.25, back.At(0, 0))
}

func TestMaskResizeNearest(t *testing.T) {
	m, err := MaskFromRows([][]bool{{true, false}, {false, true}})
	require.NoError(t, err)

	r := m.Resize(4, 4)
	assert.Equal(t, [2]int{4, 4}, r.Shape())
	assert.True(t, r.At(0, 0))
	assert.False(t, r.At(0, 3))
	assert.False(t, r.At(3, 0))
	assert.True(t, r.At(3, 3))
}

func TestIntGridJSON(t *testing.T) {
	g := NewIntGrid(2, 2, -1)
	g.Set(1, 1, 3)

	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `[[-1,-1],[-1,3]]`, string(data))
}
