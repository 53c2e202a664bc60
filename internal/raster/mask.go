package raster

import (
	"encoding/json"
	"fmt"
)

// Mask is a row-major boolean raster, true meaning the pixel is obscured.
type Mask struct {
	Rows   int
	Cols   int
	Values []bool
}

func NewMask(rows, cols int) Mask {
	return Mask{Rows: rows, Cols: cols, Values: make([]bool, rows*cols)}
}

func MaskFromRows(rows [][]bool) (Mask, error) {
	if len(rows) == 0 {
		return Mask{}, nil
	}
	cols := len(rows[0])
	m := NewMask(len(rows), cols)
	for r, row := range rows {
		if len(row) != cols {
			return Mask{}, fmt.Errorf("row %d has %d values, expected %d: %w", r, len(row), cols, ErrRaggedRows)
		}
		copy(m.Values[r*cols:(r+1)*cols], row)
	}
	return m, nil
}

func (m Mask) At(r, c int) bool {
	return m.Values[r*m.Cols+c]
}

func (m Mask) Set(r, c int, v bool) {
	m.Values[r*m.Cols+c] = v
}

func (m Mask) Shape() [2]int {
	return [2]int{m.Rows, m.Cols}
}

// Resize returns the mask sampled onto a rows x cols grid using nearest
// neighbour lookup.
func (m Mask) Resize(rows, cols int) Mask {
	out := NewMask(rows, cols)
	if m.Rows == 0 || m.Cols == 0 {
		return out
	}
	for r := 0; r < rows; r++ {
		sr := nearestIndex(r, rows, m.Rows)
		for c := 0; c < cols; c++ {
			out.Set(r, c, m.At(sr, nearestIndex(c, cols, m.Cols)))
		}
	}
	return out
}

func nearestIndex(i, dstLen, srcLen int) int {
	if dstLen <= 1 {
		return 0
	}
	// align corners, matching zoom(order=0)
	pos := float64(i) * float64(srcLen-1) / float64(dstLen-1)
	idx := int(pos + 0.5)
	if idx >= srcLen {
		idx = srcLen - 1
	}
	return idx
}

func (m Mask) MarshalJSON() ([]byte, error) {
	rows := make([][]bool, m.Rows)
	for r := range rows {
		rows[r] = m.Values[r*m.Cols : (r+1)*m.Cols]
	}
	return json.Marshal(rows)
}

// IntGrid holds integer labels per pixel, e.g. class indices or zone ids.
type IntGrid struct {
	Rows   int
	Cols   int
	Values []int
}

func NewIntGrid(rows, cols int, fill int) IntGrid {
	g := IntGrid{Rows: rows, Cols: cols, Values: make([]int, rows*cols)}
	if fill != 0 {
		for i := range g.Values {
			g.Values[i] = fill
		}
	}
	return g
}

func IntGridFromRows(rows [][]int) (IntGrid, error) {
	if len(rows) == 0 {
		return IntGrid{}, nil
	}
	cols := len(rows[0])
	g := NewIntGrid(len(rows), cols, 0)
	for r, row := range rows {
		if len(row) != cols {
			return IntGrid{}, fmt.Errorf("row %d has %d values, expected %d: %w", r, len(row), cols, ErrRaggedRows)
		}
		copy(g.Values[r*cols:(r+1)*cols], row)
	}
	return g, nil
}

func (g IntGrid) At(r, c int) int {
	return g.Values[r*g.Cols+c]
}

func (g IntGrid) Set(r, c int, v int) {
	g.Values[r*g.Cols+c] = v
}

func (g IntGrid) Shape() [2]int {
	return [2]int{g.Rows, g.Cols}
}

func (g IntGrid) MarshalJSON() ([]byte, error) {
	rows := make([][]int, g.Rows)
	for r := range rows {
		rows[r] = g.Values[r*g.Cols : (r+1)*g.Cols]
	}
	return json.Marshal(rows)
}
