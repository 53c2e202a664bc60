package raster

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	ErrRaggedRows    = errors.New("rows have different lengths")
	ErrShapeMismatch = errors.New("grid shapes don't match")
)

// Grid is a row-major 2D float64 raster. NaN marks a pixel without a usable value.
type Grid struct {
	Rows   int
	Cols   int
	Values []float64
}

func NewGrid(rows, cols int) Grid {
	return Grid{Rows: rows, Cols: cols, Values: make([]float64, rows*cols)}
}

func Filled(rows, cols int, v float64) Grid {
	g := NewGrid(rows, cols)
	for i := range g.Values {
		g.Values[i] = v
	}
	return g
}

// FromRows copies a [][]float64 (the shape GDAL band reads are usually
// reshaped into) into a Grid.
func FromRows(rows [][]float64) (Grid, error) {
	if len(rows) == 0 {
		return Grid{}, nil
	}
	cols := len(rows[0])
	g := NewGrid(len(rows), cols)
	for r, row := range rows {
		if len(row) != cols {
			return Grid{}, fmt.Errorf("row %d has %d values, expected %d: %w", r, len(row), cols, ErrRaggedRows)
		}
		copy(g.Values[r*cols:(r+1)*cols], row)
	}
	return g, nil
}

func (g Grid) At(r, c int) float64 {
	return g.Values[r*g.Cols+c]
}

func (g Grid) Set(r, c int, v float64) {
	g.Values[r*g.Cols+c] = v
}

func (g Grid) Len() int {
	return g.Rows * g.Cols
}

func (g Grid) Empty() bool {
	return g.Len() == 0
}

func (g Grid) Shape() [2]int {
	return [2]int{g.Rows, g.Cols}
}

func (g Grid) SameShape(o Grid) bool {
	return g.Rows == o.Rows && g.Cols == o.Cols
}

func (g Grid) Clone() Grid {
	out := Grid{Rows: g.Rows, Cols: g.Cols, Values: make([]float64, len(g.Values))}
	copy(out.Values, g.Values)
	return out
}

// ValidValues returns the non-NaN values in row-major order.
func (g Grid) ValidValues() []float64 {
	valid := make([]float64, 0, len(g.Values))
	for _, v := range g.Values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	return valid
}

func (g Grid) ValidCount() int {
	n := 0
	for _, v := range g.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Row returns a view of row r.
func (g Grid) Row(r int) []float64 {
	return g.Values[r*g.Cols : (r+1)*g.Cols]
}

// MarshalJSON writes the grid as a 2D array. NaN is not representable in
// JSON, so missing pixels are written as null.
func (g Grid) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for r := 0; r < g.Rows; r++ {
		if r > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('[')
		for c := 0; c < g.Cols; c++ {
			if c > 0 {
				buf.WriteByte(',')
			}
			v := g.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				buf.WriteString("null")
				continue
			}
			buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		buf.WriteByte(']')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (g *Grid) UnmarshalJSON(data []byte) error {
	var rows [][]*float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	plain := make([][]float64, len(rows))
	for r, row := range rows {
		plain[r] = make([]float64, len(row))
		for c, v := range row {
			if v == nil {
				plain[r][c] = math.NaN()
				continue
			}
			plain[r][c] = *v
		}
	}
	parsed, err := FromRows(plain)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
