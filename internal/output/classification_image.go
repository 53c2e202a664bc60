package output

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"

	"github.com/verigreen-hackathon/verigreen/internal/classify"
)

const (
	legendRowHeight = 20
	legendPadding   = 10
	legendMinWidth  = 220
)

type renderOptions struct {
	scale  int
	legend bool
}

type RenderOption func(*renderOptions)

// WithScale draws every grid cell as an n by n block.
func WithScale(n int) RenderOption {
	return func(o *renderOptions) {
		if n > 0 {
			o.scale = n
		}
	}
}

// WithLegend appends a strip naming each class under the map.
func WithLegend() RenderOption {
	return func(o *renderOptions) { o.legend = true }
}

// RenderClassification writes the classification map as a PNG, coloured with
// classify.ColorMap.
func RenderClassification(w io.Writer, result classify.ClassificationResult, opts ...RenderOption) error {
	o := renderOptions{scale: 1}
	for _, opt := range opts {
		opt(&o)
	}

	grid := result.ClassificationMap
	if grid.Rows == 0 || grid.Cols == 0 {
		return fmt.Errorf("classification map is empty")
	}

	palette := map[int]color.RGBA{}
	for idx, hex := range classify.ColorMap(result) {
		c, err := parseHexColor(hex)
		if err != nil {
			return fmt.Errorf("class %d: %w", idx, err)
		}
		palette[idx] = c
	}

	width, height := grid.Cols*o.scale, grid.Rows*o.scale
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for r := 0; r < grid.Rows; r++ {
		for c := 0; c < grid.Cols; c++ {
			px, ok := palette[grid.At(r, c)]
			if !ok {
				px = palette[classify.InvalidClass]
			}
			for dy := 0; dy < o.scale; dy++ {
				for dx := 0; dx < o.scale; dx++ {
					img.SetRGBA(c*o.scale+dx, r*o.scale+dy, px)
				}
			}
		}
	}

	canvasWidth, canvasHeight := width, height
	if o.legend {
		canvasWidth = max(width, legendMinWidth)
		canvasHeight = height + 2*legendPadding + len(result.Thresholds)*legendRowHeight
	}

	dc := gg.NewContext(canvasWidth, canvasHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(img, 0, 0)

	if o.legend {
		drawLegend(dc, result, palette, height+legendPadding)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

func drawLegend(dc *gg.Context, result classify.ClassificationResult, palette map[int]color.RGBA, top int) {
	for idx, def := range result.Thresholds {
		y := float64(top + idx*legendRowHeight)
		x := float64(legendPadding)

		c := palette[idx]
		dc.SetRGB(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
		dc.DrawRectangle(x, y, 15, 15)
		dc.Fill()

		dc.SetRGB(0, 0, 0)
		dc.DrawRectangle(x, y, 15, 15)
		dc.SetLineWidth(1)
		dc.Stroke()

		label := fmt.Sprintf("%s %.1f%%", def.Name, result.ClassPercentages[def.Class])
		dc.DrawStringAnchored(label, x+20, y+7, 0, 0.5)
	}
}

func parseHexColor(hex string) (color.RGBA, error) {
	c := color.RGBA{A: 255}
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	return c, nil
}
