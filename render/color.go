// Package render turns iteration grids into images. The palette is the
// fixed smooth polynomial one; channel order is RGBA with full alpha.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	mandel "github.com/mandelbench/mandelbench"
)

// Colorize maps one iteration count to a pixel color. Points that
// reached maxIterations are considered inside the set and painted
// black; escaped points get the polynomial palette over
// t = iteration/maxIterations.
func Colorize(iteration, maxIterations int) (color.RGBA, error) {
	if maxIterations <= 0 {
		return color.RGBA{}, fmt.Errorf("max iterations %d: %w", maxIterations, mandel.ErrInvalidArgument)
	}
	if iteration < 0 || iteration > maxIterations {
		return color.RGBA{}, fmt.Errorf("iteration %d outside [0,%d]: %w",
			iteration, maxIterations, mandel.ErrInvalidArgument)
	}
	return colorize(iteration, maxIterations), nil
}

// colorize skips argument validation; GridImage validates once per grid.
func colorize(iteration, maxIterations int) color.RGBA {
	if iteration == maxIterations {
		return color.RGBA{A: 255}
	}
	t := float64(iteration) / float64(maxIterations)
	return color.RGBA{
		R: channel(9 * (1 - t) * t * t * t),
		G: channel(15 * (1 - t) * (1 - t) * t * t),
		B: channel(8.5 * (1 - t) * (1 - t) * (1 - t) * t),
		A: 255,
	}
}

func channel(v float64) uint8 {
	n := math.Round(255 * v)
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}

// GridImage applies the palette to every cell of the grid and returns
// the renderable bitmap.
func GridImage(g *mandel.Grid, maxIterations int) (*image.RGBA, error) {
	if maxIterations <= 0 {
		return nil, fmt.Errorf("max iterations %d: %w", maxIterations, mandel.ErrInvalidArgument)
	}
	for i, n := range g.Counts {
		if int(n) > maxIterations {
			return nil, fmt.Errorf("cell %d count %d exceeds max %d: %w",
				i, n, maxIterations, mandel.ErrInvalidArgument)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			img.SetRGBA(x, y, colorize(int(g.At(x, y)), maxIterations))
		}
	}
	return img, nil
}
