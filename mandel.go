// Package mandel holds the escape-time core shared by every benchmark
// backend: the viewport mapping from pixel grid to complex plane, the
// per-point iteration kernel and the reference evaluator.
package mandel

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is wrapped by every validation failure in this
// package. Callers test for it with errors.Is.
var ErrInvalidArgument = errors.New("invalid argument")

// Viewport maps a Width x Height pixel grid onto a Region of the complex
// plane. The mapping is endpoint-inclusive: pixel 0 samples the minimum
// bound, pixel Width-1 samples the maximum bound. A 1-pixel axis samples
// the minimum bound only.
type Viewport struct {
	Width, Height int
	Region
}

// Validate reports whether the viewport can be evaluated.
func (v Viewport) Validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("viewport %dx%d: %w", v.Width, v.Height, ErrInvalidArgument)
	}
	if v.ReMax <= v.ReMin || v.ImMax <= v.ImMin {
		return fmt.Errorf("degenerate region [%g,%g]x[%g,%g]: %w",
			v.ReMin, v.ReMax, v.ImMin, v.ImMax, ErrInvalidArgument)
	}
	return nil
}

// Steps returns the per-pixel increments of the affine mapping.
// Every backend must derive sample points as ReMin + x*reStep so that
// grids stay comparable across engines.
func (v Viewport) Steps() (reStep, imStep float64) {
	if v.Width > 1 {
		reStep = (v.ReMax - v.ReMin) / float64(v.Width-1)
	}
	if v.Height > 1 {
		imStep = (v.ImMax - v.ImMin) / float64(v.Height-1)
	}
	return reStep, imStep
}

// Sample returns the complex point for pixel (x, y).
func (v Viewport) Sample(x, y int) (cr, ci float64) {
	reStep, imStep := v.Steps()
	return v.ReMin + float64(x)*reStep, v.ImMin + float64(y)*imStep
}

// Grid is a row-major matrix of iteration counts, one per pixel.
// Counts[y*Width+x] is in [0, maxIterations]; a count equal to the
// iteration cap marks a point inside the set.
type Grid struct {
	Width, Height int
	Counts        []uint32
}

// NewGrid allocates a zeroed Width x Height grid.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Counts: make([]uint32, width*height),
	}
}

// At returns the iteration count recorded for pixel (x, y).
func (g *Grid) At(x, y int) uint32 {
	return g.Counts[y*g.Width+x]
}

// Set records the iteration count for pixel (x, y).
func (g *Grid) Set(x, y int, n uint32) {
	g.Counts[y*g.Width+x] = n
}

// Equal reports whether both grids have identical shape and counts.
func (g *Grid) Equal(o *Grid) bool {
	if g.Width != o.Width || g.Height != o.Height {
		return false
	}
	for i, n := range g.Counts {
		if o.Counts[i] != n {
			return false
		}
	}
	return true
}

// Iterate runs the escape-time iteration z <- z*z + c starting from
// z = 0 and returns the number of iterations completed before |z|^2
// exceeded 4, or maxIter if the orbit stayed bounded. All arithmetic is
// IEEE-754 double precision.
func Iterate(c complex128, maxIter int) int {
	cr, ci := real(c), imag(c)
	var zr, zi float64
	for i := 0; i < maxIter; i++ {
		zr2, zi2 := zr*zr, zi*zi
		if zr2+zi2 > 4.0 {
			return i
		}
		zr, zi = zr2-zi2+cr, 2*zr*zi+ci
	}
	return maxIter
}

// Evaluate computes the iteration grid for the viewport with the plain
// per-pixel loop. It is the reference every other backend is measured
// and verified against. The call either returns a complete grid or an
// error; there is no partial output.
func Evaluate(vp Viewport, maxIter int) (*Grid, error) {
	if err := vp.Validate(); err != nil {
		return nil, err
	}
	if maxIter <= 0 {
		return nil, fmt.Errorf("max iterations %d: %w", maxIter, ErrInvalidArgument)
	}

	reStep, imStep := vp.Steps()
	g := NewGrid(vp.Width, vp.Height)
	for y := 0; y < vp.Height; y++ {
		ci := vp.ImMin + float64(y)*imStep
		for x := 0; x < vp.Width; x++ {
			cr := vp.ReMin + float64(x)*reStep
			g.Counts[y*vp.Width+x] = uint32(Iterate(complex(cr, ci), maxIter))
		}
	}
	return g, nil
}
