package backend

import (
	"context"

	mandel "github.com/mandelbench/mandelbench"
)

// Scalar is the straight per-pixel loop, single goroutine. It is the
// baseline the faster backends are compared against.
type Scalar struct{}

// NewScalar returns the scalar backend.
func NewScalar() Scalar { return Scalar{} }

func (Scalar) Name() string { return "scalar" }

func (Scalar) Evaluate(ctx context.Context, vp mandel.Viewport, maxIter int) (*mandel.Grid, error) {
	if err := validate(vp, maxIter); err != nil {
		return nil, err
	}

	reStep, imStep := vp.Steps()
	g := mandel.NewGrid(vp.Width, vp.Height)
	for y := 0; y < vp.Height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ci := vp.ImMin + float64(y)*imStep
		for x := 0; x < vp.Width; x++ {
			cr := vp.ReMin + float64(x)*reStep
			g.Counts[y*vp.Width+x] = uint32(mandel.Iterate(complex(cr, ci), maxIter))
		}
	}
	return g, nil
}
