package backend

import (
	"context"

	"gonum.org/v1/gonum/floats"

	mandel "github.com/mandelbench/mandelbench"
)

// Vector processes one full row of pixels at a time with whole-slice
// array arithmetic, the way a NumPy implementation would. Lanes are
// masked out of the escape bookkeeping once they diverge but keep being
// updated; their values may overflow to Inf/NaN, which is harmless
// because their count is already recorded.
//
// The per-element operations are ordered exactly like the scalar
// kernel, so the resulting grid is bit-identical to the scalar one.
type Vector struct{}

// NewVector returns the row-vectorized backend.
func NewVector() Vector { return Vector{} }

func (Vector) Name() string { return "vector" }

func (Vector) Evaluate(ctx context.Context, vp mandel.Viewport, maxIter int) (*mandel.Grid, error) {
	if err := validate(vp, maxIter); err != nil {
		return nil, err
	}

	w := vp.Width
	reStep, imStep := vp.Steps()

	cr := make([]float64, w)
	for x := range cr {
		cr[x] = vp.ReMin + float64(x)*reStep
	}

	var (
		zr      = make([]float64, w)
		zi      = make([]float64, w)
		zr2     = make([]float64, w)
		zi2     = make([]float64, w)
		tmp     = make([]float64, w)
		escaped = make([]bool, w)
	)

	g := mandel.NewGrid(vp.Width, vp.Height)
	for y := 0; y < vp.Height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ci := vp.ImMin + float64(y)*imStep
		row := g.Counts[y*w : (y+1)*w]

		for x := 0; x < w; x++ {
			zr[x], zi[x], escaped[x] = 0, 0, false
		}
		active := w

		for i := 0; i < maxIter && active > 0; i++ {
			floats.MulTo(zr2, zr, zr)
			floats.MulTo(zi2, zi, zi)

			for x := 0; x < w; x++ {
				if !escaped[x] && zr2[x]+zi2[x] > 4.0 {
					escaped[x] = true
					row[x] = uint32(i)
					active--
				}
			}
			if active == 0 {
				break
			}

			// zi <- 2*zr*zi + ci, then zr <- zr2 - zi2 + cr.
			floats.MulTo(tmp, zr, zi)
			floats.Scale(2, tmp)
			floats.AddConst(ci, tmp)
			copy(zi, tmp)

			floats.SubTo(zr, zr2, zi2)
			floats.Add(zr, cr)
		}

		for x := 0; x < w; x++ {
			if !escaped[x] {
				row[x] = uint32(maxIter)
			}
		}
	}
	return g, nil
}
