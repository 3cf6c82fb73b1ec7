package backend

import (
	"context"
	"image"
	"runtime"
	"sync"

	mandel "github.com/mandelbench/mandelbench"
)

const tileEdge = 64

// Parallel splits the grid into tiles and renders them on a pool of
// goroutines. Tiles are disjoint, so workers write to the shared grid
// without locking; only the progress counter is guarded.
type Parallel struct {
	workers int

	// Progress, when set, is called after each finished tile with the
	// fraction of pixels completed.
	Progress func(finished float64)
}

// NewParallel returns the parallel backend. workers <= 0 selects
// runtime.NumCPU.
func NewParallel(workers int) *Parallel {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Parallel{workers: workers}
}

func (*Parallel) Name() string { return "parallel" }

func (p *Parallel) Evaluate(ctx context.Context, vp mandel.Viewport, maxIter int) (*mandel.Grid, error) {
	if err := validate(vp, maxIter); err != nil {
		return nil, err
	}

	tiles := splitRectNoClip(image.Rect(0, 0, vp.Width, vp.Height), tileEdge, tileEdge)
	work := make(chan image.Rectangle)
	go func() {
		defer close(work)
		for _, t := range tiles {
			select {
			case work <- t:
			case <-ctx.Done():
				return
			}
		}
	}()

	g := mandel.NewGrid(vp.Width, vp.Height)
	reStep, imStep := vp.Steps()

	var (
		m              sync.Mutex
		finishedPixels int
	)
	totalPixels := vp.Width * vp.Height

	var wg sync.WaitGroup
	wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer wg.Done()
			for tile := range work {
				for y := tile.Min.Y; y < tile.Max.Y; y++ {
					ci := vp.ImMin + float64(y)*imStep
					for x := tile.Min.X; x < tile.Max.X; x++ {
						cr := vp.ReMin + float64(x)*reStep
						g.Counts[y*vp.Width+x] = uint32(mandel.Iterate(complex(cr, ci), maxIter))
					}
				}
				if p.Progress != nil {
					m.Lock()
					finishedPixels += tile.Dx() * tile.Dy()
					f := float64(finishedPixels) / float64(totalPixels)
					m.Unlock()
					p.Progress(f)
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

// splitRectNoClip splits r into tiles of size tileW x tileH.
// Tiles at the right and bottom edges are smaller if r is not divisible.
func splitRectNoClip(r image.Rectangle, tileW, tileH int) []image.Rectangle {
	if tileW <= 0 || tileH <= 0 {
		panic("tile dimensions must be positive")
	}

	w := r.Dx()
	h := r.Dy()

	var tiles []image.Rectangle

	for oy := 0; oy < h; oy += tileH {
		th := tileH
		if oy+th > h {
			th = h - oy
		}

		for ox := 0; ox < w; ox += tileW {
			tw := tileW
			if ox+tw > w {
				tw = w - ox
			}

			tile := image.Rect(
				r.Min.X+ox,
				r.Min.Y+oy,
				r.Min.X+ox+tw,
				r.Min.Y+oy+th,
			)
			tiles = append(tiles, tile)
		}
	}

	return tiles
}
