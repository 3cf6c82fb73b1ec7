// Package backend contains the Mandelbrot evaluation backends compared
// by the benchmark. Every backend computes the same iteration grid; only
// the host engine differs.
package backend

import (
	"context"
	"fmt"

	mandel "github.com/mandelbench/mandelbench"
)

// Backend computes an iteration grid for a viewport. Implementations
// are stateless between calls; Evaluate either returns a complete grid
// or an error, never partial output.
type Backend interface {
	Name() string
	Evaluate(ctx context.Context, vp mandel.Viewport, maxIter int) (*mandel.Grid, error)
}

// Default returns all backends in the order they are benchmarked.
// Engine-backed entries stay in the list even when their engine is
// unavailable; the runner reports them as skipped.
func Default() []Backend {
	bs := []Backend{
		NewVector(),
		NewParallel(0),
		NewScalar(),
		NewDuckDB(),
		NewSQLite(),
	}
	if gpu, ok := newGPU(); ok {
		bs = append(bs, gpu)
	}
	return bs
}

// Select filters Default by name. An unknown name is an error so typos
// on the command line do not silently shrink the run.
func Select(names []string) ([]Backend, error) {
	if len(names) == 0 {
		return Default(), nil
	}

	byName := make(map[string]Backend)
	for _, b := range Default() {
		byName[b.Name()] = b
	}

	var out []Backend
	for _, n := range names {
		b, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown backend %q: %w", n, mandel.ErrInvalidArgument)
		}
		out = append(out, b)
	}
	return out, nil
}

func validate(vp mandel.Viewport, maxIter int) error {
	if err := vp.Validate(); err != nil {
		return err
	}
	if maxIter <= 0 {
		return fmt.Errorf("max iterations %d: %w", maxIter, mandel.ErrInvalidArgument)
	}
	return nil
}
