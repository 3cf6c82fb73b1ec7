//go:build !nogpu

package backend

import (
	"context"
	"testing"

	mandel "github.com/mandelbench/mandelbench"
)

func TestGPUMatchesReferenceApproximately(t *testing.T) {
	g, ok := newGPU()
	if !ok {
		t.Skip("gpu backend compiled out")
	}
	if c, okc := g.(interface{ Close() error }); okc {
		defer c.Close()
	}

	const maxIter = 64
	vp := mandel.Viewport{Width: 64, Height: 40, Region: mandel.FullSet}

	got, err := g.Evaluate(context.Background(), vp, maxIter)
	if err != nil {
		t.Skipf("gpu unavailable: %v", err)
	}

	want := referenceGrid(t, vp, maxIter)

	// The shader runs in f32, so counts near basin boundaries may be
	// off; anything beyond a few percent means the kernel is wrong.
	mismatches := 0
	for i := range want.Counts {
		if got.Counts[i] != want.Counts[i] {
			mismatches++
		}
	}
	if limit := len(want.Counts) / 20; mismatches > limit {
		t.Errorf("%d/%d cells differ from reference, limit %d", mismatches, len(want.Counts), limit)
	}
}

func TestGPURejectsInvalidInput(t *testing.T) {
	g, ok := newGPU()
	if !ok {
		t.Skip("gpu backend compiled out")
	}
	bad := mandel.Viewport{Width: -1, Height: 10, Region: mandel.FullSet}
	if _, err := g.Evaluate(context.Background(), bad, 10); err == nil {
		t.Error("invalid viewport accepted")
	}
}
