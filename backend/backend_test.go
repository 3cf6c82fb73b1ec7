package backend

import (
	"context"
	"errors"
	"sync"
	"testing"

	mandel "github.com/mandelbench/mandelbench"
)

var testViewport = mandel.Viewport{Width: 37, Height: 23, Region: mandel.FullSet}

func referenceGrid(t *testing.T, vp mandel.Viewport, maxIter int) *mandel.Grid {
	t.Helper()
	g, err := mandel.Evaluate(vp, maxIter)
	if err != nil {
		t.Fatalf("reference Evaluate: %v", err)
	}
	return g
}

func TestCPUBackendsMatchReference(t *testing.T) {
	const maxIter = 64
	want := referenceGrid(t, testViewport, maxIter)

	backends := []Backend{
		NewScalar(),
		NewParallel(1),
		NewParallel(4),
		NewVector(),
	}
	for _, b := range backends {
		got, err := b.Evaluate(context.Background(), testViewport, maxIter)
		if err != nil {
			t.Errorf("%s: Evaluate: %v", b.Name(), err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("%s: grid differs from reference", b.Name())
		}
	}
}

func TestBackendsMatchOnLandmarks(t *testing.T) {
	// Counts must stay bit-identical across CPU backends on zoomed
	// regions as well, where escape counts are much less uniform.
	const maxIter = 200
	for name, region := range mandel.Regions {
		vp := mandel.Viewport{Width: 24, Height: 16, Region: region}
		want := referenceGrid(t, vp, maxIter)

		for _, b := range []Backend{NewParallel(0), NewVector()} {
			got, err := b.Evaluate(context.Background(), vp, maxIter)
			if err != nil {
				t.Errorf("%s/%s: Evaluate: %v", b.Name(), name, err)
				continue
			}
			if !got.Equal(want) {
				t.Errorf("%s/%s: grid differs from reference", b.Name(), name)
			}
		}
	}
}

func TestParallelProgressReachesOne(t *testing.T) {
	p := NewParallel(3)
	var mu sync.Mutex
	var last float64
	p.Progress = func(f float64) {
		mu.Lock()
		if f > last {
			last = f
		}
		mu.Unlock()
	}

	vp := mandel.Viewport{Width: 150, Height: 90, Region: mandel.SeahorseValley}
	if _, err := p.Evaluate(context.Background(), vp, 32); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if last != 1.0 {
		t.Errorf("final progress = %v, want 1.0", last)
	}
}

func TestEvaluateRejectsInvalidInput(t *testing.T) {
	bad := mandel.Viewport{Width: 0, Height: 10, Region: mandel.FullSet}
	for _, b := range []Backend{NewScalar(), NewParallel(2), NewVector(), NewSQLite(), NewDuckDB()} {
		if _, err := b.Evaluate(context.Background(), bad, 10); !errors.Is(err, mandel.ErrInvalidArgument) {
			t.Errorf("%s: error = %v, want ErrInvalidArgument", b.Name(), err)
		}
		if _, err := b.Evaluate(context.Background(), testViewport, 0); !errors.Is(err, mandel.ErrInvalidArgument) {
			t.Errorf("%s: error = %v, want ErrInvalidArgument", b.Name(), err)
		}
	}
}

func TestEvaluateHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	vp := mandel.Viewport{Width: 64, Height: 64, Region: mandel.FullSet}
	for _, b := range []Backend{NewScalar(), NewVector()} {
		if _, err := b.Evaluate(ctx, vp, 1000); !errors.Is(err, context.Canceled) {
			t.Errorf("%s: error = %v, want context.Canceled", b.Name(), err)
		}
	}
}

func TestSelect(t *testing.T) {
	bs, err := Select([]string{"vector", "scalar"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(bs) != 2 || bs[0].Name() != "vector" || bs[1].Name() != "scalar" {
		t.Errorf("Select returned wrong backends: %v", names(bs))
	}

	if _, err := Select([]string{"cobol"}); !errors.Is(err, mandel.ErrInvalidArgument) {
		t.Errorf("Select(unknown) error = %v, want ErrInvalidArgument", err)
	}

	all, err := Select(nil)
	if err != nil {
		t.Fatalf("Select(nil): %v", err)
	}
	if len(all) == 0 {
		t.Error("Select(nil) returned no backends")
	}
}

func names(bs []Backend) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Name()
	}
	return out
}

func BenchmarkScalar(b *testing.B) {
	benchmarkBackend(b, NewScalar())
}

func BenchmarkParallel(b *testing.B) {
	benchmarkBackend(b, NewParallel(0))
}

func BenchmarkVector(b *testing.B) {
	benchmarkBackend(b, NewVector())
}

func benchmarkBackend(b *testing.B, bk Backend) {
	vp := mandel.Viewport{Width: 350, Height: 200, Region: mandel.FullSet}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := bk.Evaluate(context.Background(), vp, 256); err != nil {
			b.Fatal(err)
		}
	}
}
