package mandel

import (
	"errors"
	"testing"
)

func TestViewportValidate(t *testing.T) {
	tests := []struct {
		name    string
		vp      Viewport
		wantErr bool
	}{
		{"valid", Viewport{Width: 4, Height: 4, Region: FullSet}, false},
		{"zero width", Viewport{Width: 0, Height: 4, Region: FullSet}, true},
		{"negative height", Viewport{Width: 4, Height: -1, Region: FullSet}, true},
		{"degenerate re", Viewport{Width: 4, Height: 4, Region: Region{ReMin: 1, ReMax: 1, ImMin: -1, ImMax: 1}}, true},
		{"inverted im", Viewport{Width: 4, Height: 4, Region: Region{ReMin: -1, ReMax: 1, ImMin: 1, ImMax: -1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.vp.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Validate() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestEvaluateRejectsBadMaxIter(t *testing.T) {
	vp := Viewport{Width: 4, Height: 4, Region: FullSet}
	for _, n := range []int{0, -1} {
		if _, err := Evaluate(vp, n); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Evaluate(maxIter=%d) error = %v, want ErrInvalidArgument", n, err)
		}
	}
}

func TestEvaluateGridShapeAndRange(t *testing.T) {
	const maxIter = 50
	vp := Viewport{Width: 13, Height: 7, Region: FullSet}
	g, err := Evaluate(vp, maxIter)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(g.Counts) != vp.Width*vp.Height {
		t.Fatalf("grid has %d cells, want %d", len(g.Counts), vp.Width*vp.Height)
	}
	for i, n := range g.Counts {
		if n > maxIter {
			t.Fatalf("cell %d count %d exceeds max %d", i, n, maxIter)
		}
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	vp := Viewport{Width: 32, Height: 20, Region: SeahorseValley}
	a, err := Evaluate(vp, 100)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	b, err := Evaluate(vp, 100)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !a.Equal(b) {
		t.Error("identical inputs produced different grids")
	}
}

func TestIterateOrigin(t *testing.T) {
	// The orbit of c = 0 never leaves the origin.
	for _, maxIter := range []int{1, 10, 1000} {
		if got := Iterate(complex(0, 0), maxIter); got != maxIter {
			t.Errorf("Iterate(0, %d) = %d, want %d", maxIter, got, maxIter)
		}
	}
}

func TestIterateEscapesImmediately(t *testing.T) {
	// c = 2 leaves the escape radius after the first squaring:
	// |z1|^2 = 4 still passes the bound test, |z2|^2 = 36 does not.
	for _, maxIter := range []int{3, 10, 256} {
		got := Iterate(complex(2, 0), maxIter)
		if got > 2 || got >= maxIter {
			t.Errorf("Iterate(2, %d) = %d, want <= 2 and < max", maxIter, got)
		}
	}
}

func TestEvaluateMirrorSymmetry(t *testing.T) {
	// ImMin = -ImMax and height 5 make the sample rows exactly
	// symmetric about the real axis; conjugate orbits escape after the
	// same number of iterations.
	vp := Viewport{
		Width:  9,
		Height: 5,
		Region: Region{ReMin: -2.5, ReMax: 1.0, ImMin: -1.0, ImMax: 1.0},
	}
	g, err := Evaluate(vp, 64)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for y := 0; y < vp.Height; y++ {
		for x := 0; x < vp.Width; x++ {
			if g.At(x, y) != g.At(x, vp.Height-1-y) {
				t.Fatalf("grid not mirror-symmetric at (%d,%d): %d vs %d",
					x, y, g.At(x, y), g.At(x, vp.Height-1-y))
			}
		}
	}
}

func TestEvaluateKnownShape(t *testing.T) {
	const maxIter = 10
	vp := Viewport{Width: 4, Height: 4, Region: FullSet}
	g, err := Evaluate(vp, maxIter)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// x=2,y=1 samples c = (-1/6, -1/3), inside the main cardioid.
	if got := g.At(2, 1); got != maxIter {
		t.Errorf("cardioid pixel count = %d, want %d", got, maxIter)
	}
	// x=0,y=0 samples c = -2.5-1.0i, far outside the set.
	if got := g.At(0, 0); got > 5 {
		t.Errorf("corner pixel count = %d, want <= 5", got)
	}
}

func TestSampleEndpoints(t *testing.T) {
	vp := Viewport{Width: 3, Height: 3, Region: Region{ReMin: -2, ReMax: 2, ImMin: -1, ImMax: 1}}
	cr, ci := vp.Sample(0, 0)
	if cr != -2 || ci != -1 {
		t.Errorf("Sample(0,0) = (%g,%g), want (-2,-1)", cr, ci)
	}
	cr, ci = vp.Sample(2, 2)
	if cr != 2 || ci != 1 {
		t.Errorf("Sample(2,2) = (%g,%g), want (2,1)", cr, ci)
	}
	cr, ci = vp.Sample(1, 1)
	if cr != 0 || ci != 0 {
		t.Errorf("Sample(1,1) = (%g,%g), want (0,0)", cr, ci)
	}
}

var divergentPoint = complex(0.5, 0.5)
var convergentPoint = complex(-0.150321, -0.141980)

func BenchmarkIterateConvergent(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Iterate(convergentPoint, 1000)
	}
}

func BenchmarkIterateDivergent(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Iterate(divergentPoint, 1000)
	}
}
