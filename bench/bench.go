// Package bench times the evaluation backends against each other and
// formats the comparison table.
package bench

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	mandel "github.com/mandelbench/mandelbench"
	"github.com/mandelbench/mandelbench/backend"
	"github.com/mandelbench/mandelbench/render"
)

// baselineBackend anchors the relative column when present.
const baselineBackend = "duckdb"

// Event describes benchmark progress; the web view streams these to
// connected browsers as JSON.
type Event struct {
	Backend   string  `json:"backend"`
	State     string  `json:"state"` // "running", "done" or "skipped"
	ElapsedMs float64 `json:"elapsed_ms,omitempty"`
	Image     string  `json:"image,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Result is the outcome of one backend run. Err being set means the
// backend was skipped, not that the benchmark failed.
type Result struct {
	Name    string
	Elapsed time.Duration
	Grid    *mandel.Grid
	Err     error

	// Mismatches counts cells that differ from the reference grid;
	// -1 when verification was off.
	Mismatches int
}

// Options control a benchmark run.
type Options struct {
	// Verify compares every backend grid against the reference
	// evaluator (computed outside the timed section).
	Verify bool

	// ImageDir, when non-empty, saves one PNG per successful backend.
	ImageDir string

	// Notify, when set, receives progress events.
	Notify func(Event)
}

// Run times every backend on the same viewport. Backend failures are
// recorded and reported, never fatal; an error is returned only for
// invalid input or a cancelled context.
func Run(ctx context.Context, backends []backend.Backend, vp mandel.Viewport, maxIter int, opts Options) ([]Result, error) {
	if err := vp.Validate(); err != nil {
		return nil, err
	}
	if maxIter <= 0 {
		return nil, fmt.Errorf("max iterations %d: %w", maxIter, mandel.ErrInvalidArgument)
	}

	var reference *mandel.Grid
	if opts.Verify {
		var err error
		if reference, err = mandel.Evaluate(vp, maxIter); err != nil {
			return nil, err
		}
	}

	notify := opts.Notify
	if notify == nil {
		notify = func(Event) {}
	}

	results := make([]Result, 0, len(backends))
	for _, b := range backends {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		log.Printf("running: %s", b.Name())
		notify(Event{Backend: b.Name(), State: "running"})

		start := time.Now()
		grid, err := b.Evaluate(ctx, vp, maxIter)
		elapsed := time.Since(start)

		res := Result{Name: b.Name(), Elapsed: elapsed, Grid: grid, Err: err, Mismatches: -1}
		if err != nil {
			log.Printf("backend %s skipped after %s: %v", b.Name(), elapsed.Round(time.Millisecond), err)
			notify(Event{Backend: b.Name(), State: "skipped", Error: err.Error()})
			results = append(results, res)
			continue
		}

		if reference != nil {
			res.Mismatches = countMismatches(grid, reference)
			if res.Mismatches > 0 {
				log.Printf("backend %s: %d/%d cells differ from reference",
					b.Name(), res.Mismatches, len(reference.Counts))
			}
		}

		done := Event{Backend: b.Name(), State: "done", ElapsedMs: float64(elapsed.Microseconds()) / 1000}
		if opts.ImageDir != "" {
			img, err := render.GridImage(grid, maxIter)
			if err != nil {
				return nil, err
			}
			path, err := render.SavePNG(img, opts.ImageDir, b.Name())
			if err != nil {
				log.Printf("backend %s: save image: %v", b.Name(), err)
			} else {
				log.Printf("saved %s", path)
				done.Image = b.Name() + ".png"
			}
			if opts.Notify != nil {
				// The live view loads previews, not full renders.
				thumb := render.Thumbnail(img, 480)
				if _, err := render.SavePNG(thumb, opts.ImageDir, b.Name()+"_thumb"); err == nil {
					done.Image = b.Name() + "_thumb.png"
				}
			}
		}

		log.Printf("completed %s in %s", b.Name(), elapsed.Round(time.Microsecond))
		notify(done)
		results = append(results, res)
	}
	return results, nil
}

func countMismatches(got, want *mandel.Grid) int {
	if got.Width != want.Width || got.Height != want.Height {
		return len(want.Counts)
	}
	n := 0
	for i := range want.Counts {
		if got.Counts[i] != want.Counts[i] {
			n++
		}
	}
	return n
}

// WriteResults prints the comparison table: per-backend wall-clock time
// and the factor relative to the DuckDB baseline (or the fastest run if
// DuckDB was skipped), with the fastest backend marked.
func WriteResults(w io.Writer, vp mandel.Viewport, maxIter int, results []Result) {
	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintf(w, "BENCHMARK RESULTS\n")
	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintf(w, "Configuration: %dx%d pixels, %d max iterations\n", vp.Width, vp.Height, maxIter)
	fmt.Fprintf(w, "%s\n", thinRule)

	var ok []Result
	for _, r := range results {
		if r.Err == nil {
			ok = append(ok, r)
		}
	}
	if len(ok) == 0 {
		fmt.Fprintln(w, "No successful benchmarks to report.")
		return
	}

	fastest := ok[0]
	for _, r := range ok[1:] {
		if r.Elapsed < fastest.Elapsed {
			fastest = r
		}
	}

	baseline := fastest
	baselineName := fastest.Name + " (fastest)"
	for _, r := range ok {
		if r.Name == baselineBackend {
			baseline, baselineName = r, r.Name
			break
		}
	}

	fmt.Fprintf(w, "%-12s %15s %12s %12s\n", "Backend", "Time (ms)", "Relative", "Verified")
	fmt.Fprintf(w, "%s\n", thinRule)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%-12s %15s %12s   skipped: %v\n", r.Name, "-", "-", r.Err)
			continue
		}
		marker := ""
		if r.Name == fastest.Name {
			marker = " *"
		}
		fmt.Fprintf(w, "%-12s %15.2f %11.2fx %12s%s\n",
			r.Name,
			float64(r.Elapsed.Microseconds())/1000,
			float64(r.Elapsed)/float64(baseline.Elapsed),
			verified(r),
			marker,
		)
	}
	fmt.Fprintf(w, "%s\n", thinRule)
	fmt.Fprintf(w, "Baseline: %s (%.2f ms)\n", baselineName, float64(baseline.Elapsed.Microseconds())/1000)
	fmt.Fprintf(w, "Fastest:  %s (%.2f ms)\n", fastest.Name, float64(fastest.Elapsed.Microseconds())/1000)
	fmt.Fprintf(w, "%s\n", rule)
}

func verified(r Result) string {
	switch {
	case r.Mismatches < 0:
		return "-"
	case r.Mismatches == 0:
		return "exact"
	default:
		return fmt.Sprintf("%d diff", r.Mismatches)
	}
}

const (
	rule     = "============================================================"
	thinRule = "------------------------------------------------------------"
)
