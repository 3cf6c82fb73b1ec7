// mandelbench computes the Mandelbrot set with every available backend
// (plain loops, tiled goroutines, vectorized rows, SQL recursive CTEs,
// a GPU compute shader), compares their wall-clock time and optionally
// renders each backend's grid to a PNG and serves a live web view.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"

	"github.com/spf13/cobra"

	mandel "github.com/mandelbench/mandelbench"
	"github.com/mandelbench/mandelbench/backend"
	"github.com/mandelbench/mandelbench/bench"
	"github.com/mandelbench/mandelbench/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func rootCmd() *cobra.Command {
	var (
		width, height int
		iterations    int
		backendNames  []string
		regionName    string
		imageDir      string
		noImages      bool
		verify        bool
		list          bool
		servePort     int
	)

	cmd := &cobra.Command{
		Use:   "mandelbench",
		Short: "benchmark Mandelbrot evaluation backends against each other",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			// At this point usage information has already been printed if obviously incorrect.
			cmd.SilenceUsage = true

			if list {
				printKnown(cmd.OutOrStdout())
				return nil
			}

			region, ok := mandel.Regions[regionName]
			if !ok {
				return fmt.Errorf("unknown region %q (see --list): %w", regionName, mandel.ErrInvalidArgument)
			}
			vp := mandel.Viewport{Width: width, Height: height, Region: region}

			backends, err := backend.Select(backendNames)
			if err != nil {
				return err
			}
			defer closeAll(backends)

			opts := bench.Options{Verify: verify}
			if !noImages {
				opts.ImageDir = imageDir
			}

			var srv *web.Server
			if servePort > 0 {
				srv = web.NewServer(servePort, imageDir)
				opts.Notify = srv.Publish
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						log.Fatalf("web server: %v", err)
					}
				}()
			}

			results, err := bench.Run(cmd.Context(), backends, vp, iterations, opts)
			if err != nil {
				return err
			}
			bench.WriteResults(cmd.OutOrStdout(), vp, iterations, results)

			if srv != nil {
				log.Printf("web view stays up; interrupt to exit")
				<-cmd.Context().Done()
				return srv.Shutdown(context.Background())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 1400, "image width in pixels")
	cmd.Flags().IntVar(&height, "height", 800, "image height in pixels")
	cmd.Flags().IntVar(&iterations, "iterations", 256, "max iterations per pixel")
	cmd.Flags().StringSliceVar(&backendNames, "backends", nil, "backends to run (default: all)")
	cmd.Flags().StringVar(&regionName, "region", "full", "region of the set to render")
	cmd.Flags().StringVar(&imageDir, "out", "images", "directory for rendered PNGs")
	cmd.Flags().BoolVar(&noImages, "no-images", false, "skip rendering PNGs")
	cmd.Flags().BoolVar(&verify, "verify", false, "compare every grid against the reference evaluator")
	cmd.Flags().BoolVar(&list, "list", false, "list backends and regions, then exit")
	cmd.Flags().IntVar(&servePort, "serve", 0, "serve the live web view on this port")

	return cmd
}

func printKnown(w io.Writer) {
	fmt.Fprintln(w, "backends:")
	for _, b := range backend.Default() {
		fmt.Fprintf(w, "  %s\n", b.Name())
	}

	names := make([]string, 0, len(mandel.Regions))
	for name := range mandel.Regions {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "regions:")
	for _, name := range names {
		r := mandel.Regions[name]
		fmt.Fprintf(w, "  %-10s re [%g, %g], im [%g, %g]\n", name, r.ReMin, r.ReMax, r.ImMin, r.ImMax)
	}
}

func closeAll(backends []backend.Backend) {
	for _, b := range backends {
		if c, ok := b.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Printf("close %s: %v", b.Name(), err)
			}
		}
	}
}
