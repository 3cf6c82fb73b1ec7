package backend

import (
	"context"
	"database/sql"
	"fmt"

	mandel "github.com/mandelbench/mandelbench"
)

// The SQL backends compute the whole set in one recursive CTE: the
// recursive part re-derives z for every still-bounded pixel, and
// MAX(iteration) per pixel is the escape count. The affine mapping is
// passed in as bound parameters so the engines run the exact IEEE
// expression order the CPU backends use.

// duckdbQuery builds the recursive CTE for DuckDB, which has
// generate_series for the pixel cross product.
func duckdbQuery(vp mandel.Viewport, maxIter int) (string, []any) {
	reStep, imStep := vp.Steps()
	q := fmt.Sprintf(`
WITH RECURSIVE
  pixels AS (
    SELECT
      x::INTEGER AS x,
      y::INTEGER AS y,
      (? + x::DOUBLE * ?) AS cx,
      (? + y::DOUBLE * ?) AS cy
    FROM
      generate_series(0, %d) AS t1(x),
      generate_series(0, %d) AS t2(y)
  ),
  mandelbrot_iterations AS (
    SELECT x, y, cx, cy,
      0.0::DOUBLE AS zx,
      0.0::DOUBLE AS zy,
      0 AS iteration
    FROM pixels

    UNION ALL

    SELECT m.x, m.y, m.cx, m.cy,
      (m.zx * m.zx - m.zy * m.zy + m.cx)::DOUBLE AS zx,
      (2.0 * m.zx * m.zy + m.cy)::DOUBLE AS zy,
      m.iteration + 1 AS iteration
    FROM mandelbrot_iterations m
    WHERE
      m.iteration < %d
      AND (m.zx * m.zx + m.zy * m.zy) <= 4.0
  )
SELECT x, y, MAX(iteration) AS depth
FROM mandelbrot_iterations
GROUP BY x, y
ORDER BY y, x;`, vp.Width-1, vp.Height-1, maxIter)

	return q, []any{vp.ReMin, reStep, vp.ImMin, imStep}
}

// sqliteQuery builds the recursive CTE for SQLite, deriving the pixel
// axes recursively since stock SQLite has no generate_series.
func sqliteQuery(vp mandel.Viewport, maxIter int) (string, []any) {
	reStep, imStep := vp.Steps()
	q := fmt.Sprintf(`
WITH RECURSIVE
  xaxis(x) AS (
    SELECT 0 UNION ALL SELECT x + 1 FROM xaxis WHERE x < %d
  ),
  yaxis(y) AS (
    SELECT 0 UNION ALL SELECT y + 1 FROM yaxis WHERE y < %d
  ),
  pixels AS (
    SELECT x, y,
      ? + x * ? AS cx,
      ? + y * ? AS cy
    FROM xaxis, yaxis
  ),
  mandelbrot_iterations(x, y, cx, cy, zx, zy, iteration) AS (
    SELECT x, y, cx, cy, 0.0, 0.0, 0
    FROM pixels

    UNION ALL

    SELECT m.x, m.y, m.cx, m.cy,
      m.zx * m.zx - m.zy * m.zy + m.cx,
      2.0 * m.zx * m.zy + m.cy,
      m.iteration + 1
    FROM mandelbrot_iterations m
    WHERE
      m.iteration < %d
      AND (m.zx * m.zx + m.zy * m.zy) <= 4.0
  )
SELECT x, y, MAX(iteration) AS depth
FROM mandelbrot_iterations
GROUP BY x, y
ORDER BY y, x;`, vp.Width-1, vp.Height-1, maxIter)

	return q, []any{vp.ReMin, reStep, vp.ImMin, imStep}
}

// queryGrid runs the CTE on an open handle and collects the counts.
func queryGrid(ctx context.Context, db *sql.DB, query string, args []any, vp mandel.Viewport) (*mandel.Grid, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mandelbrot query: %w", err)
	}
	defer rows.Close()

	g := mandel.NewGrid(vp.Width, vp.Height)
	seen := 0
	for rows.Next() {
		var x, y, depth int
		if err := rows.Scan(&x, &y, &depth); err != nil {
			return nil, fmt.Errorf("scan pixel row: %w", err)
		}
		if x < 0 || x >= vp.Width || y < 0 || y >= vp.Height {
			return nil, fmt.Errorf("pixel (%d,%d) outside %dx%d grid", x, y, vp.Width, vp.Height)
		}
		g.Set(x, y, uint32(depth))
		seen++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read pixel rows: %w", err)
	}
	if seen != vp.Width*vp.Height {
		return nil, fmt.Errorf("query returned %d pixels, want %d", seen, vp.Width*vp.Height)
	}
	return g, nil
}
