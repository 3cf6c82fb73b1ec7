package backend

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2" // registers the "duckdb" driver

	mandel "github.com/mandelbench/mandelbench"
)

// DuckDB runs the recursive CTE on an in-memory DuckDB database, the
// baseline engine of the benchmark suite.
type DuckDB struct{}

// NewDuckDB returns the DuckDB backend.
func NewDuckDB() DuckDB { return DuckDB{} }

func (DuckDB) Name() string { return "duckdb" }

func (DuckDB) Evaluate(ctx context.Context, vp mandel.Viewport, maxIter int) (*mandel.Grid, error) {
	if err := validate(vp, maxIter); err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	query, args := duckdbQuery(vp, maxIter)
	return queryGrid(ctx, db, query, args, vp)
}
