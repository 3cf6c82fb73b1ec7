package backend

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	mandel "github.com/mandelbench/mandelbench"
)

// SQLite runs the recursive CTE on an in-memory SQLite database.
// SQLite pioneered recursive CTEs; this is the original procedural-free
// formulation of the benchmark.
type SQLite struct{}

// NewSQLite returns the SQLite backend.
func NewSQLite() SQLite { return SQLite{} }

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Evaluate(ctx context.Context, vp mandel.Viewport, maxIter int) (*mandel.Grid, error) {
	if err := validate(vp, maxIter); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	// The whole computation lives in one statement; a second
	// connection would get its own empty :memory: database.
	db.SetMaxOpenConns(1)

	query, args := sqliteQuery(vp, maxIter)
	return queryGrid(ctx, db, query, args, vp)
}
