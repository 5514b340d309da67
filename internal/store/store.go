// Package store persists problems and their cause grids.
//
// Three backends share one contract: an in-memory store for tests and the
// CLI, SQLite via modernc.org/sqlite, and Postgres via pgx's database/sql driver.
package store

import (
	"context"
	"fmt"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/types"
)

// Filter narrows ColumnCells. Each true field adds a predicate; false fields
// are ignored.
type Filter struct {
	Validated bool
	Root      bool
	NonEmpty  bool
}

func (f Filter) match(c types.Cell) bool {
	if f.Validated && !c.Validated {
		return false
	}
	if f.Root && !c.IsRoot {
		return false
	}
	if f.NonEmpty && c.IsEmpty() {
		return false
	}
	return true
}

// Store is the persistence collaborator of the engine and the API.
type Store interface {
	CreateProblem(ctx context.Context, p types.Problem) (types.Problem, error)
	// GetProblem returns types.ErrNotFound when id is unknown.
	GetProblem(ctx context.Context, id string) (types.Problem, error)
	ListProblems(ctx context.Context) ([]types.Problem, error)
	// DeleteProblem removes the problem and every cell it owns.
	DeleteProblem(ctx context.Context, id string) error

	// ListCells returns the problem's cells ordered by (column, row).
	ListCells(ctx context.Context, problemID string) ([]types.Cell, error)
	// GetCell looks a cell up by coordinate; found is false when absent.
	GetCell(ctx context.Context, problemID string, row, column int) (cell types.Cell, found bool, err error)
	GetCellByID(ctx context.Context, problemID, id string) (types.Cell, error)
	// CreateCell inserts c, assigning ID and CreatedAt when unset.
	// It returns types.ErrDuplicateCell when the coordinate is taken.
	CreateCell(ctx context.Context, c types.Cell) (types.Cell, error)
	// SaveCell overwrites the mutable fields of an existing cell.
	SaveCell(ctx context.Context, c types.Cell) error
	// ColumnCells returns the cells of one column matching f, ordered by row.
	ColumnCells(ctx context.Context, problemID string, column int, f Filter) ([]types.Cell, error)

	Close() error
}

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the backend named by driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func validateCell(c types.Cell) error {
	if c.ProblemID == "" {
		return fmt.Errorf("cell has no problem")
	}
	if c.Row < 1 {
		return fmt.Errorf("invalid row %d: rows start at 1", c.Row)
	}
	if c.Column < 0 {
		return fmt.Errorf("invalid column %d", c.Column)
	}
	return nil
}
