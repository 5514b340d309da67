// Package validator walks a problem's cause grid and asks the LLM to accept,
// reject, or promote each candidate cause.
//
// A run validates row 1 against the question, then opens columns strictly left
// to right: column k is processed only once column k-1 has a root cause. Each
// cell is persisted before the next one is read, so an aborted run leaves a
// correctly mutated prefix of the grid.
package validator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/feedback"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/llm"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/logging"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/metrics"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/store"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/types"
)

// DefaultMaxColumns is the grid width (columns A to E).
const DefaultMaxColumns = 5

// Engine holds the collaborators of a validation run. It keeps no state
// between runs and is safe for concurrent use on different problems.
type Engine struct {
	store      store.Store
	adapter    *llm.Adapter
	recorder   metrics.Recorder
	maxColumns int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder reports run and cell outcomes to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithMaxColumns bounds the column passes.
func WithMaxColumns(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxColumns = n
		}
	}
}

// New returns an Engine over st and adapter.
func New(st store.Store, adapter *llm.Adapter, opts ...Option) *Engine {
	e := &Engine{
		store:      st,
		adapter:    adapter,
		recorder:   metrics.Nop{},
		maxColumns: DefaultMaxColumns,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate runs one validation pass over the problem's grid and returns every
// cell ordered by (column, row). LLM failures abort the run; cells already
// processed keep their new state.
func (e *Engine) Validate(ctx context.Context, problemID string) (cells []types.Cell, err error) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if err != nil {
			outcome = "error"
		}
		e.recorder.ValidationRun(outcome, time.Since(start))
	}()

	problem, err := e.store.GetProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}

	all, err := e.store.ListCells(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("list cells: %w", err)
	}

	var firstRow []types.Cell
	pending := 0
	for _, c := range all {
		if c.Validated {
			continue
		}
		pending++
		if c.Row == 1 {
			firstRow = append(firstRow, c)
		}
	}
	// nothing pending: the grid is returned as stored, without materializing rows
	if pending == 0 {
		outcome = "noop"
		logging.EngineDebug("problem %s: nothing to validate", problemID)
		return all, nil
	}
	logging.Engine("problem %s: validating %d of %d cells", problemID, pending, len(all))

	sort.SliceStable(firstRow, func(i, j int) bool { return firstRow[i].Column < firstRow[j].Column })
	for _, c := range firstRow {
		if _, err := e.validateCell(ctx, c, problem, types.ProblemParent{Problem: problem}); err != nil {
			return nil, err
		}
	}

	opened := 0
	for col := 0; col < e.maxColumns; col++ {
		if col > 0 {
			hasRoot, err := e.hasRoot(ctx, problemID, col-1)
			if err != nil {
				return nil, err
			}
			if !hasRoot {
				logging.EngineDebug("problem %s: column %s closed, %s has no root",
					problemID, types.ColumnLabel(col), types.ColumnLabel(col-1))
				break
			}
		}
		if err := e.processColumn(ctx, problem, col); err != nil {
			return nil, err
		}
		opened = col + 1
	}

	if err := e.clearPlaceholderFeedback(ctx, problemID, opened); err != nil {
		return nil, err
	}
	if err := e.materializeNextRows(ctx, problemID); err != nil {
		return nil, err
	}

	cells, err = e.store.ListCells(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("reload cells: %w", err)
	}
	logging.Engine("problem %s: validation finished in %v", problemID, time.Since(start))
	return cells, nil
}

func (e *Engine) hasRoot(ctx context.Context, problemID string, col int) (bool, error) {
	roots, err := e.store.ColumnCells(ctx, problemID, col, store.Filter{Root: true})
	if err != nil {
		return false, fmt.Errorf("column %s roots: %w", types.ColumnLabel(col), err)
	}
	return len(roots) > 0, nil
}

// processColumn walks rows below the first, stopping at the first root.
func (e *Engine) processColumn(ctx context.Context, problem types.Problem, col int) error {
	cells, err := e.store.ColumnCells(ctx, problem.ID, col, store.Filter{})
	if err != nil {
		return fmt.Errorf("column %s cells: %w", types.ColumnLabel(col), err)
	}

	rootRow := 0
	for _, c := range cells {
		if c.IsRoot {
			rootRow = c.Row
			break
		}
	}

	for _, c := range cells {
		if c.Row == 1 || c.Validated {
			continue
		}
		if rootRow > 0 && c.Row > rootRow {
			break
		}
		if c.IsEmpty() {
			continue
		}

		parent, ok, err := e.store.GetCell(ctx, problem.ID, c.Row-1, col)
		if err != nil {
			return fmt.Errorf("parent of %s: %w", c.Label(), err)
		}
		if !ok || !parent.Validated || parent.IsEmpty() {
			c.Feedback = feedback.ParentUnvalidated(c.Row, c.Column)
			if err := e.store.SaveCell(ctx, c); err != nil {
				return fmt.Errorf("save %s: %w", c.Label(), err)
			}
			e.recorder.CellProcessed(metrics.CellBlocked)
			logging.EngineWarn("problem %s: %s blocked, parent row %d not validated", problem.ID, c.Label(), c.Row-1)
			continue
		}

		c, err = e.validateCell(ctx, c, problem, types.CellParent{Cell: parent})
		if err != nil {
			return err
		}
		if c.IsRoot {
			logging.Engine("problem %s: root cause found at %s", problem.ID, c.Label())
			break
		}
	}
	return nil
}

// clearPlaceholderFeedback drops diagnostics from empty, unvalidated cells in
// the first opened columns, never touching rows below a root.
func (e *Engine) clearPlaceholderFeedback(ctx context.Context, problemID string, opened int) error {
	for col := 0; col < opened; col++ {
		cells, err := e.store.ColumnCells(ctx, problemID, col, store.Filter{})
		if err != nil {
			return fmt.Errorf("column %s cells: %w", types.ColumnLabel(col), err)
		}
		rootRow := 0
		for _, c := range cells {
			if c.IsRoot {
				rootRow = c.Row
				break
			}
		}
		for _, c := range cells {
			if rootRow > 0 && c.Row > rootRow {
				break
			}
			if !c.IsEmpty() || c.Validated || c.IsRoot || c.Feedback == "" {
				continue
			}
			logging.EngineDebug("problem %s: clearing feedback on empty %s", problemID, c.Label())
			c.Feedback = ""
			if err := e.store.SaveCell(ctx, c); err != nil {
				return fmt.Errorf("save %s: %w", c.Label(), err)
			}
		}
	}
	return nil
}

// materializeNextRows ensures every unfinished column with a validated cause
// has an empty cell one row below its deepest validated row.
func (e *Engine) materializeNextRows(ctx context.Context, problemID string) error {
	cells, err := e.store.ListCells(ctx, problemID)
	if err != nil {
		return fmt.Errorf("list cells: %w", err)
	}

	type column struct {
		hasRoot   bool
		maxRow    int
		mode      types.Mode
		validated bool
	}
	cols := make(map[int]*column)
	var order []int
	for _, c := range cells {
		st, ok := cols[c.Column]
		if !ok {
			st = &column{}
			cols[c.Column] = st
			order = append(order, c.Column)
		}
		if c.IsRoot {
			st.hasRoot = true
		}
		if c.Validated && !c.IsEmpty() {
			st.validated = true
		}
		if c.Validated && c.Row > st.maxRow {
			st.maxRow = c.Row
			// cells carry their problem's mode; the deepest validated one is the source
			st.mode = c.Mode
		}
	}

	for _, col := range order {
		st := cols[col]
		if st.hasRoot || !st.validated {
			continue
		}
		next := st.maxRow + 1
		_, exists, err := e.store.GetCell(ctx, problemID, next, col)
		if err != nil {
			return fmt.Errorf("lookup %s%d: %w", types.ColumnLabel(col), next, err)
		}
		if exists {
			continue
		}
		placeholder := types.Cell{
			ProblemID: problemID,
			Row:       next,
			Column:    col,
			Mode:      st.mode,
		}
		if _, err := e.store.CreateCell(ctx, placeholder); err != nil {
			return fmt.Errorf("create %s%d: %w", types.ColumnLabel(col), next, err)
		}
		logging.EngineDebug("problem %s: opened %s%d", problemID, types.ColumnLabel(col), next)
	}
	return nil
}
