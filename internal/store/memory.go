package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/types"
)

type coord struct {
	problem  string
	row, col int
}

// Memory is a mutex-guarded in-process Store. Values are copied in and out.
type Memory struct {
	mu       sync.RWMutex
	problems map[string]types.Problem
	cells    map[string]types.Cell
	byCoord  map[coord]string
	now      func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		problems: make(map[string]types.Problem),
		cells:    make(map[string]types.Cell),
		byCoord:  make(map[coord]string),
		now:      time.Now,
	}
}

func (m *Memory) CreateProblem(_ context.Context, p types.Problem) (types.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Mode == "" {
		p.Mode = types.ModePribadi
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.now().UTC()
	}
	p.Tags = cloneTags(p.Tags)
	m.problems[p.ID] = p
	return cloneProblem(p), nil
}

func (m *Memory) GetProblem(_ context.Context, id string) (types.Problem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.problems[id]
	if !ok {
		return types.Problem{}, types.ErrNotFound{Entity: "problem", ID: id}
	}
	return cloneProblem(p), nil
}

func (m *Memory) ListProblems(_ context.Context) ([]types.Problem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Problem, 0, len(m.problems))
	for _, p := range m.problems {
		out = append(out, cloneProblem(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) DeleteProblem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.problems[id]; !ok {
		return types.ErrNotFound{Entity: "problem", ID: id}
	}
	for cid, c := range m.cells {
		if c.ProblemID == id {
			delete(m.cells, cid)
			delete(m.byCoord, coord{c.ProblemID, c.Row, c.Column})
		}
	}
	delete(m.problems, id)
	return nil
}

func (m *Memory) ListCells(_ context.Context, problemID string) ([]types.Cell, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.Cell
	for _, c := range m.cells {
		if c.ProblemID == problemID {
			out = append(out, c)
		}
	}
	sortCells(out)
	return out, nil
}

func (m *Memory) GetCell(_ context.Context, problemID string, row, column int) (types.Cell, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byCoord[coord{problemID, row, column}]
	if !ok {
		return types.Cell{}, false, nil
	}
	return m.cells[id], true, nil
}

func (m *Memory) GetCellByID(_ context.Context, problemID, id string) (types.Cell, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cells[id]
	if !ok || c.ProblemID != problemID {
		return types.Cell{}, types.ErrNotFound{Entity: "cause", ID: id}
	}
	return c, nil
}

func (m *Memory) CreateCell(_ context.Context, c types.Cell) (types.Cell, error) {
	if err := validateCell(c); err != nil {
		return types.Cell{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.problems[c.ProblemID]; !ok {
		return types.Cell{}, types.ErrNotFound{Entity: "problem", ID: c.ProblemID}
	}
	k := coord{c.ProblemID, c.Row, c.Column}
	if _, taken := m.byCoord[k]; taken {
		return types.Cell{}, types.ErrDuplicateCell{ProblemID: c.ProblemID, Row: c.Row, Column: c.Column}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now().UTC()
	}
	m.cells[c.ID] = c
	m.byCoord[k] = c.ID
	return c, nil
}

func (m *Memory) SaveCell(_ context.Context, c types.Cell) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.cells[c.ID]
	if !ok || old.ProblemID != c.ProblemID {
		return types.ErrNotFound{Entity: "cause", ID: c.ID}
	}
	// coordinates and identity are immutable
	old.Mode = c.Mode
	old.Cause = c.Cause
	old.Validated = c.Validated
	old.IsRoot = c.IsRoot
	old.Feedback = c.Feedback
	m.cells[c.ID] = old
	return nil
}

func (m *Memory) ColumnCells(_ context.Context, problemID string, column int, f Filter) ([]types.Cell, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.Cell
	for _, c := range m.cells {
		if c.ProblemID == problemID && c.Column == column && f.match(c) {
			out = append(out, c)
		}
	}
	sortCells(out)
	return out, nil
}

func (m *Memory) Close() error { return nil }

func cloneProblem(p types.Problem) types.Problem {
	p.Tags = cloneTags(p.Tags)
	return p
}

func cloneTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

func sortCells(cells []types.Cell) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Column != cells[j].Column {
			return cells[i].Column < cells[j].Column
		}
		return cells[i].Row < cells[j].Row
	})
}
