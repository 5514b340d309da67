// Package types provides the shared data model of the root-cause analysis grid.
// Types in this package are foundational data structures with no dependencies
// on storage, transport, or the LLM layer.
package types

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// MODE
// =============================================================================

// Mode tags a Problem and is copied onto every cell created for it.
type Mode string

const (
	ModePribadi    Mode = "PRIBADI"
	ModePengawasan Mode = "PENGAWASAN"
)

// ValidModes lists the closed set of problem modes.
var ValidModes = []Mode{ModePribadi, ModePengawasan}

// ParseMode normalizes s into a Mode. Empty input yields ModePribadi.
func ParseMode(s string) (Mode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ModePribadi, nil
	}
	for _, m := range ValidModes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid mode %q (valid: %v)", s, ValidModes)
}

// =============================================================================
// PROBLEM AND CELL
// =============================================================================

// Problem is the question under analysis. It is immutable once created.
type Problem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Question  string    `json:"question"`
	Mode      Mode      `json:"mode"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// Cell is one candidate cause at (Row, Column) of a Problem's grid.
// Row is 1-indexed, Column is 0-indexed.
type Cell struct {
	ID        string    `json:"id"`
	ProblemID string    `json:"question_id"`
	Row       int       `json:"row"`
	Column    int       `json:"column"`
	Mode      Mode      `json:"mode"`
	Cause     string    `json:"cause"`
	Validated bool      `json:"status"`
	IsRoot    bool      `json:"root_status"`
	Feedback  string    `json:"feedback"`
	CreatedAt time.Time `json:"created_at"`
}

// IsEmpty reports whether the cell has not been filled in yet.
func (c Cell) IsEmpty() bool {
	return strings.TrimSpace(c.Cause) == ""
}

// Label returns the spreadsheet-style coordinate, e.g. "B3".
func (c Cell) Label() string {
	return fmt.Sprintf("%s%d", ColumnLabel(c.Column), c.Row)
}

// ColumnLabel maps a 0-indexed column to its display letter (0 -> "A").
func ColumnLabel(col int) string {
	if col < 0 {
		return "?"
	}
	if col < 26 {
		return string(rune('A' + col))
	}
	return ColumnLabel(col/26-1) + string(rune('A'+col%26))
}

// ParseCoordinate parses a label such as "B3" into (row, column).
func ParseCoordinate(label string) (row, col int, err error) {
	label = strings.ToUpper(strings.TrimSpace(label))
	i := 0
	for i < len(label) && label[i] >= 'A' && label[i] <= 'Z' {
		col = col*26 + int(label[i]-'A'+1)
		i++
	}
	if i == 0 || i == len(label) {
		return 0, 0, fmt.Errorf("invalid cell coordinate %q", label)
	}
	for _, ch := range label[i:] {
		if ch < '0' || ch > '9' {
			return 0, 0, fmt.Errorf("invalid cell coordinate %q", label)
		}
		row = row*10 + int(ch-'0')
	}
	if row < 1 {
		return 0, 0, fmt.Errorf("invalid cell coordinate %q: row must be >= 1", label)
	}
	return row, col - 1, nil
}

// =============================================================================
// PARENT
// =============================================================================

// Parent is what a cell is validated against: the Problem itself for row 1,
// or the cell directly above for deeper rows.
type Parent interface {
	// Text is the statement the candidate cause must explain.
	Text() string
	isParent()
}

// ProblemParent anchors a first-row cell to its Problem.
type ProblemParent struct{ Problem Problem }

// CellParent anchors a cell to the cell one row above it.
type CellParent struct{ Cell Cell }

func (p ProblemParent) Text() string { return p.Problem.Question }
func (p CellParent) Text() string    { return p.Cell.Cause }

func (ProblemParent) isParent() {}
func (CellParent) isParent()    {}
