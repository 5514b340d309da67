// Package feedback holds the diagnostic messages written onto grid cells.
//
// Messages are indexed by (Kind, Position). The strings are user-facing and
// stable; tests and the frontend match on them verbatim.
package feedback

import (
	"fmt"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/types"
)

// Kind classifies why a candidate cause was rejected.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotCause
	KindPositiveNeutral
	KindSimilarPrevious
)

func (k Kind) String() string {
	switch k {
	case KindNotCause:
		return "not_cause"
	case KindPositiveNeutral:
		return "positive_neutral"
	case KindSimilarPrevious:
		return "similar_previous"
	default:
		return "unknown"
	}
}

// Position distinguishes the first row (anchored to the question) from deeper rows.
type Position int

const (
	FirstRow Position = iota
	DeeperRow
)

// PositionOf returns the Position for a 1-indexed row.
func PositionOf(row int) Position {
	if row <= 1 {
		return FirstRow
	}
	return DeeperRow
}

type key struct {
	kind Kind
	pos  Position
}

// template renders a message for a column label and row.
type template func(col string, row int) string

var catalog = map[key]template{
	{KindNotCause, FirstRow}: func(col string, _ int) string {
		return fmt.Sprintf("Sebab %s1 bukan merupakan sebab dari pertanyaan", col)
	},
	{KindPositiveNeutral, FirstRow}: func(col string, _ int) string {
		return fmt.Sprintf("Sebab %s1 merupakan sebab positif atau netral", col)
	},
	{KindNotCause, DeeperRow}: func(col string, row int) string {
		return fmt.Sprintf("Sebab %s%d bukan merupakan sebab dari %s%d", col, row, col, row-1)
	},
	{KindPositiveNeutral, DeeperRow}: func(col string, row int) string {
		return fmt.Sprintf("Sebab %s%d merupakan sebab positif atau netral", col, row)
	},
	{KindSimilarPrevious, DeeperRow}: func(col string, row int) string {
		return fmt.Sprintf("Sebab %s%d mirip dengan sebab sebelumnya", col, row)
	},
}

// Rejection renders the diagnostic for a rejected cell at (row, column).
// Combinations without a template fall back to Fallback.
func Rejection(kind Kind, row, column int) string {
	col := types.ColumnLabel(column)
	if t, ok := catalog[key{kind, PositionOf(row)}]; ok {
		return t(col, row)
	}
	return Fallback(row, column)
}

// Fallback is used when the rejection kind could not be determined.
func Fallback(row, column int) string {
	return fmt.Sprintf("Sebab di kolom %s baris %d perlu diperbaiki.", types.ColumnLabel(column), row)
}

// ParentUnvalidated is written when the cell above has not been validated yet.
func ParentUnvalidated(row, column int) string {
	return fmt.Sprintf("Perlu validasi sebab di baris %d kolom %s terlebih dahulu.", row-1, types.ColumnLabel(column))
}

// =============================================================================
// ROOT CAUSES
// =============================================================================

// Category is the corruption category assigned to a root cause.
type Category int

const (
	CategoryHarta Category = iota + 1
	CategoryTahta
	CategoryCinta
)

func (c Category) String() string {
	switch c {
	case CategoryTahta:
		return "Tahta"
	case CategoryCinta:
		return "Cinta"
	default:
		return "Harta"
	}
}

// RootFoundPrefix renders the column-level root announcement.
func RootFoundPrefix(column int) string {
	return fmt.Sprintf("Sebab %s merupakan akar masalah.", types.ColumnLabel(column))
}

// RootFound renders the full feedback for a root cell, category suffix included.
func RootFound(column int, category Category) string {
	return fmt.Sprintf("%s Korupsi %s.", RootFoundPrefix(column), category)
}
