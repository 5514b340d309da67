package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnLabel(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 4: "E", 25: "Z", 26: "AA", 27: "AB", -1: "?"}
	for col, want := range cases {
		assert.Equal(t, want, ColumnLabel(col), "column %d", col)
	}
}

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		in       string
		row, col int
		wantErr  bool
	}{
		{in: "A1", row: 1, col: 0},
		{in: "c12", row: 12, col: 2},
		{in: " E3 ", row: 3, col: 4},
		{in: "AA2", row: 2, col: 26},
		{in: "A0", wantErr: true},
		{in: "3", wantErr: true},
		{in: "B", wantErr: true},
		{in: "B2x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			row, col, err := ParseCoordinate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.row, row)
			assert.Equal(t, tt.col, col)
		})
	}
}

func TestCellLabelRoundTrip(t *testing.T) {
	for col := 0; col < 30; col++ {
		c := Cell{Row: 7, Column: col}
		row, gotCol, err := ParseCoordinate(c.Label())
		require.NoError(t, err)
		assert.Equal(t, 7, row)
		assert.Equal(t, col, gotCol)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModePribadi, m)

	m, err = ParseMode("pengawasan")
	require.NoError(t, err)
	assert.Equal(t, ModePengawasan, m)

	_, err = ParseMode("PUBLIK")
	assert.Error(t, err)
}

func TestParentText(t *testing.T) {
	var p Parent = ProblemParent{Problem: Problem{Question: "Mengapa penjualan turun?"}}
	assert.Equal(t, "Mengapa penjualan turun?", p.Text())

	p = CellParent{Cell: Cell{Cause: "Harga naik"}}
	assert.Equal(t, "Harga naik", p.Text())
}

func TestErrNotFound(t *testing.T) {
	err := fmt.Errorf("load: %w", ErrNotFound{Entity: "problem", ID: "abc"})
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(ErrRateLimited))
	assert.Contains(t, err.Error(), `problem "abc" not found`)
}

func TestCellIsEmpty(t *testing.T) {
	assert.True(t, Cell{}.IsEmpty())
	assert.True(t, Cell{Cause: "   "}.IsEmpty())
	assert.False(t, Cell{Cause: "Harga naik"}.IsEmpty())
}
