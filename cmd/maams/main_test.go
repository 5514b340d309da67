package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/grid"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/types"
)

func TestRenderDetail(t *testing.T) {
	d := grid.Detail{
		Problem: types.Problem{Title: "Penjualan", Question: "Mengapa penjualan turun?", Mode: types.ModePribadi, Tags: []string{"ekonomi"}},
		Cells: []types.Cell{
			{Row: 1, Column: 0, Cause: "Harga naik", Validated: true},
			{Row: 2, Column: 0, Cause: "Suap", Validated: true, IsRoot: true, Feedback: "Korupsi Harta."},
			{Row: 1, Column: 1, Cause: "Cuaca", Feedback: "Tidak relevan"},
			{Row: 2, Column: 1},
		},
	}
	out := renderDetail(d, 5)

	for _, want := range []string{"Penjualan", "[PRIBADI]", "#ekonomi", "Mengapa penjualan turun?", "A1 ✓ Harga naik", "A2 ★ Suap", "B1 ✗ Cuaca", "Tidak relevan", "B2 ? …"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderDetail_Empty(t *testing.T) {
	out := renderDetail(grid.Detail{Problem: types.Problem{Title: "t", Question: "q"}}, 5)
	assert.Contains(t, out, "(no causes yet)")
}

func TestCLI_QuestionCauseShow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MAAMS_DB_DRIVER", "sqlite")
	t.Setenv("MAAMS_DB_DSN", filepath.Join(dir, "maams.db"))
	t.Setenv("MAAMS_LOG_LEVEL", "error")
	cfgFile := filepath.Join(dir, "maams.yaml")

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs(append([]string{"--config", cfgFile}, args...))
		require.NoError(t, rootCmd.Execute(), out.String())
		return strings.TrimSpace(out.String())
	}

	qid := run("question", "create", "--title", "Penjualan", "--question", "Mengapa penjualan turun?", "--tags", "ekonomi,toko")
	require.NotEmpty(t, qid)

	listed := run("question", "list")
	assert.Contains(t, listed, qid)
	assert.Contains(t, listed, "#ekonomi #toko")

	added := run("cause", "add", qid, "A1", "Harga", "naik")
	assert.True(t, strings.HasPrefix(added, "A1 "))

	set := run("cause", "set", qid, "a1", "Biaya naik")
	assert.True(t, strings.HasPrefix(set, "A1 "))

	shown := run("show", qid)
	assert.Contains(t, shown, "Biaya naik")

	assert.Equal(t, "deleted "+qid, run("question", "delete", qid))
	assert.Equal(t, "(no questions yet)", run("question", "list"))
}
