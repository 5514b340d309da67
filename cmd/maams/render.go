package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/grid"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/types"
)

const cellWidth = 26

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	questionStyle = lipgloss.NewStyle().Italic(true)
	headerStyle   = lipgloss.NewStyle().Bold(true).Width(cellWidth + 2).Align(lipgloss.Center)
	feedbackStyle = lipgloss.NewStyle().Faint(true)

	baseCell      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Width(cellWidth).Padding(0, 1)
	pendingStyle  = baseCell.BorderForeground(lipgloss.Color("8"))
	acceptedStyle = baseCell.BorderForeground(lipgloss.Color("2"))
	rejectedStyle = baseCell.BorderForeground(lipgloss.Color("1"))
	rootStyle     = baseCell.BorderForeground(lipgloss.Color("5")).Bold(true)
)

// renderDetail draws the grid column by column, rows top-down.
func renderDetail(d grid.Detail, maxColumns int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(d.Problem.Title))
	fmt.Fprintf(&b, " [%s]", d.Problem.Mode)
	if len(d.Problem.Tags) > 0 {
		fmt.Fprintf(&b, " #%s", strings.Join(d.Problem.Tags, " #"))
	}
	b.WriteString("\n")
	b.WriteString(questionStyle.Render(d.Problem.Question))
	b.WriteString("\n\n")

	if len(d.Cells) == 0 {
		b.WriteString("(no causes yet)")
		return b.String()
	}

	byCol := make(map[int]map[int]types.Cell)
	width, depth := 0, 0
	for _, c := range d.Cells {
		if byCol[c.Column] == nil {
			byCol[c.Column] = make(map[int]types.Cell)
		}
		byCol[c.Column][c.Row] = c
		if c.Column+1 > width {
			width = c.Column + 1
		}
		if c.Row > depth {
			depth = c.Row
		}
	}
	if maxColumns > 0 && width > maxColumns {
		width = maxColumns
	}

	columns := make([]string, 0, width)
	for col := 0; col < width; col++ {
		parts := []string{headerStyle.Render(types.ColumnLabel(col))}
		for row := 1; row <= depth; row++ {
			c, ok := byCol[col][row]
			if !ok {
				break
			}
			parts = append(parts, renderCell(c))
		}
		columns = append(columns, lipgloss.JoinVertical(lipgloss.Left, parts...))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, columns...))
	return b.String()
}

// renderProblems prints one line per problem: id, mode, title and tags.
func renderProblems(problems []types.Problem) string {
	if len(problems) == 0 {
		return "(no questions yet)\n"
	}
	var b strings.Builder
	for _, p := range problems {
		line := fmt.Sprintf("%s  %-10s %s", p.ID, p.Mode, titleStyle.Render(p.Title))
		if len(p.Tags) > 0 {
			line += " #" + strings.Join(p.Tags, " #")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func renderCell(c types.Cell) string {
	text := c.Cause
	if c.IsEmpty() {
		text = "…"
	}
	style := pendingStyle
	marker := "?"
	switch {
	case c.IsRoot:
		style, marker = rootStyle, "★"
	case c.Validated:
		style, marker = acceptedStyle, "✓"
	case c.Feedback != "":
		style, marker = rejectedStyle, "✗"
	}

	body := fmt.Sprintf("%s %s %s", c.Label(), marker, text)
	if c.Feedback != "" {
		body += "\n" + feedbackStyle.Render(c.Feedback)
	}
	return style.Render(body)
}
