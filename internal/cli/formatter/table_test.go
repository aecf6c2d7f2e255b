package formatter

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTable_Empty(t *testing.T) {
	assert.Empty(t, RenderTable(nil, nil))
}

func TestRenderTable_AlignsColumns(t *testing.T) {
	out := RenderTable(
		[]string{"TASK", "EARNED"},
		[][]string{
			{"write-report", "$60.00"},
			{"x", StyleGreen.Render("$5.00")},
		},
	)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)

	// Every second column starts at the same visible offset.
	col := strings.Index(lines[0], "EARNED")
	assert.Equal(t, len("write-report")+colGap, col)
	assert.Equal(t, col, strings.Index(lines[2], "$60.00"))
	assert.Contains(t, lines[1], "─")
}

func TestTable_RightAligned(t *testing.T) {
	out := Table{
		Headers: []string{"DAY", "EARNED"},
		Rows: [][]string{
			{"Mon", "$1.00"},
			{"Tue", "$100.00"},
		},
		Right: map[int]bool{1: true},
	}.Render()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, lipgloss.Width(lines[2]), lipgloss.Width(lines[3]))
	assert.True(t, strings.HasSuffix(lines[2], "  $1.00"))
	assert.True(t, strings.HasSuffix(lines[3], "$100.00"))
}

func TestTable_ShortRowsPadded(t *testing.T) {
	out := RenderTable([]string{"A", "B", "C"}, [][]string{{"1"}})
	assert.Contains(t, out, "1")
	assert.Equal(t, 3, strings.Count(out, "\n"))
}
