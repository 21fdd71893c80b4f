package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		Title:   "Timetable req-1",
		Columns: []Column{{Header: "Class ID", Weight: 2}, {Header: "Teacher ID"}, {Header: "Students", Weight: 3}},
		Rows: [][]string{
			{"class-1", "t1", "s1 s2"},
			{"class-2", "t2", "s3, s4"},
		},
		Notes: []string{"Unresolved conflicts: 0"},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleTable())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Class ID,Teacher ID,Students", lines[0])
	assert.Equal(t, `class-2,t2,"s3, s4"`, lines[2])
	assert.NotContains(t, string(out), "Unresolved")
}

func TestExportersRejectMalformedTables(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{})
	assert.Error(t, err)

	ragged := sampleTable()
	ragged.Rows = append(ragged.Rows, []string{"only-one"})
	_, err = NewCSVExporter().Render(ragged)
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(ragged)
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	table := sampleTable()
	for i := 0; i < 60; i++ {
		table.Rows = append(table.Rows, []string{"class-x", "t9", strings.Repeat("student ", 40)})
	}

	out, err := NewPDFExporter().Render(table)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))

	empty, err := NewPDFExporter().Render(Table{Columns: table.Columns})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(empty), "%PDF"))
}

func TestTableWidths(t *testing.T) {
	widths := sampleTable().widths(60)
	assert.InDeltaSlice(t, []float64{20, 10, 30}, widths, 1e-9)
}
