// Package export renders scheduling timetables as CSV or PDF documents.
package export

import "fmt"

// Column is a timetable column. Weight sizes the column relative to its siblings
// in paginated output; zero counts as 1.
type Column struct {
	Header string
	Weight float64
}

// Table is an ordered timetable. Every row holds one cell per column. Notes are
// summary lines printed under the table in PDF output.
type Table struct {
	Title   string
	Columns []Column
	Rows    [][]string
	Notes   []string
}

func (t Table) validate() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("timetable requires at least one column")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("timetable row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
	}
	return nil
}

func (t Table) headers() []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = col.Header
	}
	return out
}

// widths splits total across the columns by weight.
func (t Table) widths(total float64) []float64 {
	var sum float64
	weights := make([]float64, len(t.Columns))
	for i, col := range t.Columns {
		w := col.Weight
		if w <= 0 {
			w = 1
		}
		weights[i] = w
		sum += w
	}
	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = total * w / sum
	}
	return out
}
