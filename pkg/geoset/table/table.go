// Package table holds the tab-separated table model shared by the
// splitter and the preprocessing stage.
package table

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Table is an ordered set of rows under an ordered set of columns.
// A headerless table has nil Columns and purely positional rows.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumColumns returns the column count; for headerless tables this is
// the width of the widest row.
func (t *Table) NumColumns() int {
	if t.Columns != nil {
		return len(t.Columns)
	}
	max := 0
	for _, r := range t.Rows {
		if len(r) > max {
			max = len(r)
		}
	}
	return max
}

// Cell returns the value at (row, column name). The bool is false when
// the column does not exist or the table is headerless.
func (t *Table) Cell(row int, column string) (string, bool) {
	if row < 0 || row >= len(t.Rows) {
		return "", false
	}
	for i, c := range t.Columns {
		if c == column {
			if i >= len(t.Rows[row]) {
				return "", true
			}
			return t.Rows[row][i], true
		}
	}
	return "", false
}

// Drop returns a copy of the table without the named columns. Names not
// present are ignored, so dropping is safe to repeat and safe under
// unknown names. Headerless tables are returned unchanged.
func (t *Table) Drop(columns ...string) *Table {
	if t.Columns == nil {
		return &Table{Rows: copyRows(t.Rows)}
	}

	dropped := make(map[string]bool, len(columns))
	for _, c := range columns {
		dropped[c] = true
	}

	keep := make([]int, 0, len(t.Columns))
	cols := make([]string, 0, len(t.Columns))
	for i, c := range t.Columns {
		if dropped[c] {
			continue
		}
		keep = append(keep, i)
		cols = append(cols, c)
	}

	out := &Table{Columns: cols, Rows: make([][]string, len(t.Rows))}
	for ri, row := range t.Rows {
		newRow := make([]string, len(keep))
		for ni, oi := range keep {
			if oi < len(row) {
				newRow[ni] = row[oi]
			}
		}
		out.Rows[ri] = newRow
	}
	return out
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// ReadTSV parses tab-separated text. With headerless=false the first
// line names the columns; rows shorter than the header are padded with
// empty cells, rows wider than it are an error. Values carry no quoting
// or escaping.
func ReadTSV(r io.Reader, headerless bool) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	t := &Table{}
	first := true
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimRight(sc.Text(), "\r")
		if raw == "" {
			continue
		}
		fields := strings.Split(raw, "\t")

		if first && !headerless {
			t.Columns = fields
			first = false
			continue
		}
		first = false

		if t.Columns != nil {
			if len(fields) > len(t.Columns) {
				return nil, fmt.Errorf("line %d: row has %d fields, header has %d", line, len(fields), len(t.Columns))
			}
			for len(fields) < len(t.Columns) {
				fields = append(fields, "")
			}
		}
		t.Rows = append(t.Rows, fields)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// WriteTSV serializes the table as tab-separated text, header first
// when present. Column order is preserved and no index column is added.
func (t *Table) WriteTSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if t.Columns != nil {
		if _, err := bw.WriteString(strings.Join(t.Columns, "\t") + "\n"); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		if _, err := bw.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
