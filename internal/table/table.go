// Package table implements the ordered-column string table passed between the
// enrichment engine, the rule engine and the partitioned store.
package table

import (
	"fmt"
	"sort"
)

// Row maps column name to value. A missing key is a null; an empty string is a
// blank. Both are distinguishable from a populated cell.
type Row map[string]string

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered set of named string columns. Rules and enrichment build
// new tables rather than mutating in place.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given column order.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Has reports whether the table declares the column.
func (t *Table) Has(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Append adds a row. Values for undeclared columns are kept; they surface if a
// later projection declares them.
func (t *Table) Append(row Row) {
	t.Rows = append(t.Rows, row)
}

// Clone deep-copies the table.
func (t *Table) Clone() *Table {
	out := New(t.Columns...)
	out.Rows = make([]Row, 0, len(t.Rows))
	for _, row := range t.Rows {
		out.Rows = append(out.Rows, row.Clone())
	}
	return out
}

// Filter returns a new table containing the rows keep accepts.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.Columns...)
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row.Clone())
		}
	}
	return out
}

// Select projects the table onto the requested columns, in order. Columns the
// table does not declare are returned in missing rather than failing.
func (t *Table) Select(columns []string) (out *Table, missing []string) {
	var present []string
	for _, c := range columns {
		if t.Has(c) {
			present = append(present, c)
		} else {
			missing = append(missing, c)
		}
	}
	out = New(present...)
	for _, row := range t.Rows {
		projected := make(Row, len(present))
		for _, c := range present {
			if v, ok := row[c]; ok {
				projected[c] = v
			}
		}
		out.Rows = append(out.Rows, projected)
	}
	return out, missing
}

// GroupBy partitions rows by the value of the named column. The column must be
// declared: partitioned writes depend on it.
func (t *Table) GroupBy(column string) (map[string]*Table, error) {
	if !t.Has(column) {
		return nil, fmt.Errorf("table has no %q column", column)
	}
	groups := make(map[string]*Table)
	for _, row := range t.Rows {
		key := row[column]
		g, ok := groups[key]
		if !ok {
			g = New(t.Columns...)
			groups[key] = g
		}
		g.Rows = append(g.Rows, row.Clone())
	}
	return groups, nil
}

// Keys returns the sorted distinct values of the named column.
func (t *Table) Keys(column string) []string {
	seen := make(map[string]struct{})
	for _, row := range t.Rows {
		if v, ok := row[column]; ok {
			seen[v] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
