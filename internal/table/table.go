package table

import (
	"fmt"
	"strings"
)

// Table is an in-memory tabular value: a name, an ordered column list, and
// row storage. All cell values are strings; the empty string represents NULL.
// Intermediate stages operate on Tables through explicit projection, drop,
// and insert operations so column-presence assumptions never propagate
// implicitly between stages.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string

	index map[string]int
}

// New creates an empty table with the given ordered columns.
func New(name string, columns []string) *Table {
	t := &Table{
		Name:    name,
		Columns: append([]string(nil), columns...),
	}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
}

// IsNull reports whether a cell value represents NULL.
func IsNull(v string) bool {
	return v == ""
}

// AppendRow adds one row. The row length must match the column count.
func (t *Table) AppendRow(row []string) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("table %s: row has %d cells, want %d", t.Name, len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, append([]string(nil), row...))
	return nil
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of a column, or false if absent.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Cell returns the value at (row, column). Panics on unknown column, like a
// slice index out of range: callers project or check first.
func (t *Table) Cell(row int, column string) string {
	i, ok := t.index[column]
	if !ok {
		panic(fmt.Sprintf("table %s: unknown column %q", t.Name, column))
	}
	return t.Rows[row][i]
}

// Column returns all values of one column in row order.
func (t *Table) Column(name string) []string {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	vals := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		vals[r] = row[i]
	}
	return vals
}

// DistinctNonNull returns the set of distinct non-null values of a column.
func (t *Table) DistinctNonNull(name string) map[string]struct{} {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	set := make(map[string]struct{})
	for _, row := range t.Rows {
		if !IsNull(row[i]) {
			set[row[i]] = struct{}{}
		}
	}
	return set
}

// DistinctCount returns the number of distinct values (nulls included as one
// value when present).
func (t *Table) DistinctCount(name string) int {
	i, ok := t.index[name]
	if !ok {
		return 0
	}
	set := make(map[string]struct{})
	for _, row := range t.Rows {
		set[row[i]] = struct{}{}
	}
	return len(set)
}

// Key joins the values of the given columns for one row into a single
// grouping key. The separator is a control character that does not occur in
// tabular text data.
func (t *Table) Key(row int, columns []string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = t.Cell(row, c)
	}
	return strings.Join(parts, "\x1f")
}

// Project returns a new table holding the distinct combinations of the given
// columns, preserving first-seen row order.
func (t *Table) Project(name string, columns ...string) (*Table, error) {
	for _, c := range columns {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("table %s: cannot project unknown column %q", t.Name, c)
		}
	}
	out := New(name, columns)
	seen := make(map[string]struct{}, len(t.Rows))
	for r := range t.Rows {
		key := t.Key(r, columns)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = t.Cell(r, c)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// DropColumns removes the named columns in place. Unknown names are ignored.
func (t *Table) DropColumns(columns ...string) {
	drop := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		drop[c] = struct{}{}
	}
	var keep []int
	var kept []string
	for i, c := range t.Columns {
		if _, gone := drop[c]; !gone {
			keep = append(keep, i)
			kept = append(kept, c)
		}
	}
	if len(kept) == len(t.Columns) {
		return
	}
	for r, row := range t.Rows {
		next := make([]string, len(keep))
		for j, i := range keep {
			next[j] = row[i]
		}
		t.Rows[r] = next
	}
	t.Columns = kept
	t.reindex()
}

// InsertColumn inserts a column at the given position with one value per row.
func (t *Table) InsertColumn(pos int, name string, values []string) error {
	if t.HasColumn(name) {
		return fmt.Errorf("table %s: column %q already exists", t.Name, name)
	}
	if len(values) != len(t.Rows) {
		return fmt.Errorf("table %s: %d values for %d rows", t.Name, len(values), len(t.Rows))
	}
	if pos < 0 || pos > len(t.Columns) {
		return fmt.Errorf("table %s: insert position %d out of range", t.Name, pos)
	}
	cols := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, t.Columns[:pos]...)
	cols = append(cols, name)
	cols = append(cols, t.Columns[pos:]...)
	for r, row := range t.Rows {
		next := make([]string, 0, len(row)+1)
		next = append(next, row[:pos]...)
		next = append(next, values[r])
		next = append(next, row[pos:]...)
		t.Rows[r] = next
	}
	t.Columns = cols
	t.reindex()
	return nil
}

// RenameColumn renames a column in place.
func (t *Table) RenameColumn(old, name string) error {
	i, ok := t.index[old]
	if !ok {
		return fmt.Errorf("table %s: unknown column %q", t.Name, old)
	}
	if t.HasColumn(name) {
		return fmt.Errorf("table %s: column %q already exists", t.Name, name)
	}
	t.Columns[i] = name
	t.reindex()
	return nil
}

// Clone returns a deep copy, optionally under a new name.
func (t *Table) Clone(name string) *Table {
	if name == "" {
		name = t.Name
	}
	out := New(name, t.Columns)
	out.Rows = make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		out.Rows[r] = append([]string(nil), row...)
	}
	return out
}
