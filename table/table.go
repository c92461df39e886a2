package table

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTable is returned when constructing a table without columns.
	ErrEmptyTable = errors.New("table must have at least one column")
	// ErrDuplicateColumn is returned when a column name already exists.
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// ErrRowCountMismatch indicates a column whose length differs from the table.
type ErrRowCountMismatch struct {
	Column   string
	Expected int
	Actual   int
}

func (e *ErrRowCountMismatch) Error() string {
	return fmt.Sprintf("column %q has %d rows, table has %d", e.Column, e.Actual, e.Expected)
}

// Table is an ordered sequence of columns sharing one row count.
// Column names are unique and insertion order is preserved.
type Table struct {
	cols []Column

	// Comments carries PLY header comments across a read/write round trip.
	Comments []string
}

// New creates a table from the given columns.
func New(cols ...Column) (*Table, error) {
	if len(cols) == 0 {
		return nil, ErrEmptyTable
	}
	t := &Table{cols: make([]Column, 0, len(cols))}
	for _, c := range cols {
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustNew is New for statically correct column sets; it panics on error.
func MustNew(cols ...Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the shared row count.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.cols) }

// Columns returns the column slice in insertion order. The slice is shared;
// callers must not mutate it.
func (t *Table) Columns() []Column { return t.cols }

// Column returns the named column, or nil when absent.
func (t *Table) Column(name string) Column {
	for _, c := range t.cols {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool { return t.Column(name) != nil }

// AddColumn appends a column, enforcing the shared row count and unique names.
func (t *Table) AddColumn(c Column) error {
	if t.Column(c.Name()) != nil {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name())
	}
	if len(t.cols) > 0 && c.Len() != t.NumRows() {
		return &ErrRowCountMismatch{Column: c.Name(), Expected: t.NumRows(), Actual: c.Len()}
	}
	t.cols = append(t.cols, c)
	return nil
}

// RemoveColumn removes the named column, reporting whether it existed.
func (t *Table) RemoveColumn(name string) bool {
	for i, c := range t.cols {
		if c.Name() == name {
			t.cols = append(t.cols[:i], t.cols[i+1:]...)
			return true
		}
	}
	return false
}

// Clone deep-copies the table: fresh column arrays, same names and types.
func (t *Table) Clone() *Table {
	cols := make([]Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.clone()
	}
	out := &Table{cols: cols}
	out.Comments = append(out.Comments, t.Comments...)
	return out
}

// Permute returns a new table whose row j copies source row indices[j].
// Types are preserved. Indices may repeat or drop rows.
func (t *Table) Permute(indices []int) *Table {
	cols := make([]Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.gather(indices)
	}
	out := &Table{cols: cols}
	out.Comments = append(out.Comments, t.Comments...)
	return out
}

// Filter returns a table of the rows for which keep returns true. When no
// row is dropped the result shares this table's column arrays.
func (t *Table) Filter(keep func(i int) bool) *Table {
	n := t.NumRows()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if keep(i) {
			indices = append(indices, i)
		}
	}
	if len(indices) == n {
		out := &Table{cols: append([]Column(nil), t.cols...)}
		out.Comments = append(out.Comments, t.Comments...)
		return out
	}
	return t.Permute(indices)
}

// Row materializes row i into the provided dictionary.
func (t *Table) Row(i int, row map[string]float64) {
	for _, c := range t.cols {
		row[c.Name()] = c.Get(i)
	}
}

// SetRow stores the dictionary values present in row into row i.
// Keys without a matching column are ignored.
func (t *Table) SetRow(i int, row map[string]float64) {
	for _, c := range t.cols {
		if v, ok := row[c.Name()]; ok {
			c.Set(i, v)
		}
	}
}
