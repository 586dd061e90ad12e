// Package table holds the in-memory tabular model shared by the loader, the
// normalizer and the checkers. Rows carry a stable RowID assigned at load time
// so anomalies keep pointing at the same source record across joins and filters.
package table

import "fmt"

// RowID identifies a source record as "<table>:<line>".
type RowID string

// NewRowID builds the identifier of the record starting on source line n.
func NewRowID(tableName string, n int) RowID {
	return RowID(fmt.Sprintf("%s:%d", tableName, n))
}

// Row is one record. Cells are aligned with Table.Columns.
type Row struct {
	ID    RowID
	Cells []Value
}

// Table is a named set of rows. Callers treat a Table as an immutable snapshot
// once built; stages that change data work on a Clone.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row

	colIndex map[string]int
	rowIndex map[RowID]int
}

// New creates an empty table with the given column names.
func New(name string, columns []string) *Table {
	t := &Table{
		Name:     name,
		Columns:  append([]string(nil), columns...),
		rowIndex: make(map[RowID]int),
	}
	t.reindexColumns()
	return t
}

func (t *Table) reindexColumns() {
	t.colIndex = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.colIndex[c] = i
	}
}

// Append adds a row. Missing trailing cells are padded with nulls and extra
// cells are dropped.
func (t *Table) Append(id RowID, cells []Value) {
	row := make([]Value, len(t.Columns))
	copy(row, cells)
	t.rowIndex[id] = len(t.Rows)
	t.Rows = append(t.Rows, Row{ID: id, Cells: row})
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Has reports whether the table has a column with this exact name.
func (t *Table) Has(column string) bool {
	_, ok := t.colIndex[column]
	return ok
}

// ColumnIndex returns the position of a column.
func (t *Table) ColumnIndex(column string) (int, bool) {
	i, ok := t.colIndex[column]
	return i, ok
}

// Get returns the cell at row i for the named column, or null when the column
// does not exist.
func (t *Table) Get(i int, column string) Value {
	c, ok := t.colIndex[column]
	if !ok || i < 0 || i >= len(t.Rows) {
		return Null()
	}
	return t.Rows[i].Cells[c]
}

// Set replaces the cell at row i for the named column.
func (t *Table) Set(i int, column string, v Value) {
	c, ok := t.colIndex[column]
	if !ok {
		return
	}
	t.Rows[i].Cells[c] = v
}

// Lookup returns the position of the row with this id.
func (t *Table) Lookup(id RowID) (int, bool) {
	i, ok := t.rowIndex[id]
	return i, ok
}

// Column returns a copy of every cell of a column, in row order.
func (t *Table) Column(column string) []Value {
	c, ok := t.colIndex[column]
	if !ok {
		return nil
	}
	out := make([]Value, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Cells[c]
	}
	return out
}

// DropColumns removes every column for which drop returns true and returns the
// removed names.
func (t *Table) DropColumns(drop func(column string) bool) []string {
	var keep []int
	var dropped []string
	for i, c := range t.Columns {
		if drop(c) {
			dropped = append(dropped, c)
			continue
		}
		keep = append(keep, i)
	}
	if len(dropped) == 0 {
		return nil
	}
	cols := make([]string, len(keep))
	for j, i := range keep {
		cols[j] = t.Columns[i]
	}
	for r := range t.Rows {
		cells := make([]Value, len(keep))
		for j, i := range keep {
			cells[j] = t.Rows[r].Cells[i]
		}
		t.Rows[r].Cells = cells
	}
	t.Columns = cols
	t.reindexColumns()
	return dropped
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := New(t.Name, t.Columns)
	for _, r := range t.Rows {
		cells := make([]Value, len(r.Cells))
		for i, v := range r.Cells {
			if items, ok := v.AsList(); ok {
				v = List(items)
			}
			cells[i] = v
		}
		c.Append(r.ID, cells)
	}
	return c
}

// Equal reports whether two tables have the same columns, row ids and cells.
func (t *Table) Equal(o *Table) bool {
	if t.Name != o.Name || len(t.Columns) != len(o.Columns) || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != o.Columns[i] {
			return false
		}
	}
	for i := range t.Rows {
		if t.Rows[i].ID != o.Rows[i].ID {
			return false
		}
		for j := range t.Rows[i].Cells {
			if !t.Rows[i].Cells[j].Equal(o.Rows[i].Cells[j]) {
				return false
			}
		}
	}
	return true
}
