// Package dataset holds the tabular record set passed between pipeline steps.
//
// A Dataset is an ordered list of rows sharing one ordered set of columns.
// Cells are tagged Values, so records from schema-less sources (JSON,
// spreadsheets) keep their shape without losing static typing.
package dataset

import (
	"sort"
	"strconv"
	"strings"
)

// Row maps a column name to its value. Absent keys read as Null.
type Row map[string]Value

// Get returns the value for column, Null when absent.
func (r Row) Get(column string) Value {
	return r[column]
}

// Dataset is an ordered collection of uniformly shaped rows.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// New creates an empty Dataset with the given columns. Duplicate names are ignored.
func New(columns ...string) *Dataset {
	d := &Dataset{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		d.AddColumn(c)
	}
	return d
}

// FromRecords builds a Dataset from decoded records. Columns are ordered by
// the record that introduces them, keys of one record in lexical order since
// maps carry no order. A record missing a column gets Null there.
func FromRecords(records []map[string]interface{}) *Dataset {
	d := New()
	for _, rec := range records {
		for _, k := range newKeys(rec, d) {
			d.AddColumn(k)
		}
		row := make(Row, len(rec))
		for k, v := range rec {
			row[k] = ValueOf(v)
		}
		d.rows = append(d.rows, row)
	}
	return d
}

func newKeys(rec map[string]interface{}, d *Dataset) []string {
	var fresh []string
	for k := range rec {
		if !d.HasColumn(k) {
			fresh = append(fresh, k)
		}
	}
	sort.Strings(fresh)
	return fresh
}

// AddColumn appends a column if it does not exist yet. Existing rows read Null for it.
func (d *Dataset) AddColumn(name string) {
	if d.index == nil {
		d.index = make(map[string]int)
	}
	if _, ok := d.index[name]; ok {
		return
	}
	d.index[name] = len(d.columns)
	d.columns = append(d.columns, name)
}

// Columns returns a copy of the column names in order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// HasColumn reports whether name is a column.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// IsEmpty reports whether the Dataset has no rows or no columns.
func (d *Dataset) IsEmpty() bool {
	return d == nil || len(d.rows) == 0 || len(d.columns) == 0
}

// Append adds a row. Unknown keys become new columns.
func (d *Dataset) Append(row Row) {
	cp := make(Row, len(row))
	for k, v := range row {
		d.AddColumn(k)
		cp[k] = v
	}
	d.rows = append(d.rows, cp)
}

// AppendValues adds a row given values in column order. Extra values are dropped,
// missing ones are Null.
func (d *Dataset) AppendValues(values ...Value) {
	row := make(Row, len(d.columns))
	for i, c := range d.columns {
		if i < len(values) {
			row[c] = values[i]
		}
	}
	d.rows = append(d.rows, row)
}

// Row returns row i.
func (d *Dataset) Row(i int) Row {
	return d.rows[i]
}

// Rows returns the rows. The slice is shared; callers must not modify it.
func (d *Dataset) Rows() []Row {
	return d.rows
}

// Values returns row i's values in column order.
func (d *Dataset) Values(i int) []Value {
	row := d.rows[i]
	out := make([]Value, len(d.columns))
	for j, c := range d.columns {
		out[j] = row[c]
	}
	return out
}

// Records returns the rows as plain maps (nil, string, float64, bool), every
// column present.
func (d *Dataset) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(d.rows))
	for i := range d.rows {
		rec := make(map[string]interface{}, len(d.columns))
		for _, c := range d.columns {
			rec[c] = d.rows[i][c].Interface()
		}
		out = append(out, rec)
	}
	return out
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := New(d.columns...)
	out.rows = make([]Row, 0, len(d.rows))
	for _, r := range d.rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.rows = append(out.rows, cp)
	}
	return out
}

// withRows returns a Dataset sharing d's columns and holding rows.
func (d *Dataset) withRows(rows []Row) *Dataset {
	out := New(d.columns...)
	out.rows = rows
	return out
}

// rowKey is the canonical identity of a row across every column. Each cell
// key is length-prefixed so no cell content can spill into its neighbour.
func (d *Dataset) rowKey(r Row) string {
	var sb strings.Builder
	for _, c := range d.columns {
		k := r[c].key()
		sb.WriteString(strconv.Itoa(len(k)))
		sb.WriteByte(':')
		sb.WriteString(k)
	}
	return sb.String()
}

// DropDuplicates removes rows identical to an earlier row in every column.
// Null equals Null. The first occurrence is kept.
func (d *Dataset) DropDuplicates() *Dataset {
	seen := make(map[string]struct{}, len(d.rows))
	kept := make([]Row, 0, len(d.rows))
	for _, r := range d.rows {
		k := d.rowKey(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, r)
	}
	return d.withRows(kept)
}

// DropMissing removes rows holding Null in any of the given columns. Columns
// that do not exist are ignored. With no columns, every column is checked.
func (d *Dataset) DropMissing(columns ...string) *Dataset {
	check := columns
	if len(check) == 0 {
		check = d.columns
	}
	kept := make([]Row, 0, len(d.rows))
	for _, r := range d.rows {
		missing := false
		for _, c := range check {
			if d.HasColumn(c) && r[c].IsNull() {
				missing = true
				break
			}
		}
		if !missing {
			kept = append(kept, r)
		}
	}
	return d.withRows(kept)
}

// FillMissing replaces every Null cell with fill.
func (d *Dataset) FillMissing(fill Value) *Dataset {
	out := d.Clone()
	for _, r := range out.rows {
		for _, c := range out.columns {
			if r[c].IsNull() {
				r[c] = fill
			}
		}
	}
	return out
}

// CountMissing returns the number of Null cells.
func (d *Dataset) CountMissing() int {
	n := 0
	for _, r := range d.rows {
		for _, c := range d.columns {
			if r[c].IsNull() {
				n++
			}
		}
	}
	return n
}

// Equal reports whether both Datasets have the same columns in the same order
// and the same rows in the same order.
func (d *Dataset) Equal(o *Dataset) bool {
	if d == nil || o == nil {
		return d.IsEmpty() && o.IsEmpty() && d.Len() == o.Len()
	}
	if len(d.columns) != len(o.columns) || len(d.rows) != len(o.rows) {
		return false
	}
	for i := range d.columns {
		if d.columns[i] != o.columns[i] {
			return false
		}
	}
	for i := range d.rows {
		for _, c := range d.columns {
			if !d.rows[i][c].Equal(o.rows[i][c]) {
				return false
			}
		}
	}
	return true
}
