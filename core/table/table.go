// Package table provides the in-memory, column-named table that flows
// through the preparation pipeline.
//
// A Table is treated as immutable: every transformation returns a new
// Table. Filters share untouched Row maps with their input; stages that
// change values clone the rows they touch.
package table

import (
	"sort"

	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// Kind classifies a column.
type Kind int

const (
	// KindCategorical columns hold labels from a closed domain.
	KindCategorical Kind = iota
	// KindNumeric columns must parse as float64 when present.
	KindNumeric
	// KindIdentifier columns are opaque string keys.
	KindIdentifier
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindIdentifier:
		return "identifier"
	default:
		return "categorical"
	}
}

// Table is an ordered set of named columns and the rows that fill them.
type Table struct {
	columns []string
	index   map[string]int
	kinds   map[string]Kind
	domains map[string][]string
	rows    []Row
}

// Option configures a new Table.
type Option func(*Table)

// WithKinds sets column kinds. Columns not listed default to
// KindCategorical; names not in the schema are ignored.
func WithKinds(kinds map[string]Kind) Option {
	return func(t *Table) {
		for col, k := range kinds {
			if _, ok := t.index[col]; ok {
				t.kinds[col] = k
			}
		}
	}
}

// New creates an empty table with the given columns.
func New(columns []string, opts ...Option) (*Table, error) {
	if len(columns) == 0 {
		return nil, errors.NewValidationError("columns", "at least one column is required", columns)
	}
	t := &Table{
		columns: make([]string, len(columns)),
		index:   make(map[string]int, len(columns)),
		kinds:   make(map[string]Kind),
		domains: make(map[string][]string),
	}
	copy(t.columns, columns)
	for i, col := range columns {
		if col == "" {
			return nil, errors.NewValidationError("columns", "column names must be non-empty", i)
		}
		if _, dup := t.index[col]; dup {
			return nil, errors.NewValidationError("columns", "duplicate column name", col)
		}
		t.index[col] = i
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Append adds a row. Columns the row omits become missing; keys that are
// not part of the schema are rejected.
func (t *Table) Append(row Row) error {
	for col := range row {
		if _, ok := t.index[col]; !ok {
			return errors.NewValidationError("row", "column not in schema", col)
		}
	}
	stored := make(Row, len(t.columns))
	for _, col := range t.columns {
		stored[col] = row.Get(col)
	}
	t.rows = append(t.rows, stored)
	return nil
}

// Columns returns a copy of the column names in schema order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Has reports whether column is part of the schema.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the row at ref. The returned Row must not be modified.
func (t *Table) Row(ref RowRef) Row {
	return t.rows[ref]
}

// Rows returns the rows in order. The slice and its rows must not be modified.
func (t *Table) Rows() []Row {
	return t.rows
}

// Kind returns the kind of column.
func (t *Table) Kind(column string) Kind {
	return t.kinds[column]
}

// ColumnsOfKind returns the columns of kind k in schema order.
func (t *Table) ColumnsOfKind(k Kind) []string {
	var out []string
	for _, col := range t.columns {
		if t.kinds[col] == k {
			out = append(out, col)
		}
	}
	return out
}

// Domain returns the closed level set of a categorical column, or nil
// when categorical normalization has not run.
func (t *Table) Domain(column string) []string {
	levels := t.domains[column]
	if levels == nil {
		return nil
	}
	out := make([]string, len(levels))
	copy(out, levels)
	return out
}

// Values returns the values of column in row order.
func (t *Table) Values(column string) ([]Value, error) {
	if !t.Has(column) {
		return nil, errors.NewSchemaError("values", column)
	}
	out := make([]Value, len(t.rows))
	for i, row := range t.rows {
		out[i] = row.Get(column)
	}
	return out, nil
}

// Counts tallies the present values of column. Missing values are counted
// under the empty key only when includeMissing is set.
func (t *Table) Counts(column string, includeMissing bool) map[string]int {
	counts := make(map[string]int)
	for _, row := range t.rows {
		v := row.Get(column)
		if v.Missing {
			if includeMissing {
				counts[""]++
			}
			continue
		}
		counts[v.Raw]++
	}
	return counts
}

// Filter returns a table holding the rows for which keep returns true.
// The first error returned by keep aborts the filter.
func (t *Table) Filter(keep func(Row) (bool, error)) (*Table, error) {
	out := t.derive(t.columns)
	for _, row := range t.rows {
		ok, err := keep(row)
		if err != nil {
			return nil, err
		}
		if ok {
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// Map returns a table whose rows are fn applied to each row. fn receives
// the original row and must return a new Row when it changes anything.
func (t *Table) Map(fn func(Row) (Row, error)) (*Table, error) {
	out := t.derive(t.columns)
	out.rows = make([]Row, 0, len(t.rows))
	for _, row := range t.rows {
		mapped, err := fn(row)
		if err != nil {
			return nil, err
		}
		out.rows = append(out.rows, mapped)
	}
	return out, nil
}

// Drop returns a table without the named columns. Unknown names are
// ignored.
func (t *Table) Drop(columns ...string) *Table {
	drop := make(map[string]bool, len(columns))
	for _, col := range columns {
		drop[col] = true
	}
	kept := make([]string, 0, len(t.columns))
	for _, col := range t.columns {
		if !drop[col] {
			kept = append(kept, col)
		}
	}
	out := t.derive(kept)
	out.rows = make([]Row, len(t.rows))
	for i, row := range t.rows {
		r := make(Row, len(kept))
		for _, col := range kept {
			r[col] = row.Get(col)
		}
		out.rows[i] = r
	}
	return out
}

// Subset returns a table holding the referenced rows in the given order.
// Rows are shared, not copied.
func (t *Table) Subset(refs []RowRef) *Table {
	out := t.derive(t.columns)
	out.rows = make([]Row, len(refs))
	for i, ref := range refs {
		out.rows[i] = t.rows[ref]
	}
	return out
}

// WithKind returns a table with column's kind changed.
func (t *Table) WithKind(column string, k Kind) *Table {
	out := t.derive(t.columns)
	out.rows = t.rows
	if t.Has(column) {
		out.kinds[column] = k
	}
	return out
}

// WithDomains returns a table carrying the given closed level sets.
// Levels are stored sorted.
func (t *Table) WithDomains(domains map[string][]string) *Table {
	out := t.derive(t.columns)
	out.rows = t.rows
	for col, levels := range domains {
		if !t.Has(col) {
			continue
		}
		sorted := make([]string, len(levels))
		copy(sorted, levels)
		sort.Strings(sorted)
		out.domains[col] = sorted
	}
	return out
}

// derive creates an empty table with the given columns, carrying kinds and
// domains of the columns that survive.
func (t *Table) derive(columns []string) *Table {
	out := &Table{
		columns: make([]string, len(columns)),
		index:   make(map[string]int, len(columns)),
		kinds:   make(map[string]Kind),
		domains: make(map[string][]string),
	}
	copy(out.columns, columns)
	for i, col := range columns {
		out.index[col] = i
		if k, ok := t.kinds[col]; ok {
			out.kinds[col] = k
		}
		if d, ok := t.domains[col]; ok {
			out.domains[col] = d
		}
	}
	return out
}
