package table

import (
	"strconv"
	"strings"
)

// Value is a single cell. Raw keeps the text as loaded; Missing marks a
// value that was never recorded or was turned into a missing marker by a
// cleaning stage.
type Value struct {
	Raw     string
	Missing bool
}

// V returns a present value.
func V(raw string) Value {
	return Value{Raw: raw}
}

// Missing returns the missing marker.
func Missing() Value {
	return Value{Missing: true}
}

// Float parses the value as a number. Callers must check Missing first;
// a missing value returns strconv.ErrSyntax.
func (v Value) Float() (float64, error) {
	if v.Missing {
		return 0, &strconv.NumError{Func: "ParseFloat", Num: "", Err: strconv.ErrSyntax}
	}
	return strconv.ParseFloat(strings.TrimSpace(v.Raw), 64)
}

// String renders missing values as "NA".
func (v Value) String() string {
	if v.Missing {
		return "NA"
	}
	return v.Raw
}

// Row maps column names to values. A column absent from the map reads as
// missing.
type Row map[string]Value

// Get returns the value in column, or Missing when the column is absent.
func (r Row) Get(column string) Value {
	v, ok := r[column]
	if !ok {
		return Missing()
	}
	return v
}

// Clone returns a shallow copy safe to modify.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RowRef is an index into a Table's rows. Partitions hand out RowRefs so
// the clean table is never copied.
type RowRef int
