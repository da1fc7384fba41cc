package model

import (
	"errors"
	"fmt"
)

// Dataset is a read-only view of a tabular dataset: an ordered set of
// named columns sharing one row count.
//
// This is the only surface the null reporter needs. Sources (CSV files,
// SQLite tables, ...) implement it directly or load into a Frame.
type Dataset interface {
	// Columns returns the column names in dataset order.
	Columns() []string

	// Dtype returns the element type of the named column.
	Dtype(column string) Dtype

	// Len returns the number of rows.
	Len() int

	// NullCount returns the number of missing values in the named column.
	NullCount(column string) int
}

var (
	// ErrColumnLength is returned when columns of a Frame have different lengths.
	ErrColumnLength = errors.New("column length mismatch")

	// ErrDuplicateColumn is returned when two columns of a Frame share a name.
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// Column is a named, ordered sequence of values.
// A nil value (or a float NaN) is a missing value.
type Column struct {
	// Name identifies the column within its Frame.
	Name string

	// Dtype is the element type. NewColumn infers it from Values.
	Dtype Dtype

	// Values holds one entry per row.
	Values []any
}

// NewColumn creates a column and infers its dtype from the values.
func NewColumn(name string, values ...any) Column {
	return Column{
		Name:   name,
		Dtype:  InferDtype(values),
		Values: values,
	}
}

// NewTypedColumn creates a column with a declared dtype.
// Use this when the source knows the type better than the values do,
// for example a SQLite INTEGER column that holds only NULLs.
func NewTypedColumn(name string, dtype Dtype, values ...any) Column {
	return Column{
		Name:   name,
		Dtype:  dtype,
		Values: values,
	}
}

// NullCount returns the number of missing values in the column.
func (c Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if IsMissing(v) {
			n++
		}
	}
	return n
}

// Frame is an in-memory Dataset.
// A Frame is not modified after construction, so it is safe for
// concurrent readers.
type Frame struct {
	columns []Column
	index   map[string]int
	rows    int
}

// NewFrame builds a Frame from columns.
// All columns must have the same number of values and unique names.
func NewFrame(columns ...Column) (*Frame, error) {
	f := &Frame{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}

	for i, c := range columns {
		if _, ok := f.index[c.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		if i == 0 {
			f.rows = len(c.Values)
		} else if len(c.Values) != f.rows {
			return nil, fmt.Errorf("%w: column %q has %d values, expected %d",
				ErrColumnLength, c.Name, len(c.Values), f.rows)
		}
		f.index[c.Name] = i
		f.columns = append(f.columns, c)
	}

	return f, nil
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// Dtype returns the dtype of the named column, or object if it does not exist.
func (f *Frame) Dtype(column string) Dtype {
	c, ok := f.Column(column)
	if !ok {
		return DtypeObject
	}
	return c.Dtype
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return f.rows
}

// NullCount returns the number of missing values in the named column.
// An unknown column has no missing values.
func (f *Frame) NullCount(column string) int {
	c, ok := f.Column(column)
	if !ok {
		return 0
	}
	return c.NullCount()
}

// Column returns the named column.
func (f *Frame) Column(name string) (Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return Column{}, false
	}
	return f.columns[i], true
}
