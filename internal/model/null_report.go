package model

import "time"

// ColumnNulls holds the null statistics of one column that has at least
// one missing value.
type ColumnNulls struct {
	// Name is the column name.
	Name string `json:"name"`

	// NonNullCount is the number of present values.
	NonNullCount int `json:"non_null_count"`

	// NullCount is the number of missing values. Always greater than zero.
	NullCount int `json:"null_count"`

	// Dtype is the column's element type.
	Dtype Dtype `json:"dtype"`
}

// NullReport is the result of a null scan over one dataset.
//
// Columns lists only the columns that contain missing values, in the same
// order as the dataset. Columns without missing values are counted in
// ColumnCount but not listed.
type NullReport struct {
	// Source identifies where the dataset came from (usually an absolute path).
	Source string `json:"source"`

	// Fingerprint is a content hash of the source, if known.
	// It lets history tell "same data" apart from "same file name".
	Fingerprint string `json:"fingerprint,omitempty"`

	// DateScanned is when the report was produced.
	DateScanned time.Time `json:"date_scanned"`

	// RowCount is the dataset's row count.
	RowCount int `json:"row_count"`

	// ColumnCount is the total number of columns in the dataset.
	ColumnCount int `json:"column_count"`

	// Columns holds one entry per column with missing values.
	Columns []ColumnNulls `json:"columns"`
}

// NewNullReport scans ds and returns its null report.
// ds is only read.
func NewNullReport(source string, ds Dataset) *NullReport {
	names := ds.Columns()
	rows := ds.Len()

	report := &NullReport{
		Source:      source,
		DateScanned: time.Now(),
		RowCount:    rows,
		ColumnCount: len(names),
		Columns:     make([]ColumnNulls, 0),
	}

	for _, name := range names {
		nulls := ds.NullCount(name)
		if nulls <= 0 {
			continue
		}
		report.Columns = append(report.Columns, ColumnNulls{
			Name:         name,
			NonNullCount: rows - nulls,
			NullCount:    nulls,
			Dtype:        ds.Dtype(name),
		})
	}

	return report
}

// NumColumnsWithNulls returns the number of columns with missing values.
func (r *NullReport) NumColumnsWithNulls() int {
	return len(r.Columns)
}

// HasNulls reports whether any column has missing values.
func (r *NullReport) HasNulls() bool {
	return len(r.Columns) > 0
}

// TotalNulls returns the number of missing values across all columns.
func (r *NullReport) TotalNulls() int {
	total := 0
	for _, c := range r.Columns {
		total += c.NullCount
	}
	return total
}

// Column returns the statistics of the named column, if it has missing values.
func (r *NullReport) Column(name string) (ColumnNulls, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnNulls{}, false
}
