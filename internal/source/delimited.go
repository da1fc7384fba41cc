package source

import (
	"encoding/csv"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/nao1215/nullscan/internal/model"
)

// gotaDataset adapts a gota DataFrame to model.Dataset.
// Counts are computed once, so the dataset is safe for concurrent readers.
type gotaDataset struct {
	names  []string
	rows   int
	dtypes map[string]model.Dtype
	nulls  map[string]int
}

// newGotaDataset scans df and returns its dataset view.
func newGotaDataset(df dataframe.DataFrame) *gotaDataset {
	names := df.Names()
	ds := &gotaDataset{
		names:  names,
		rows:   df.Nrow(),
		dtypes: make(map[string]model.Dtype, len(names)),
		nulls:  make(map[string]int, len(names)),
	}

	for _, name := range names {
		col := df.Col(name)
		ds.dtypes[name] = dtypeOfSeries(col.Type())

		n := 0
		for _, isNaN := range col.IsNaN() {
			if isNaN {
				n++
			}
		}
		ds.nulls[name] = n

		// Nothing to detect a type from.
		if n == ds.rows {
			ds.dtypes[name] = model.DtypeObject
		}
	}

	return ds
}

// Columns returns the column names in file order.
func (d *gotaDataset) Columns() []string {
	return append([]string(nil), d.names...)
}

// Dtype returns the detected type of the named column.
func (d *gotaDataset) Dtype(column string) model.Dtype {
	if dt, ok := d.dtypes[column]; ok {
		return dt
	}
	return model.DtypeObject
}

// Len returns the number of data rows.
func (d *gotaDataset) Len() int {
	return d.rows
}

// NullCount returns the number of missing cells in the named column.
func (d *gotaDataset) NullCount(column string) int {
	return d.nulls[column]
}

// dtypeOfSeries maps gota's detected series types to dtypes.
func dtypeOfSeries(t series.Type) model.Dtype {
	switch t {
	case series.Int:
		return model.DtypeInt64
	case series.Float:
		return model.DtypeFloat64
	case series.Bool:
		return model.DtypeBool
	case series.String:
		return model.DtypeString
	default:
		return model.DtypeObject
	}
}

// loadDelimited reads a CSV or TSV file.
func loadDelimited(path, format string, opts Options) (model.Dataset, error) {
	f, err := openText(path, opts.Encoding)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only file

	delimiter := opts.Delimiter
	switch {
	case format == FormatTSV && (delimiter == 0 || delimiter == ','):
		delimiter = '\t'
	case delimiter == 0:
		delimiter = ','
	}

	r := csv.NewReader(f)
	r.Comma = delimiter
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", format, err)
	}

	return datasetFromRecords(records, opts.NullValues)
}

// datasetFromRecords builds a dataset from text rows whose first row is the
// header. Types are detected by gota.
func datasetFromRecords(records [][]string, nullValues []string) (model.Dataset, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	// gota refuses a header without rows; that is still a valid, empty dataset.
	if len(records) == 1 {
		columns := make([]model.Column, len(records[0]))
		for i, name := range records[0] {
			columns[i] = model.NewTypedColumn(name, model.DtypeObject)
		}
		return model.NewFrame(columns...)
	}

	loadOpts := []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
	}
	if nullValues != nil {
		loadOpts = append(loadOpts, dataframe.NaNValues(nullValues))
	}

	df := dataframe.LoadRecords(records, loadOpts...)
	if df.Err != nil {
		return nil, df.Err
	}

	return newGotaDataset(df), nil
}
