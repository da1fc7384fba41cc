package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/nao1215/nullscan/internal/model"
)

// arrowTable is an Arrow IPC file viewed as a dataset.
// Arrow keeps a validity count per array, so only the counts are retained.
type arrowTable struct {
	names  []string
	dtypes map[string]model.Dtype
	nulls  map[string]int
	rows   int
}

// Columns returns the field names in schema order.
func (t *arrowTable) Columns() []string {
	return append([]string(nil), t.names...)
}

// Dtype returns the dtype derived from the Arrow field type.
func (t *arrowTable) Dtype(column string) model.Dtype {
	if dt, ok := t.dtypes[column]; ok {
		return dt
	}
	return model.DtypeObject
}

// Len returns the number of rows across all record batches.
func (t *arrowTable) Len() int {
	return t.rows
}

// NullCount returns the number of null slots in the named column.
func (t *arrowTable) NullCount(column string) int {
	return t.nulls[column]
}

// newArrowTable prepares an empty table for schema.
func newArrowTable(schema *arrow.Schema) (*arrowTable, error) {
	t := &arrowTable{
		dtypes: make(map[string]model.Dtype, schema.NumFields()),
		nulls:  make(map[string]int, schema.NumFields()),
	}
	for _, field := range schema.Fields() {
		if _, ok := t.dtypes[field.Name]; ok {
			return nil, fmt.Errorf("%w: %q", model.ErrDuplicateColumn, field.Name)
		}
		t.names = append(t.names, field.Name)
		t.dtypes[field.Name] = dtypeOfArrow(field.Type)
	}
	return t, nil
}

// add accumulates the row and null counts of one record batch.
func (t *arrowTable) add(rec arrow.Record) {
	t.rows += int(rec.NumRows())
	for i, name := range t.names {
		t.nulls[name] += rec.Column(i).NullN()
	}
}

// finish reports columns without a single valid value as object, the way
// an all-missing column of any other source is typed.
func (t *arrowTable) finish() {
	for _, name := range t.names {
		if t.rows > 0 && t.nulls[name] == t.rows {
			t.dtypes[name] = model.DtypeObject
		}
	}
}

// loadArrow reads an Arrow IPC file. The .arrows extension selects the
// streaming format; everything else is the random-access file format.
func loadArrow(path string) (model.Dataset, error) {
	if _, codec := splitCompression(path); codec != codecNone {
		return nil, fmt.Errorf("%w: compressed %s sources must be decompressed first", ErrUnsupportedFormat, FormatArrow)
	}

	f, err := os.Open(path) //nolint:gosec // reading user-selected datasets is the purpose of this tool
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only file

	mem := memory.NewGoAllocator()
	if strings.EqualFold(filepath.Ext(path), ".arrows") {
		return readArrowStream(f, mem)
	}
	return readArrowFile(f, mem)
}

// readArrowFile reads every record batch of the random-access format.
func readArrowFile(f *os.File, mem memory.Allocator) (model.Dataset, error) {
	r, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("failed to read arrow file: %w", err)
	}
	defer r.Close() //nolint:errcheck // read-only file

	t, err := newArrowTable(r.Schema())
	if err != nil {
		return nil, err
	}
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read record batch %d: %w", i, err)
		}
		t.add(rec)
	}
	t.finish()
	return t, nil
}

// readArrowStream reads every record batch of the streaming format.
func readArrowStream(f *os.File, mem memory.Allocator) (model.Dataset, error) {
	r, err := ipc.NewReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("failed to read arrow stream: %w", err)
	}
	defer r.Release()

	t, err := newArrowTable(r.Schema())
	if err != nil {
		return nil, err
	}
	for r.Next() {
		t.add(r.Record())
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read arrow stream: %w", err)
	}
	t.finish()
	return t, nil
}

// dtypeOfArrow maps an Arrow data type to a dtype.
func dtypeOfArrow(dt arrow.DataType) model.Dtype {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return model.DtypeInt64
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64,
		arrow.DECIMAL128, arrow.DECIMAL256:
		return model.DtypeFloat64
	case arrow.BOOL:
		return model.DtypeBool
	case arrow.STRING, arrow.LARGE_STRING, arrow.STRING_VIEW:
		return model.DtypeString
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return model.DtypeDatetime
	case arrow.DICTIONARY:
		return dtypeOfArrow(dt.(*arrow.DictionaryType).ValueType)
	default:
		return model.DtypeObject
	}
}
