package report

import (
	"io"
	"os"

	"github.com/nao1215/nullscan/internal/model"
)

// Print writes the null report of ds to standard output.
//
// For every column with at least one missing value it prints the column
// name, the non-null and null counts and the dtype, then a summary line with
// the number of such columns. ds is only read, so concurrent Print calls over
// the same dataset are safe.
func Print(ds model.Dataset) {
	_ = Fprint(os.Stdout, ds) //nolint:errcheck // Nothing useful to do when stdout fails
}

// Fprint writes the null report of ds to w.
// The only possible error comes from w.
func Fprint(w io.Writer, ds model.Dataset) error {
	_, err := NewSimpleWriter(w).Write(model.NewNullReport("", ds))
	return err
}
