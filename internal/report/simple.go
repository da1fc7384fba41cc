package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/nullscan/internal/model"
)

const (
	// NoNullsMessage is printed when no column has missing values.
	NoNullsMessage = "No columns with missing values found."

	// SummaryPrefix starts the last line of every plain-text report.
	SummaryPrefix = "Number of columns with Nones="

	// separatorWidth is the number of dashes after each column block.
	separatorWidth = 20
)

// SimpleWriter outputs the plain-text null report.
//
// The body is line-for-line stable: scripts grep for the field labels and
// the summary key, so the layout must not change.
type SimpleWriter struct {
	baseWriter

	// sourceHeader prefixes the report with "==> source <==".
	sourceHeader bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithSourceHeader prints a "==> source <==" line before the report.
// The CLI turns this on when several sources are reported in one run.
func WithSourceHeader(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.sourceHeader = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in plain-text format.
func (w *SimpleWriter) Write(report *model.NullReport) (int, error) {
	var sb strings.Builder

	if w.sourceHeader {
		sb.WriteString(fmt.Sprintf("==> %s <==\n", report.Source))
	}

	writeColumns(&sb, report.Columns)

	return w.output.Write([]byte(sb.String()))
}

// writeColumns writes one block per column followed by the summary line.
func writeColumns(sb *strings.Builder, columns []model.ColumnNulls) {
	if len(columns) == 0 {
		sb.WriteString(NoNullsMessage)
		sb.WriteString("\n")
	}

	for _, c := range columns {
		sb.WriteString(fmt.Sprintf("Column: %s\n", c.Name))
		sb.WriteString(fmt.Sprintf("Non-Null Count: %d\n", c.NonNullCount))
		sb.WriteString(fmt.Sprintf("Null Count: %d\n", c.NullCount))
		sb.WriteString(fmt.Sprintf("Dtype: %s\n", c.Dtype))
		sb.WriteString(strings.Repeat("-", separatorWidth))
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("%s%d\n", SummaryPrefix, len(columns)))
}
