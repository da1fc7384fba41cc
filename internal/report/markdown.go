package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/nullscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for pasting into pull requests and data docs.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.NullReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeColumns(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the dataset summary and an alert.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.NullReport) {
	md.H1("Null Report")
	md.PlainText("")

	source := report.Source
	if source == "" {
		source = "-"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", "`" + source + "`"},
			{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
			{"Rows", strconv.Itoa(report.RowCount)},
			{"Columns", strconv.Itoa(report.ColumnCount)},
			{"Columns with nulls", strconv.Itoa(report.NumColumnsWithNulls())},
			{"Total nulls", strconv.Itoa(report.TotalNulls())},
		},
	})
	md.PlainText("")

	if report.HasNulls() {
		md.Warningf("%d of %d column(s) contain missing values.",
			report.NumColumnsWithNulls(), report.ColumnCount)
	} else {
		md.Tip(NoNullsMessage)
	}
	md.PlainText("")
}

// writeColumns writes the per-column table and the pie chart.
func (w *MarkdownWriter) writeColumns(md *markdown.Markdown, report *model.NullReport) {
	md.H2("Columns with missing values")
	md.PlainText("")

	if !report.HasNulls() {
		md.PlainText(NoNullsMessage)
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Columns))
	for i, c := range report.Columns {
		rows[i] = []string{
			"`" + c.Name + "`",
			strconv.Itoa(c.NonNullCount),
			strconv.Itoa(c.NullCount),
			c.Dtype.String(),
			nullRatio(c.NullCount, report.RowCount),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Column", "Non-Null Count", "Null Count", "Dtype", "Null %"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, report)
}

// writePieChart writes a mermaid pie chart of null counts per column.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.NullReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Missing Values by Column"),
		piechart.WithShowData(true),
	)

	for _, c := range report.Columns {
		chart.LabelAndIntValue(c.Name, uint64(c.NullCount)) //nolint:gosec // NullCount is never negative
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [nullscan](https://github.com/nao1215/nullscan)*")
}

// nullRatio formats nulls/rows as a percentage with one decimal.
func nullRatio(nulls, rows int) string {
	if rows == 0 {
		return "-"
	}
	return strconv.FormatFloat(float64(nulls)*100/float64(rows), 'f', 1, 64) + "%"
}
