package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/nullscan/internal/model"
)

// mustFrame builds a Frame or fails the test.
func mustFrame(t *testing.T, columns ...model.Column) *model.Frame {
	t.Helper()

	f, err := model.NewFrame(columns...)
	if err != nil {
		t.Fatalf("failed to build frame: %v", err)
	}
	return f
}

// createTestReport creates a report with two columns containing nulls.
func createTestReport(t *testing.T) *model.NullReport {
	t.Helper()

	f := mustFrame(t,
		model.NewColumn("id", 1, 2, 3, 4),
		model.NewColumn("age", 31, nil, 45, nil),
		model.NewColumn("name", "ann", "bob", nil, "dan"),
	)
	r := model.NewNullReport("people.csv", f)
	r.DateScanned = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return r
}

// TestFprint tests the plain-text reporter against exact expected output.
func TestFprint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		columns []model.Column
		want    string
	}{
		{
			name: "one column with a null",
			columns: []model.Column{
				model.NewColumn("a", 1, nil, 3),
				model.NewColumn("b", 1, 2, 3),
			},
			want: "Column: a\n" +
				"Non-Null Count: 2\n" +
				"Null Count: 1\n" +
				"Dtype: int64\n" +
				"--------------------\n" +
				"Number of columns with Nones=1\n",
		},
		{
			name: "no nulls",
			columns: []model.Column{
				model.NewColumn("a", 1, 2, 3),
				model.NewColumn("b", 4, 5, 6),
			},
			want: "No columns with missing values found.\n" +
				"Number of columns with Nones=0\n",
		},
		{
			name: "all-missing column",
			columns: []model.Column{
				model.NewColumn("a", nil, nil),
			},
			want: "Column: a\n" +
				"Non-Null Count: 0\n" +
				"Null Count: 2\n" +
				"Dtype: object\n" +
				"--------------------\n" +
				"Number of columns with Nones=1\n",
		},
		{
			name: "two columns keep dataset order",
			columns: []model.Column{
				model.NewColumn("z", 1.5, nil),
				model.NewColumn("m", 1, 2),
				model.NewColumn("a", nil, "x"),
			},
			want: "Column: z\n" +
				"Non-Null Count: 1\n" +
				"Null Count: 1\n" +
				"Dtype: float64\n" +
				"--------------------\n" +
				"Column: a\n" +
				"Non-Null Count: 1\n" +
				"Null Count: 1\n" +
				"Dtype: string\n" +
				"--------------------\n" +
				"Number of columns with Nones=2\n",
		},
		{
			name:    "no columns at all",
			columns: nil,
			want: "No columns with missing values found.\n" +
				"Number of columns with Nones=0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := Fprint(&buf, mustFrame(t, tt.columns...)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("unexpected output:\n--- got ---\n%s--- want ---\n%s", got, tt.want)
			}
		})
	}
}

// TestPrint tests that Print writes the Fprint output to standard output.
// It replaces os.Stdout, so it must not run in parallel.
func TestPrint(t *testing.T) {
	f := mustFrame(t,
		model.NewColumn("a", 1, nil, 3),
		model.NewColumn("b", "x", "y", "z"),
	)

	var want bytes.Buffer
	if err := Fprint(&want, f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	defer r.Close() //nolint:errcheck // test cleanup

	stdout := os.Stdout
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = stdout })

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	Print(f)

	os.Stdout = stdout
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close pipe: %v", err)
	}

	got := <-done
	if got != want.String() {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", got, want.String())
	}
	if !strings.HasSuffix(got, SummaryPrefix+"1\n") {
		t.Errorf("expected one column with nulls, got:\n%s", got)
	}
}

// TestFprintIdempotent tests that reporting twice gives the same output.
func TestFprintIdempotent(t *testing.T) {
	t.Parallel()

	f := mustFrame(t,
		model.NewColumn("a", 1, nil, 3),
		model.NewColumn("b", nil, "x", nil),
	)

	var first, second bytes.Buffer
	if err := Fprint(&first, f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Fprint(&second, f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.String() != second.String() {
		t.Errorf("outputs differ:\n%s\nvs\n%s", first.String(), second.String())
	}
	if f.NullCount("a") != 1 || f.NullCount("b") != 2 {
		t.Error("dataset was modified by the reporter")
	}
}

// TestFprintBlockCount tests that the summary equals the number of blocks
// and that each block's counts sum to the row count.
func TestFprintBlockCount(t *testing.T) {
	t.Parallel()

	f := mustFrame(t,
		model.NewColumn("a", nil, 1, 2, 3, 4),
		model.NewColumn("b", 1, 2, 3, 4, 5),
		model.NewColumn("c", nil, nil, nil, "x", "y"),
		model.NewColumn("d", true, nil, false, true, nil),
	)

	var buf bytes.Buffer
	if err := Fprint(&buf, f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	blocks := strings.Count(buf.String(), "Column: ")
	if blocks != 3 {
		t.Errorf("expected 3 blocks, got %d", blocks)
	}
	if len(lines) != blocks*5+1 {
		t.Errorf("expected %d lines, got %d", blocks*5+1, len(lines))
	}
	if lines[len(lines)-1] != "Number of columns with Nones=3" {
		t.Errorf("unexpected summary line: %q", lines[len(lines)-1])
	}
}

// failingWriter always fails.
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

// TestFprintWriteError tests that write errors are surfaced.
func TestFprintWriteError(t *testing.T) {
	t.Parallel()

	err := Fprint(failingWriter{}, mustFrame(t, model.NewColumn("a", nil)))
	if err == nil {
		t.Error("expected write error")
	}
}

// TestSimpleWriter tests the plain-text writer options.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("no header by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport(t)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(buf.String(), "Column: age\n") {
			t.Errorf("expected output to start with first block, got %q", buf.String())
		}
	})

	t.Run("source header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithSourceHeader(true))
		if _, err := w.Write(createTestReport(t)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(buf.String(), "==> people.csv <==\n") {
			t.Errorf("expected source header, got %q", buf.String())
		}
	})

	t.Run("returns bytes written", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(createTestReport(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes, got %d", buf.Len(), n)
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport(t)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var parsed model.NullReport
		if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if parsed.Source != "people.csv" {
			t.Errorf("expected source people.csv, got %q", parsed.Source)
		}
		if len(parsed.Columns) != 2 {
			t.Errorf("expected 2 columns, got %d", len(parsed.Columns))
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport(t)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected compact single-line output")
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport(t)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"source\"") {
			t.Errorf("expected indented output, got %s", buf.String())
		}
	})

	t.Run("full writer wraps with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "v1.2.3").Write(createTestReport(t)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var parsed JSONReport
		if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if parsed.Version != "v1.2.3" {
			t.Errorf("expected version v1.2.3, got %q", parsed.Version)
		}
		if parsed.ColumnsWithNulls != 2 {
			t.Errorf("expected 2 columns with nulls, got %d", parsed.ColumnsWithNulls)
		}
		if parsed.Report == nil || parsed.Report.Source != "people.csv" {
			t.Error("expected wrapped report")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport(t)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Null Report",
			"people.csv",
			"## Columns with missing values",
			"`age`",
			"50.0%",
			"mermaid",
			"[!WARNING]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("clean dataset gets a tip", func(t *testing.T) {
		t.Parallel()

		f := mustFrame(t, model.NewColumn("a", 1, 2))
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(model.NewNullReport("clean.csv", f)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!TIP]") {
			t.Error("expected tip alert")
		}
		if strings.Contains(output, "mermaid") {
			t.Error("expected no pie chart for clean dataset")
		}
	})
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := mw.Write(createTestReport(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(failingWriter{}), NewSimpleWriter(&after))

		if _, err := mw.Write(createTestReport(t)); err == nil {
			t.Error("expected error")
		}
		if after.Len() != 0 {
			t.Error("expected second writer to be skipped")
		}
	})
}

// TestNullRatio tests the percentage formatting helper.
func TestNullRatio(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		nulls, rows int
		expected    string
	}{
		{1, 4, "25.0%"},
		{2, 3, "66.7%"},
		{0, 0, "-"},
		{5, 5, "100.0%"},
	}

	for _, tc := range testCases {
		if got := nullRatio(tc.nulls, tc.rows); got != tc.expected {
			t.Errorf("nullRatio(%d, %d) = %q, expected %q", tc.nulls, tc.rows, got, tc.expected)
		}
	}
}
