package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/nao1215/nullscan/internal/model"
)

// writeGzip writes content gzip-compressed to name in a temporary directory.
func writeGzip(t *testing.T, name, content string) string {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatalf("failed to compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish gzip stream: %v", err)
	}

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// writeZstd writes content zstd-compressed to name in a temporary directory.
func writeZstd(t *testing.T, name, content string) string {
	t.Helper()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("failed to create zstd encoder: %v", err)
	}
	defer enc.Close() //nolint:errcheck // encoder without a writer

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, enc.EncodeAll([]byte(content), nil), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestSplitCompression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path      string
		wantPath  string
		wantCodec string
	}{
		{"data.csv", "data.csv", codecNone},
		{"data.csv.gz", "data.csv", codecGzip},
		{"dir/data.json.GZ", "dir/data.json", codecGzip},
		{"data.tsv.zst", "data.tsv", codecZstd},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			gotPath, gotCodec := splitCompression(tt.path)
			if gotPath != tt.wantPath || gotCodec != tt.wantCodec {
				t.Errorf("splitCompression(%q) = (%q, %q), want (%q, %q)",
					tt.path, gotPath, gotCodec, tt.wantPath, tt.wantCodec)
			}
		})
	}
}

func TestLoadCompressed(t *testing.T) {
	t.Parallel()

	const people = "id,name,score\n1,alice,9.5\n2,,\n3,NA,7\n"
	want := []wantColumn{
		{"id", model.DtypeInt64, 0},
		{"name", model.DtypeString, 2},
		{"score", model.DtypeFloat64, 1},
	}

	t.Run("gzip csv", func(t *testing.T) {
		t.Parallel()

		path := writeGzip(t, "people.csv.gz", people)

		ds, err := Load(context.Background(), path, Options{NullValues: testNullValues})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkDataset(t, ds, 3, want)
	})

	t.Run("zstd csv", func(t *testing.T) {
		t.Parallel()

		path := writeZstd(t, "people.csv.zst", people)

		ds, err := Load(context.Background(), path, Options{NullValues: testNullValues})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkDataset(t, ds, 3, want)
	})

	t.Run("gzip json records", func(t *testing.T) {
		t.Parallel()

		path := writeGzip(t, "rows.json.gz", `[{"a": 1, "b": null}, {"a": null, "b": "x"}]`)

		ds, err := Load(context.Background(), path, Options{NullValues: testNullValues})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ds.Len() != 2 {
			t.Errorf("expected 2 rows, got %d", ds.Len())
		}
		if got := ds.NullCount("b"); got != 1 {
			t.Errorf("expected 1 null in b, got %d", got)
		}
	})

	t.Run("corrupt gzip stream", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "broken.csv.gz", "a,b\n1,2\n")

		if _, err := Load(context.Background(), path, Options{}); err == nil {
			t.Error("expected error for a file without a gzip header")
		}
	})

	t.Run("forced sqlite on compressed file", func(t *testing.T) {
		t.Parallel()

		path := writeGzip(t, "warehouse.db.gz", "not a database")

		_, err := Load(context.Background(), path, Options{Format: FormatSQLite})
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})
}
