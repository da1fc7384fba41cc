package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression codecs of text sources.
const (
	codecNone = ""
	codecGzip = "gzip"
	codecZstd = "zstd"
)

// compressionExtensions maps lower-case file extensions to codecs.
var compressionExtensions = map[string]string{
	".gz":  codecGzip,
	".zst": codecZstd,
}

// splitCompression returns path without its compression extension, and the
// codec that extension names. Paths without one are returned unchanged.
func splitCompression(path string) (string, string) {
	ext := strings.ToLower(filepath.Ext(path))
	if codec, ok := compressionExtensions[ext]; ok {
		return strings.TrimSuffix(path, filepath.Ext(path)), codec
	}
	return path, codecNone
}

// compressedFile is an open source file read through a decompressor.
type compressedFile struct {
	io.Reader
	closers []func() error
}

// Close releases the decompressor, then the file.
func (c *compressedFile) Close() error {
	var first error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openDecompressed opens path and, when its extension names a codec,
// decompresses it on the fly.
func openDecompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path) //nolint:gosec // reading user-selected datasets is the purpose of this tool
	if err != nil {
		return nil, err
	}

	_, codec := splitCompression(path)
	switch codec {
	case codecGzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("failed to read gzip header: %w", err)
		}
		return &compressedFile{Reader: zr, closers: []func() error{zr.Close, f.Close}}, nil
	case codecZstd:
		zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			_ = f.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		return &compressedFile{
			Reader: zr,
			closers: []func() error{
				func() error { zr.Close(); return nil },
				f.Close,
			},
		}, nil
	default:
		return f, nil
	}
}
