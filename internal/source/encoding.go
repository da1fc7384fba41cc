package source

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// textFile is an open text source decoded to UTF-8.
type textFile struct {
	io.Reader
	file io.Closer
}

// Close closes the underlying file.
func (t *textFile) Close() error {
	return t.file.Close()
}

// openText opens path, decompresses it if its extension says so, and
// decodes it from the named character set.
func openText(path, charset string) (*textFile, error) {
	decoder, err := decoderFor(charset)
	if err != nil {
		return nil, err
	}

	f, err := openDecompressed(path)
	if err != nil {
		return nil, err
	}

	return &textFile{
		Reader: transform.NewReader(f, decoder),
		file:   f,
	}, nil
}

// decoderFor returns a transformer from charset to UTF-8.
// An empty charset is UTF-8 with an optional byte order mark.
func decoderFor(charset string) (transform.Transformer, error) {
	if charset == "" {
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	}

	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, charset)
	}
	if enc == nil {
		// Registered with IANA but without a decoder in x/text.
		return nil, fmt.Errorf("%w: %q is not supported", ErrUnknownEncoding, charset)
	}
	return unicode.BOMOverride(enc.NewDecoder()), nil
}
