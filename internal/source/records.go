package source

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/nullscan/internal/model"
)

// loadRecords reads a JSON or YAML document. JSON is read by the YAML
// decoder, which keeps mapping keys in file order.
//
// Two shapes are accepted:
//
//	- {id: 1, name: a}        a list of records; a key missing from a
//	- {id: 2}                 record is a missing value
//
//	id: [1, 2]                a mapping of equally long columns
//	name: [a, ~]
//
// Besides null, a string equal to one of opts.NullValues is missing, the
// same as a CSV cell.
func loadRecords(path string, opts Options) (model.Dataset, error) {
	f, err := openText(path, opts.Encoding)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only file

	var doc yaml.Node
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoRecords
		}
		return nil, err
	}

	root := resolve(&doc)
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = resolve(root.Content[0])
	}

	nulls := newNullTokens(opts.NullValues)
	switch root.Kind {
	case yaml.SequenceNode:
		return frameFromRecords(root, nulls)
	case yaml.MappingNode:
		return frameFromColumns(root, nulls)
	default:
		return nil, fmt.Errorf("%w: expected a list of records or a mapping of columns", ErrInvalidRecords)
	}
}

// frameFromRecords builds a frame from a sequence of mappings.
// Columns appear in the order their key is first seen.
func frameFromRecords(seq *yaml.Node, nulls nullTokens) (*model.Frame, error) {
	var (
		names  []string
		values = make(map[string][]any)
	)

	for i, item := range seq.Content {
		item = resolve(item)
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: record %d is not a mapping", ErrInvalidRecords, i)
		}

		for j := 0; j+1 < len(item.Content); j += 2 {
			key := item.Content[j].Value
			col, ok := values[key]
			if !ok {
				names = append(names, key)
				col = make([]any, i, len(seq.Content))
			}
			v, err := scalarValue(item.Content[j+1], nulls)
			if err != nil {
				return nil, fmt.Errorf("record %d, key %q: %w", i, key, err)
			}
			if len(col) > i {
				// Repeated key inside one record: the last value wins.
				col[i] = v
			} else {
				col = append(col, v)
			}
			values[key] = col
		}

		// Keys absent from this record are missing.
		for _, name := range names {
			if len(values[name]) <= i {
				values[name] = append(values[name], nil)
			}
		}
	}

	columns := make([]model.Column, len(names))
	for i, name := range names {
		columns[i] = model.NewColumn(name, values[name]...)
	}
	return model.NewFrame(columns...)
}

// frameFromColumns builds a frame from a mapping of sequences.
func frameFromColumns(m *yaml.Node, nulls nullTokens) (*model.Frame, error) {
	columns := make([]model.Column, 0, len(m.Content)/2)

	for j := 0; j+1 < len(m.Content); j += 2 {
		key := m.Content[j].Value
		seq := resolve(m.Content[j+1])
		if seq.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("%w: column %q is not a list", ErrInvalidRecords, key)
		}

		vals := make([]any, len(seq.Content))
		for i, item := range seq.Content {
			v, err := scalarValue(item, nulls)
			if err != nil {
				return nil, fmt.Errorf("column %q, row %d: %w", key, i, err)
			}
			vals[i] = v
		}
		columns = append(columns, model.NewColumn(key, vals...))
	}

	return model.NewFrame(columns...)
}

// builtinNullValues are the tokens gota reads as missing when no list is
// configured. Record sources use the same list.
var builtinNullValues = []string{"NA", "NaN", "<nil>"}

// nullTokens is the set of strings read as missing values.
type nullTokens map[string]struct{}

// newNullTokens returns the set of values, or of builtinNullValues when
// values is nil.
func newNullTokens(values []string) nullTokens {
	if values == nil {
		values = builtinNullValues
	}
	tokens := make(nullTokens, len(values))
	for _, v := range values {
		tokens[v] = struct{}{}
	}
	return tokens
}

// scalarValue converts a node to a Go value: nil for null and null tokens,
// int64, float64, bool, string or time.Time for scalars, and the decoded
// value for nested lists and mappings.
func scalarValue(n *yaml.Node, nulls nullTokens) (any, error) {
	n = resolve(n)
	if n.Kind != yaml.ScalarNode {
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}

	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return i, nil
		}
		// Too large for int64.
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	case "!!float":
		var f float64
		// .nan decodes to NaN, which is a missing value.
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return n.Value, nil
		}
		return t, nil
	case "!!str":
		if _, ok := nulls[n.Value]; ok {
			return nil, nil
		}
		return n.Value, nil
	default:
		return n.Value, nil
	}
}

// resolve follows alias nodes to their anchor.
func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
