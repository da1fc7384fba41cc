package source

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/nullscan/internal/model"
)

// maxColspan caps the colspan attribute of a cell.
const maxColspan = 1000

// loadHTML reads one <table> of an HTML document: the first one, or the one
// whose id equals opts.Table. Its first row is the header.
func loadHTML(path string, opts Options) (model.Dataset, error) {
	f, err := openText(path, opts.Encoding)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only file

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	table := findTable(doc, opts.Table)
	if table == nil {
		if opts.Table != "" {
			return nil, fmt.Errorf("%w: no <table id=%q>", ErrTableNotFound, opts.Table)
		}
		return nil, fmt.Errorf("%w: document has no <table>", ErrTableNotFound)
	}

	records := tableRecords(table)
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return datasetFromRecords(records, opts.NullValues)
}

// findTable returns the first table element, or the first one with the
// given id.
func findTable(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Table {
		if id == "" || attr(n, "id") == id {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTable(c, id); t != nil {
			return t
		}
	}
	return nil
}

// tableRecords returns the text of every row of table. Rows of nested tables
// are skipped. Every row is padded or cut to the header width; padding is
// the empty cell.
func tableRecords(table *html.Node) [][]string {
	var records [][]string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				continue
			case atom.Tr:
				records = append(records, rowCells(c))
			default:
				walk(c)
			}
		}
	}
	walk(table)

	if len(records) == 0 {
		return nil
	}

	width := len(records[0])
	for i, row := range records {
		switch {
		case len(row) < width:
			records[i] = append(row, make([]string, width-len(row))...)
		case len(row) > width:
			records[i] = row[:width]
		}
	}
	return records
}

// rowCells returns the text of the th and td cells of a row, repeating a
// cell for its colspan.
func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}

		text := cellText(c)
		span := 1
		if v, err := strconv.Atoi(attr(c, "colspan")); err == nil && v > 1 {
			span = min(v, maxColspan)
		}
		for range span {
			cells = append(cells, text)
		}
	}
	return cells
}

// cellText returns the text content of n with whitespace collapsed.
func cellText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
