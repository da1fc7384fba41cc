package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/nullscan/internal/model"
)

// sqliteTable is a SQLite table viewed as a dataset.
// Null counts come from one aggregate query, so rows are never loaded into
// memory.
type sqliteTable struct {
	names  []string
	dtypes map[string]model.Dtype
	nulls  map[string]int
	rows   int
}

// Columns returns the column names in declaration order.
func (t *sqliteTable) Columns() []string {
	return append([]string(nil), t.names...)
}

// Dtype returns the dtype derived from the declared column type.
func (t *sqliteTable) Dtype(column string) model.Dtype {
	if dt, ok := t.dtypes[column]; ok {
		return dt
	}
	return model.DtypeObject
}

// Len returns the number of rows.
func (t *sqliteTable) Len() int {
	return t.rows
}

// NullCount returns the number of NULL values in the named column.
func (t *sqliteTable) NullCount(column string) int {
	return t.nulls[column]
}

// loadSQLite reads one table of a SQLite database file, read-only.
func loadSQLite(ctx context.Context, path string, opts Options) (model.Dataset, error) {
	if _, codec := splitCompression(path); codec != codecNone {
		return nil, fmt.Errorf("%w: compressed %s sources must be decompressed first", ErrUnsupportedFormat, FormatSQLite)
	}

	// mode=ro fails on a missing file, but with a less helpful message.
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	dsn, err := fileURI(path, "mode=ro")
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck // read-only connection

	table, err := selectTable(ctx, db, opts.Table)
	if err != nil {
		return nil, err
	}

	t := &sqliteTable{
		dtypes: make(map[string]model.Dtype),
		nulls:  make(map[string]int),
	}

	rows, err := db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %q: %w", table, err)
	}
	for rows.Next() {
		var name, declType string
		if err := rows.Scan(&name, &declType); err != nil {
			rows.Close() //nolint:errcheck,gosec // closing after scan failure
			return nil, err
		}
		t.names = append(t.names, name)
		t.dtypes[name] = dtypeOfDeclared(declType)
	}
	if err := rows.Err(); err != nil {
		rows.Close() //nolint:errcheck,gosec // closing after iteration failure
		return nil, err
	}
	rows.Close() //nolint:errcheck,gosec // fully consumed

	if err := t.count(ctx, db, table); err != nil {
		return nil, err
	}
	return t, nil
}

// count fills the row count and per-column null counts with a single query:
// SELECT COUNT(*), COUNT("a"), COUNT("b"), ... FROM "table".
func (t *sqliteTable) count(ctx context.Context, db *sql.DB, table string) error {
	exprs := make([]string, 0, len(t.names)+1)
	exprs = append(exprs, "COUNT(*)")
	for _, name := range t.names {
		exprs = append(exprs, "COUNT("+quoteIdent(name)+")")
	}
	query := "SELECT " + strings.Join(exprs, ", ") + " FROM " + quoteIdent(table) //nolint:gosec // identifiers are quoted

	counts := make([]int, len(exprs))
	dest := make([]any, len(exprs))
	for i := range counts {
		dest[i] = &counts[i]
	}
	if err := db.QueryRowContext(ctx, query).Scan(dest...); err != nil {
		return fmt.Errorf("failed to count rows of %q: %w", table, err)
	}

	t.rows = counts[0]
	for i, name := range t.names {
		t.nulls[name] = t.rows - counts[i+1]
	}
	return nil
}

// selectTable returns the table to read: want if given, otherwise the only
// user table of the database.
func selectTable(ctx context.Context, db *sql.DB, want string) (string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master
		 WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		 ORDER BY name`)
	if err != nil {
		return "", fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch {
	case want != "":
		if !slices.Contains(tables, want) {
			return "", fmt.Errorf("%w: %q", ErrTableNotFound, want)
		}
		return want, nil
	case len(tables) == 1:
		return tables[0], nil
	case len(tables) == 0:
		return "", fmt.Errorf("%w: database has no tables", ErrTableNotFound)
	default:
		return "", fmt.Errorf("%w: database has %d tables (%s)",
			ErrTableRequired, len(tables), strings.Join(tables, ", "))
	}
}

// dtypeOfDeclared maps a declared SQLite column type to a dtype, following
// SQLite's type affinity rules, with BOOL and DATE/TIME names recognized
// inside the NUMERIC affinity.
func dtypeOfDeclared(declType string) model.Dtype {
	t := strings.ToUpper(declType)

	switch {
	case strings.Contains(t, "INT"):
		return model.DtypeInt64
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return model.DtypeString
	case t == "", strings.Contains(t, "BLOB"):
		return model.DtypeObject
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return model.DtypeFloat64
	case strings.Contains(t, "BOOL"):
		return model.DtypeBool
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return model.DtypeDatetime
	default:
		return model.DtypeFloat64
	}
}

// fileURI returns the SQLite URI of path with the given query, escaping
// characters such as '?' and '#' that would end the path.
func fileURI(path, query string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // C:/data -> /C:/data
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: query}
	return u.String(), nil
}

// quoteIdent quotes a SQLite identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
