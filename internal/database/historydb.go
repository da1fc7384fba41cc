package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/nullscan/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "nullscan.db"

// ErrDatabaseNotFound is returned by Open when the database does not exist
// and Options.CreateIfNotExists is false.
var ErrDatabaseNotFound = errors.New("history database not found")

// timestampLayout is how scan times are stored: UTC with fixed-width
// nanoseconds, so text order is time order.
const timestampLayout = "2006-01-02 15:04:05.000000000"

// HistoryDB stores null reports in a SQLite database.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		mode = "rw"
	}

	// Concurrent report and history runs wait for each other instead of failing.
	dsn, err := fileURI(dbPath, "mode="+mode+"&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; batch scans save from several goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS null_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		fingerprint TEXT,
		timestamp TEXT NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		columns_with_nulls INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_source ON null_reports(source);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON null_reports(timestamp);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveReport stores a report. Its DateScanned is the history timestamp.
func (hdb *HistoryDB) SaveReport(ctx context.Context, report *model.NullReport) error {
	_, err := hdb.InsertReport(ctx, report)
	return err
}

// InsertReport stores a report and returns its ID.
func (hdb *HistoryDB) InsertReport(ctx context.Context, report *model.NullReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	scanned := report.DateScanned
	if scanned.IsZero() {
		scanned = time.Now()
	}

	query := `
	INSERT INTO null_reports (source, fingerprint, timestamp, row_count, columns_with_nulls, report_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := hdb.db.ExecContext(ctx, query,
		report.Source,
		report.Fingerprint,
		scanned.UTC().Format(timestampLayout),
		report.RowCount,
		report.NumColumnsWithNulls(),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save report: %w", err)
	}

	return result.LastInsertId()
}

// GetLatestReport retrieves the most recent report for a source.
// It returns nil, nil when the source has no history.
func (hdb *HistoryDB) GetLatestReport(ctx context.Context, source string) (*model.NullReport, error) {
	query := `
	SELECT report_json FROM null_reports
	WHERE source = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	return hdb.queryReport(ctx, query, source)
}

// GetReportByID retrieves a report by its database ID.
// It returns nil, nil when no report has that ID.
func (hdb *HistoryDB) GetReportByID(ctx context.Context, id int64) (*model.NullReport, error) {
	query := `
	SELECT report_json FROM null_reports
	WHERE id = ?
	`

	return hdb.queryReport(ctx, query, id)
}

// queryReport runs a query selecting one report_json and decodes it.
func (hdb *HistoryDB) queryReport(ctx context.Context, query string, arg any) (*model.NullReport, error) {
	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, query, arg).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report model.NullReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListSources returns every source with at least one report, sorted.
func (hdb *HistoryDB) ListSources(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT source FROM null_reports
	ORDER BY source
	`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, source)
	}

	return sources, rows.Err()
}

// ReportMetadata summarizes a stored report without decoding it.
type ReportMetadata struct {
	// ID is the unique identifier of the report in the database.
	ID int64 `json:"id"`

	// Source is the reported source.
	Source string `json:"source"`

	// Timestamp is when the scan was performed.
	Timestamp time.Time `json:"timestamp"`

	// Fingerprint is the content hash of the source at scan time.
	Fingerprint string `json:"fingerprint,omitempty"`

	// RowCount is the dataset's row count.
	RowCount int `json:"row_count"`

	// ColumnsWithNulls is the number of columns that had missing values.
	ColumnsWithNulls int `json:"columns_with_nulls"`
}

// GetHistoryWithMetadata retrieves report metadata for a source, newest first.
func (hdb *HistoryDB) GetHistoryWithMetadata(ctx context.Context, source string) ([]ReportMetadata, error) {
	query := `
	SELECT id, source, timestamp, fingerprint, row_count, columns_with_nulls
	FROM null_reports
	WHERE source = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := hdb.db.QueryContext(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var results []ReportMetadata
	for rows.Next() {
		var (
			meta        ReportMetadata
			timestamp   string
			fingerprint sql.NullString
		)

		if err := rows.Scan(&meta.ID, &meta.Source, &timestamp, &fingerprint, &meta.RowCount, &meta.ColumnsWithNulls); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		meta.Fingerprint = fingerprint.String
		results = append(results, meta)
	}

	return results, rows.Err()
}

// fileURI returns the SQLite URI of path with the given query. SQLite
// only honours parameters such as mode in URI form; escaping keeps '?' and
// '#' in path names from ending the path.
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

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",  // SQLite CURRENT_TIMESTAMP
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",  // ISO 8601 without timezone
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp parses a stored timestamp, trying every known format.
// It returns the zero time if none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
