package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/nullscan/internal/config"
	"github.com/nao1215/nullscan/internal/database"
	"github.com/nao1215/nullscan/internal/model"
	"github.com/nao1215/nullscan/internal/report"
	"github.com/nao1215/nullscan/internal/source"
	"github.com/spf13/cobra"
)

// Constants for null trend direction.
const (
	directionWorsened  = "worsened"
	directionImproved  = "improved"
	directionUnchanged = "unchanged"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [file]",
		Short: "List and compare recorded null reports",
		Long: `History shows the null reports recorded by 'nullscan report'.

Given a file, it lists the reports recorded for it, newest first. With
--latest it prints the most recent report again. With --compare it shows
what changed between two reports:
- Columns that gained missing values
- Columns whose missing values are gone
- Columns whose null count or dtype changed
- Whether the file content itself changed

Examples:
  # List every file with recorded reports
  nullscan history --list-sources

  # List the reports recorded for a file
  nullscan history sales.csv

  # Print the last recorded report as Markdown
  nullscan history --latest --markdown sales.csv

  # Compare the latest two reports
  nullscan history --compare sales.csv

  # Compare the latest report with a specific one
  nullscan history --compare --with-id 5 sales.csv

  # Compare with the first report recorded since a date
  nullscan history --compare --since 2025-01-01 sales.csv

  # Output the comparison as JSON
  nullscan history --compare --json sales.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-sources", "L", false,
		"List every source with recorded reports")
	cmd.Flags().BoolP("latest", "l", false,
		"Print the most recent report of the source")
	cmd.Flags().BoolP("compare", "C", false,
		"Compare the latest report with an earlier one")
	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with a specific report by ID (see the listing for IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first report recorded on or after this date (YYYY-MM-DD)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the report or comparison in Markdown format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	listSources bool
	latest      bool
	compare     bool
	withID      int64
	since       string
	json        bool
	markdown    bool
	dbDir       string
}

// parseHistoryFlags reads the history command's flags.
func parseHistoryFlags(cmd *cobra.Command) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()

	if opts.listSources, err = flags.GetBool("list-sources"); err != nil {
		return opts, err
	}
	if opts.latest, err = flags.GetBool("latest"); err != nil {
		return opts, err
	}
	if opts.compare, err = flags.GetBool("compare"); err != nil {
		return opts, err
	}
	if opts.withID, err = flags.GetInt64("with-id"); err != nil {
		return opts, err
	}
	if opts.since, err = flags.GetString("since"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}
	if opts.dbDir == "" {
		opts.dbDir = config.XDGDataDir()
	}

	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}

	// Validate arguments before opening the database
	var sourceKey string
	if !opts.listSources {
		if len(args) == 0 {
			return errors.New("a source file is required (use --list-sources to see recorded sources)")
		}
		sourceKey = source.Key(args[0])
	}
	if opts.json && opts.markdown {
		return config.ErrConflictingReportFormats
	}
	if (opts.withID != 0 || opts.since != "") && !opts.compare {
		return errors.New("--with-id and --since require --compare")
	}
	if opts.withID != 0 && opts.since != "" {
		return errors.New("--with-id and --since cannot be used together")
	}
	if opts.latest && (opts.compare || opts.listSources) {
		return errors.New("--latest cannot be combined with --compare or --list-sources")
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(out, "No reports have been recorded yet.")
		fmt.Fprintln(out, "\nUse 'nullscan report <file>' to record one.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck // read-only use

	ctx := cmd.Context()
	logger.Debug("history database opened", "path", db.Path(), "source", sourceKey)

	switch {
	case opts.listSources:
		return listSources(ctx, out, db, opts.json)
	case opts.latest:
		return showLatest(ctx, out, db, sourceKey, opts)
	case opts.compare:
		return runComparison(ctx, out, db, sourceKey, opts)
	default:
		return listHistory(ctx, out, db, sourceKey, opts.json)
	}
}

// listSources lists all sources that have reports in the database.
func listSources(ctx context.Context, out io.Writer, db *database.HistoryDB, jsonOutput bool) error {
	sources, err := db.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if jsonOutput {
		if sources == nil {
			sources = []string{}
		}
		return writeJSON(out, sources)
	}

	if len(sources) == 0 {
		fmt.Fprintln(out, "No reports have been recorded yet.")
		fmt.Fprintln(out, "\nUse 'nullscan report <file>' to record one.")
		return nil
	}

	fmt.Fprintf(out, "Recorded sources (%d):\n\n", len(sources))
	for _, s := range sources {
		fmt.Fprintf(out, "  • %s\n", s)
	}
	fmt.Fprintln(out, "\nUse 'nullscan history <file>' to see the reports recorded for a source.")

	return nil
}

// listHistory lists all reports recorded for a source.
func listHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, sourceKey string, jsonOutput bool) error {
	history, err := db.GetHistoryWithMetadata(ctx, sourceKey)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if jsonOutput {
		if history == nil {
			history = []database.ReportMetadata{}
		}
		return writeJSON(out, history)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No reports recorded for %s\n", sourceKey)
		fmt.Fprintln(out, "\nUse 'nullscan report' to record one.")
		return nil
	}

	fmt.Fprintf(out, "History for %s (%d reports):\n\n", sourceKey, len(history))
	fmt.Fprintf(out, "  %-6s  %-20s  %-8s  %-10s  %s\n", "ID", "Date", "Rows", "Null cols", "Fingerprint")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))

	for _, meta := range history {
		fmt.Fprintf(out, "  %-6d  %-20s  %-8d  %-10d  %s\n",
			meta.ID,
			meta.Timestamp.Local().Format("2006-01-02 15:04:05"),
			meta.RowCount,
			meta.ColumnsWithNulls,
			shortFingerprint(meta.Fingerprint),
		)
	}

	fmt.Fprintln(out, "\nUse 'nullscan history --compare <file>' to compare the latest two reports.")
	fmt.Fprintln(out, "Use 'nullscan history --compare --with-id <id> <file>' to compare with a specific report.")

	return nil
}

// showLatest prints the most recent report recorded for a source in the
// format the report command would have used.
func showLatest(ctx context.Context, out io.Writer, db *database.HistoryDB, sourceKey string, opts historyOptions) error {
	latest, err := db.GetLatestReport(ctx, sourceKey)
	if err != nil {
		return fmt.Errorf("failed to get latest report: %w", err)
	}
	if latest == nil {
		return fmt.Errorf("no reports recorded for %s", sourceKey)
	}

	var w report.Writer
	switch {
	case opts.json:
		w = report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case opts.markdown:
		w = report.NewMarkdownWriter(out)
	default:
		fmt.Fprintf(out, "Recorded %s\n", latest.DateScanned.Local().Format("2006-01-02 15:04:05"))
		w = report.NewSimpleWriter(out, report.WithSourceHeader(true))
	}

	if _, err := w.Write(latest); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// shortFingerprint abbreviates a content hash for display.
func shortFingerprint(fp string) string {
	if fp == "" {
		return "-"
	}
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

// runComparison compares the latest report of a source with an earlier one.
func runComparison(ctx context.Context, out io.Writer, db *database.HistoryDB, sourceKey string, opts historyOptions) error {
	history, err := db.GetHistoryWithMetadata(ctx, sourceKey)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if len(history) == 0 {
		return fmt.Errorf("no reports recorded for %s", sourceKey)
	}

	currentID := history[0].ID
	var previousID int64

	switch {
	case opts.withID != 0:
		previousID = opts.withID
	case opts.since != "":
		sinceDate, err := time.ParseInLocation("2006-01-02", opts.since, time.Local)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// History is newest first: walk it backwards for the oldest match.
		for i := len(history) - 1; i >= 0; i-- {
			if !history[i].Timestamp.Before(sinceDate) {
				previousID = history[i].ID
				break
			}
		}
		if previousID == 0 {
			return fmt.Errorf("no reports recorded since %s", opts.since)
		}
		if previousID == currentID {
			return fmt.Errorf("only one report recorded since %s; at least 2 are required for comparison", opts.since)
		}
	default:
		if len(history) < 2 {
			return fmt.Errorf("at least 2 reports are required for comparison (found %d)", len(history))
		}
		previousID = history[1].ID
	}

	current, err := db.GetReportByID(ctx, currentID)
	if err != nil {
		return fmt.Errorf("failed to get report %d: %w", currentID, err)
	}
	previous, err := db.GetReportByID(ctx, previousID)
	if err != nil {
		return fmt.Errorf("failed to get report %d: %w", previousID, err)
	}
	if current == nil {
		return fmt.Errorf("report with ID %d not found", currentID)
	}
	if previous == nil {
		return fmt.Errorf("report with ID %d not found", previousID)
	}
	if previous.Source != sourceKey {
		return fmt.Errorf("report ID %d belongs to %s, not %s", previousID, previous.Source, sourceKey)
	}

	comparison := compareReports(previous, current)
	comparison.Previous.ID = previousID
	comparison.Current.ID = currentID

	switch {
	case opts.json:
		return writeJSON(out, comparison)
	case opts.markdown:
		return outputComparisonMarkdown(out, comparison)
	default:
		return outputComparisonText(out, comparison)
	}
}

// ComparisonResult holds the result of comparing two null reports.
type ComparisonResult struct {
	// Source is the compared source.
	Source string `json:"source"`

	// Previous summarizes the earlier report.
	Previous ReportSummary `json:"previous"`

	// Current summarizes the later report.
	Current ReportSummary `json:"current"`

	// FingerprintChanged is true when both reports carry a content hash and
	// the hashes differ.
	FingerprintChanged bool `json:"fingerprint_changed"`

	// NewNullColumns have missing values now but had none before.
	NewNullColumns []model.ColumnNulls `json:"new_null_columns,omitempty"`

	// ResolvedColumns had missing values before but have none now.
	ResolvedColumns []model.ColumnNulls `json:"resolved_columns,omitempty"`

	// Changed lists columns with missing values in both reports whose null
	// count or dtype differs.
	Changed []ColumnDelta `json:"changed,omitempty"`

	// UnchangedCount is the number of columns identical in both reports.
	UnchangedCount int `json:"unchanged_count"`

	// Direction is "improved", "worsened", or "unchanged", by total nulls.
	Direction string `json:"direction"`
}

// ReportSummary contains the headline numbers of one report.
type ReportSummary struct {
	// ID is the report's database ID.
	ID int64 `json:"id"`

	// DateScanned is when the report was produced.
	DateScanned time.Time `json:"date_scanned"`

	// Fingerprint is the content hash of the source at scan time.
	Fingerprint string `json:"fingerprint,omitempty"`

	// RowCount is the dataset's row count.
	RowCount int `json:"row_count"`

	// ColumnsWithNulls is the number of columns with missing values.
	ColumnsWithNulls int `json:"columns_with_nulls"`

	// TotalNulls is the number of missing values across all columns.
	TotalNulls int `json:"total_nulls"`
}

// ColumnDelta describes how one column changed between two reports.
type ColumnDelta struct {
	// Name is the column name.
	Name string `json:"name"`

	// PreviousNulls is the earlier null count.
	PreviousNulls int `json:"previous_nulls"`

	// CurrentNulls is the later null count.
	CurrentNulls int `json:"current_nulls"`

	// PreviousDtype is the earlier dtype.
	PreviousDtype model.Dtype `json:"previous_dtype"`

	// CurrentDtype is the later dtype.
	CurrentDtype model.Dtype `json:"current_dtype"`
}

// Delta returns the change in null count.
func (d ColumnDelta) Delta() int {
	return d.CurrentNulls - d.PreviousNulls
}

// summarize extracts the headline numbers of a report.
func summarize(r *model.NullReport) ReportSummary {
	return ReportSummary{
		DateScanned:      r.DateScanned,
		Fingerprint:      r.Fingerprint,
		RowCount:         r.RowCount,
		ColumnsWithNulls: r.NumColumnsWithNulls(),
		TotalNulls:       r.TotalNulls(),
	}
}

// compareReports compares two reports of the same source.
// Columns are listed in the order they appear in their report.
func compareReports(previous, current *model.NullReport) *ComparisonResult {
	result := &ComparisonResult{
		Source:   current.Source,
		Previous: summarize(previous),
		Current:  summarize(current),
	}

	result.FingerprintChanged = previous.Fingerprint != "" &&
		current.Fingerprint != "" &&
		previous.Fingerprint != current.Fingerprint

	for _, cur := range current.Columns {
		prev, ok := previous.Column(cur.Name)
		switch {
		case !ok:
			result.NewNullColumns = append(result.NewNullColumns, cur)
		case prev.NullCount != cur.NullCount || prev.Dtype != cur.Dtype:
			result.Changed = append(result.Changed, ColumnDelta{
				Name:          cur.Name,
				PreviousNulls: prev.NullCount,
				CurrentNulls:  cur.NullCount,
				PreviousDtype: prev.Dtype,
				CurrentDtype:  cur.Dtype,
			})
		default:
			result.UnchangedCount++
		}
	}

	for _, prev := range previous.Columns {
		if _, ok := current.Column(prev.Name); !ok {
			result.ResolvedColumns = append(result.ResolvedColumns, prev)
		}
	}

	switch {
	case result.Current.TotalNulls < result.Previous.TotalNulls:
		result.Direction = directionImproved
	case result.Current.TotalNulls > result.Previous.TotalNulls:
		result.Direction = directionWorsened
	default:
		result.Direction = directionUnchanged
	}

	return result
}

// writeJSON writes v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Null Report Comparison: %s\n", result.Source)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nStatus: %s\n", formatDirection(result.Direction))
	if result.FingerprintChanged {
		fmt.Fprintln(out, "Content: changed")
	}

	fmt.Fprintf(out, "\nPrevious report: #%d %s\n", result.Previous.ID,
		result.Previous.DateScanned.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Current report:  #%d %s\n", result.Current.ID,
		result.Current.DateScanned.Local().Format("2006-01-02 15:04:05"))

	fmt.Fprintln(out, "\nSummary:")
	fmt.Fprintf(out, "  %-18s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 54))
	for _, row := range summaryRows(result) {
		fmt.Fprintf(out, "  %-18s  %-10d  %-10d  %-10s\n", row.label, row.previous, row.current,
			formatDelta(row.current-row.previous))
	}

	if len(result.NewNullColumns) > 0 {
		fmt.Fprintf(out, "\nNew Columns with Nulls (%d):\n", len(result.NewNullColumns))
		for _, c := range result.NewNullColumns {
			fmt.Fprintf(out, "  [+] %s: %d nulls (%s)\n", c.Name, c.NullCount, c.Dtype)
		}
	}

	if len(result.ResolvedColumns) > 0 {
		fmt.Fprintf(out, "\nResolved Columns (%d):\n", len(result.ResolvedColumns))
		for _, c := range result.ResolvedColumns {
			fmt.Fprintf(out, "  [-] %s: had %d nulls (%s)\n", c.Name, c.NullCount, c.Dtype)
		}
	}

	if len(result.Changed) > 0 {
		fmt.Fprintf(out, "\nChanged Columns (%d):\n", len(result.Changed))
		for _, d := range result.Changed {
			fmt.Fprintf(out, "  [~] %s: %d -> %d nulls (%s)%s\n",
				d.Name, d.PreviousNulls, d.CurrentNulls, formatDelta(d.Delta()), formatDtypeChange(d))
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d columns\n", result.UnchangedCount)
	}

	return nil
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1f("Null Report Comparison: %s", result.Source)
	md.PlainText("")
	md.PlainTextf("**Status:** %s", formatDirection(result.Direction))
	md.PlainText("")

	rows := [][]string{
		{"Report", "#" + strconv.FormatInt(result.Previous.ID, 10), "#" + strconv.FormatInt(result.Current.ID, 10), "-"},
		{"Date",
			result.Previous.DateScanned.Local().Format("2006-01-02 15:04"),
			result.Current.DateScanned.Local().Format("2006-01-02 15:04"),
			"-"},
	}
	for _, row := range summaryRows(result) {
		rows = append(rows, []string{
			row.label,
			strconv.Itoa(row.previous),
			strconv.Itoa(row.current),
			formatDelta(row.current - row.previous),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows:   rows,
	})

	if result.FingerprintChanged {
		md.PlainText("")
		md.Note("The file content changed between the two reports.")
	}

	if len(result.NewNullColumns) > 0 {
		md.PlainText("")
		md.H2f("New Columns with Nulls (%d)", len(result.NewNullColumns))
		md.PlainText("")
		items := make([]string, 0, len(result.NewNullColumns))
		for _, c := range result.NewNullColumns {
			items = append(items, fmt.Sprintf("`%s`: %d nulls (%s)", c.Name, c.NullCount, c.Dtype))
		}
		md.BulletList(items...)
	}

	if len(result.ResolvedColumns) > 0 {
		md.PlainText("")
		md.H2f("Resolved Columns (%d)", len(result.ResolvedColumns))
		md.PlainText("")
		items := make([]string, 0, len(result.ResolvedColumns))
		for _, c := range result.ResolvedColumns {
			items = append(items, fmt.Sprintf("~~`%s`: %d nulls (%s)~~", c.Name, c.NullCount, c.Dtype))
		}
		md.BulletList(items...)
	}

	if len(result.Changed) > 0 {
		md.PlainText("")
		md.H2f("Changed Columns (%d)", len(result.Changed))
		md.PlainText("")
		changed := make([][]string, 0, len(result.Changed))
		for _, d := range result.Changed {
			changed = append(changed, []string{
				"`" + d.Name + "`",
				strconv.Itoa(d.PreviousNulls),
				strconv.Itoa(d.CurrentNulls),
				formatDelta(d.Delta()),
				dtypeCell(d),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Column", "Previous", "Current", "Change", "Dtype"},
			Rows:   changed,
		})
	}

	if result.UnchangedCount > 0 {
		md.PlainText("")
		md.HorizontalRule()
		md.PlainTextf("*%d columns unchanged*", result.UnchangedCount)
	}

	return md.Build()
}

// summaryRow is one line of the comparison summary table.
type summaryRow struct {
	label             string
	previous, current int
}

// summaryRows returns the numeric rows shared by the text and Markdown output.
func summaryRows(result *ComparisonResult) []summaryRow {
	return []summaryRow{
		{"Rows", result.Previous.RowCount, result.Current.RowCount},
		{"Columns with nulls", result.Previous.ColumnsWithNulls, result.Current.ColumnsWithNulls},
		{"Total nulls", result.Previous.TotalNulls, result.Current.TotalNulls},
	}
}

// formatDirection formats the trend direction for display.
func formatDirection(direction string) string {
	switch direction {
	case directionImproved:
		return "IMPROVED (fewer missing values)"
	case directionWorsened:
		return "WORSENED (more missing values)"
	default:
		return "UNCHANGED"
	}
}

// formatDtypeChange returns " dtype a -> b" when the dtype changed.
func formatDtypeChange(d ColumnDelta) string {
	if d.PreviousDtype == d.CurrentDtype {
		return ""
	}
	return fmt.Sprintf(" dtype %s -> %s", d.PreviousDtype, d.CurrentDtype)
}

// dtypeCell returns the dtype column of the Markdown changed-columns table.
func dtypeCell(d ColumnDelta) string {
	if d.PreviousDtype == d.CurrentDtype {
		return d.CurrentDtype.String()
	}
	return d.PreviousDtype.String() + " -> " + d.CurrentDtype.String()
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
