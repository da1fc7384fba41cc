package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/nao1215/nullscan/internal/config"
	"github.com/nao1215/nullscan/internal/database"
	"github.com/nao1215/nullscan/internal/model"
	"github.com/nao1215/nullscan/internal/pipeline"
	"github.com/nao1215/nullscan/internal/report"
	"github.com/nao1215/nullscan/internal/source"
	"github.com/spf13/cobra"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [file...]",
		Short: "Report the columns that contain missing values",
		Long: `Report loads each dataset and prints, for every column with missing values,
its non-null count, null count and dtype, followed by the number of such columns.

The format is detected from the file extension:
  .csv .txt              comma separated values
  .tsv                   tab separated values
  .json .yaml .yml       a list of records, or a mapping of column lists
  .db .sqlite .sqlite3   a SQLite table (use --table when there are several)
  .html .htm             an HTML table (--table selects one by id)
  .arrow .feather        an Arrow IPC file (.arrows for the stream format)

Text sources may be gzip or zstd compressed: data.csv.gz, rows.json.zst.

Examples:
  # Report one file
  nullscan report sales.csv

  # Report several files, four at a time
  nullscan report --batch 4 data/*.csv

  # Quoted patterns are expanded by nullscan itself
  nullscan report 'exports/**/*.csv' 'exports/*.tsv'

  # Compressed export
  nullscan report events.tsv.zst

  # Semicolon separated Latin-1 file where empty cells and "-" are missing
  nullscan report -d ';' -E ISO-8859-1 -n ',-' legacy.csv

  # One table of a SQLite database, as JSON
  nullscan report --json --table orders shop.db

  # Do not record the report in the history database
  nullscan report --no-history sales.csv

Configuration file (.nullscan) example:
  defaults:
    nullValues: ["", "NA", "null"]
  sources:
    "*.tsv":
      encoding: UTF-16
    shop.db:
      table: orders`,
		Args: cobra.ArbitraryArgs,
		RunE: runReportCmd,
	}

	// Source flags
	cmd.Flags().StringP("format", "f", config.FormatAuto,
		"Source format: "+strings.Join(config.Formats, ", "))
	cmd.Flags().StringP("delimiter", "d", config.DefaultDelimiter,
		`CSV field separator (one character, or "tab")`)
	cmd.Flags().StringP("encoding", "E", "",
		"Character set of text sources, as an IANA name (default UTF-8)")
	cmd.Flags().StringSliceP("null-values", "n", slices.Clone(config.DefaultNullValues),
		"Cell values read as missing (repeat or comma separate; replaces the default list)")
	cmd.Flags().StringP("table", "t", "",
		"SQLite table name, or HTML table id, to read")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sources analyzed concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .nullscan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("tee", false,
		"With --output, also print the report to stdout")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Do not record reports in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	cfg.Verbose = getVerboseFlag(cmd)
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	// Cancel in-flight loads on interrupt
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runReport(ctx, cmd, cfg, logger)
}

// buildConfig creates a Config from cobra command flags and the config file.
//
// Flag values always set the built-in level of the configuration. Flags the
// user typed are also recorded as overrides, so they beat the config file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	cfg.Format, err = flags.GetString("format")
	if err != nil {
		return nil, err
	}

	delimiter, err := flags.GetString("delimiter")
	if err != nil {
		return nil, err
	}
	cfg.Delimiter = normalizeDelimiter(delimiter)

	cfg.Encoding, err = flags.GetString("encoding")
	if err != nil {
		return nil, err
	}

	cfg.NullValues, err = flags.GetStringSlice("null-values")
	if err != nil {
		return nil, err
	}

	cfg.Table, err = flags.GetString("table")
	if err != nil {
		return nil, err
	}

	if flags.Changed("format") {
		cfg.Overrides.Format = cfg.Format
	}
	if flags.Changed("delimiter") {
		cfg.Overrides.Delimiter = cfg.Delimiter
	}
	if flags.Changed("encoding") {
		cfg.Overrides.Encoding = cfg.Encoding
	}
	if flags.Changed("null-values") {
		cfg.Overrides.NullValues = cfg.NullValues
	}
	if flags.Changed("table") {
		cfg.Overrides.Table = cfg.Table
	}

	cfg.BatchSize, err = flags.GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SourceConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SourceConfigs = &config.File{
			Sources: make(map[string]config.SourceConfig),
		}
	}

	cfg.JSONReport, err = flags.GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = flags.GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = flags.GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.TeeReport, err = flags.GetBool("tee")
	if err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.Sources, err = expandSources(args)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandSources expands the glob patterns among args, which reach nullscan
// unexpanded when quoted or on shells without globbing. An argument naming
// an existing file is kept as is, and a plain path is left for the load
// step to report if it is missing.
func expandSources(args []string) ([]string, error) {
	sources := make([]string, 0, len(args))
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[") {
			sources = append(sources, arg)
			continue
		}
		if _, err := os.Stat(arg); err == nil {
			sources = append(sources, arg)
			continue
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", arg)
		}
		sources = append(sources, matches...)
	}
	return sources, nil
}

// normalizeDelimiter turns the spellings of a tab that survive a shell
// into the tab character.
func normalizeDelimiter(d string) string {
	if d == `\t` || strings.EqualFold(d, "tab") {
		return "\t"
	}
	return d
}

// sourceOptions returns the function the load step uses to resolve the
// settings of each source.
func sourceOptions(cfg *config.Config) func(path string) source.Options {
	return func(path string) source.Options {
		sc := cfg.SourceSettings(path)

		var delimiter rune
		if sc.Delimiter != "" {
			delimiter, _ = utf8.DecodeRuneInString(sc.Delimiter)
		}

		return source.Options{
			Format:     sc.Format,
			Delimiter:  delimiter,
			Encoding:   sc.Encoding,
			NullValues: sc.NullValues,
			Table:      sc.Table,
		}
	}
}

// newReportPipeline creates the pipeline run over each source.
// store is nil when history is disabled.
func newReportPipeline(cfg *config.Config, store pipeline.ReportSaver, logger *slog.Logger) *pipeline.Pipeline {
	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewLoadStep(sourceOptions(cfg), logger),
		pipeline.NewFingerprintStep(logger),
		pipeline.NewReportStep(),
	)
	if store != nil {
		p.AddStep(pipeline.NewSaveStep(store, logger))
	}
	return p
}

// runReport analyzes every source and writes each report as soon as it and
// the reports of the sources before it are ready.
func runReport(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	var store pipeline.ReportSaver
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close() //nolint:errcheck // read-write handle, writes are already committed
		logger.Debug("database opened", "path", db.Path())
		store = db
	}

	logger.Debug("starting report",
		"sources", cfg.Sources,
		"batchSize", cfg.BatchSize,
		"steps", newReportPipeline(cfg, store, logger).StepNames(),
	)

	out := newReportOutput(cmd.OutOrStdout(), cfg)
	defer out.Close() //nolint:errcheck // closed explicitly below on success

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return newReportPipeline(cfg, store, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	stderr := cmd.ErrOrStderr()
	var (
		failed   int
		writeErr error
	)
	batchErr := bp.ProcessBatchWithCallback(ctx, cfg.Sources, func(scan *pipeline.Scan, _ int) {
		if scan.Report != nil && writeErr == nil {
			writeErr = out.Write(scan.Report)
		}

		switch {
		case scan.Err == nil:
		case scan.Report != nil:
			// The report was produced; only recording it failed.
			fmt.Fprintf(stderr, "warning: %s: %v\n", scan.Source, scan.Err)
		default:
			failed++
			fmt.Fprintf(stderr, "error: %v\n", scan.Err)
		}
	})

	if writeErr != nil {
		return writeErr
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if batchErr != nil {
		return batchErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sources could not be reported", failed, len(cfg.Sources))
	}
	return nil
}

// reportOutput writes reports one at a time, in the requested format, to
// stdout, the report file, or both with --tee. The report file is created
// with the first report, so a run without reports leaves no file behind.
type reportOutput struct {
	stdout io.Writer
	cfg    *config.Config
	multi  bool

	writer  report.Writer
	targets io.Writer
	file    *os.File
	written int
}

// newReportOutput prepares the output of cfg's reports.
func newReportOutput(stdout io.Writer, cfg *config.Config) *reportOutput {
	return &reportOutput{
		stdout: stdout,
		cfg:    cfg,
		multi:  len(cfg.Sources) > 1,
	}
}

// open creates the report file, if any, and the writers.
func (o *reportOutput) open() error {
	targets := []io.Writer{o.stdout}
	if o.cfg.ReportFile != "" {
		dir := filepath.Dir(o.cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports name local file paths, so only the owner may read them.
		f, err := os.OpenFile(o.cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		o.file = f

		targets = []io.Writer{f}
		if o.cfg.TeeReport {
			targets = append(targets, o.stdout)
		}
	}

	writers := make([]report.Writer, len(targets))
	for i, w := range targets {
		writers[i] = o.formatWriter(w)
	}
	o.writer = report.NewMultiWriter(writers...)
	o.targets = io.MultiWriter(targets...)
	return nil
}

// formatWriter returns the report writer of the configured format.
func (o *reportOutput) formatWriter(w io.Writer) report.Writer {
	switch {
	case o.cfg.JSONReport:
		// One indented document for a single source, one line per source otherwise.
		var opts []report.JSONWriterOption
		if !o.multi {
			opts = append(opts, report.WithPrettyPrint())
		}
		return report.NewFullJSONWriter(w, getVersion(), opts...)
	case o.cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithSourceHeader(o.multi))
	}
}

// Write writes one report. Text and Markdown reports are separated by a
// blank line.
func (o *reportOutput) Write(r *model.NullReport) error {
	if o.writer == nil {
		if err := o.open(); err != nil {
			return err
		}
	}

	if o.written > 0 && !o.cfg.JSONReport {
		if _, err := io.WriteString(o.targets, "\n"); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	if _, err := o.writer.Write(r); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	o.written++
	return nil
}

// Close closes the report file. It is safe to call more than once.
func (o *reportOutput) Close() error {
	if o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file = nil
	return err
}
