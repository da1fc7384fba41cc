package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/nullscan/internal/model"
	"github.com/nao1215/nullscan/internal/source"
)

// ErrNoDataset is returned by steps that need a dataset when none was loaded.
var ErrNoDataset = errors.New("no dataset loaded")

// ErrNoReport is returned by the save step when no report was produced.
var ErrNoReport = errors.New("no report produced")

// LoadStep reads the source into a dataset.
type LoadStep struct {
	// options returns the read options for a source path.
	options func(path string) source.Options
	logger  *slog.Logger
}

// NewLoadStep creates a load step. options is called once per source so
// that per-source settings can apply; nil means default options.
func NewLoadStep(options func(path string) source.Options, logger *slog.Logger) *LoadStep {
	if options == nil {
		options = func(string) source.Options { return source.Options{} }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LoadStep{options: options, logger: logger}
}

// Name returns the step name.
func (s *LoadStep) Name() string {
	return "load"
}

// Do executes the load step.
func (s *LoadStep) Do(ctx context.Context, scan *Scan) error {
	opts := s.options(scan.Source)

	ds, err := source.Load(ctx, scan.Source, opts)
	if err != nil {
		return err
	}

	s.logger.Debug("dataset loaded",
		"source", scan.Source,
		"format", opts.Format,
		"rows", ds.Len(),
		"columns", len(ds.Columns()),
	)

	scan.Dataset = ds
	return nil
}

// FingerprintStep hashes the source file contents.
// A failure is logged and leaves the fingerprint empty: the report is still
// useful without it.
type FingerprintStep struct {
	logger *slog.Logger
}

// NewFingerprintStep creates a fingerprint step.
func NewFingerprintStep(logger *slog.Logger) *FingerprintStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &FingerprintStep{logger: logger}
}

// Name returns the step name.
func (s *FingerprintStep) Name() string {
	return "fingerprint"
}

// Do executes the fingerprint step.
func (s *FingerprintStep) Do(_ context.Context, scan *Scan) error {
	fp, err := source.Fingerprint(scan.Source)
	if err != nil {
		s.logger.Warn("failed to fingerprint source", "source", scan.Source, "error", err)
		return nil
	}
	scan.Fingerprint = fp
	return nil
}

// ReportStep computes the null report of the loaded dataset.
type ReportStep struct{}

// NewReportStep creates a report step.
func NewReportStep() *ReportStep {
	return &ReportStep{}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do executes the report step.
func (s *ReportStep) Do(_ context.Context, scan *Scan) error {
	if scan.Dataset == nil {
		return ErrNoDataset
	}

	report := model.NewNullReport(source.Key(scan.Source), scan.Dataset)
	report.Fingerprint = scan.Fingerprint
	scan.Report = report
	return nil
}

// ReportSaver stores null reports. The history database implements it.
type ReportSaver interface {
	SaveReport(ctx context.Context, report *model.NullReport) error
}

// SaveStep records the report in the history store.
type SaveStep struct {
	store  ReportSaver
	logger *slog.Logger
}

// NewSaveStep creates a save step.
func NewSaveStep(store ReportSaver, logger *slog.Logger) *SaveStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SaveStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// Do executes the save step.
func (s *SaveStep) Do(ctx context.Context, scan *Scan) error {
	if scan.Report == nil {
		return ErrNoReport
	}
	if err := s.store.SaveReport(ctx, scan.Report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	s.logger.Debug("report saved", "source", scan.Report.Source)
	return nil
}
