package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/nullscan/internal/model"
)

// Scan is the state of one source as it moves through a pipeline.
// Each step reads what earlier steps stored and adds its own result.
type Scan struct {
	// Source is the path as given on the command line.
	Source string

	// Dataset is set by the load step.
	Dataset model.Dataset

	// Fingerprint is the content hash of the source, if computed.
	Fingerprint string

	// Report is set by the report step.
	Report *model.NullReport

	// PerformedSteps lists the names of the steps that completed.
	PerformedSteps []string

	// Err is the error of the step that stopped the pipeline.
	Err error
}

// NewScan creates the initial state for a source.
func NewScan(source string) *Scan {
	return &Scan{
		Source:         source,
		PerformedSteps: make([]string, 0),
	}
}

// Step is one stage of a pipeline.
type Step interface {
	// Do executes the step. A returned error stops the pipeline.
	Do(ctx context.Context, scan *Scan) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs steps in order over one Scan.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence.
// Cancellation is checked before each step; a running step handles its own.
func (p *Pipeline) Execute(ctx context.Context, scan *Scan) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"source", scan.Source,
				"reason", err,
			)
			if scan.Err == nil {
				scan.Err = err
			}
			return err
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"source", scan.Source,
		)

		if err := step.Do(ctx, scan); err != nil {
			// Callers report the failure from Scan.Err.
			p.logger.Debug("step failed",
				"step", step.Name(),
				"source", scan.Source,
				"error", err,
			)

			if scan.Err == nil {
				scan.Err = err
			}
			return err
		}

		scan.PerformedSteps = append(scan.PerformedSteps, step.Name())
	}

	return scan.Err
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
