package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of sources processed at once when no
// WithConcurrency option is given.
const DefaultConcurrency = 4

// BatchProcessor runs a pipeline over many sources concurrently.
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline for each source.
	pipelineFactory func() *Pipeline

	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of sources processed at once.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatchWithCallback runs the pipeline over every source, at most
// concurrency at a time, and calls callback with each scan as soon as it
// and every scan before it have finished. Scans are therefore delivered in
// the order of sources, and callback is never called concurrently.
//
// Every source gets a scan, even when its pipeline failed: check Scan.Err.
// A failing source does not stop the others. The returned error is only set
// when ctx is cancelled; sources not started by then carry ctx's error.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sources []string,
	callback func(scan *Scan, index int),
) error {
	bp.logger.Debug("starting batch processing",
		"total_sources", len(sources),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	var (
		mu      sync.Mutex
		done    = make([]*Scan, len(sources))
		pending int
	)
	deliver := func(i int, scan *Scan) {
		mu.Lock()
		defer mu.Unlock()

		done[i] = scan
		for pending < len(done) && done[pending] != nil {
			callback(done[pending], pending)
			done[pending] = nil
			pending++
		}
	}

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, src := range sources {
		g.Go(func() error {
			scan := NewScan(src)
			defer deliver(i, scan)

			if err := ctx.Err(); err != nil {
				scan.Err = err
				return nil
			}

			if err := bp.pipelineFactory().Execute(ctx, scan); err != nil {
				bp.logger.Debug("source failed",
					"source", src,
					"index", i+1,
					"total", len(sources),
					"error", err,
				)
				return nil
			}

			bp.logger.Debug("source completed", "source", src)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines record errors in their Scan

	bp.logger.Debug("batch processing complete",
		"total_sources", len(sources),
		"elapsed", time.Since(startTime),
	)

	return ctx.Err()
}
