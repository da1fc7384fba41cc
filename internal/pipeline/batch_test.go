package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })

		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(2))

		if bp.concurrency != 2 {
			t.Errorf("expected concurrency 2, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(0))

		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithBatchLogger(nil))

		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})
}

// collectBatch runs bp over sources and returns the delivered scans and
// their indexes.
func collectBatch(ctx context.Context, bp *BatchProcessor, sources []string) ([]*Scan, []int, error) {
	var (
		scans   []*Scan
		indexes []int
	)
	err := bp.ProcessBatchWithCallback(ctx, sources, func(scan *Scan, index int) {
		scans = append(scans, scan)
		indexes = append(indexes, index)
	})
	return scans, indexes, err
}

// TestBatchProcessorProcessBatchWithCallback tests batch processing.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	t.Run("delivers scans in input order", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "sleep", doFunc: func(_ context.Context, scan *Scan) error {
				// Later sources finish first.
				if scan.Source == "a" {
					time.Sleep(20 * time.Millisecond)
				}
				return nil
			}})
			return p
		}

		sources := []string{"a", "b", "c", "d"}
		scans, indexes, err := collectBatch(context.Background(), NewBatchProcessor(factory, WithConcurrency(4)), sources)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(scans) != len(sources) {
			t.Fatalf("expected %d scans, got %d", len(sources), len(scans))
		}
		for i, scan := range scans {
			if scan.Source != sources[i] || indexes[i] != i {
				t.Errorf("delivery %d: expected source %q at index %d, got %q at %d",
					i, sources[i], i, scan.Source, indexes[i])
			}
		}
	})

	t.Run("failing source does not stop others", func(t *testing.T) {
		t.Parallel()

		errBad := errors.New("bad source")
		factory := func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "check", doFunc: func(_ context.Context, scan *Scan) error {
				if scan.Source == "bad" {
					return errBad
				}
				return nil
			}})
			return p
		}

		scans, _, err := collectBatch(context.Background(), NewBatchProcessor(factory), []string{"ok1", "bad", "ok2"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !errors.Is(scans[1].Err, errBad) {
			t.Errorf("expected errBad for bad source, got %v", scans[1].Err)
		}
		if scans[0].Err != nil || scans[2].Err != nil {
			t.Errorf("expected other sources to succeed: %v, %v", scans[0].Err, scans[2].Err)
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		factory := func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "track", doFunc: func(context.Context, *Scan) error {
				n := current.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				current.Add(-1)
				return nil
			}})
			return p
		}

		sources := make([]string, 12)
		for i := range sources {
			sources[i] = "src"
		}

		if _, _, err := collectBatch(context.Background(), NewBatchProcessor(factory, WithConcurrency(3)), sources); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 3 {
			t.Errorf("expected at most 3 concurrent sources, got %d", peak.Load())
		}
	})

	t.Run("cancelled context marks every scan", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "never"}
		factory := func() *Pipeline {
			p := New()
			p.AddStep(step)
			return p
		}

		scans, _, err := collectBatch(ctx, NewBatchProcessor(factory, WithConcurrency(1)), []string{"a", "b"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if len(scans) != 2 {
			t.Fatalf("expected 2 scans, got %d", len(scans))
		}
		for _, scan := range scans {
			if !errors.Is(scan.Err, context.Canceled) {
				t.Errorf("expected scan %q to be cancelled, got %v", scan.Source, scan.Err)
			}
		}
	})

	t.Run("callback is never called concurrently", func(t *testing.T) {
		t.Parallel()

		var inside atomic.Int32
		sources := make([]string, 16)
		for i := range sources {
			sources[i] = "src"
		}

		err := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(8)).ProcessBatchWithCallback(
			context.Background(),
			sources,
			func(*Scan, int) {
				if inside.Add(1) > 1 {
					t.Error("callback called concurrently")
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
			},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		t.Parallel()

		scans, _, err := collectBatch(context.Background(), NewBatchProcessor(func() *Pipeline { return New() }), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(scans) != 0 {
			t.Errorf("expected no scans, got %d", len(scans))
		}
	})
}
