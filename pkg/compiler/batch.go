package compiler

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/modwrap/pkg/observability"
)

// Sink receives finished outputs. Returning an error stops the batch.
type Sink func(out *Output) error

type indexedFile struct {
	index int
	path  string
}

type indexedResult struct {
	index int
	out   *Output
	err   error
}

// CompileFiles compiles the files at paths on workers goroutines; workers <= 0
// uses one per CPU. Outputs reach sink one at a time in the order of paths.
// The first error in that order stops the batch: files not yet started are
// skipped and the error is returned. Canceling ctx stops feeding new files.
func (c *Compiler) CompileFiles(ctx context.Context, paths []string, workers int, sink Sink) error {
	if len(paths) == 0 {
		return nil
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	if workers > len(paths) {
		workers = len(paths)
	}

	ctx, span := c.tracer.Start(ctx, observability.SpanBatch,
		trace.WithAttributes(
			attribute.Int(observability.AttrBatchFiles, len(paths)),
			attribute.Int(observability.AttrBatchWorkers, workers),
		))
	defer span.End()

	start := time.Now()

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan indexedFile, workers)
	results := make(chan indexedResult, workers)

	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for job := range jobs {
				out, err := c.compileFile(workCtx, job.path)
				results <- indexedResult{index: job.index, out: out, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)

		for i, path := range paths {
			select {
			case jobs <- indexedFile{index: i, path: path}:
			case <-workCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	delivered, err := deliverInOrder(results, sink, cancel)
	if err == nil && delivered < len(paths) {
		err = fmt.Errorf("batch stopped after %d of %d files: %w", delivered, len(paths), ctx.Err())
	}

	span.SetAttributes(attribute.Int(observability.AttrBatchDelivered, delivered))

	if err != nil {
		observability.RecordSpanError(span, err, classify(err), observability.ErrSourceInput)

		return err
	}

	c.logger.DebugContext(ctx, "batch compiled",
		"files", delivered, "workers", workers, "duration", time.Since(start))

	return nil
}

// deliverInOrder drains results, passing outputs to sink in index order. It
// keeps draining after a failure so that no worker blocks.
func deliverInOrder(results <-chan indexedResult, sink Sink, cancel context.CancelFunc) (int, error) {
	pending := make(map[int]indexedResult)
	next := 0

	var firstErr error

	for res := range results {
		if firstErr != nil {
			continue
		}

		pending[res.index] = res

		for {
			ready, ok := pending[next]
			if !ok {
				break
			}

			delete(pending, next)

			if ready.err != nil {
				firstErr = ready.err

				cancel()

				break
			}

			if err := sink(ready.out); err != nil {
				firstErr = fmt.Errorf("sink %s: %w", ready.out.Name, err)

				cancel()

				break
			}

			next++
		}
	}

	return next, firstErr
}

func (c *Compiler) compileFile(ctx context.Context, path string) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	src, err := ReadSource(path)
	if err != nil {
		return nil, err
	}

	return c.Compile(ctx, path, src)
}
