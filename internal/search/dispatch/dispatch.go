// Package dispatch executes a plan: every step's adapter runs concurrently
// under its own timeout, and one adapter failing, timing out, or panicking
// can never abort its siblings or the job.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"deepsearch/internal/platform/metrics"
	"deepsearch/internal/search/models"
	"deepsearch/internal/search/planner"
	"deepsearch/internal/source"
)

// StepResult pairs a planned step with what its adapter produced. Failed
// steps carry an empty Result.
type StepResult struct {
	Source source.Name
	Result source.Result
}

// Dispatcher fans planned steps out to adapters and joins all of them before
// returning. It never retries; retrying is an adapter-internal concern.
type Dispatcher struct {
	registry *source.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records per-adapter call and failure counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New builds a Dispatcher over the given adapter registry.
func New(registry *source.Registry, logger *slog.Logger, opts ...Option) (*Dispatcher, error) {
	if registry == nil {
		return nil, fmt.Errorf("adapter registry is required")
	}
	d := &Dispatcher{registry: registry, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch runs every planned step concurrently and waits for all of them.
// Results come back in plan order regardless of completion order, together
// with the adapter names actually invoked (also in plan order).
func (d *Dispatcher) Dispatch(ctx context.Context, steps []planner.Step, query models.Query) ([]StepResult, []string) {
	results := make([]StepResult, len(steps))
	invoked := make([]string, 0, len(steps))

	var wg sync.WaitGroup
	for i, step := range steps {
		adapter, ok := d.registry.Resolve(step.Source)
		if !ok {
			// Closed registry: a miss means wiring drift, not user input.
			d.logger.ErrorContext(ctx, "no adapter registered for planned source", "source", string(step.Source))
			results[i] = StepResult{Source: step.Source}
			continue
		}

		invoked = append(invoked, string(step.Source))
		wg.Add(1)
		go func(i int, step planner.Step, adapter source.Adapter) {
			defer wg.Done()
			results[i] = StepResult{
				Source: step.Source,
				Result: d.run(ctx, adapter, step.Timeout, query),
			}
		}(i, step, adapter)
	}
	wg.Wait()

	return results, invoked
}

// run executes one adapter call under its own timeout, converting every
// failure mode (error, timeout, panic) into an empty result.
func (d *Dispatcher) run(ctx context.Context, adapter source.Adapter, timeout time.Duration, query models.Query) (out source.Result) {
	name := string(adapter.Name())

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	failed := false
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.ErrorContext(ctx, "adapter panicked", "adapter", name, "panic", rec)
			out = source.Result{}
			failed = true
		}
		if d.metrics != nil {
			d.metrics.ObserveAdapter(name, failed)
		}
	}()

	result, err := adapter.Fetch(callCtx, query)
	if err != nil {
		d.logger.WarnContext(ctx, "adapter failed", "adapter", name, "error", err.Error())
		failed = true
		return source.Result{}
	}
	if callCtx.Err() != nil {
		// The adapter returned after its deadline; its partial output is
		// discarded like any other timeout.
		d.logger.WarnContext(ctx, "adapter timed out", "adapter", name)
		failed = true
		return source.Result{}
	}
	return result
}
