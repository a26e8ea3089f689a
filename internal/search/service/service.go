// Package service owns the resolution pipeline and the job lifecycle. It is
// the only writer of job state: adapters and pipeline stages produce values
// that the service copies into the store under single updates.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"deepsearch/internal/platform/events"
	"deepsearch/internal/platform/metrics"
	"deepsearch/internal/search/aggregate"
	"deepsearch/internal/search/dispatch"
	"deepsearch/internal/search/judge"
	"deepsearch/internal/search/models"
	"deepsearch/internal/search/normalize"
	"deepsearch/internal/search/planner"
	"deepsearch/internal/search/policy"
	"deepsearch/internal/search/store/jobs"
	"deepsearch/internal/source"
	dErrors "deepsearch/pkg/domain-errors"
)

// Service runs resolution jobs. Each Start launches one background task into
// a supervised group so shutdown can drain outstanding work instead of
// leaking detached goroutines.
type Service struct {
	store      jobs.Store
	extractor  *normalize.Extractor
	dispatcher *dispatch.Dispatcher
	budget     time.Duration

	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher *events.Publisher
	tracer    trace.Tracer

	baseCtx context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics wires job counters and the latency histogram.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher wires the lifecycle event publisher. Nil is fine.
func WithPublisher(p *events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithBudget overrides the global planning budget.
func WithBudget(budget time.Duration) Option {
	return func(s *Service) { s.budget = budget }
}

// New builds the resolution service.
func New(store jobs.Store, extractor *normalize.Extractor, dispatcher *dispatch.Dispatcher, logger *slog.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("job store is required")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Service{
		store:      store,
		extractor:  extractor,
		dispatcher: dispatcher,
		budget:     60 * time.Second,
		logger:     logger,
		tracer:     otel.Tracer("deepsearch/search"),
		baseCtx:    baseCtx,
		cancel:     cancel,
		group:      new(errgroup.Group),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start creates a queued job and launches its pipeline in the background.
// The returned id is immediately pollable through Status.
func (s *Service) Start(ctx context.Context, input models.SearchInput) (string, error) {
	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.NewString(),
		Status:    models.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create job")
	}

	if s.metrics != nil {
		s.metrics.JobsCreated.Inc()
	}
	s.publisher.Publish(ctx, events.Event{Type: "job_created", JobID: job.ID, Status: string(job.Status)})

	// The pipeline outlives the request: it runs on the service context.
	s.group.Go(func() error {
		s.runJob(s.baseCtx, job.ID, input)
		return nil
	})

	return job.ID, nil
}

// Status returns the current job snapshot.
func (s *Service) Status(ctx context.Context, jobID string) (*models.Job, error) {
	return s.store.Get(ctx, jobID)
}

// Close drains outstanding jobs, cancelling them when ctx expires first.
func (s *Service) Close(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.group.Wait() }()
	select {
	case err := <-done:
		s.cancel()
		return err
	case <-ctx.Done():
		s.cancel()
		return <-done
	}
}

// runJob executes the whole pipeline for one job. Every failure mode,
// including panics in any stage, lands the job in failed. A job is never
// left running after this returns.
func (s *Service) runJob(ctx context.Context, jobID string, input models.SearchInput) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "search.resolve",
		trace.WithAttributes(attribute.String("job.id", jobID)))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			s.markFailed(ctx, jobID, fmt.Sprintf("pipeline panic: %v", rec), start)
		}
	}()

	if err := s.setRunning(ctx, jobID); err != nil {
		s.markFailed(ctx, jobID, fmt.Sprintf("mark running: %v", err), start)
		return
	}

	query := s.extractor.Extract(ctx, input)
	steps := planner.Plan(query, s.budget)
	span.SetAttributes(attribute.Int("plan.steps", len(steps)))

	results, invoked := s.dispatcher.Dispatch(ctx, steps, query)

	profile, candidates := aggregate.Merge(results)
	result := &models.Result{
		NormalizedQuery: query,
		Profile:         profile,
		Candidates:      candidates,
		Metrics: models.Metrics{
			ToolsUsed:  invoked,
			APICostUSD: planCost(invoked),
		},
	}
	judge.Judge(result)
	result.Metrics.Diagnostics.NumCandidates = len(result.Candidates)
	result.Metrics.LatencyMS = time.Since(start).Milliseconds()

	decision := policy.Decide(result.Candidates, result.Profile.OverallConfidence)

	status := models.StatusCompleted
	var questions []string
	if decision.NeedsDisambiguation {
		status = models.StatusNeedsDisambiguation
		questions = decision.Questions
	}

	err := s.store.Update(ctx, jobID, func(job *models.Job) error {
		job.Status = status
		job.Result = result
		job.Questions = questions
		job.Error = ""
		return nil
	})
	if err != nil {
		s.markFailed(ctx, jobID, fmt.Sprintf("persist result: %v", err), start)
		return
	}

	s.finish(ctx, jobID, status, start)
	s.logger.InfoContext(ctx, "job finished",
		"job_id", jobID,
		"status", string(status),
		"tools_used", invoked,
		"num_candidates", len(result.Candidates),
		"overall_confidence", result.Profile.OverallConfidence,
		"latency_ms", result.Metrics.LatencyMS,
	)
}

func (s *Service) setRunning(ctx context.Context, jobID string) error {
	return s.store.Update(ctx, jobID, func(job *models.Job) error {
		job.Status = models.StatusRunning
		return nil
	})
}

func (s *Service) markFailed(ctx context.Context, jobID, message string, start time.Time) {
	if message == "" {
		message = "pipeline failed"
	}
	err := s.store.Update(ctx, jobID, func(job *models.Job) error {
		job.Status = models.StatusFailed
		job.Error = message
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record job failure", "job_id", jobID, "error", err.Error())
	}
	s.logger.ErrorContext(ctx, "job failed", "job_id", jobID, "error", message)
	s.finish(ctx, jobID, models.StatusFailed, start)
}

// finish emits the terminal metrics and lifecycle event for a job.
func (s *Service) finish(ctx context.Context, jobID string, status models.JobStatus, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveJob(string(status), time.Since(start))
	}
	eventType := "job_completed"
	switch status {
	case models.StatusFailed:
		eventType = "job_failed"
	case models.StatusNeedsDisambiguation:
		eventType = "job_needs_input"
	}
	s.publisher.Publish(ctx, events.Event{Type: eventType, JobID: jobID, Status: string(status)})
}

// planCost sums the marginal API cost of the adapters actually invoked.
func planCost(invoked []string) float64 {
	total := 0.0
	for _, name := range invoked {
		total += source.CostUSD(source.Name(name))
	}
	return total
}
