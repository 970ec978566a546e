package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hookbridge/hookbridge/internal/config"
	"github.com/hookbridge/hookbridge/internal/event"
	"github.com/hookbridge/hookbridge/internal/events"
	"github.com/hookbridge/hookbridge/internal/log"
	"github.com/hookbridge/hookbridge/internal/store"
)

var tracer = otel.Tracer("hookbridge/pipeline")

// Evaluator decides filter outcomes. The production implementation is
// the CEL engine in internal/filter.
type Evaluator interface {
	Evaluate(ctx context.Context, expr string, vars map[string]any) (bool, error)
}

// job is one pipeline invocation for one event.
type job struct {
	integration string
	pipeline    *Pipeline
	event       *event.NormalizedEvent
}

// Executor fans normalized events out to their integration's pipelines
// on a fixed pool of workers fed by a bounded queue.
type Executor struct {
	store     store.DocumentStore
	eval      Evaluator
	hub       *events.Hub
	pipelines map[string][]Pipeline

	jobs    chan job
	workers int
	wg      sync.WaitGroup
	logger  *slog.Logger

	dispatched atomic.Int64
	dropped    atomic.Int64
	written    atomic.Int64
	deleted    atomic.Int64
	sinkErrors atomic.Int64
}

// NewExecutor compiles every integration's pipelines and prepares the
// worker pool. Call Start before dispatching.
func NewExecutor(st store.DocumentStore, eval Evaluator, hub *events.Hub, cfg *config.Config) *Executor {
	workers := cfg.Workers.Count
	if workers <= 0 {
		workers = 4
	}
	queueSize := cfg.Workers.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Executor{
		store:     st,
		eval:      eval,
		hub:       hub,
		pipelines: CompileAll(cfg.Integrations),
		jobs:      make(chan job, queueSize),
		workers:   workers,
		logger:    log.WithComponent("pipeline"),
	}
}

// Start launches the worker goroutines. They drain the job queue until
// Stop is called; ctx bounds the store and evaluator calls of in-flight
// jobs, not the lifetime of the pool.
func (e *Executor) Start(ctx context.Context) {
	for range e.workers {
		e.wg.Add(1)
		go e.worker(ctx)
	}
	e.logger.Info("pipeline executor started",
		"workers", e.workers,
		"queue_size", cap(e.jobs),
		"integrations", len(e.pipelines),
	)
}

// Stop drains the queue and waits for in-flight jobs to finish. The
// ingest listener must have stopped accepting requests first; Dispatch
// after Stop panics on the closed queue.
func (e *Executor) Stop() {
	close(e.jobs)
	e.wg.Wait()
	e.logger.Info("pipeline executor stopped")
}

// Dispatch enqueues one job per pipeline of the event's integration.
// It blocks only while the queue is full; ctx aborts the wait.
func (e *Executor) Dispatch(ctx context.Context, integration string, ev *event.NormalizedEvent) error {
	pipelines := e.pipelines[integration]
	for i := range pipelines {
		select {
		case e.jobs <- job{integration: integration, pipeline: &pipelines[i], event: ev}:
			e.dispatched.Add(1)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	e.hub.Publish(events.TypeEventAccepted, map[string]any{
		"integration": integration,
		"event_id":    ev.ID,
		"event_type":  ev.EventType,
		"operation":   ev.Operation,
		"pipelines":   len(pipelines),
	})
	return nil
}

func (e *Executor) worker(ctx context.Context) {
	defer e.wg.Done()
	for j := range e.jobs {
		e.run(ctx, j)
	}
}

// run executes one pipeline invocation: processors in declared order
// with short-circuit on drop, then sinks in declared order with
// failures isolated per sink.
//
// Processing happens after the webhook response, so each invocation
// gets its own root span rather than joining the ingest request trace.
func (e *Executor) run(ctx context.Context, j job) {
	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("integration", j.integration),
		attribute.String("pipeline", j.pipeline.Name),
		attribute.String("event.type", j.event.EventType),
	))
	defer span.End()

	logger := log.WithPipeline(j.pipeline.Name).With(
		"integration", j.integration,
		"event_id", j.event.ID,
		"event_type", j.event.EventType,
	)

	body := j.event.Body
	for _, st := range j.pipeline.steps {
		switch st.kind {
		case config.ProcessorFilter:
			pass, err := e.eval.Evaluate(ctx, st.expr, Bindings(j.event.EventType, body))
			if err != nil {
				logger.Warn("filter error, dropping event", "error", err)
				e.drop(j, "filter_error")
				return
			}
			if !pass {
				logger.Debug("event filtered out")
				e.drop(j, "filtered")
				return
			}
		case config.ProcessorMapper:
			mapped, err := RenderDocument(st.template, Bindings(j.event.EventType, body))
			if err != nil {
				logger.Warn("mapper error, dropping event", "error", err)
				e.drop(j, "mapper_error")
				return
			}
			body = mapped
		}
	}

	for _, s := range j.pipeline.sinks {
		if err := s.Write(ctx, e.store, j.event, body); err != nil {
			logger.Error("sink write failed", "collection", s.Collection, "mode", s.Mode, "error", err)
			e.sinkErrors.Add(1)
			e.hub.Publish(events.TypeSinkError, map[string]any{
				"pipeline":   j.pipeline.Name,
				"collection": s.Collection,
				"event_id":   j.event.ID,
				"error":      err.Error(),
			})
			continue
		}

		if j.event.Operation == event.OpDelete && s.Mode != config.SinkModeInsertOnly {
			e.deleted.Add(1)
			e.hub.Publish(events.TypeDocumentDeleted, map[string]any{
				"pipeline":   j.pipeline.Name,
				"collection": s.Collection,
				"event_id":   j.event.ID,
			})
		} else {
			e.written.Add(1)
			e.hub.Publish(events.TypeDocumentWritten, map[string]any{
				"pipeline":   j.pipeline.Name,
				"collection": s.Collection,
				"event_id":   j.event.ID,
			})
		}
		logger.Debug("sink write ok", "collection", s.Collection, "mode", s.Mode)
	}
}

func (e *Executor) drop(j job, reason string) {
	e.dropped.Add(1)
	e.hub.Publish(events.TypePipelineDropped, map[string]any{
		"pipeline":   j.pipeline.Name,
		"event_id":   j.event.ID,
		"event_type": j.event.EventType,
		"reason":     reason,
	})
}

// Snapshot is a point-in-time view of executor counters for the ops API.
type Snapshot struct {
	Dispatched       int64 `json:"dispatched"`
	Dropped          int64 `json:"dropped"`
	DocumentsWritten int64 `json:"documents_written"`
	DocumentsDeleted int64 `json:"documents_deleted"`
	SinkErrors       int64 `json:"sink_errors"`
	QueueDepth       int   `json:"queue_depth"`
	Workers          int   `json:"workers"`
}

func (e *Executor) Snapshot() Snapshot {
	return Snapshot{
		Dispatched:       e.dispatched.Load(),
		Dropped:          e.dropped.Load(),
		DocumentsWritten: e.written.Load(),
		DocumentsDeleted: e.deleted.Load(),
		SinkErrors:       e.sinkErrors.Load(),
		QueueDepth:       len(e.jobs),
		Workers:          e.workers,
	}
}
