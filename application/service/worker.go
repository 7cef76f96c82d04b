package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/helixml/embedsync/domain/failure"
	"github.com/helixml/embedsync/domain/task"
	"github.com/helixml/embedsync/infrastructure/metrics"
	"github.com/helixml/embedsync/internal/config"
)

// ErrNoHandler indicates no handler is registered for an operation.
var ErrNoHandler = errors.New("no handler registered")

// Handler executes a specific task operation.
type Handler interface {
	Execute(ctx context.Context, payload map[string]any) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, payload map[string]any) error

// Execute calls f.
func (f HandlerFunc) Execute(ctx context.Context, payload map[string]any) error {
	return f(ctx, payload)
}

// Registry manages task handlers for different operations.
type Registry struct {
	handlers map[task.Operation]Handler
	mu       sync.RWMutex
}

// NewRegistry creates a new handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[task.Operation]Handler),
	}
}

// Register registers a handler for an operation.
// Subsequent registrations for the same operation overwrite the previous handler.
func (r *Registry) Register(operation task.Operation, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[operation] = handler
}

// Handler returns the handler for an operation.
func (r *Registry) Handler(operation task.Operation) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[operation]
	return handler, ok
}

// HasHandler reports whether a handler is registered for the operation.
func (r *Registry) HasHandler(operation task.Operation) bool {
	_, ok := r.Handler(operation)
	return ok
}

// Operations returns all registered operations in name order.
func (r *Registry) Operations() []task.Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]task.Operation, 0, len(r.handlers))
	for op := range r.handlers {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Validate checks every known operation has a handler.
func (r *Registry) Validate() error {
	for _, op := range task.AllOperations() {
		if !r.HasHandler(op) {
			return fmt.Errorf("%w: %s", ErrNoHandler, op)
		}
	}
	return nil
}

// Worker processes tasks from the queue with a fixed pool of goroutines.
// Each goroutine handles one task at a time.
type Worker struct {
	store       task.TaskStore
	registry    *Registry
	metrics     *metrics.Metrics
	logger      *slog.Logger
	pollPeriod  time.Duration
	count       int
	maxAttempts int

	cancel context.CancelFunc
	group  *errgroup.Group
	mu     sync.Mutex
}

// NewWorker creates a new queue worker.
func NewWorker(store task.TaskStore, registry *Registry, logger *slog.Logger) *Worker {
	return &Worker{
		store:       store,
		registry:    registry,
		logger:      logger,
		pollPeriod:  config.DefaultWorkerPollInterval,
		count:       config.DefaultWorkerCount,
		maxAttempts: config.DefaultWorkerMaxAttempts,
	}
}

// WithPollPeriod sets the poll period for checking new tasks.
func (w *Worker) WithPollPeriod(d time.Duration) *Worker {
	if d > 0 {
		w.pollPeriod = d
	}
	return w
}

// WithCount sets how many tasks are processed concurrently.
func (w *Worker) WithCount(n int) *Worker {
	if n > 0 {
		w.count = n
	}
	return w
}

// WithMaxAttempts sets how many times a retryable task is tried.
func (w *Worker) WithMaxAttempts(n int) *Worker {
	if n > 0 {
		w.maxAttempts = n
	}
	return w
}

// WithMetrics sets the metrics sink.
func (w *Worker) WithMetrics(m *metrics.Metrics) *Worker {
	w.metrics = m
	return w
}

// Start begins processing tasks from the queue.
// The pool runs in background goroutines and can be stopped with Stop().
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.group != nil {
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.group, ctx = errgroup.WithContext(ctx)

	for i := range w.count {
		w.group.Go(func() error {
			w.run(ctx, i)
			return nil
		})
	}

	w.logger.Info("queue worker started",
		slog.Int("workers", w.count),
		slog.Duration("poll_period", w.pollPeriod),
	)
}

// Stop gracefully shuts down the worker.
// It waits for in-flight tasks to complete before returning.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	group := w.group
	w.cancel = nil
	w.group = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	_ = group.Wait()
	w.logger.Info("queue worker stopped")
}

func (w *Worker) run(ctx context.Context, slot int) {
	logger := w.logger.With(slog.Int("worker", slot))
	logger.Debug("worker loop started")

	ticker := time.NewTicker(w.pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker loop stopping")
			return
		case <-ticker.C:
			// drain everything available before waiting for the next tick
			for {
				found, err := w.ProcessOne(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Error("error processing task", slog.String("error", err.Error()))
					break
				}
				if !found || ctx.Err() != nil {
					break
				}
			}
			w.reportDepth(ctx)
		}
	}
}

// ProcessOne dequeues and processes a single task. It reports whether a
// task was found.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	t, found, err := w.store.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return true, w.processTask(ctx, t)
}

func (w *Worker) processTask(ctx context.Context, t task.Task) error {
	start := time.Now()
	logger := w.logger.With(
		slog.Int64("task_id", t.ID()),
		slog.String("operation", t.Operation().String()),
		slog.Int("attempt", t.Attempts()+1),
	)

	logger.Debug("processing task")

	h, ok := w.registry.Handler(t.Operation())
	if !ok {
		// the task is already off the queue, so it cannot block it
		logger.Error("no handler for operation")
		w.metrics.Item(metrics.ItemDropped)
		return nil
	}

	err := w.executeWithRecovery(ctx, h, t)
	w.metrics.ObserveItem(t.Operation().String(), time.Since(start))
	if err == nil {
		logger.Debug("task completed", slog.Duration("duration", time.Since(start)))
		return nil
	}

	return w.handleFailure(ctx, logger, t, err)
}

func (w *Worker) handleFailure(ctx context.Context, logger *slog.Logger, t task.Task, err error) error {
	if !failure.Retryable(err) {
		logger.Error("task failed permanently", slog.String("error", err.Error()))
		w.metrics.Item(metrics.ItemDropped)
		return nil
	}

	if t.Attempts()+1 >= w.maxAttempts {
		logger.Error("task failed, attempts exhausted",
			slog.Int("max_attempts", w.maxAttempts),
			slog.String("error", err.Error()),
		)
		w.metrics.Item(metrics.ItemFailed)
		return nil
	}

	logger.Warn("task failed, retrying", slog.String("error", err.Error()))
	if _, saveErr := w.store.Save(ctx, t.Retry()); saveErr != nil {
		return fmt.Errorf("re-enqueue task %s: %w", t.DedupKey(), saveErr)
	}
	w.metrics.Item(metrics.ItemRetried)
	return nil
}

func (w *Worker) executeWithRecovery(ctx context.Context, h Handler, t task.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Execute(ctx, t.Payload())
}

func (w *Worker) reportDepth(ctx context.Context) {
	if w.metrics == nil {
		return
	}
	n, err := w.store.CountPending(ctx)
	if err != nil {
		return
	}
	w.metrics.QueueDepth(n)
}
