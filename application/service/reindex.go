package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/domain/task"
	"github.com/helixml/embedsync/internal/config"
)

// listConcurrency bounds concurrent bundle listings against the content database.
const listConcurrency = 4

// Reindex enqueues sync tasks for every entity of the allowed bundles, once
// on demand or periodically on a timer.
type Reindex struct {
	source   content.Source
	queue    *Queue
	bundles  []string
	logger   *slog.Logger
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReindex creates a new Reindex from config and dependencies.
func NewReindex(
	cfg config.SyncConfig,
	source content.Source,
	queue *Queue,
	logger *slog.Logger,
) *Reindex {
	return &Reindex{
		source:   source,
		queue:    queue,
		bundles:  cfg.NodeTypes(),
		logger:   logger,
		interval: cfg.ReindexInterval(),
	}
}

// Run lists every allowed node and enqueues a background sync for each.
// It returns how many tasks were enqueued.
func (r *Reindex) Run(ctx context.Context) (int, error) {
	if len(r.bundles) == 0 {
		return 0, nil
	}

	perBundle := make([][]content.Ref, len(r.bundles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, bundle := range r.bundles {
		g.Go(func() error {
			refs, err := r.source.List(gctx, content.EntityTypeNode, []string{bundle})
			if err != nil {
				return fmt.Errorf("list %s entities: %w", bundle, err)
			}
			perBundle[i] = refs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var refs []content.Ref
	for _, batch := range perBundle {
		refs = append(refs, batch...)
	}

	queued, err := r.queue.EnqueueRefs(ctx, task.OperationSyncEntity, refs, task.PriorityBackground)
	if err != nil {
		return queued, fmt.Errorf("enqueue reindex: %w", err)
	}

	r.logger.Info("reindex enqueued",
		slog.Int("entities", queued),
		slog.Any("bundles", r.bundles),
	)
	return queued, nil
}

// Start begins periodic reindexing in a background goroutine.
// If no interval is configured, this is a no-op.
func (r *Reindex) Start(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Debug("periodic reindex disabled")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Go(func() {
		r.run(ctx)
	})

	r.logger.Info("periodic reindex started", slog.Duration("interval", r.interval))
}

// Stop cancels the background goroutine and waits for it to finish.
func (r *Reindex) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
	r.logger.Info("periodic reindex stopped")
}

func (r *Reindex) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("periodic reindex failed", slog.String("error", err.Error()))
			}
		}
	}
}
