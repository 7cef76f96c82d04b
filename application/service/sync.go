package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/domain/embedding"
	"github.com/helixml/embedsync/domain/failure"
	"github.com/helixml/embedsync/domain/repository"
	"github.com/helixml/embedsync/domain/vector"
	"github.com/helixml/embedsync/infrastructure/metrics"
	"github.com/helixml/embedsync/infrastructure/textprep"
	"github.com/helixml/embedsync/internal/config"
)

// Steps named in field failure logs.
const (
	stepEmbed        = "embed"
	stepUpsertRemote = "upsert_remote"
	stepUpsertLocal  = "upsert_local"
)

// SyncResult summarises one entity sync.
type SyncResult struct {
	Ref      content.Ref
	Embedded int
	Skipped  bool
	Failed   int
	Tokens   int
}

// Sync embeds the text fields of content entities, writes the vectors to the
// vector store and mirrors them into the local embedding table.
type Sync struct {
	source   content.Source
	embedder embedding.Embedder
	vectors  vector.Store
	records  embedding.RecordStore
	preparer textprep.Preparer
	settings config.SyncConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewSync creates a new Sync service.
func NewSync(
	source content.Source,
	embedder embedding.Embedder,
	vectors vector.Store,
	records embedding.RecordStore,
	settings config.SyncConfig,
	logger *slog.Logger,
) *Sync {
	return &Sync{
		source:   source,
		embedder: embedder,
		vectors:  vectors,
		records:  records,
		preparer: textprep.NewPreparer(settings.StripElements(), settings.Stopwords(), settings.MaxLength()),
		settings: settings,
		logger:   logger,
	}
}

// WithMetrics sets the metrics sink.
func (s *Sync) WithMetrics(m *metrics.Metrics) *Sync {
	s.metrics = m
	return s
}

// SyncEntity loads the entity and embeds every supported field value.
//
// Field failures are logged and counted in the result without failing the
// item, even when every value failed. A configuration failure aborts the
// item and is returned.
func (s *Sync) SyncEntity(ctx context.Context, ref content.Ref) (SyncResult, error) {
	result := SyncResult{Ref: ref}

	if err := ref.Validate(); err != nil {
		return result, fmt.Errorf("%w: %w", ErrInvalidRef, err)
	}

	item, err := s.source.Load(ctx, ref)
	if err != nil {
		s.metrics.Item(metrics.ItemFailed)
		return result, fmt.Errorf("load %s: %w", ref, err)
	}
	ref = item.Ref()
	result.Ref = ref

	logger := s.logger.With(
		slog.String("entity_type", ref.EntityType()),
		slog.Int64("entity_id", ref.EntityID()),
		slog.String("bundle", ref.Bundle()),
	)

	if !s.settings.Allows(ref.Bundle()) {
		logger.Info("bundle not enabled for embedding, skipping")
		result.Skipped = true
		s.metrics.Item(metrics.ItemSkipped)
		return result, nil
	}

	for _, field := range item.Fields() {
		if !field.Supported() {
			logger.Info("field type not embeddable, skipping",
				slog.String("field_name", field.Name()),
				slog.String("field_type", field.Type()),
			)
			continue
		}

		for delta, raw := range field.Values() {
			if strings.TrimSpace(raw) == "" {
				continue
			}

			text := s.preparer.Prepare(raw)
			if text == "" {
				s.metrics.FieldValue(metrics.FieldSkipped)
				continue
			}

			target := embedding.TargetFor(ref, field.Name(), delta)
			tokens, step, err := s.embedValue(ctx, target, text)
			if err != nil {
				if errors.Is(err, failure.ErrConfiguration) {
					s.metrics.Item(metrics.ItemFailed)
					return result, err
				}
				logger.Error("failed to embed field value",
					slog.String("field_name", field.Name()),
					slog.Int("field_delta", delta),
					slog.String("step", step),
					slog.String("error", err.Error()),
				)
				s.metrics.FieldValue(metrics.FieldFailed)
				result.Failed++
				continue
			}

			s.metrics.FieldValue(metrics.FieldEmbedded)
			s.metrics.Tokens(tokens)
			result.Embedded++
			result.Tokens += tokens
		}
	}

	if result.Embedded == 0 && result.Failed > 0 {
		logger.Warn("no field value of entity embedded", slog.Int("failed", result.Failed))
		s.metrics.Item(metrics.ItemFailed)
		return result, nil
	}

	logger.Info("entity synced",
		slog.Int("embedded", result.Embedded),
		slog.Int("failed", result.Failed),
		slog.Int("tokens", result.Tokens),
	)
	s.metrics.Item(metrics.ItemSynced)
	return result, nil
}

// embedValue embeds cleaned text and writes it remote first, then locally.
// On failure it returns the step that failed.
func (s *Sync) embedValue(ctx context.Context, target embedding.Target, text string) (int, string, error) {
	vec, err := s.embedder.Embed(ctx, text, "")
	if err != nil {
		return 0, stepEmbed, err
	}

	record := vector.NewRecord(target.SourceID(), vec.Values(), target.Metadata())
	if err := s.vectors.Upsert(ctx, target.Collection(), []vector.Record{record}); err != nil {
		return 0, stepUpsertRemote, err
	}

	if err := s.records.Upsert(ctx, embedding.NewRecord(target, vec)); err != nil {
		return 0, stepUpsertLocal, err
	}

	return vec.Usage().TotalTokens(), "", nil
}

// DeleteEntity removes every vector of the entity from the vector store and
// then its local mirror rows.
func (s *Sync) DeleteEntity(ctx context.Context, ref content.Ref) error {
	if err := ref.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRef, err)
	}

	collection := embedding.CollectionFor(ref.EntityType())
	filter := vector.Filter{embedding.MetaEntityID: {ref.EntityID()}}
	if err := s.vectors.Delete(ctx, collection, nil, filter); err != nil {
		return fmt.Errorf("delete vectors of %s: %w", ref, err)
	}

	if err := s.records.DeleteByEntity(ctx, ref.EntityType(), ref.EntityID()); err != nil {
		return fmt.Errorf("delete embedding records of %s: %w", ref, err)
	}

	s.logger.Info("entity embeddings deleted",
		slog.String("entity_type", ref.EntityType()),
		slog.Int64("entity_id", ref.EntityID()),
	)
	s.metrics.Item(metrics.ItemDeleted)
	return nil
}

// MirroredCount returns how many field values have a local mirror row.
func (s *Sync) MirroredCount(ctx context.Context, options ...repository.Option) (int64, error) {
	return s.records.Count(ctx, options...)
}
