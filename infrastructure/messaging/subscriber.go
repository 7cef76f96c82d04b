// Package messaging subscribes to content change events on NATS and turns
// them into queued work.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/domain/task"
	"github.com/helixml/embedsync/internal/config"
)

// QueueGroup is the NATS queue group shared by every embedsync instance, so
// each event is handled once.
const QueueGroup = "embedsync"

const (
	handleTimeout = 30 * time.Second
	drainTimeout  = 10 * time.Second
)

// ErrMalformedEvent indicates a message that could not be turned into a task.
var ErrMalformedEvent = errors.New("malformed content event")

// Enqueuer accepts content operations.
type Enqueuer interface {
	EnqueueSync(ctx context.Context, ref content.Ref, priority task.Priority) error
	EnqueueDelete(ctx context.Context, ref content.Ref, priority task.Priority) error
}

// ChangeEvent is the JSON body of a content change message.
type ChangeEvent struct {
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	Bundle     string `json:"bundle"`
	Op         string `json:"op"`
}

// Subscriber enqueues a task for every content change event.
type Subscriber struct {
	url      string
	subject  string
	enqueuer Enqueuer
	logger   *slog.Logger

	mu   sync.Mutex
	conn *nats.Conn
	sub  *nats.Subscription
}

// NewSubscriber creates a Subscriber from the messaging config.
func NewSubscriber(cfg config.MessagingConfig, enqueuer Enqueuer, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		url:      cfg.URL(),
		subject:  cfg.Subject(),
		enqueuer: enqueuer,
		logger:   logger.With(slog.String("component", "nats")),
	}
}

// Subject returns the subscribed subject.
func (s *Subscriber) Subject() string { return s.subject }

// Start connects to NATS and subscribes. Messages are handled until Stop.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	conn, err := nats.Connect(s.url,
		nats.Name("embedsync"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DrainTimeout(drainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				s.logger.Warn("disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			s.logger.Info("reconnected", slog.String("url", c.ConnectedUrlRedacted()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			s.logger.Error("nats error", slog.String("error", err.Error()))
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}

	sub, err := conn.QueueSubscribe(s.subject, QueueGroup, func(msg *nats.Msg) {
		msgCtx, cancel := context.WithTimeout(ctx, handleTimeout)
		defer cancel()
		if err := s.Handle(msgCtx, msg.Data); err != nil {
			s.logger.Warn("content event dropped", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("subscribe to %s: %w", s.subject, err)
	}

	s.conn = conn
	s.sub = sub
	s.logger.Info("listening for content events", slog.String("subject", s.subject))
	return nil
}

// Stop drains the subscription and closes the connection.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.sub = nil
	s.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Drain(); err != nil {
		s.logger.Warn("drain failed", slog.String("error", err.Error()))
		conn.Close()
	}
}

// Handle decodes one event and enqueues the matching task. Malformed events
// return ErrMalformedEvent and are not retried.
func (s *Subscriber) Handle(ctx context.Context, data []byte) error {
	var event ChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	op, ok := task.ParseOperation(event.Op)
	if !ok {
		return fmt.Errorf("%w: unknown op %q", ErrMalformedEvent, event.Op)
	}

	ref := content.NewRef(event.EntityType, event.EntityID, event.Bundle)
	if err := ref.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	var err error
	switch op {
	case task.OperationDeleteEntity:
		err = s.enqueuer.EnqueueDelete(ctx, ref, task.PriorityNormal)
	default:
		err = s.enqueuer.EnqueueSync(ctx, ref, task.PriorityNormal)
	}
	if err != nil {
		return fmt.Errorf("enqueue %s for %s: %w", op, ref, err)
	}

	s.logger.Debug("content event enqueued",
		slog.String("operation", op.String()),
		slog.String("entity", ref.String()),
	)
	return nil
}
