package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/slotsync/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotsync/libs/otel"
)

const DefaultTopic = "calendar.external.changed.v1"

type Handler func(ctx context.Context, msg kafka.Message) error

// Inbox remembers consumed event ids. Record runs inside WithTx together
// with the handler, so a failed handler leaves the event unseen.
type Inbox interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Record(ctx context.Context, eventID string, eventType string) (bool, error)
}

// MessageReader commits offsets explicitly, after an event settles.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = time.Second
)

type Consumer struct {
	reader      MessageReader
	logger      *slog.Logger
	inbox       Inbox
	handler     Handler
	tracer      trace.Tracer
	maxAttempts int
	retryDelay  time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

func New(logger *slog.Logger, inbox Inbox, cfg Config, handler Handler) *Consumer {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return NewWithReader(logger, inbox, reader, handler)
}

func NewWithReader(logger *slog.Logger, inbox Inbox, reader MessageReader, handler Handler) *Consumer {
	return &Consumer{
		reader:      reader,
		logger:      logger,
		inbox:       inbox,
		handler:     handler,
		tracer:      otelx.Tracer("kafka"),
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if !c.settle(ctx, msg) {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka commit failed", "err", err, "partition", msg.Partition, "offset", msg.Offset)
		}
	}
}

// settle processes msg, retrying failures up to maxAttempts. It returns
// false when ctx ends first, leaving the offset uncommitted.
func (c *Consumer) settle(ctx context.Context, msg kafka.Message) bool {
	for attempt := 1; ; attempt++ {
		err := c.Process(ctx, msg)
		if err == nil {
			return true
		}
		if attempt >= c.maxAttempts {
			c.logger.Error("event dropped after retries",
				"attempts", attempt, "partition", msg.Partition, "offset", msg.Offset, "err", err)
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.retryDelay):
		}
	}
}

// Process records the event in the inbox and runs the handler in one
// transaction. Duplicates are acknowledged without running the handler.
func (c *Consumer) Process(ctx context.Context, msg kafka.Message) (err error) {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := c.tracer.Start(ctxMsg, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer func() { otelx.EndSpan(span, err) }()

	meta := kafkax.ExtractEventMeta(msg)
	duplicate := false
	err = c.inbox.WithTx(ctxSpan, func(ctx context.Context) error {
		ok, err := c.inbox.Record(ctx, meta.EventID, meta.EventType)
		if err != nil {
			return fmt.Errorf("inbox record: %w", err)
		}
		if !ok {
			duplicate = true
			return nil
		}
		return c.handler(ctx, msg)
	})
	if err != nil {
		c.logger.Error("event processing failed", "err", err, "event_id", meta.EventID, "trace_id", otelx.TraceID(ctxSpan))
		return err
	}
	if duplicate {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
	}
	return nil
}

// Invalidator drops cached external calendar state.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type externalChange struct {
	CalendarID string `json:"calendar_id"`
	EventUID   string `json:"event_uid"`
	Change     string `json:"change"`
}

// InvalidateOnChange returns a Handler that clears the external event cache
// for every change notification.
func InvalidateOnChange(inv Invalidator, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var change externalChange
		if len(msg.Value) > 0 {
			if err := json.Unmarshal(msg.Value, &change); err != nil {
				logger.Warn("external change payload unreadable", "err", err)
			}
		}
		if err := inv.Invalidate(ctx); err != nil {
			return err
		}
		logger.Info("external calendar changed",
			"calendar_id", change.CalendarID,
			"event_uid", change.EventUID,
			"change", change.Change,
		)
		return nil
	}
}
