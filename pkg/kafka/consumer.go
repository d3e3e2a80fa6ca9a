package kafka

import (
	"context"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler processes one message. A returned error triggers a retry.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second

	// From this attempt on, failures are logged as errors.
	escalateAfter = 3
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads a single topic as part of a consumer group.
type Consumer struct {
	reader     messageReader
	logger     *zap.Logger
	backoff    time.Duration
	maxBackoff time.Duration
}

// NewConsumer creates a Consumer for topic within groupID.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		logger:     logger.With(zap.String("topic", topic), zap.String("group", groupID)),
		backoff:    initialBackoff,
		maxBackoff: maxBackoff,
	}
}

// Consume blocks, dispatching messages to handler until ctx is cancelled.
// A message is committed only once the handler succeeds. Failures are retried
// in place, so a message still failing at shutdown stays uncommitted and is
// redelivered to the group.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return context.Canceled
			}
			c.logger.Error("failed to fetch message", zap.Error(err))
			continue
		}

		if !c.handleUntilDone(ctx, handler, msg) {
			c.logger.Warn("leaving message uncommitted for redelivery", zap.Int64("offset", msg.Offset))
			return context.Canceled
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return context.Canceled
			}
			c.logger.Error("failed to commit message",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// handleUntilDone retries handler with capped exponential backoff. It returns
// false if ctx is cancelled before the handler succeeds.
func (c *Consumer) handleUntilDone(ctx context.Context, handler MessageHandler, msg kafkago.Message) bool {
	delay := c.backoff
	for attempt := 1; ; attempt++ {
		err := handler(ctx, msg)
		if err == nil {
			return true
		}

		fields := []zap.Field{
			zap.Int("attempt", attempt),
			zap.Int64("offset", msg.Offset),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		}
		if attempt >= escalateAfter {
			c.logger.Error("message handler still failing", fields...)
		} else {
			c.logger.Warn("message handler failed", fields...)
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		delay *= 2
		if delay > c.maxBackoff {
			delay = c.maxBackoff
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
