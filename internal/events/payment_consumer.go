package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/rentnest/service-rental/internal/application"
	"github.com/rentnest/service-rental/pkg/domain"
	"github.com/rentnest/service-rental/pkg/events"
	"github.com/rentnest/service-rental/pkg/kafka"
)

// PaymentHandler applies payment outcomes to bookings.
type PaymentHandler interface {
	ApplyPaymentCaptured(ctx context.Context, evt events.PaymentCapturedEvent) (*application.BookingDTO, error)
}

// PaymentEventConsumer listens to payment events and marks bookings paid.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	service  PaymentHandler
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	service PaymentHandler,
	logger *zap.Logger,
) *PaymentEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, events.TopicPaymentEvents, logger)
	return &PaymentEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming payment events. This blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PaymentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}
	return c.dispatch(ctx, cloudEvent)
}

func (c *PaymentEventConsumer) dispatch(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	switch cloudEvent.Type {
	case events.PaymentCaptured:
		return c.handlePaymentCaptured(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) handlePaymentCaptured(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt events.PaymentCapturedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse PaymentCapturedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing payment captured event",
		zap.String("booking_id", evt.BookingID.String()),
		zap.String("payment_id", evt.PaymentID.String()),
	)

	_, err := c.service.ApplyPaymentCaptured(ctx, evt)
	switch {
	case err == nil:
		c.logger.Info("booking marked paid after payment capture",
			zap.String("booking_id", evt.BookingID.String()),
		)
		return nil
	case domain.IsInvalidTransition(err), domain.IsNotFound(err):
		// Redelivered or out-of-order events cannot succeed on retry.
		c.logger.Warn("payment capture not applicable to booking",
			zap.String("booking_id", evt.BookingID.String()),
			zap.Error(err),
		)
		return nil
	default:
		c.logger.Error("failed to mark booking paid after payment capture",
			zap.String("booking_id", evt.BookingID.String()),
			zap.Error(err),
		)
		return err
	}
}
