package application

import (
	"context"

	"github.com/google/uuid"

	propertyDomain "github.com/rentnest/service-rental/internal/domain/property"
	"github.com/rentnest/service-rental/pkg/kafka"
)

// EventPublisher publishes CloudEvents to a topic. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// PropertyCatalog resolves the property a booking is requested for.
type PropertyCatalog interface {
	FindByID(ctx context.Context, id uuid.UUID) (*propertyDomain.Property, error)
}

// Recorder receives business counters. A nil Recorder is replaced with a no-op.
type Recorder interface {
	BookingCreated(currency string)
	BookingTransitioned(action, outcome string)
	PropertyReviewed(decision string)
	ImageUploaded(contentType string, sizeBytes int64)
}

// Transition outcomes reported to the Recorder.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
)

type noopRecorder struct{}

func (noopRecorder) BookingCreated(string)              {}
func (noopRecorder) BookingTransitioned(string, string) {}
func (noopRecorder) PropertyReviewed(string)            {}
func (noopRecorder) ImageUploaded(string, int64)        {}

func recorderOrNoop(r Recorder) Recorder {
	if r == nil {
		return noopRecorder{}
	}
	return r
}
