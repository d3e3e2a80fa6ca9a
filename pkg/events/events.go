// Package events holds the topic names and payloads exchanged over Kafka.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicBookingEvents = "booking.events"
	TopicPaymentEvents = "payment.events"
)

// Booking event types.
const (
	BookingRequested = "booking.requested"
	BookingApproved  = "booking.approved"
	BookingDeclined  = "booking.declined"
	BookingCancelled = "booking.cancelled"
	BookingPaid      = "booking.paid"
	BookingCompleted = "booking.completed"
)

// Payment event types.
const (
	PaymentCaptured = "payment.captured"
)

// BookingRequestedEvent is published when a renter requests a booking.
type BookingRequestedEvent struct {
	BookingID     uuid.UUID  `json:"booking_id"`
	BookingNumber string     `json:"booking_number"`
	PropertyID    uuid.UUID  `json:"property_id"`
	RenterID      uuid.UUID  `json:"renter_id"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	OpenEnded     bool       `json:"open_ended"`
	TotalAmount   float64    `json:"total_amount"`
	Currency      string     `json:"currency"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// BookingStatusChangedEvent is published after every successful lifecycle transition.
type BookingStatusChangedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	PropertyID    uuid.UUID `json:"property_id"`
	RenterID      uuid.UUID `json:"renter_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	Action        string    `json:"action"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	ActorID       uuid.UUID `json:"actor_id"`
	ActorRole     string    `json:"actor_role"`
	Reason        string    `json:"reason,omitempty"`
	TotalAmount   float64   `json:"total_amount"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PaymentCapturedEvent is consumed from the payment service once a renter has paid.
type PaymentCapturedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	PaymentID  uuid.UUID `json:"payment_id"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurred_at"`
}
