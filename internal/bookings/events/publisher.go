package events

import (
	"context"
	"time"

	"reservations/pkg/kafka"
	"reservations/pkg/middleware"
	"reservations/pkg/model"
)

const (
	EventBookingCreated = "booking.created"
	EventBookingUpdated = "booking.updated"
	EventBookingDeleted = "booking.deleted"

	SchemaVersion = "1"
)

// Publisher announces booking lifecycle changes. Implementations may fail;
// callers treat publishing as best-effort.
type Publisher interface {
	Publish(ctx context.Context, eventType string, booking *model.Booking) error
	Close() error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
	timeout  time.Duration
}

func NewKafkaPublisher(producer *kafka.Producer, source string, timeout time.Duration) Publisher {
	return &kafkaPublisher{
		producer: producer,
		source:   source,
		timeout:  timeout,
	}
}

// Publish sends the booking keyed by its id so every event for one booking
// lands on the same partition.
func (p *kafkaPublisher) Publish(ctx context.Context, eventType string, booking *model.Booking) error {
	msg, err := kafka.NewMessage().
		WithKey(booking.ID).
		WithEventType(eventType).
		WithSource(p.source).
		WithSchemaVersion(SchemaVersion).
		WithCorrelationID(middleware.GetRequestID(ctx)).
		WithValue(booking).
		Build()
	if err != nil {
		return err
	}

	// The request may already be finishing; the event should still go out.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	return p.producer.Publish(ctx, msg)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

type noopPublisher struct{}

// NewNoopPublisher is used when no brokers are configured.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, *model.Booking) error { return nil }

func (noopPublisher) Close() error { return nil }
