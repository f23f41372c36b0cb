package events

import (
	"context"
	"fmt"

	"reservations/pkg/kafka"
	"reservations/pkg/logger"
	"reservations/pkg/model"
)

// Event is a decoded booking lifecycle message.
type Event struct {
	ID            string
	Type          string
	CorrelationID string
	Source        string
	Booking       model.Booking
}

// Decode validates a lifecycle message and extracts its booking. Unknown event
// types and undecodable payloads are permanent failures.
func Decode(msg kafka.Message) (*Event, error) {
	eventType := msg.GetEventType()
	switch eventType {
	case EventBookingCreated, EventBookingUpdated, EventBookingDeleted:
	default:
		return nil, kafka.NewPermanentError(fmt.Sprintf("unknown event type %q", eventType), kafka.ErrInvalidMessage)
	}

	if version, ok := msg.GetHeader(kafka.HeaderSchemaVersion); ok && version != SchemaVersion {
		return nil, kafka.NewPermanentError(fmt.Sprintf("unsupported schema version %q", version), kafka.ErrInvalidMessage)
	}

	event := &Event{
		ID:            msg.GetEventID(),
		Type:          eventType,
		CorrelationID: msg.GetCorrelationID(),
	}
	event.Source, _ = msg.GetHeader(kafka.HeaderSource)
	if err := msg.DecodeValue(&event.Booking); err != nil {
		return nil, kafka.NewPermanentError("undecodable booking payload", err)
	}
	return event, nil
}

// NewAuditHandler logs every booking lifecycle event as a structured audit line.
func NewAuditHandler(log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		event, err := Decode(msg)
		if err != nil {
			return err
		}

		log.Info("Booking event",
			"event_id", event.ID,
			"event_type", event.Type,
			"correlation_id", event.CorrelationID,
			"source", event.Source,
			"booking_id", event.Booking.ID,
			"date", event.Booking.Date,
			"time", event.Booking.Time,
			"guests", event.Booking.Guests,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		return nil
	}
}
