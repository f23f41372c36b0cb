package kafka_middleware

import (
	"context"
	"time"

	"reservations/pkg/kafka"
	"reservations/pkg/logger"
)

// LoggingProducerMiddleware logs every publish with its outcome and duration.
func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		log.Debug("Publishing message",
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
			"correlation_id", msg.GetCorrelationID(),
		)

		err := next(ctx, msg)
		duration := time.Since(start)

		if err != nil {
			log.Error("Failed to publish message",
				"topic", msg.Topic,
				"key", msg.Key,
				"event_id", msg.GetEventID(),
				"event_type", msg.GetEventType(),
				"correlation_id", msg.GetCorrelationID(),
				"error_type", kafka.ClassifyError(err).String(),
				"duration", duration,
				"error", err,
			)
			return err
		}

		log.Info("Successfully published message",
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
			"duration", duration,
		)
		return nil
	}
}

// LoggingConsumerMiddleware logs handler failures with their classification.
func LoggingConsumerMiddleware(log *logger.Logger) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()

		log.Debug("Processing message",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
		)

		err := next(ctx, msg)
		if err != nil {
			log.Error("Failed to process message",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"event_id", msg.GetEventID(),
				"event_type", msg.GetEventType(),
				"error_type", kafka.ClassifyError(err).String(),
				"duration", time.Since(start),
				"error", err,
			)
		}
		return err
	}
}
