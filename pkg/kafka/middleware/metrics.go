package kafka_middleware

import (
	"context"

	"reservations/pkg/kafka"
	"reservations/pkg/metrics"
)

// MetricsProducerMiddleware counts published and failed events per event type.
func MetricsProducerMiddleware(m *metrics.Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		err := next(ctx, msg)
		m.RecordEvent(msg.GetEventType(), err)
		return err
	}
}
