package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"reservations/internal/bookings/events"
	"reservations/pkg/config"
	"reservations/pkg/kafka"
	kafka_config "reservations/pkg/kafka/config"
	kafka_middleware "reservations/pkg/kafka/middleware"
	"reservations/pkg/logger"
)

const ServiceName = "booking-events"

// booking-events tails the booking lifecycle topic and writes one structured
// audit line per event.
func main() {
	log := logger.New(logger.Config{
		Level:     os.Getenv(config.EnvLogLevel),
		Format:    logger.JSON,
		AddSource: true,
		Service:   ServiceName,
	})

	kafkaCfg := kafka_config.Load()
	if !kafkaCfg.Enabled() {
		log.Fatal("KAFKA_BROKERS must be set to consume booking events")
	}
	if err := kafkaCfg.Validate(); err != nil {
		log.Fatal(err.Error())
	}
	kafkaCfg.LogConfiguration(log.Info)

	consumer, err := kafka.NewConsumer(kafkaCfg, events.NewAuditHandler(log), log)
	if err != nil {
		log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(log))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Consuming booking events", "topic", kafkaCfg.BookingTopic, "group_id", kafkaCfg.ConsumerGroupID)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		log.Error("Failed to close Kafka consumer", "error", err)
	}
	log.Info("Booking events consumer stopped")
}
