package main

import (
	"context"
	"time"

	"reservations/internal/bookings/events"
	"reservations/internal/bookings/handler"
	"reservations/internal/bookings/repository"
	"reservations/internal/bookings/service"
	"reservations/internal/bookings/validator"
	mongoMigration "reservations/internal/migrations/mongo"
	"reservations/pkg/app"
	"reservations/pkg/config"
	"reservations/pkg/kafka"
	kafka_config "reservations/pkg/kafka/config"
	kafka_middleware "reservations/pkg/kafka/middleware"
	"reservations/pkg/metrics"
)

const (
	ServiceName      = "bookings"
	migrationTimeout = 2 * time.Minute
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	if cfg.AutoMigrate {
		migrate(cfg)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New(ServiceName)
	}

	cfg.Log.Info("Starting Bookings service")
	publisher := initPublisher(cfg, m)
	bookingService := initServices(cfg, publisher, m)

	serverApp := app.NewApplication(cfg, m)
	serverApp.SetApp(
		handler.NewBookingHandler(bookingService, cfg.Log),
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
		handler.RouteLabel,
	)
	serverApp.OnShutdown(publisher)
	serverApp.Run()
}

func migrate(cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
	defer cancel()

	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
		cfg.Log.Fatal("Startup migration failed", "error", err)
	}
}

func initPublisher(cfg *config.Config, m *metrics.Metrics) events.Publisher {
	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	if !kafkaCfg.Enabled() {
		return events.NewNoopPublisher()
	}

	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware(m))
	}

	cfg.Log.Info("Kafka producer initialized", "topic", producer.Topic())
	return events.NewKafkaPublisher(producer, ServiceName, kafkaCfg.PublishTimeout)
}

func initServices(cfg *config.Config, publisher events.Publisher, m *metrics.Metrics) service.BookingService {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	bookingService := service.NewBookingService(
		bookingRepo,
		bookingValidator,
		publisher,
		cfg,
		service.WithMetrics(m),
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}
