package kafka_config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_DisabledByDefault(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, "")

	cfg := Load()
	if cfg.Enabled() {
		t.Fatalf("expected kafka disabled without brokers, got %v", cfg.Brokers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled config should validate, got: %v", err)
	}
}

func TestLoad_Brokers(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " kafka-1:9092, kafka-2:9092 ,")
	t.Setenv(EnvKafkaBookingTopic, "reservations")
	t.Setenv(EnvKafkaPublishTimeout, "2s")

	cfg := Load()
	if !cfg.Enabled() {
		t.Fatal("expected kafka enabled")
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Brokers)
	}
	if cfg.BookingTopic != "reservations" {
		t.Errorf("expected topic reservations, got %s", cfg.BookingTopic)
	}
	if cfg.PublishTimeout != 2*time.Second {
		t.Errorf("expected 2s publish timeout, got %s", cfg.PublishTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got: %v", err)
	}
}

func TestValidate_Enabled(t *testing.T) {
	cfg := &Config{
		Brokers:              []string{"localhost:9092"},
		BookingTopic:         "booking-events",
		DLQTopic:             "booking-events",
		ProducerMaxAttempts:  0,
		ProducerBatchTimeout: DefaultProducerBatchTimeout,
		ProducerRequireAcks:  2,
		ProducerCompression:  "brotli",
		PublishTimeout:       DefaultPublishTimeout,
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"DLQTopic", "ProducerMaxAttempts", "ProducerCompression", "ProducerRequireAcks"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got:\n%s", want, err)
		}
	}
}
