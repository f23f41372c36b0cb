package kafka_config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Brokers is empty when event publishing is disabled.
	Brokers      []string
	BookingTopic string
	DLQTopic     string

	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerRequireAcks  int    // -1 = all, 0 = none, 1 = leader only
	ProducerCompression  string // "none", "gzip", "snappy", "lz4", "zstd"
	ProducerAsync        bool
	PublishTimeout       time.Duration

	ConsumerGroupID        string
	ConsumerMinBytes       int
	ConsumerMaxBytes       int
	ConsumerMaxWait        time.Duration
	ConsumerCommitInterval time.Duration
	ConsumerStartOffset    string // "earliest" or "latest"
	ConsumerMaxRetries     int

	EnableMiddleware bool
}

// Load reads the Kafka config from environment variables. Call Validate before use.
func Load() *Config {
	var brokers []string
	for _, broker := range strings.Split(getEnvStr(EnvKafkaBrokers, DefaultKafkaBrokers), ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return &Config{
		Brokers:      brokers,
		BookingTopic: getEnvStr(EnvKafkaBookingTopic, DefaultBookingTopic),
		DLQTopic:     getEnvStr(EnvKafkaDLQTopic, DefaultDLQTopic),

		ProducerMaxAttempts:  getEnvInt(EnvKafkaProducerMaxAttempts, DefaultProducerMaxAttempts),
		ProducerBatchTimeout: getEnvDuration(EnvKafkaProducerBatchTimeout, DefaultProducerBatchTimeout),
		ProducerRequireAcks:  getEnvInt(EnvKafkaProducerRequireAcks, DefaultProducerRequireAcks),
		ProducerCompression:  getEnvStr(EnvKafkaProducerCompression, DefaultProducerCompression),
		ProducerAsync:        getEnvBool(EnvKafkaProducerAsync, DefaultProducerAsync),
		PublishTimeout:       getEnvDuration(EnvKafkaPublishTimeout, DefaultPublishTimeout),

		ConsumerGroupID:        getEnvStr(EnvKafkaConsumerGroupID, DefaultConsumerGroupID),
		ConsumerMinBytes:       getEnvInt(EnvKafkaConsumerMinBytes, DefaultConsumerMinBytes),
		ConsumerMaxBytes:       getEnvInt(EnvKafkaConsumerMaxBytes, DefaultConsumerMaxBytes),
		ConsumerMaxWait:        getEnvDuration(EnvKafkaConsumerMaxWait, DefaultConsumerMaxWait),
		ConsumerCommitInterval: getEnvDuration(EnvKafkaConsumerCommitInterval, DefaultConsumerCommitInterval),
		ConsumerStartOffset:    getEnvStr(EnvKafkaConsumerStartOffset, DefaultConsumerStartOffset),
		ConsumerMaxRetries:     getEnvInt(EnvKafkaConsumerMaxRetries, DefaultConsumerMaxRetries),

		EnableMiddleware: getEnvBool(EnvKafkaEnableMiddleware, DefaultEnableMiddleware),
	}
}

func (cfg *Config) Enabled() bool {
	return len(cfg.Brokers) > 0
}

// Validate is a no-op for a disabled config.
func (cfg *Config) Validate() error {
	if !cfg.Enabled() {
		return nil
	}

	var errors []string

	if cfg.BookingTopic == "" {
		errors = append(errors, "BookingTopic cannot be empty")
	}

	if cfg.DLQTopic != "" && cfg.DLQTopic == cfg.BookingTopic {
		errors = append(errors, fmt.Sprintf("DLQTopic must differ from BookingTopic, got: %s", cfg.DLQTopic))
	}

	if cfg.ProducerMaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerMaxAttempts must be positive, got: %d", cfg.ProducerMaxAttempts))
	}

	if cfg.ProducerBatchTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerBatchTimeout must be positive, got: %s", cfg.ProducerBatchTimeout))
	}

	if cfg.PublishTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("PublishTimeout must be positive, got: %s", cfg.PublishTimeout))
	}

	validCompressions := map[string]bool{
		"none": true, "gzip": true, "snappy": true, "lz4": true, "zstd": true,
	}
	if !validCompressions[cfg.ProducerCompression] {
		errors = append(errors, fmt.Sprintf("ProducerCompression must be one of [none, gzip, snappy, lz4, zstd], got: %s", cfg.ProducerCompression))
	}

	if cfg.ConsumerGroupID == "" {
		errors = append(errors, "ConsumerGroupID cannot be empty")
	}

	if cfg.ConsumerMinBytes <= 0 || cfg.ConsumerMaxBytes < cfg.ConsumerMinBytes {
		errors = append(errors, fmt.Sprintf("ConsumerMinBytes must be positive and not above ConsumerMaxBytes, got: %d/%d", cfg.ConsumerMinBytes, cfg.ConsumerMaxBytes))
	}

	if cfg.ConsumerMaxWait <= 0 {
		errors = append(errors, fmt.Sprintf("ConsumerMaxWait must be positive, got: %s", cfg.ConsumerMaxWait))
	}

	if cfg.ConsumerStartOffset != "earliest" && cfg.ConsumerStartOffset != "latest" {
		errors = append(errors, fmt.Sprintf("ConsumerStartOffset must be 'earliest' or 'latest', got: %s", cfg.ConsumerStartOffset))
	}

	if cfg.ConsumerMaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("ConsumerMaxRetries cannot be negative, got: %d", cfg.ConsumerMaxRetries))
	}

	validAcks := map[int]bool{-1: true, 0: true, 1: true}
	if !validAcks[cfg.ProducerRequireAcks] {
		errors = append(errors, fmt.Sprintf("ProducerRequireAcks must be -1, 0, or 1, got: %d", cfg.ProducerRequireAcks))
	}

	if len(errors) > 0 {
		errMsg := "Kafka configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration(logFunc func(msg string, keysAndValues ...any)) {
	if logFunc == nil {
		return
	}

	if !cfg.Enabled() {
		logFunc("Kafka disabled, booking events will not be published")
		return
	}

	logFunc("Kafka configuration loaded successfully",
		"brokers", cfg.Brokers,
		"booking_topic", cfg.BookingTopic,
		"dlq_topic", cfg.DLQTopic,
		"producer_max_attempts", cfg.ProducerMaxAttempts,
		"producer_batch_timeout", cfg.ProducerBatchTimeout,
		"producer_require_acks", cfg.ProducerRequireAcks,
		"producer_compression", cfg.ProducerCompression,
		"producer_async", cfg.ProducerAsync,
		"publish_timeout", cfg.PublishTimeout,
		"consumer_group_id", cfg.ConsumerGroupID,
		"consumer_start_offset", cfg.ConsumerStartOffset,
		"consumer_max_retries", cfg.ConsumerMaxRetries,
		"enable_middleware", cfg.EnableMiddleware,
	)
}

func getEnvStr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
