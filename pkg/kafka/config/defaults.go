package kafka_config

import "time"

const (
	// Empty brokers disables event publishing.
	DefaultKafkaBrokers = ""
	DefaultBookingTopic = "booking-events"
	DefaultDLQTopic     = ""

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false
	DefaultPublishTimeout       = 5 * time.Second

	DefaultConsumerGroupID        = "booking-audit"
	DefaultConsumerMinBytes       = 1
	DefaultConsumerMaxBytes       = 10e6
	DefaultConsumerMaxWait        = 500 * time.Millisecond
	DefaultConsumerCommitInterval = 0
	DefaultConsumerStartOffset    = "earliest"
	DefaultConsumerMaxRetries     = 3

	DefaultEnableMiddleware = true
)
