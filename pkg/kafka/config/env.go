package kafka_config

const (
	EnvKafkaBrokers      = "KAFKA_BROKERS"
	EnvKafkaBookingTopic = "KAFKA_BOOKING_TOPIC"
	EnvKafkaDLQTopic     = "KAFKA_DLQ_TOPIC"

	EnvKafkaProducerMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvKafkaProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvKafkaProducerRequireAcks  = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvKafkaProducerCompression  = "KAFKA_PRODUCER_COMPRESSION"
	EnvKafkaProducerAsync        = "KAFKA_PRODUCER_ASYNC"
	EnvKafkaPublishTimeout       = "KAFKA_PUBLISH_TIMEOUT"

	EnvKafkaConsumerGroupID        = "KAFKA_CONSUMER_GROUP_ID"
	EnvKafkaConsumerMinBytes       = "KAFKA_CONSUMER_MIN_BYTES"
	EnvKafkaConsumerMaxBytes       = "KAFKA_CONSUMER_MAX_BYTES"
	EnvKafkaConsumerMaxWait        = "KAFKA_CONSUMER_MAX_WAIT"
	EnvKafkaConsumerCommitInterval = "KAFKA_CONSUMER_COMMIT_INTERVAL"
	EnvKafkaConsumerStartOffset    = "KAFKA_CONSUMER_START_OFFSET"
	EnvKafkaConsumerMaxRetries     = "KAFKA_CONSUMER_MAX_RETRIES"

	EnvKafkaEnableMiddleware = "KAFKA_ENABLE_MIDDLEWARE"
)
