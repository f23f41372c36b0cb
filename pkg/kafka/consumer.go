package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	kafka_config "reservations/pkg/kafka/config"
	"reservations/pkg/logger"

	"github.com/segmentio/kafka-go"
)

const (
	HeaderDLQError         = "dlq-error"
	HeaderDLQTimestamp     = "dlq-timestamp"
	HeaderDLQConsumerGroup = "dlq-consumer-group"
	HeaderDLQAttempts      = "dlq-attempts"

	fetchBackoff = time.Second
)

// MessageHandler processes one consumed message.
type MessageHandler func(ctx context.Context, msg Message) error

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a topic as part of a consumer group. Offsets are committed
// after the handler ran, whether it succeeded, exhausted its retries or the
// message went to the dead letter topic.
type Consumer struct {
	reader     MessageReader
	dlqWriter  MessageWriter
	topic      string
	groupID    string
	maxRetries int
	handler    MessageHandler
	middleware []ConsumerMiddleware
	log        *logger.Logger
	closed     bool
	mu         sync.RWMutex
	wg         sync.WaitGroup
}

func NewConsumer(cfg *kafka_config.Config, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	if cfg.BookingTopic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	if cfg.ConsumerGroupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}

	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	errorLogger := kafka.LoggerFunc(func(msg string, args ...any) {
		log.Error(fmt.Sprintf(msg, args...), "component", "kafka-reader")
	})
	silent := kafka.LoggerFunc(func(string, ...any) {})

	startOffset := kafka.FirstOffset
	if cfg.ConsumerStartOffset == "latest" {
		startOffset = kafka.LastOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.BookingTopic,
		GroupID:        cfg.ConsumerGroupID,
		MinBytes:       cfg.ConsumerMinBytes,
		MaxBytes:       cfg.ConsumerMaxBytes,
		MaxWait:        cfg.ConsumerMaxWait,
		CommitInterval: cfg.ConsumerCommitInterval,
		StartOffset:    startOffset,
		Logger:         silent,
		ErrorLogger:    errorLogger,
	})

	var dlqWriter MessageWriter
	if cfg.DLQTopic != "" {
		dlqWriter = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.DLQTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  compressionCodec(cfg.ProducerCompression),
			MaxAttempts:  3,
			Logger:       silent,
			ErrorLogger:  errorLogger,
		}
	}

	return NewConsumerWithReader(reader, dlqWriter, cfg.BookingTopic, cfg.ConsumerGroupID, cfg.ConsumerMaxRetries, handler, log), nil
}

// NewConsumerWithReader builds a consumer over an already constructed reader.
func NewConsumerWithReader(
	reader MessageReader,
	dlqWriter MessageWriter,
	topic, groupID string,
	maxRetries int,
	handler MessageHandler,
	log *logger.Logger,
) *Consumer {
	return &Consumer{
		reader:     reader,
		dlqWriter:  dlqWriter,
		topic:      topic,
		groupID:    groupID,
		maxRetries: maxRetries,
		handler:    handler,
		middleware: make([]ConsumerMiddleware, 0),
		log:        log,
	}
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start consumes until ctx is cancelled, returning ctx.Err().
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	handler := c.chain()
	c.wg.Add(1)
	c.mu.RUnlock()
	defer c.wg.Done()

	for {
		kafkaMsg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("Failed to fetch Kafka message", "topic", c.topic, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(fetchBackoff):
			}
			continue
		}

		msg := fromKafkaMessage(kafkaMsg)
		if err := c.process(ctx, handler, msg); err != nil {
			c.log.Error("Failed to process Kafka message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"event_id", msg.GetEventID(),
				"error", err,
			)
		}

		if err := c.reader.CommitMessages(ctx, kafkaMsg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("Failed to commit Kafka offset", "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) chain() MessageHandler {
	handler := c.handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw := c.middleware[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}
	return handler
}

func (c *Consumer) process(ctx context.Context, handler MessageHandler, msg Message) error {
	var err error
	attempt := 0
	for {
		if err = handler(ctx, msg); err == nil {
			return nil
		}
		if !ShouldRetry(err, attempt, c.maxRetries) || ctx.Err() != nil {
			break
		}
		attempt++
		c.log.Warn("Retrying Kafka message", "attempt", attempt, "max_retries", c.maxRetries, "error", err)
	}

	if c.dlqWriter != nil {
		if dlqErr := c.sendToDLQ(ctx, msg, err, attempt+1); dlqErr != nil {
			return errors.Join(err, fmt.Errorf("failed to send to DLQ: %w", dlqErr))
		}
		c.log.Warn("Kafka message sent to DLQ", "event_id", msg.GetEventID(), "attempts", attempt+1)
	}
	return err
}

func (c *Consumer) sendToDLQ(ctx context.Context, msg Message, originalErr error, attempts int) error {
	headers := make(map[string]string, len(msg.Headers)+5)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = c.topic
	headers[HeaderDLQError] = originalErr.Error()
	headers[HeaderDLQTimestamp] = time.Now().Format(time.RFC3339)
	headers[HeaderDLQConsumerGroup] = c.groupID
	headers[HeaderDLQAttempts] = strconv.Itoa(attempts)

	msg.Headers = headers
	msg.Timestamp = time.Now()

	return c.dlqWriter.WriteMessages(ctx, toKafkaMessage(msg))
}

func fromKafkaMessage(kafkaMsg kafka.Message) Message {
	msg := Message{
		Key:       string(kafkaMsg.Key),
		Value:     kafkaMsg.Value,
		Headers:   make(map[string]string, len(kafkaMsg.Headers)),
		Topic:     kafkaMsg.Topic,
		Partition: kafkaMsg.Partition,
		Offset:    kafkaMsg.Offset,
		Timestamp: kafkaMsg.Time,
	}
	for _, header := range kafkaMsg.Headers {
		msg.Headers[header.Key] = string(header.Value)
	}
	return msg
}

// Close waits for Start to return and releases the reader. Cancel the context
// passed to Start first. It is safe to call twice.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()

	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}

	if c.dlqWriter != nil {
		if dlqErr := c.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}

	return err
}
