package kafka

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProducerClosed = errors.New("kafka producer is closed")

	ErrConsumerClosed = errors.New("kafka consumer is closed")

	ErrInvalidMessage = errors.New("invalid message")

	ErrEmptyKey = errors.New("message key cannot be empty")

	ErrEmptyValue = errors.New("message value cannot be empty")
)

type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota

	// ErrorTypeTransient covers network issues and timeouts.
	ErrorTypeTransient

	// ErrorTypePermanent covers invalid data and configuration.
	ErrorTypePermanent
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// KafkaError wraps errors with additional context
type KafkaError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *KafkaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *KafkaError) Unwrap() error {
	return e.Err
}

func (e *KafkaError) IsTransient() bool {
	return e.Type == ErrorTypeTransient
}

func NewTransientError(message string, err error) *KafkaError {
	return &KafkaError{Type: ErrorTypeTransient, Message: message, Err: err}
}

func NewPermanentError(message string, err error) *KafkaError {
	return &KafkaError{Type: ErrorTypePermanent, Message: message, Err: err}
}

var (
	transientPatterns = []string{
		"connection refused",
		"timeout",
		"deadline exceeded",
		"no such host",
		"network is unreachable",
		"broken pipe",
		"connection reset",
		"temporary failure",
	}

	permanentPatterns = []string{
		"invalid message",
		"cannot be empty",
		"unknown topic",
		"invalid configuration",
		"producer is closed",
	}
)

// ClassifyError classifies an error as transient or permanent. Unrecognised
// errors are treated as permanent.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	var kafkaErr *KafkaError
	if errors.As(err, &kafkaErr) {
		return kafkaErr.Type
	}

	errorMsg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(errorMsg, pattern) {
			return ErrorTypeTransient
		}
	}
	for _, pattern := range permanentPatterns {
		if strings.Contains(errorMsg, pattern) {
			return ErrorTypePermanent
		}
	}

	return ErrorTypePermanent
}

// ShouldRetry reports whether a handler failure on the given attempt may be retried.
func ShouldRetry(err error, attempt, maxRetries int) bool {
	if err == nil || attempt >= maxRetries {
		return false
	}
	return ClassifyError(err) == ErrorTypeTransient
}
