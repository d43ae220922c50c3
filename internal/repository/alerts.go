package repository

import (
	"context"
	"time"

	"TradePulse/pkg/kafka"
	"TradePulse/pkg/logger"
)

// alertMessage is the wire format published to the alert topic.
type alertMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
}

type alertPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

const (
	alertQueueSize      = 64
	alertPublishTimeout = 5 * time.Second
)

// KafkaAlerter publishes operational alerts to a Kafka topic through a
// bounded queue drained by a single publisher goroutine. Enqueueing never
// blocks the trading loop; when the queue is full the alert is dropped
// with a warning.
type KafkaAlerter struct {
	producer alertPublisher
	topic    string
	logger   *logger.Logger
	queue    chan alertMessage
	done     chan struct{}
}

// NewKafkaAlerter creates an alerter on an existing producer and starts its
// publisher goroutine.
func NewKafkaAlerter(producer *kafka.Producer, topic string, log *logger.Logger) *KafkaAlerter {
	return newKafkaAlerter(producer, topic, log)
}

func newKafkaAlerter(producer alertPublisher, topic string, log *logger.Logger) *KafkaAlerter {
	a := &KafkaAlerter{
		producer: producer,
		topic:    topic,
		logger:   log,
		queue:    make(chan alertMessage, alertQueueSize),
		done:     make(chan struct{}),
	}
	go a.publishLoop()
	return a
}

func (a *KafkaAlerter) Alert(_ context.Context, subject, message string) {
	msg := alertMessage{Timestamp: time.Now(), Subject: subject, Message: message}
	select {
	case a.queue <- msg:
	default:
		a.logger.Warn("alert queue full, dropping alert",
			logger.String("subject", subject))
	}
}

func (a *KafkaAlerter) publishLoop() {
	defer close(a.done)
	for msg := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), alertPublishTimeout)
		err := a.producer.Publish(ctx, a.topic, []byte(msg.Subject), msg)
		cancel()
		if err != nil {
			a.logger.Warn("alert publish failed",
				logger.String("subject", msg.Subject), logger.Error(err))
		}
	}
}

// Close drains queued alerts and stops the publisher goroutine. No further
// Alert calls may happen after Close.
func (a *KafkaAlerter) Close() error {
	close(a.queue)
	<-a.done
	return nil
}

// LogAlerter is the fallback when no broker is configured.
type LogAlerter struct {
	logger *logger.Logger
}

// NewLogAlerter creates a log-only alerter.
func NewLogAlerter(log *logger.Logger) *LogAlerter {
	return &LogAlerter{logger: log}
}

func (a *LogAlerter) Alert(_ context.Context, subject, message string) {
	a.logger.Warn("alert",
		logger.String("subject", subject),
		logger.String("message", message),
	)
}
