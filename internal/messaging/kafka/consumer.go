package kafka

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const defaultRetryBackoff = 200 * time.Millisecond

// MessageHandler обрабатывает сообщение из Kafka
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

// Consumer читает события из consumer group. Сообщение, которое не удалось
// обработать за maxRetries попыток, уходит в DLQ (если задан dlqProducer).
type Consumer struct {
	consumer     sarama.ConsumerGroup
	topics       []string
	handler      MessageHandler
	logger       *log.Entry
	wg           sync.WaitGroup
	dlqProducer  *Producer
	maxRetries   int
	retryBackoff time.Duration
}

// NewConsumer создает consumer с поддержкой Dead Letter Queue. dlqProducer может быть nil.
func NewConsumer(brokers []string, groupID string, topics []string, handler MessageHandler, dlqProducer *Producer, maxRetries int) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Consumer{
		consumer:     group,
		topics:       topics,
		handler:      handler,
		logger:       log.WithField("component", "kafka-consumer"),
		dlqProducer:  dlqProducer,
		maxRetries:   maxRetries,
		retryBackoff: defaultRetryBackoff,
	}, nil
}

// Start запускает consumer
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			// При rebalance Consume завершается, поэтому вызывается в цикле.
			if err := c.consumer.Consume(ctx, c.topics, c); err != nil {
				c.logger.WithError(err).Error("error from consumer")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.consumer.Errors() {
			c.logger.WithError(err).Error("consumer error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

// Stop останавливает consumer
func (c *Consumer) Stop() error {
	if err := c.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error { return nil }

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim обрабатывает сообщения из partition
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			fields := log.Fields{
				"topic":     message.Topic,
				"partition": message.Partition,
				"offset":    message.Offset,
			}
			c.logger.WithFields(fields).Debug("received message")

			if err := c.handleMessage(session.Context(), message); err != nil {
				// Сообщение не помечается и будет перечитано после rebalance.
				c.logger.WithError(err).WithFields(fields).Error("message processing failed after all retries")
				continue
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// handleMessage вызывает handler до maxRetries раз, затем отправляет сообщение в DLQ.
func (c *Consumer) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	attempts := max(c.maxRetries, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = c.handler(ctx, message); err == nil {
			return nil
		}

		c.logger.WithError(err).WithFields(log.Fields{
			"topic":       message.Topic,
			"attempt":     attempt,
			"max_retries": attempts,
		}).Warn("message processing failed")

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * c.retryBackoff):
		}
	}

	if c.dlqProducer == nil {
		return err
	}
	if dlqErr := c.sendToDLQ(ctx, message, err); dlqErr != nil {
		return fmt.Errorf("failed to send to DLQ: %w", dlqErr)
	}
	c.logger.WithField("topic", message.Topic).Info("message sent to DLQ after max retries")
	return nil
}

// retryCount извлекает счётчик повторной обработки (его выставляет DLQ).
func retryCount(message *sarama.ConsumerMessage) int {
	for _, header := range message.Headers {
		if header != nil && string(header.Key) == HeaderRetryCount {
			if count, err := strconv.Atoi(string(header.Value)); err == nil {
				return count
			}
		}
	}
	return 0
}

// sendToDLQ пересылает исходное сообщение в DLQ как есть, причину кладёт в headers.
func (c *Consumer) sendToDLQ(ctx context.Context, message *sarama.ConsumerMessage, processingErr error) error {
	headers := map[string]string{
		HeaderOriginalTopic: message.Topic,
		HeaderErrorMessage:  processingErr.Error(),
		HeaderFailedAt:      time.Now().UTC().Format(time.RFC3339),
		HeaderRetryCount:    strconv.Itoa(retryCount(message) + 1),
	}
	return c.dlqProducer.Publish(ctx, TopicDeadLetterQueue, string(message.Key), message.Value, headers)
}
