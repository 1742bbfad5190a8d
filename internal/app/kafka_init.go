package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/urbanfood/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/catalog"
)

// initKafkaProducer создаёт producer, если заданы брокеры.
// Возвращает nil, nil при пустом списке; при ошибке сервис продолжает работу без Kafka.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// initCacheInvalidator подписывается на order.placed и сбрасывает кэш
// категорий купленных продуктов, чтобы остатки в выдаче не устаревали.
func initCacheInvalidator(brokers []string, group string, catalogSvc *catalog.Service, dlq *kafka.Producer, logger *log.Entry) (*kafka.Consumer, error) {
	if len(brokers) == 0 || catalogSvc == nil {
		return nil, nil
	}

	handler := kafka.OrderPlacedHandler(catalogSvc.InvalidateForOrder)

	consumer, err := kafka.NewConsumer(brokers, group, []string{kafka.TopicOrderEvents}, handler, dlq, 3)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka consumer, category cache will expire by ttl only")
		return nil, err
	}
	return consumer, nil
}
