package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderapi/internal/domain"
	"github.com/vladislavdragonenkov/orderapi/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderapi/internal/messaging/rabbitmq"
)

// initEventPublisher подключает брокер событий. Брокер не обязателен: при ошибке
// подключения сервис продолжает работу без публикации событий.
func initEventPublisher(cfg Config, deps *runtimeDependencies, logger *log.Entry) domain.EventPublisher {
	switch EventsDriver(strings.ToLower(strings.TrimSpace(string(cfg.EventsDriver)))) {
	case EventsDriverKafka:
		brokers := SplitList(cfg.KafkaBrokers)
		producer, err := kafka.NewProducer(brokers, cfg.KafkaTopic)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without events")
			return nil
		}
		deps.addCloser(producer.Close)
		logger.WithField("brokers", brokers).Info("kafka producer initialized")
		return producer
	case EventsDriverRabbitMQ:
		publisher, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			logger.WithError(err).Warn("failed to connect to rabbitmq, continuing without events")
			return nil
		}
		deps.addCloser(publisher.Close)
		logger.Info("rabbitmq publisher initialized")
		return publisher
	default:
		return nil
	}
}
