// Package rabbitmq публикует события заказов в topic exchange RabbitMQ.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderapi/internal/domain"
)

const (
	DefaultExchange = "orders"
	ExchangeType    = "topic"
)

// channel описывает подмножество *amqp.Channel, нужное публикатору.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher реализует domain.EventPublisher поверх AMQP-канала.
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	logger   *log.Entry
}

// Dial подключается к брокеру и объявляет durable topic exchange.
func Dial(url, exchange string) (*Publisher, error) {
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("could not connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("could not open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,     // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("could not declare exchange: %w", err)
	}

	p := newPublisher(ch, exchange)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string) *Publisher {
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		logger:   log.WithField("component", "rabbitmq-publisher"),
	}
}

// RoutingKey возвращает ключ маршрутизации события: order.created -> order.created,
// тип без префикса получает префикс "order.".
func RoutingKey(eventType domain.OrderEventType) string {
	key := string(eventType)
	if strings.HasPrefix(key, "order.") {
		return key
	}
	return "order." + key
}

// Publish отправляет событие в exchange.
func (p *Publisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal order event: %w", err)
	}

	key := RoutingKey(event.Type)
	err = p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		key,        // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.OrderID,
			Type:         string(event.Type),
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}

	p.logger.WithFields(log.Fields{
		"exchange":    p.exchange,
		"routing_key": key,
		"order_id":    event.OrderID,
	}).Debug("order event published to rabbitmq")
	return nil
}

// Close закрывает канал и соединение.
func (p *Publisher) Close() error {
	var firstErr error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			firstErr = fmt.Errorf("close channel: %w", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close connection: %w", err)
		}
	}
	return firstErr
}

var _ domain.EventPublisher = (*Publisher)(nil)
