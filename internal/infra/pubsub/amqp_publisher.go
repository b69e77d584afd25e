package pubsub

import (
	"context"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"campus/internal/domain/service"
	"campus/internal/errors"
)

const defaultExchange = "campus.auth"

// amqpPublisher publishes auth events to a durable topic exchange, routed by event type.
type amqpPublisher struct {
	exchange string
	logger   *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string, logger *slog.Logger) (service.EventPublisher, error) {
	if exchange == "" {
		exchange = defaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "rabbitmq: dial failed")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return nil, errors.Wrap(err, "rabbitmq: channel open failed")
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, errors.Wrapf(err, "rabbitmq: exchange declare %s failed", exchange)
	}

	return &amqpPublisher{
		exchange: exchange,
		logger:   logger,
		conn:     conn,
		ch:       ch,
	}, nil
}

// PublishAuthEvent publishes event with its type as routing key.
func (p *amqpPublisher) PublishAuthEvent(ctx context.Context, event *service.AuthEvent) error {
	msg, err := newPublishing(event)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg); err != nil {
		return errors.Wrap(err, "rabbitmq: publish failed")
	}

	p.logger.Debug("[AMQP] Event published",
		slog.String("exchange", p.exchange),
		slog.String("event_type", event.Type),
	)

	return nil
}

// Close closes the channel and the connection.
func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return errors.Join(p.ch.Close(), p.conn.Close())
}

func newPublishing(event *service.AuthEvent) (amqp.Publishing, error) {
	encoded, err := encodeEvent(event)
	if err != nil {
		return amqp.Publishing{}, err
	}

	headers := make(amqp.Table, len(encoded.attributes)+1)
	for k, v := range encoded.attributes {
		headers[k] = v
	}
	if encoded.orderingKey != "" {
		headers["ordering_key"] = encoded.orderingKey
	}

	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     encoded.id,
		CorrelationId: event.RequestID,
		Type:          event.Type,
		Timestamp:     event.OccurredAt.UTC(),
		Headers:       headers,
		Body:          encoded.body,
	}, nil
}
