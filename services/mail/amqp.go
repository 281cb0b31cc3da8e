package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the part of *amqp.Channel the AMQP transport uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPTransport hands rendered envelopes to a durable queue for a separate
// sender process to deliver.
type AMQPTransport struct {
	conn      *amqp.Connection
	publisher Publisher
	queue     string
}

func DialAMQP(url, queue string) (*AMQPTransport, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to message broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open broker channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %q: %w", queue, err)
	}

	return &AMQPTransport{conn: conn, publisher: ch, queue: queue}, nil
}

func NewAMQPTransport(publisher Publisher, queue string) *AMQPTransport {
	return &AMQPTransport{publisher: publisher, queue: queue}
}

func (t *AMQPTransport) Name() string {
	return "amqp"
}

func (t *AMQPTransport) Deliver(ctx context.Context, envelope Envelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	return t.publisher.PublishWithContext(ctx, "", t.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
}

func (t *AMQPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
