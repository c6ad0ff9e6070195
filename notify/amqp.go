package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"food-delivery/client/config"

	"github.com/streadway/amqp"
)

// AMQPSink queues notices for a worker that actually sends SMS and email.
type AMQPSink struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewAMQPSink(cfg config.RabbitMQConfig) (*AMQPSink, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.QueueName, err)
	}
	return &AMQPSink{conn: conn, ch: ch, queue: cfg.QueueName}, nil
}

func (s *AMQPSink) Send(_ context.Context, n Notice) error {
	if n.Channel == ChannelBanner {
		return nil
	}
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.ch.Publish(
		"",      // exchange
		s.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    n.At,
			Body:         body,
		},
	)
}

func (s *AMQPSink) Close() error {
	s.ch.Close()
	return s.conn.Close()
}
