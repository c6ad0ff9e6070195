package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"food-delivery/client/config"

	"github.com/Shopify/sarama"
)

// KafkaSink appends every notice to a topic as a JSON event, keyed by order
// so one order's notices stay in one partition.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaSink(cfg config.KafkaConfig) (*KafkaSink, error) {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaSinkWithProducer(producer, cfg.Topic), nil
}

func NewKafkaSinkWithProducer(p sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Send(_ context.Context, n Notice) error {
	return s.LogEvent("notice", map[string]interface{}{
		"channel":   n.Channel,
		"level":     n.Level,
		"to":        n.To,
		"subject":   n.Subject,
		"body":      n.Body,
		"order_ref": n.OrderRef,
		"user_id":   n.UserID,
	})
}

// LogEvent publishes a client event such as order_placed. fields is modified.
func (s *KafkaSink) LogEvent(event string, fields map[string]interface{}) error {
	fields["event"] = event
	fields["timestamp"] = time.Now().Unix()
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Value: sarama.StringEncoder(data),
	}
	if ref, ok := fields["order_ref"].(string); ok && ref != "" {
		msg.Key = sarama.StringEncoder(ref)
	}
	_, _, err = s.producer.SendMessage(msg)
	return err
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
