package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/logger"
)

// Producer публикует события переходов заказов в один топик.
// Ключ сообщения — id заказа, поэтому события одного заказа попадают в одну партицию по порядку.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	config.Producer.Retry.Max = 3
	config.Producer.Timeout = 5 * time.Second

	prod, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("kafka: create producer: %w", err)
	}
	return NewProducerWith(prod, topic), nil
}

// NewProducerWith оборачивает готовый SyncProducer (в тестах — sarama/mocks).
func NewProducerWith(prod sarama.SyncProducer, topic string) *Producer {
	return &Producer{producer: prod, topic: topic}
}

func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka: send to %s: %w", p.topic, err)
	}
	logger.Log.WithFields(logrus.Fields{
		"topic":     p.topic,
		"partition": partition,
		"offset":    offset,
		"key":       key,
	}).Debug("kafka: сообщение опубликовано")
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
