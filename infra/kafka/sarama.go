package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// SyncProducer publishes through sarama with idempotent, fully
// acknowledged sends.
type SyncProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewSyncProducer(brokers []string, topic string) (*SyncProducer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers required")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_7_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &SyncProducer{producer: producer, topic: topic}, nil
}

func newSyncProducerFrom(p sarama.SyncProducer, topic string) *SyncProducer {
	return &SyncProducer{producer: p, topic: topic}
}

func (p *SyncProducer) Publish(ctx context.Context, n Notification) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	_, _, err := p.producer.SendMessage(p.toMessage(n))
	if err != nil {
		return fmt.Errorf("kafka publish seq %d: %w", n.Seq, err)
	}
	return nil
}

func (p *SyncProducer) toMessage(n Notification) *sarama.ProducerMessage {
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.ByteEncoder(n.key()),
		Value: sarama.ByteEncoder(n.Payload),
	}
	for _, h := range n.headers() {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(h.key), Value: h.value})
	}
	return msg
}

func (p *SyncProducer) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
