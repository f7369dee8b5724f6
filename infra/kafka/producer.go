// Package kafka publishes outbox notifications, through segmentio/kafka-go
// or IBM/sarama.
package kafka

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Producer publishes with a kafka-go writer that hashes the auction id onto
// a partition and waits for every in-sync replica.
type Producer struct {
	writer *kafkago.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, n Notification) error {
	return p.writer.WriteMessages(ctx, toMessage(n))
}

func toMessage(n Notification) kafkago.Message {
	msg := kafkago.Message{Key: n.key(), Value: n.Payload}
	for _, h := range n.headers() {
		msg.Headers = append(msg.Headers, kafkago.Header{Key: h.key, Value: h.value})
	}
	return msg
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
