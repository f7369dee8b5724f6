package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"
)

func sampleNotification() Notification {
	return Notification{
		AuctionID: "sol-usdc",
		EventID:   "6f1c0a9e-0000-5000-8000-000000000001",
		Type:      "OrderFilled",
		Seq:       7,
		Payload:   []byte(`{"v":1}`),
	}
}

func TestSyncProducerPublish(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, _ := msg.Key.Encode()
		if msg.Topic != "auction-events" || string(key) != "sol-usdc" {
			return errors.New("unexpected topic or key")
		}
		got := map[string]string{}
		for _, h := range msg.Headers {
			got[string(h.Key)] = string(h.Value)
		}
		if got[HeaderEventType] != "OrderFilled" || got[HeaderSeq] != "7" {
			return errors.New("unexpected headers")
		}
		return nil
	})
	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := newSyncProducerFrom(mp, "auction-events")
	require.NoError(t, p.Publish(context.Background(), sampleNotification()))
	err := p.Publish(context.Background(), sampleNotification())
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestSyncProducerHonoursCancelledContext(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	p := newSyncProducerFrom(mp, "auction-events")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.Publish(ctx, sampleNotification()), context.Canceled)
	require.NoError(t, p.Close())
}

func TestKafkaGoMessageCarriesHeaders(t *testing.T) {
	msg := toMessage(sampleNotification())
	require.Equal(t, []byte("sol-usdc"), msg.Key)
	require.Equal(t, []byte(`{"v":1}`), msg.Value)
	require.Len(t, msg.Headers, 3)
	require.Equal(t, HeaderEventID, msg.Headers[0].Key)
	require.Equal(t, "6f1c0a9e-0000-5000-8000-000000000001", string(msg.Headers[0].Value))
	require.Equal(t, "7", string(msg.Headers[2].Value))
}
