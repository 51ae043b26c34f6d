package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/desa-layanan-api/pkg/mq"
)

func TestPublisherSendsMessage(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "desa.layanan.notifications" {
			return errors.New("unexpected topic")
		}
		key, _ := msg.Key.Encode()
		if string(key) != "req-1" {
			return errors.New("unexpected key")
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Key) != "event" {
			return errors.New("missing event header")
		}
		return nil
	})

	pub := NewPublisherFromProducer(producer)
	_, err := pub.Publish(context.Background(), mq.Message{
		Topic:   "desa.layanan.notifications",
		Key:     []byte("req-1"),
		Value:   []byte(`{"status":"approved_admin"}`),
		Headers: map[string]string{"event": "notification.created", " ": "skip"},
	})
	require.NoError(t, err)
	require.NoError(t, pub.Close())
}

func TestPublisherPropagatesFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewPublisherFromProducer(producer)
	_, err := pub.Publish(context.Background(), mq.Message{Topic: "events", Value: []byte("{}")})
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, pub.Close())
}

func TestPublisherValidatesInput(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	pub := NewPublisherFromProducer(producer)

	_, err := pub.Publish(context.Background(), mq.Message{Value: []byte("{}")})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pub.Publish(ctx, mq.Message{Topic: "events"})
	require.ErrorIs(t, err, context.Canceled)
	require.NoError(t, pub.Close())

	_, err = NewPublisher(PublisherConfig{})
	require.Error(t, err)
}

func TestNewProducerConfig(t *testing.T) {
	cfg := NewProducerConfig(" desa-layanan-api ")
	require.Equal(t, "desa-layanan-api", cfg.ClientID)
	require.True(t, cfg.Producer.Idempotent)
	require.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	require.NoError(t, cfg.Validate())
}
