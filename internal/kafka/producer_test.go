package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_PublishUsesOrderKey(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "order-1" {
			return errors.New("unexpected key " + string(key))
		}
		return nil
	})
	p := NewProducerWith(mock, "order-transitions")

	require.NoError(t, p.Publish(context.Background(), "order-1", []byte(`{"new_status":"accepted"}`)))
	assert.NoError(t, p.Close())
}

func TestProducer_PublishError(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	p := NewProducerWith(mock, "order-transitions")

	err := p.Publish(context.Background(), "order-1", []byte("{}"))
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.NoError(t, p.Close())
}

func TestProducer_CancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	p := NewProducerWith(mock, "order-transitions")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Publish(ctx, "order-1", nil), context.Canceled)
	assert.NoError(t, p.Close())
}
