package mq

import (
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_SendMessage(t *testing.T) {
	mp := mocks.NewSyncProducer(t, NewKafkaConfig())
	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, _ := msg.Key.Encode()
		if string(key) != "RCG-1" {
			return errors.New("unexpected key")
		}
		if msg.Topic != "recharge.bonus_spin" {
			return errors.New("unexpected topic")
		}
		return nil
	})

	p := NewProducer(mp)
	require.NoError(t, p.SendMessage("recharge.bonus_spin", "RCG-1", `{"user_id":1}`))
	require.NoError(t, p.Close())
}

func TestProducer_SendMessageError(t *testing.T) {
	mp := mocks.NewSyncProducer(t, NewKafkaConfig())
	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducer(mp)
	err := p.SendMessage("recharge.attendance", "RCG-2", "{}")
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}
