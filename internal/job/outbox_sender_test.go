package job

import (
	"context"
	"testing"

	"rechargesystem/internal/infrastructure/mq"
	"rechargesystem/internal/model"
	"rechargesystem/internal/repository"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedOutbox(t *testing.T, repo *repository.OutboxRepository, eventType string) *model.OutboxMessage {
	t.Helper()
	msg := &model.OutboxMessage{
		MessageKey: "42",
		EventType:  eventType,
		Topic:      "recharge." + eventType,
		Payload:    `{"user_id":42,"amount":30000}`,
		Status:     model.OutboxStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), nil, msg))
	return msg
}

func reload(t *testing.T, repo *repository.OutboxRepository, status string) []*model.OutboxMessage {
	t.Helper()
	rows, err := repo.ListByStatus(context.Background(), status, 100)
	require.NoError(t, err)
	return rows
}

func TestOutboxSender_DeliversAndRetries(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewOutboxRepository(db)
	spin := seedOutbox(t, repo, model.EventBonusSpin)
	attendance := seedOutbox(t, repo, model.EventAttendance)

	producer := mocks.NewSyncProducer(t, mq.NewKafkaConfig())
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sender := NewOutboxSender(db, mq.NewProducer(producer), 0, 2, zap.NewNop(), newMetrics())
	assert.Equal(t, 1, sender.ProcessPending(context.Background()))

	sent := reload(t, repo, model.OutboxStatusSent)
	require.Len(t, sent, 1)
	assert.Equal(t, spin.ID, sent[0].ID)

	pending := reload(t, repo, model.OutboxStatusPending)
	require.Len(t, pending, 1)
	assert.Equal(t, attendance.ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].RetryCount)

	// 第二次失败达到最大重试次数
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	assert.Equal(t, 0, sender.ProcessPending(context.Background()))

	failed := reload(t, repo, model.OutboxStatusFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, attendance.ID, failed[0].ID)
	assert.Equal(t, 2, failed[0].RetryCount)
	assert.Empty(t, reload(t, repo, model.OutboxStatusPending))

	// 没有待发送消息时不会调用 Kafka
	assert.Equal(t, 0, sender.ProcessPending(context.Background()))
	require.NoError(t, producer.Close())
}
