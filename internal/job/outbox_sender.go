package job

import (
	"context"
	"time"

	"rechargesystem/internal/infrastructure/mq"
	"rechargesystem/internal/metrics"
	"rechargesystem/internal/model"
	"rechargesystem/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OutboxSender 把忠诚度触发消息投递到 Kafka
// 投递失败保留 PENDING 等待下一轮，超过最大重试次数标记为 FAILED
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	publisher  mq.Publisher
	log        *zap.Logger
	metrics    *metrics.Metrics
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
	maxRetry   int
}

func NewOutboxSender(db *gorm.DB, publisher mq.Publisher, interval time.Duration, maxRetry int, log *zap.Logger, m *metrics.Metrics) *OutboxSender {
	if interval <= 0 {
		interval = time.Second
	}
	if maxRetry <= 0 {
		maxRetry = 5
	}
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		publisher:  publisher,
		log:        log.Named("OutboxSender"),
		metrics:    m,
		stopCh:     make(chan struct{}),
		interval:   interval,
		batchSize:  100,
		maxRetry:   maxRetry,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info("消息发送任务启动", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("收到停止信号，任务退出")
			return
		case <-s.stopCh:
			s.log.Info("任务停止")
			return
		case <-ticker.C:
			s.ProcessPending(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// ProcessPending 投递一批待发送消息，返回成功条数
func (s *OutboxSender) ProcessPending(ctx context.Context) int {
	messages, err := s.outboxRepo.ListByStatus(ctx, model.OutboxStatusPending, s.batchSize)
	if err != nil {
		s.log.Error("查询待发送消息失败", zap.Error(err))
		return 0
	}

	sent := 0
	for _, msg := range messages {
		if s.send(ctx, msg) {
			sent++
		}
	}
	return sent
}

func (s *OutboxSender) send(ctx context.Context, msg *model.OutboxMessage) bool {
	err := s.publisher.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		s.metrics.OutboxDelivery.WithLabelValues("sent").Inc()
		if err := s.outboxRepo.MarkSent(ctx, msg.ID); err != nil {
			s.log.Error("更新消息状态失败", zap.Int64("id", msg.ID), zap.Error(err))
		}
		return true
	}

	s.metrics.OutboxDelivery.WithLabelValues("error").Inc()
	s.log.Warn("消息发送失败",
		zap.Int64("id", msg.ID),
		zap.String("topic", msg.Topic),
		zap.Int("retryCount", msg.RetryCount),
		zap.Error(err))

	failed, err := s.outboxRepo.RecordFailure(ctx, msg.ID, msg.RetryCount, s.maxRetry)
	if err != nil {
		s.log.Error("记录发送失败次数失败", zap.Int64("id", msg.ID), zap.Error(err))
		return false
	}
	if failed {
		s.metrics.OutboxDelivery.WithLabelValues("failed").Inc()
		s.log.Error("消息超过最大重试次数，标记为失败", zap.Int64("id", msg.ID), zap.String("eventType", msg.EventType))
	}
	return false
}
