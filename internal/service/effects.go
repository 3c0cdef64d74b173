package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"rechargesystem/internal/metrics"
	"rechargesystem/internal/model"
	"rechargesystem/internal/repository"
	"rechargesystem/pkg/idgen"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SideEffect 入账提交后的下游动作
type SideEffect interface {
	Name() string
	Handle(ctx context.Context, m Movement) error
}

// Effects 依次执行所有副作用，失败只记录不回滚
type Effects struct {
	effects []SideEffect
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewEffects(log *zap.Logger, m *metrics.Metrics, effects ...SideEffect) *Effects {
	return &Effects{effects: effects, log: log, metrics: m}
}

// Dispatch 返回所有失败的合并错误，供调用方记录
func (e *Effects) Dispatch(ctx context.Context, m Movement) error {
	var errs []error
	for _, effect := range e.effects {
		if err := effect.Handle(ctx, m); err != nil {
			e.log.Error("入账副作用执行失败",
				zap.String("effect", effect.Name()),
				zap.Int64("rechargeID", m.RechargeID),
				zap.Int64("userID", m.UserID),
				zap.Error(err))
			e.metrics.SideEffectFailures.WithLabelValues(effect.Name()).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", effect.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// MoneyLogEffect 写资金变动日志
type MoneyLogEffect struct {
	repo *repository.MoneyLogRepository
}

func NewMoneyLogEffect(db *gorm.DB) *MoneyLogEffect {
	return &MoneyLogEffect{repo: repository.NewMoneyLogRepository(db)}
}

func (e *MoneyLogEffect) Name() string { return "money_log" }

func (e *MoneyLogEffect) Handle(ctx context.Context, m Movement) error {
	return e.repo.Create(ctx, &model.MoneyLog{
		LogNo:        idgen.GenerateMoneyLogNo(),
		UserID:       m.UserID,
		Amount:       m.Amount,
		BalanceAfter: m.ResultingBalance,
		Category:     m.Category,
		Remark:       fmt.Sprintf("充值-%s", m.RechargeNo),
	})
}

// PointLogEffect 写积分变动日志
type PointLogEffect struct {
	repo *repository.PointLogRepository
}

func NewPointLogEffect(db *gorm.DB) *PointLogEffect {
	return &PointLogEffect{repo: repository.NewPointLogRepository(db)}
}

func (e *PointLogEffect) Name() string { return "point_log" }

func (e *PointLogEffect) Handle(ctx context.Context, m Movement) error {
	return e.repo.Create(ctx, &model.PointLog{
		LogNo:      idgen.GeneratePointLogNo(),
		UserID:     m.UserID,
		Point:      m.Point,
		PointAfter: m.ResultingPoint,
		Category:   m.Category,
		IP:         m.IP,
		Remark:     fmt.Sprintf("充值奖励-%s", m.RechargeNo),
	})
}

// TriggerPayload 忠诚度触发消息体
type TriggerPayload struct {
	EventType        string            `json:"event_type"`
	UserID           int64             `json:"user_id"`
	RechargeNo       string            `json:"recharge_no"`
	Amount           int64             `json:"amount"`
	ResultingBalance int64             `json:"resulting_balance"`
	Category         string            `json:"category"`
	Extra            map[string]string `json:"extra,omitempty"`
}

// OutboxTrigger 把忠诚度触发写入 outbox，由 OutboxSender 投递到 Kafka
type OutboxTrigger struct {
	eventType string
	topic     string
	repo      *repository.OutboxRepository
}

func NewOutboxTrigger(db *gorm.DB, eventType, topic string) *OutboxTrigger {
	return &OutboxTrigger{
		eventType: eventType,
		topic:     topic,
		repo:      repository.NewOutboxRepository(db),
	}
}

func (t *OutboxTrigger) Name() string { return t.eventType }

func (t *OutboxTrigger) Handle(ctx context.Context, m Movement) error {
	payload, err := json.Marshal(TriggerPayload{
		EventType:        t.eventType,
		UserID:           m.UserID,
		RechargeNo:       m.RechargeNo,
		Amount:           m.Amount,
		ResultingBalance: m.ResultingBalance,
		Category:         m.Category,
		Extra:            m.Extra,
	})
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	return t.repo.Create(ctx, nil, &model.OutboxMessage{
		MessageKey: strconv.FormatInt(m.UserID, 10),
		EventType:  t.eventType,
		Topic:      t.topic,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	})
}
