package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rechargesystem/internal/config"
	"rechargesystem/internal/metrics"
	"rechargesystem/internal/model"
	"rechargesystem/internal/repository"
	"rechargesystem/pkg/clock"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 匹配结果，用作指标标签
const (
	MatchOutcomeMatched    = "matched"
	MatchOutcomeNone       = "none"
	MatchOutcomeAmbiguous  = "ambiguous"
	MatchOutcomeUnverified = "unverified"
	MatchOutcomeError      = "error"
)

// Notification 解析后的银行入账短信
type Notification struct {
	AmountText string
	Depositor  string
	Message    string
	NotifiedAt time.Time
}

// AutoMatcher 把银行短信匹配到唯一的待处理申请并自动批准
// 出现歧义或无法验证收款账户时不做任何操作
type AutoMatcher struct {
	recharges  *RechargeService
	credential Credential
	window     time.Duration
	tolerance  time.Duration
	clock      clock.Clock
	log        *zap.Logger
	metrics    *metrics.Metrics

	rechargeRepo *repository.RechargeRepository
	autoRepo     *repository.AutoRechargeRepository
	bankRepo     *repository.BankAccountRepository
}

func NewAutoMatcher(
	db *gorm.DB,
	cfg *config.BusinessConfig,
	recharges *RechargeService,
	credential Credential,
	clk clock.Clock,
	log *zap.Logger,
	m *metrics.Metrics,
) *AutoMatcher {
	return &AutoMatcher{
		recharges:    recharges,
		credential:   credential,
		window:       time.Duration(cfg.MatchWindowMinutes) * time.Minute,
		tolerance:    cfg.AutoRechargeWindow,
		clock:        clk,
		log:          log,
		metrics:      m,
		rechargeRepo: repository.NewRechargeRepository(db),
		autoRepo:     repository.NewAutoRechargeRepository(db),
		bankRepo:     repository.NewBankAccountRepository(db),
	}
}

// MatchAndApprove 返回是否完成了自动批准
func (m *AutoMatcher) MatchAndApprove(ctx context.Context, n Notification) (bool, error) {
	matched, outcome, err := m.match(ctx, n)
	m.metrics.AutoMatchOutcomes.WithLabelValues(outcome).Inc()
	return matched, err
}

func (m *AutoMatcher) match(ctx context.Context, n Notification) (bool, string, error) {
	since := m.clock.Now().UTC().Add(-m.window)
	pending, err := m.rechargeRepo.ListPendingCreatedAfter(ctx, since)
	if err != nil {
		return false, MatchOutcomeError, fmt.Errorf("查询待处理申请失败: %w", err)
	}

	var candidates []*model.RechargeTransaction
	for _, recharge := range pending {
		if strconv.FormatInt(recharge.Amount, 10) == n.AmountText && recharge.OwnerName == n.Depositor {
			candidates = append(candidates, recharge)
		}
	}

	switch len(candidates) {
	case 0:
		return false, MatchOutcomeNone, nil
	case 1:
	default:
		ids := make([]int64, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.ID)
		}
		m.log.Warn("短信匹配到多笔申请，需人工处理",
			zap.String("amount", n.AmountText),
			zap.String("depositor", n.Depositor),
			zap.Int64s("rechargeIDs", ids))
		return false, MatchOutcomeAmbiguous, nil
	}
	candidate := candidates[0]

	verified, err := m.mentionsActiveAccount(ctx, n.Message)
	if err != nil {
		return false, MatchOutcomeError, err
	}
	if !verified {
		m.log.Warn("短信未包含任何启用的收款账号",
			zap.Int64("rechargeID", candidate.ID),
			zap.String("depositor", n.Depositor))
		return false, MatchOutcomeUnverified, nil
	}

	autoRecharge, err := m.autoRepo.FindByUserCreatedBetween(ctx, candidate.UserID, candidate.ID,
		candidate.CreatedAt.Add(-m.tolerance), candidate.CreatedAt.Add(m.tolerance))
	if errors.Is(err, repository.ErrAutoRechargeNotFound) {
		m.log.Error("自动充值占位记录缺失",
			zap.Int64("rechargeID", candidate.ID),
			zap.Int64("userID", candidate.UserID))
		return false, MatchOutcomeError, ErrDataNotFound
	}
	if err != nil {
		return false, MatchOutcomeError, fmt.Errorf("查询自动充值记录失败: %w", err)
	}

	err = m.recharges.AutoApprove(ctx, &AutoApproveRequest{
		RechargeID:     candidate.ID,
		AutoRechargeID: autoRecharge.ID,
		Credential:     m.credential,
		Message:        n.Message,
		Depositor:      n.Depositor,
		AmountText:     n.AmountText,
		NotifiedAt:     n.NotifiedAt,
	})
	if err != nil {
		return false, MatchOutcomeError, err
	}
	return true, MatchOutcomeMatched, nil
}

func (m *AutoMatcher) mentionsActiveAccount(ctx context.Context, message string) (bool, error) {
	accounts, err := m.bankRepo.ListActive(ctx)
	if err != nil {
		return false, fmt.Errorf("查询收款账户失败: %w", err)
	}
	for _, account := range accounts {
		if account.Number != "" && strings.Contains(message, account.Number) {
			return true, nil
		}
	}
	return false, nil
}
