package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rechargesystem/internal/config"
	"rechargesystem/internal/infrastructure/lock"
	"rechargesystem/internal/metrics"
	"rechargesystem/internal/model"
	"rechargesystem/internal/repository"
	"rechargesystem/pkg/clock"
	"rechargesystem/pkg/idgen"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 审计动作
const (
	AuditActionMarkWaiting = "RECHARGE_MARK_WAITING"
	AuditActionApprove     = "RECHARGE_APPROVE"
	AuditActionCancel      = "RECHARGE_CANCEL"
)

const sweepBatchSize = 100

// Actor 已由上游完成认证的操作人
type Actor struct {
	Username string
	IP       string
}

type RechargeService struct {
	db       *gorm.DB
	cfg      *config.BusinessConfig
	clock    clock.Clock
	locker   lock.Locker
	verifier CredentialVerifier
	bonus    *BonusResolver
	effects  *Effects
	log      *zap.Logger
	metrics  *metrics.Metrics

	rechargeRepo *repository.RechargeRepository
	walletRepo   *repository.WalletRepository
	userRepo     *repository.UserRepository
	autoRepo     *repository.AutoRechargeRepository
	auditRepo    *repository.AuditRepository
}

func NewRechargeService(
	db *gorm.DB,
	cfg *config.BusinessConfig,
	clk clock.Clock,
	locker lock.Locker,
	verifier CredentialVerifier,
	effects *Effects,
	log *zap.Logger,
	m *metrics.Metrics,
) *RechargeService {
	return &RechargeService{
		db:           db,
		cfg:          cfg,
		clock:        clk,
		locker:       locker,
		verifier:     verifier,
		bonus:        NewBonusResolver(db),
		effects:      effects,
		log:          log,
		metrics:      m,
		rechargeRepo: repository.NewRechargeRepository(db),
		walletRepo:   repository.NewWalletRepository(db),
		userRepo:     repository.NewUserRepository(db),
		autoRepo:     repository.NewAutoRechargeRepository(db),
		auditRepo:    repository.NewAuditRepository(db),
	}
}

func (s *RechargeService) now() time.Time {
	return s.clock.Now().UTC()
}

// todayRange 业务时区下的当日 [start, end)
func (s *RechargeService) todayRange(now time.Time) (time.Time, time.Time) {
	loc := s.cfg.Location()
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

func (s *RechargeService) isFirstToday(ctx context.Context, tx *gorm.DB, userID int64, now time.Time) (bool, error) {
	start, end := s.todayRange(now)
	approved, err := s.rechargeRepo.ExistsApprovedBetween(ctx, tx, userID, start, end)
	if err != nil {
		return false, fmt.Errorf("查询当日充值记录失败: %w", err)
	}
	return !approved, nil
}

type CreateRequest struct {
	UserID        int64
	Amount        int64
	Channel       string
	BonusOverride *int64
	IP            string
}

// Create 创建充值申请，钱包此时不变
func (s *RechargeService) Create(ctx context.Context, req *CreateRequest) (*model.RechargeTransaction, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	channel := req.Channel
	if channel == "" {
		channel = model.ChannelSports
	}

	now := s.now()
	var recharge *model.RechargeTransaction

	err := s.db.Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.GetByID(ctx, tx, req.UserID)
		if err != nil {
			return translate(err)
		}
		wallet, err := s.walletRepo.GetByUserID(ctx, tx, req.UserID)
		if err != nil {
			return translate(err)
		}

		isFirst, err := s.isFirstToday(ctx, tx, user.ID, now)
		if err != nil {
			return err
		}

		var bonus int64
		if req.BonusOverride != nil {
			bonus = *req.BonusOverride
		} else {
			pct, err := s.bonus.ResolveBonus(ctx, tx, user.Level, isFirst)
			if err != nil {
				return err
			}
			bonus = BonusAmount(req.Amount, pct)
		}

		recharge = &model.RechargeTransaction{
			RechargeNo:       idgen.GenerateRechargeNo(),
			UserID:           user.ID,
			Username:         user.Username,
			Nickname:         user.Nickname,
			Phone:            user.Phone,
			Level:            user.Level,
			OwnerName:        wallet.OwnerName,
			Channel:          channel,
			Amount:           req.Amount,
			Bonus:            bonus,
			BonusOverridden:  req.BonusOverride != nil,
			RemainingBalance: wallet.Balance + req.Amount,
			RemainingPoint:   wallet.Point + bonus,
			ChargedCount:     wallet.ChargedCount,
			IsFirstRecharge:  isFirst,
			Status:           model.RechargeStatusUnread,
			IP:               req.IP,
			CreatedAt:        now,
		}
		if err := s.rechargeRepo.Create(ctx, tx, recharge); err != nil {
			return fmt.Errorf("创建充值申请失败: %w", err)
		}

		placeholder := &model.AutoRecharge{
			UserID:                user.ID,
			RechargeTransactionID: recharge.ID,
			Username:              user.Username,
			BankName:              wallet.BankName,
			Number:                wallet.Number,
			OwnerName:             wallet.OwnerName,
			Status:                model.AutoRechargeStatusNotReceived,
			CreatedAt:             now,
		}
		if err := s.autoRepo.Create(ctx, tx, placeholder); err != nil {
			return fmt.Errorf("创建自动充值记录失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transitions.WithLabelValues(model.RechargeStatusUnread).Inc()
	s.log.Info("充值申请已创建",
		zap.Int64("rechargeID", recharge.ID),
		zap.String("rechargeNo", recharge.RechargeNo),
		zap.Int64("userID", recharge.UserID),
		zap.Int64("amount", recharge.Amount),
		zap.Bool("firstToday", recharge.IsFirstRecharge))
	return recharge, nil
}

// MarkWaiting UNREAD -> WAITING
func (s *RechargeService) MarkWaiting(ctx context.Context, id int64, actor Actor) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		recharge, err := s.rechargeRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return translate(err)
		}
		if !model.CanTransitionTo(recharge.Status, model.RechargeStatusWaiting) {
			return ErrInvalidStateTransition
		}
		if err := s.rechargeRepo.UpdateStatus(ctx, tx, id, recharge.Status, model.RechargeStatusWaiting, nil); err != nil {
			return translate(err)
		}
		return s.audit(ctx, tx, AuditActionMarkWaiting, actor, recharge,
			fmt.Sprintf("%s: %s -> %s", recharge.RechargeNo, recharge.Status, model.RechargeStatusWaiting))
	})
	if err != nil {
		return err
	}
	s.metrics.Transitions.WithLabelValues(model.RechargeStatusWaiting).Inc()
	return nil
}

// BatchResult 批量操作的逐条结果，前面成功的条目不会因后面的失败回滚
type BatchResult struct {
	Succeeded []int64
	Failed    map[int64]error
}

func newBatchResult() *BatchResult {
	return &BatchResult{Failed: make(map[int64]error)}
}

func (b *BatchResult) record(id int64, err error) {
	if err != nil {
		b.Failed[id] = err
		return
	}
	b.Succeeded = append(b.Succeeded, id)
}

// Err 合并所有失败，全部成功时为 nil
func (b *BatchResult) Err() error {
	var errs []error
	for id, err := range b.Failed {
		errs = append(errs, fmt.Errorf("id=%d: %w", id, err))
	}
	return errors.Join(errs...)
}

// Approve 管理员批量批准，只接受 WAITING
func (s *RechargeService) Approve(ctx context.Context, ids []int64, actor Actor, bonusOverride *int64) *BatchResult {
	result := newBatchResult()
	for _, id := range ids {
		err := s.credit(ctx, &creditParams{
			rechargeID: id,
			target:     model.RechargeStatusApproval,
			category:   model.LogCategoryRecharge,
			override:   bonusOverride,
			actor:      &actor,
		})
		if err != nil {
			s.log.Warn("批准充值失败", zap.Int64("rechargeID", id), zap.String("actor", actor.Username), zap.Error(err))
		}
		result.record(id, err)
	}
	return result
}

type AutoApproveRequest struct {
	RechargeID     int64
	AutoRechargeID int64
	Credential     Credential
	Message        string
	Depositor      string
	AmountText     string
	NotifiedAt     time.Time
}

// AutoApprove 短信确认后自动批准，UNREAD 与 WAITING 均可
func (s *RechargeService) AutoApprove(ctx context.Context, req *AutoApproveRequest) error {
	if err := s.verifier.Verify(req.Credential); err != nil {
		return err
	}
	return s.credit(ctx, &creditParams{
		rechargeID: req.RechargeID,
		target:     model.RechargeStatusAutoApproval,
		category:   model.LogCategoryAutoRecharge,
		auto:       req,
	})
}

type creditParams struct {
	rechargeID int64
	target     string
	category   string
	override   *int64
	actor      *Actor
	auto       *AutoApproveRequest
}

// credit 批准入账：按用户加锁，事务内锁定申请与钱包，提交后执行副作用
func (s *RechargeService) credit(ctx context.Context, p *creditParams) error {
	head, err := s.rechargeRepo.GetByID(ctx, nil, p.rechargeID)
	if err != nil {
		return translate(err)
	}
	if !model.CanTransitionTo(head.Status, p.target) {
		return ErrInvalidStateTransition
	}

	owner := fmt.Sprintf("%s:%d:%d", p.target, p.rechargeID, idgen.NextID())
	unlock, err := s.locker.Acquire(ctx, lock.UserKey(head.UserID), owner)
	if err != nil {
		return fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer unlock()

	now := s.now()
	var movement Movement

	err = s.db.Transaction(func(tx *gorm.DB) error {
		recharge, err := s.rechargeRepo.GetByIDForUpdate(ctx, tx, p.rechargeID)
		if err != nil {
			return translate(err)
		}
		if !model.CanTransitionTo(recharge.Status, p.target) {
			return ErrInvalidStateTransition
		}

		user, err := s.userRepo.GetByID(ctx, tx, recharge.UserID)
		if err != nil {
			return translate(err)
		}
		wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, tx, recharge.UserID)
		if err != nil {
			return translate(err)
		}

		bonus, err := s.approvalBonus(ctx, tx, recharge, user, p.override, now)
		if err != nil {
			return err
		}

		updated := ApplyApproval(*wallet, recharge.Amount, bonus, now)
		if err := s.walletRepo.SaveRecharge(ctx, tx, &updated); err != nil {
			return translate(err)
		}

		fields := map[string]interface{}{
			"bonus":             bonus,
			"remaining_balance": updated.Balance,
			"remaining_point":   updated.Point,
			"charged_count":     updated.ChargedCount,
			"processed_at":      now,
		}
		if p.auto != nil {
			fields["message"] = p.auto.Message
			fields["depositor"] = p.auto.Depositor
		}
		if err := s.rechargeRepo.UpdateStatus(ctx, tx, recharge.ID, recharge.Status, p.target, fields); err != nil {
			return translate(err)
		}

		if p.auto != nil {
			if err := s.stampAutoRecharge(ctx, tx, recharge, p.auto); err != nil {
				return err
			}
		}
		if p.actor != nil {
			details := fmt.Sprintf("%s: %s -> %s, amount=%d, bonus=%d",
				recharge.RechargeNo, recharge.Status, p.target, recharge.Amount, bonus)
			if err := s.audit(ctx, tx, AuditActionApprove, *p.actor, recharge, details); err != nil {
				return err
			}
		}

		movement = Movement{
			UserID:           recharge.UserID,
			Username:         recharge.Username,
			RechargeID:       recharge.ID,
			RechargeNo:       recharge.RechargeNo,
			Amount:           recharge.Amount,
			Point:            bonus,
			ResultingBalance: updated.Balance,
			ResultingPoint:   updated.Point,
			Category:         p.category,
			IP:               recharge.IP,
			Extra:            map[string]string{"channel": recharge.Channel},
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.Transitions.WithLabelValues(p.target).Inc()
	s.metrics.CreditedAmount.Add(float64(movement.Amount))
	s.log.Info("充值已入账",
		zap.Int64("rechargeID", movement.RechargeID),
		zap.Int64("userID", movement.UserID),
		zap.String("status", p.target),
		zap.Int64("amount", movement.Amount),
		zap.Int64("bonus", movement.Point),
		zap.Int64("balance", movement.ResultingBalance))

	// 副作用失败已在 Dispatch 内记录，入账结果不受影响
	_ = s.effects.Dispatch(ctx, movement)
	return nil
}

// approvalBonus 本次指定 > 创建时指定 > 按等级配置计算
// 是否当日首充在批准时重新计算
func (s *RechargeService) approvalBonus(ctx context.Context, tx *gorm.DB, recharge *model.RechargeTransaction, user *model.User, override *int64, now time.Time) (int64, error) {
	if override != nil {
		return *override, nil
	}
	if recharge.BonusOverridden {
		return recharge.Bonus, nil
	}
	isFirst, err := s.isFirstToday(ctx, tx, recharge.UserID, now)
	if err != nil {
		return 0, err
	}
	pct, err := s.bonus.ResolveBonus(ctx, tx, user.Level, isFirst)
	if err != nil {
		return 0, err
	}
	return BonusAmount(recharge.Amount, pct), nil
}

// stampAutoRecharge 占位记录必须属于同一用户
func (s *RechargeService) stampAutoRecharge(ctx context.Context, tx *gorm.DB, recharge *model.RechargeTransaction, req *AutoApproveRequest) error {
	autoRecharge, err := s.autoRepo.GetByIDForUpdate(ctx, tx, req.AutoRechargeID)
	if err != nil {
		return translate(err)
	}
	if autoRecharge.UserID != recharge.UserID {
		return ErrAutoRechargeNotFound
	}
	notifiedAt := req.NotifiedAt.UTC()
	autoRecharge.Message = req.Message
	autoRecharge.Depositor = req.Depositor
	autoRecharge.AmountText = req.AmountText
	autoRecharge.NotifiedAt = &notifiedAt
	if err := s.autoRepo.MarkReceived(ctx, tx, autoRecharge); err != nil {
		return fmt.Errorf("更新自动充值记录失败: %w", err)
	}
	return nil
}

// Cancel 批量取消，钱包不变
func (s *RechargeService) Cancel(ctx context.Context, ids []int64, actor Actor) *BatchResult {
	result := newBatchResult()
	for _, id := range ids {
		err := s.cancelOne(ctx, id, actor)
		if err != nil {
			s.log.Warn("取消充值失败", zap.Int64("rechargeID", id), zap.String("actor", actor.Username), zap.Error(err))
		} else {
			s.metrics.Transitions.WithLabelValues(model.RechargeStatusCancellation).Inc()
		}
		result.record(id, err)
	}
	return result
}

func (s *RechargeService) cancelOne(ctx context.Context, id int64, actor Actor) error {
	now := s.now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		recharge, err := s.rechargeRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return translate(err)
		}
		if !model.CanTransitionTo(recharge.Status, model.RechargeStatusCancellation) {
			return ErrInvalidStateTransition
		}
		err = s.rechargeRepo.UpdateStatus(ctx, tx, id, recharge.Status, model.RechargeStatusCancellation,
			map[string]interface{}{"processed_at": now})
		if err != nil {
			return translate(err)
		}
		return s.audit(ctx, tx, AuditActionCancel, actor, recharge,
			fmt.Sprintf("%s: %s -> %s", recharge.RechargeNo, recharge.Status, model.RechargeStatusCancellation))
	})
}

// TimeoutSweep 超时未处理的申请置为 TIMEOUT，返回本次变更条数
// 已被其他操作处理的行会被条件更新跳过，重复执行没有副作用
func (s *RechargeService) TimeoutSweep(ctx context.Context) (int, error) {
	before := s.now().Add(-time.Duration(s.cfg.TimeoutMinutes) * time.Minute)

	timedOut := 0
	for {
		stale, err := s.rechargeRepo.ListStale(ctx, before, sweepBatchSize)
		if err != nil {
			return timedOut, fmt.Errorf("查询超时申请失败: %w", err)
		}

		for _, recharge := range stale {
			err := s.rechargeRepo.UpdateStatus(ctx, nil, recharge.ID, recharge.Status, model.RechargeStatusTimeout, nil)
			if errors.Is(err, repository.ErrRechargeStatusStale) {
				continue
			}
			if err != nil {
				return timedOut, fmt.Errorf("超时关闭失败: id=%d: %w", recharge.ID, err)
			}
			timedOut++
			s.log.Info("充值申请已超时",
				zap.Int64("rechargeID", recharge.ID),
				zap.Int64("userID", recharge.UserID),
				zap.Int64("amount", recharge.Amount))
		}

		if len(stale) < sweepBatchSize {
			break
		}
	}

	s.metrics.Transitions.WithLabelValues(model.RechargeStatusTimeout).Add(float64(timedOut))
	s.metrics.SweepTimedOut.Add(float64(timedOut))
	return timedOut, nil
}

func (s *RechargeService) Get(ctx context.Context, id int64) (*model.RechargeTransaction, error) {
	recharge, err := s.rechargeRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, translate(err)
	}
	return recharge, nil
}

func (s *RechargeService) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]*model.RechargeTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return s.rechargeRepo.ListByUserID(ctx, userID, page, pageSize)
}

func (s *RechargeService) audit(ctx context.Context, tx *gorm.DB, action string, actor Actor, recharge *model.RechargeTransaction, details string) error {
	err := s.auditRepo.Create(ctx, tx, &model.AuditLog{
		Action:         action,
		Actor:          actor.Username,
		TargetUserID:   recharge.UserID,
		TargetUsername: recharge.Username,
		Details:        details,
		SourceIP:       actor.IP,
		Timestamp:      s.now(),
	})
	if err != nil {
		return fmt.Errorf("写入审计日志失败: %w", err)
	}
	return nil
}
