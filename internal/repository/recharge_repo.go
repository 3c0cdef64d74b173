package repository

import (
	"context"
	"time"

	"rechargesystem/internal/model"

	"gorm.io/gorm"
)

type RechargeRepository struct {
	db *gorm.DB
}

func NewRechargeRepository(db *gorm.DB) *RechargeRepository {
	return &RechargeRepository{db: db}
}

func (r *RechargeRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

func (r *RechargeRepository) Create(ctx context.Context, tx *gorm.DB, recharge *model.RechargeTransaction) error {
	return r.conn(tx).WithContext(ctx).Create(recharge).Error
}

func (r *RechargeRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.RechargeTransaction, error) {
	var recharge model.RechargeTransaction
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&recharge).Error
	if err != nil {
		return nil, notFound(err, ErrRechargeNotFound)
	}
	return &recharge, nil
}

// GetByIDForUpdate 事务内锁定充值申请
func (r *RechargeRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.RechargeTransaction, error) {
	var recharge model.RechargeTransaction
	err := forUpdate(tx.WithContext(ctx)).Where("id = ?", id).First(&recharge).Error
	if err != nil {
		return nil, notFound(err, ErrRechargeNotFound)
	}
	return &recharge, nil
}

// UpdateStatus 条件更新：只有当前状态仍为 fromStatus 时才会生效
//
// 管理员批准与短信自动批准同时到达时，只有一方 RowsAffected == 1，
// 另一方得到 ErrRechargeStatusStale，不会重复入账
func (r *RechargeRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string, fields map[string]interface{}) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrRechargeStatusStale
	}

	updates := map[string]interface{}{
		"status": toStatus,
	}
	for k, v := range fields {
		updates[k] = v
	}

	result := r.conn(tx).WithContext(ctx).
		Model(&model.RechargeTransaction{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRechargeStatusStale
	}
	return nil
}

// ExistsApprovedBetween 用户在 [start, end) 内是否已有管理员批准的充值
func (r *RechargeRepository) ExistsApprovedBetween(ctx context.Context, tx *gorm.DB, userID int64, start, end time.Time) (bool, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).
		Model(&model.RechargeTransaction{}).
		Where("user_id = ? AND status = ? AND processed_at >= ? AND processed_at < ?",
			userID, model.RechargeStatusApproval, start, end).
		Count(&count).Error
	return count > 0, err
}

// ListPendingCreatedAfter 查询 since 之后创建、仍未处理的申请
func (r *RechargeRepository) ListPendingCreatedAfter(ctx context.Context, since time.Time) ([]*model.RechargeTransaction, error) {
	var recharges []*model.RechargeTransaction
	err := r.db.WithContext(ctx).
		Where("status IN ? AND created_at > ?",
			[]string{model.RechargeStatusWaiting, model.RechargeStatusUnread}, since).
		Order("created_at ASC").
		Find(&recharges).Error
	return recharges, err
}

// ListStale 查询 before 之前创建、仍未处理的申请
func (r *RechargeRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]*model.RechargeTransaction, error) {
	var recharges []*model.RechargeTransaction
	err := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?",
			[]string{model.RechargeStatusUnread, model.RechargeStatusWaiting}, before).
		Order("id ASC").
		Limit(limit).
		Find(&recharges).Error
	return recharges, err
}

func (r *RechargeRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.RechargeTransaction, int64, error) {
	var recharges []*model.RechargeTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.RechargeTransaction{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&recharges).Error

	return recharges, total, err
}
