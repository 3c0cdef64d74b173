package repository

import (
	"context"

	"rechargesystem/internal/model"

	"gorm.io/gorm"
)

type MoneyLogRepository struct {
	db *gorm.DB
}

func NewMoneyLogRepository(db *gorm.DB) *MoneyLogRepository {
	return &MoneyLogRepository{db: db}
}

func (r *MoneyLogRepository) Create(ctx context.Context, log *model.MoneyLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *MoneyLogRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.MoneyLog, int64, error) {
	var logs []*model.MoneyLog
	var total int64

	query := r.db.WithContext(ctx).Model(&model.MoneyLog{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error

	return logs, total, err
}

type PointLogRepository struct {
	db *gorm.DB
}

func NewPointLogRepository(db *gorm.DB) *PointLogRepository {
	return &PointLogRepository{db: db}
}

func (r *PointLogRepository) Create(ctx context.Context, log *model.PointLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *PointLogRepository) ListByUserID(ctx context.Context, userID int64) ([]*model.PointLog, error) {
	var logs []*model.PointLog
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&logs).Error
	return logs, err
}
