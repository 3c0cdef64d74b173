package repository

import (
	"context"

	"rechargesystem/internal/model"

	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create 与状态变更在同一事务内写入
func (r *AuditRepository) Create(ctx context.Context, tx *gorm.DB, entry *model.AuditLog) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *AuditRepository) ListByTargetUser(ctx context.Context, userID int64) ([]*model.AuditLog, error) {
	var entries []*model.AuditLog
	err := r.db.WithContext(ctx).Where("target_user_id = ?", userID).Order("id ASC").Find(&entries).Error
	return entries, err
}
