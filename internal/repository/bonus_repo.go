package repository

import (
	"context"

	"rechargesystem/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BonusSettingRepository struct {
	db *gorm.DB
}

func NewBonusSettingRepository(db *gorm.DB) *BonusSettingRepository {
	return &BonusSettingRepository{db: db}
}

func (r *BonusSettingRepository) GetByLevel(ctx context.Context, tx *gorm.DB, level int) (*model.LevelBonusSetting, error) {
	if tx == nil {
		tx = r.db
	}
	var setting model.LevelBonusSetting
	err := tx.WithContext(ctx).Where("level = ?", level).First(&setting).Error
	if err != nil {
		return nil, notFound(err, ErrBonusSettingNotFound)
	}
	return &setting, nil
}

// Upsert 按等级写入奖励配置
func (r *BonusSettingRepository) Upsert(ctx context.Context, setting *model.LevelBonusSetting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "level"}},
			DoUpdates: clause.AssignmentColumns([]string{"first_recharge", "today_recharge", "bonus_active"}),
		}).
		Create(setting).Error
}
