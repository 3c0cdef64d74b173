package model

import (
	"github.com/shopspring/decimal"
)

// LevelBonusSetting 等级充值奖励配置
// FirstRecharge: 当日首充奖励百分比
// TodayRecharge: 当日再次充值奖励百分比，仅在 BonusActive 时生效
type LevelBonusSetting struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Level         int             `gorm:"uniqueIndex;not null" json:"level"`
	FirstRecharge decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0" json:"first_recharge"`
	TodayRecharge decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0" json:"today_recharge"`
	BonusActive   bool            `gorm:"not null;default:false" json:"bonus_active"`
}

func (LevelBonusSetting) TableName() string {
	return "level_bonus_setting"
}
