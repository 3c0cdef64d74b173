package service

import (
	"context"

	"rechargesystem/internal/model"
	"rechargesystem/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type BonusResolver struct {
	settingRepo *repository.BonusSettingRepository
}

func NewBonusResolver(db *gorm.DB) *BonusResolver {
	return &BonusResolver{settingRepo: repository.NewBonusSettingRepository(db)}
}

// ResolveBonus 返回等级对应的奖励百分比，没有配置时返回 ErrConfigNotFound
func (r *BonusResolver) ResolveBonus(ctx context.Context, tx *gorm.DB, level int, isFirstToday bool) (decimal.Decimal, error) {
	setting, err := r.settingRepo.GetByLevel(ctx, tx, level)
	if err != nil {
		return decimal.Zero, translate(err)
	}
	return BonusPercent(setting, isFirstToday), nil
}

// BonusPercent 当日首充总是使用首充比例，不看 BonusActive
func BonusPercent(setting *model.LevelBonusSetting, isFirstToday bool) decimal.Decimal {
	if isFirstToday {
		return setting.FirstRecharge
	}
	if setting.BonusActive {
		return setting.TodayRecharge
	}
	return decimal.Zero
}

// BonusAmount floor(amount * pct / 100)
func BonusAmount(amount int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(pct).Div(hundred).Floor().IntPart()
}
