package repository

import (
	"context"

	"rechargesystem/internal/model"

	"gorm.io/gorm"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Create(ctx context.Context, wallet *model.Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *WalletRepository) GetByUserID(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, error) {
	if tx == nil {
		tx = r.db
	}
	var wallet model.Wallet
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		return nil, notFound(err, ErrWalletNotFound)
	}
	return &wallet, nil
}

// GetByUserIDForUpdate 锁定钱包行，读改写期间其他事务等待
func (r *WalletRepository) GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := forUpdate(tx.WithContext(ctx)).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		return nil, notFound(err, ErrWalletNotFound)
	}
	return &wallet, nil
}

// SaveRecharge 写回充值入账后的钱包字段，调用方必须已持有行锁
func (r *WalletRepository) SaveRecharge(ctx context.Context, tx *gorm.DB, wallet *model.Wallet) error {
	result := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id = ?", wallet.ID).
		Updates(map[string]interface{}{
			"balance":             wallet.Balance,
			"point":               wallet.Point,
			"deposit_total":       wallet.DepositTotal,
			"total_settlement":    wallet.TotalSettlement,
			"charged_count":       wallet.ChargedCount,
			"today_charged_count": wallet.TodayChargedCount,
			"last_recharged_at":   wallet.LastRechargedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// ResetTodayChargedCount 当日充值次数清零，返回实际变更的行数
func (r *WalletRepository) ResetTodayChargedCount(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("today_charged_count <> ?", 0).
		Update("today_charged_count", 0)
	return result.RowsAffected, result.Error
}
