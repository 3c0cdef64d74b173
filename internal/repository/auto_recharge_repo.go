package repository

import (
	"context"
	"time"

	"rechargesystem/internal/model"

	"gorm.io/gorm"
)

type AutoRechargeRepository struct {
	db *gorm.DB
}

func NewAutoRechargeRepository(db *gorm.DB) *AutoRechargeRepository {
	return &AutoRechargeRepository{db: db}
}

func (r *AutoRechargeRepository) Create(ctx context.Context, tx *gorm.DB, autoRecharge *model.AutoRecharge) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(autoRecharge).Error
}

func (r *AutoRechargeRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.AutoRecharge, error) {
	var autoRecharge model.AutoRecharge
	err := forUpdate(tx.WithContext(ctx)).Where("id = ?", id).First(&autoRecharge).Error
	if err != nil {
		return nil, notFound(err, ErrAutoRechargeNotFound)
	}
	return &autoRecharge, nil
}

// FindByUserCreatedBetween 按用户与创建时间窗口查找占位记录
// 同一窗口内有多条时，优先返回直接关联了 rechargeID 的那条
func (r *AutoRechargeRepository) FindByUserCreatedBetween(ctx context.Context, userID, rechargeID int64, start, end time.Time) (*model.AutoRecharge, error) {
	var candidates []*model.AutoRecharge
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at <= ?", userID, start, end).
		Order("id ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrAutoRechargeNotFound
	}
	for _, c := range candidates {
		if c.RechargeTransactionID == rechargeID {
			return c, nil
		}
	}
	return candidates[0], nil
}

// MarkReceived 回填短信原始报文
func (r *AutoRechargeRepository) MarkReceived(ctx context.Context, tx *gorm.DB, autoRecharge *model.AutoRecharge) error {
	return tx.WithContext(ctx).
		Model(&model.AutoRecharge{}).
		Where("id = ?", autoRecharge.ID).
		Updates(map[string]interface{}{
			"status":      model.AutoRechargeStatusReceived,
			"message":     autoRecharge.Message,
			"depositor":   autoRecharge.Depositor,
			"amount_text": autoRecharge.AmountText,
			"notified_at": autoRecharge.NotifiedAt,
		}).Error
}

type BankAccountRepository struct {
	db *gorm.DB
}

func NewBankAccountRepository(db *gorm.DB) *BankAccountRepository {
	return &BankAccountRepository{db: db}
}

func (r *BankAccountRepository) Create(ctx context.Context, account *model.AutoRechargeBankAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// ListActive 启用中的收款账户
func (r *BankAccountRepository) ListActive(ctx context.Context) ([]*model.AutoRechargeBankAccount, error) {
	var accounts []*model.AutoRechargeBankAccount
	err := r.db.WithContext(ctx).Where("is_use = ?", true).Find(&accounts).Error
	return accounts, err
}
