package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRechargeNotFound     = errors.New("充值申请不存在")
	ErrRechargeStatusStale  = errors.New("充值申请状态已变化")
	ErrWalletNotFound       = errors.New("钱包不存在")
	ErrUserNotFound         = errors.New("用户不存在")
	ErrBonusSettingNotFound = errors.New("等级奖励配置不存在")
	ErrAutoRechargeNotFound = errors.New("自动充值记录不存在")
)

// forUpdate 加行锁；SQLite 没有行锁，依赖单连接串行
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
