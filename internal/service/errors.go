package service

import (
	"errors"
	"fmt"

	"rechargesystem/internal/repository"
)

// ErrNotFound 所有查找失败的共同根错误，调用方用 errors.Is 判断
var ErrNotFound = errors.New("数据不存在")

var (
	ErrTransactionNotFound  = fmt.Errorf("充值申请不存在: %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("用户不存在: %w", ErrNotFound)
	ErrWalletNotFound       = fmt.Errorf("钱包不存在: %w", ErrNotFound)
	ErrAutoRechargeNotFound = fmt.Errorf("自动充值记录不存在: %w", ErrNotFound)
	ErrConfigNotFound       = fmt.Errorf("等级奖励配置不存在: %w", ErrNotFound)
)

var (
	ErrInvalidStateTransition = errors.New("充值申请当前状态不允许此操作")
	ErrInvalidAmount          = errors.New("充值金额必须大于0")
	ErrUnauthorized           = errors.New("自动充值凭证无效")
	// ErrDataNotFound 匹配成功但缺少创建时写入的占位记录
	ErrDataNotFound = errors.New("自动充值占位记录缺失")
)

// translate 把仓储层错误映射为对外错误
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrRechargeNotFound):
		return ErrTransactionNotFound
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrWalletNotFound):
		return ErrWalletNotFound
	case errors.Is(err, repository.ErrAutoRechargeNotFound):
		return ErrAutoRechargeNotFound
	case errors.Is(err, repository.ErrBonusSettingNotFound):
		return ErrConfigNotFound
	case errors.Is(err, repository.ErrRechargeStatusStale):
		return ErrInvalidStateTransition
	}
	return err
}
