package service

import (
	"time"

	"rechargesystem/internal/model"
)

// Movement 一次入账交给副作用的数据
type Movement struct {
	UserID           int64
	Username         string
	RechargeID       int64
	RechargeNo       string
	Amount           int64
	Point            int64
	ResultingBalance int64
	ResultingPoint   int64
	Category         string
	IP               string
	Extra            map[string]string
}

// ApplyApproval 批准入账，返回更新后的钱包副本
// TotalSettlement 每次重新计算，不做累加
func ApplyApproval(wallet model.Wallet, amount, bonus int64, now time.Time) model.Wallet {
	wallet.Balance += amount
	wallet.Point += bonus
	wallet.ChargedCount++
	wallet.TodayChargedCount++
	wallet.LastRechargedAt = &now
	wallet.DepositTotal += amount
	wallet.TotalSettlement = wallet.DepositTotal - wallet.WithdrawTotal
	return wallet
}
