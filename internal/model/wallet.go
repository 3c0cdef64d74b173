package model

import (
	"time"
)

// Wallet 用户钱包
// 每个用户一条，充值相关的变动只能通过账本变更（ledger）写入
//
// TotalSettlement 是派生值，恒等于 DepositTotal - WithdrawTotal
type Wallet struct {
	ID                int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            int64      `gorm:"uniqueIndex;not null" json:"user_id"`
	OwnerName         string     `gorm:"type:varchar(64)" json:"owner_name"` // 户名
	BankName          string     `gorm:"type:varchar(64)" json:"bank_name"`
	Number            string     `gorm:"type:varchar(64)" json:"number"` // 账号
	Balance           int64      `gorm:"not null;default:0" json:"balance"`
	Point             int64      `gorm:"not null;default:0" json:"point"`
	DepositTotal      int64      `gorm:"not null;default:0" json:"deposit_total"`
	WithdrawTotal     int64      `gorm:"not null;default:0" json:"withdraw_total"`
	TotalSettlement   int64      `gorm:"not null;default:0" json:"total_settlement"`
	ChargedCount      int64      `gorm:"not null;default:0" json:"charged_count"`
	TodayChargedCount int64      `gorm:"not null;default:0" json:"today_charged_count"`
	LastRechargedAt   *time.Time `json:"last_recharged_at"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallet"
}
