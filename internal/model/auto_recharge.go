package model

import (
	"time"
)

const (
	AutoRechargeStatusNotReceived = "message not received"
	AutoRechargeStatusReceived    = "message received"
)

// AutoRecharge 自动充值短信跟踪记录
// 创建充值申请时同时写入一条占位记录，短信匹配成功后回填原始报文
type AutoRecharge struct {
	ID                    int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                int64      `gorm:"index:idx_auto_recharge_user_created;not null" json:"user_id"`
	RechargeTransactionID int64      `gorm:"index" json:"recharge_transaction_id"`
	Username              string     `gorm:"type:varchar(64)" json:"username"`
	BankName              string     `gorm:"type:varchar(64)" json:"bank_name"`
	Number                string     `gorm:"type:varchar(64)" json:"number"`
	OwnerName             string     `gorm:"type:varchar(64)" json:"owner_name"`
	Status                string     `gorm:"type:varchar(32);not null" json:"status"`
	Message               string     `gorm:"type:text" json:"message"`
	Depositor             string     `gorm:"type:varchar(64)" json:"depositor"`
	AmountText            string     `gorm:"type:varchar(32)" json:"amount"`
	NotifiedAt            *time.Time `json:"notified_at"`
	CreatedAt             time.Time  `gorm:"index:idx_auto_recharge_user_created;not null" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AutoRecharge) TableName() string {
	return "auto_recharge"
}

// AutoRechargeBankAccount 收款账户，短信正文必须包含某个启用账户的账号才可信
type AutoRechargeBankAccount struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	BankName  string `gorm:"type:varchar(64)" json:"bank_name"`
	Number    string `gorm:"type:varchar(64);uniqueIndex;not null" json:"number"`
	OwnerName string `gorm:"type:varchar(64)" json:"owner_name"`
	IsUse     bool   `gorm:"not null" json:"is_use"`
}

func (AutoRechargeBankAccount) TableName() string {
	return "auto_recharge_bank_account"
}
