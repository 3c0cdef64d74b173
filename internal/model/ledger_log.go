package model

import (
	"time"
)

// 资金/积分变动类别
const (
	LogCategoryRecharge     = "RECHARGE"      // 人工批准充值
	LogCategoryAutoRecharge = "AUTO_RECHARGE" // 短信自动充值
)

// MoneyLog 资金变动日志
// 只追加，不修改，不删除
type MoneyLog struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	LogNo        string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"log_no"`
	UserID       int64     `gorm:"index;not null" json:"user_id"`
	Amount       int64     `gorm:"not null" json:"amount"`
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`
	Category     string    `gorm:"type:varchar(20);not null" json:"category"`
	Remark       string    `gorm:"type:varchar(256)" json:"remark"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (MoneyLog) TableName() string {
	return "money_log"
}

// PointLog 积分变动日志
type PointLog struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	LogNo      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"log_no"`
	UserID     int64     `gorm:"index;not null" json:"user_id"`
	Point      int64     `gorm:"not null" json:"point"`
	PointAfter int64     `gorm:"not null" json:"point_after"`
	Category   string    `gorm:"type:varchar(20);not null" json:"category"`
	IP         string    `gorm:"type:varchar(64)" json:"ip"`
	Remark     string    `gorm:"type:varchar(256)" json:"remark"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (PointLog) TableName() string {
	return "point_log"
}
