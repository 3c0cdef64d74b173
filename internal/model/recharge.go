package model

import (
	"time"
)

// 充值申请状态
const (
	RechargeStatusUnread       = "UNREAD"        // 未读（初始状态）
	RechargeStatusWaiting      = "WAITING"       // 等待入金
	RechargeStatusApproval     = "APPROVAL"      // 管理员批准
	RechargeStatusAutoApproval = "AUTO_APPROVAL" // 短信自动批准
	RechargeStatusCancellation = "CANCELLATION"  // 取消
	RechargeStatusTimeout      = "TIMEOUT"       // 超时
)

// ValidStatusTransitions 充值申请状态机
// 终态（APPROVAL / AUTO_APPROVAL / CANCELLATION / TIMEOUT）没有任何出边
var ValidStatusTransitions = map[string][]string{
	RechargeStatusUnread: {
		RechargeStatusWaiting,
		RechargeStatusAutoApproval,
		RechargeStatusCancellation,
		RechargeStatusTimeout,
	},
	RechargeStatusWaiting: {
		RechargeStatusApproval,
		RechargeStatusAutoApproval,
		RechargeStatusCancellation,
		RechargeStatusTimeout,
	},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// 充值渠道
const (
	ChannelSports = "SPORTS"
)

// RechargeTransaction 充值申请表
// 一条记录对应一次用户充值申请及其处理结果，只更新不删除
//
// RemainingBalance / RemainingPoint / ChargedCount 是批准时刻的快照，之后不再重算
type RechargeTransaction struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	RechargeNo       string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"recharge_no"`
	UserID           int64      `gorm:"index:idx_recharge_user_status;not null" json:"user_id"`
	Username         string     `gorm:"type:varchar(64);not null" json:"username"`
	Nickname         string     `gorm:"type:varchar(64)" json:"nickname"`
	Phone            string     `gorm:"type:varchar(32)" json:"phone"`
	Level            int        `gorm:"not null" json:"level"`
	OwnerName        string     `gorm:"type:varchar(64);not null" json:"owner_name"` // 入金人（钱包户名）
	Channel          string     `gorm:"type:varchar(20);not null" json:"channel"`
	Amount           int64      `gorm:"not null" json:"amount"`
	Bonus            int64      `gorm:"not null;default:0" json:"bonus"`
	BonusOverridden  bool       `gorm:"not null;default:false" json:"bonus_overridden"` // 创建时调用方指定了奖励
	RemainingBalance int64      `gorm:"not null;default:0" json:"remaining_balance"`
	RemainingPoint   int64      `gorm:"not null;default:0" json:"remaining_point"`
	ChargedCount     int64      `gorm:"not null;default:0" json:"charged_count"`
	IsFirstRecharge  bool       `gorm:"not null;default:false" json:"is_first_recharge"`
	Status           string     `gorm:"type:varchar(20);index:idx_recharge_user_status;index;not null" json:"status"`
	Depositor        string     `gorm:"type:varchar(64)" json:"depositor"` // 仅自动匹配时写入
	Message          string     `gorm:"type:text" json:"message"`          // 仅自动匹配时写入
	IP               string     `gorm:"type:varchar(64)" json:"ip"`
	CreatedAt        time.Time  `gorm:"index;not null" json:"created_at"`
	ProcessedAt      *time.Time `gorm:"index" json:"processed_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (RechargeTransaction) TableName() string {
	return "recharge_transaction"
}
