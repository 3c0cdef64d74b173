package model

import (
	"time"
)

// AuditLog 管理员操作审计
type AuditLog struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Action         string    `gorm:"type:varchar(64);index;not null" json:"action"`
	Actor          string    `gorm:"type:varchar(64);index;not null" json:"actor"`
	TargetUserID   int64     `gorm:"index" json:"target_user_id"`
	TargetUsername string    `gorm:"type:varchar(64)" json:"target_username"`
	Details        string    `gorm:"type:varchar(512)" json:"details"`
	SourceIP       string    `gorm:"type:varchar(64)" json:"source_ip"`
	Timestamp      time.Time `gorm:"index;not null" json:"timestamp"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}
