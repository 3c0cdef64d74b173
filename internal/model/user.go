package model

const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// User 用户只读模型，用户管理不在本服务内
type User struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Username string `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Nickname string `gorm:"type:varchar(64)" json:"nickname"`
	Phone    string `gorm:"type:varchar(32)" json:"phone"`
	Level    int    `gorm:"not null;default:1" json:"level"`
	Role     string `gorm:"type:varchar(20);not null;default:ROLE_USER" json:"role"`
}

func (User) TableName() string {
	return "users"
}
