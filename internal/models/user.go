package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表（通过机器人前端接入的买家）
type User struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                 // 主键
	TelegramID  int64          `gorm:"uniqueIndex;not null" json:"telegram_id"`              // Telegram 用户ID
	Username    string         `gorm:"type:varchar(100);default:''" json:"username"`         // 用户名
	Balance     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"balance"` // 账户余额
	IsBlocked   bool           `gorm:"not null;default:false;index" json:"is_blocked"`       // 是否封禁
	LastLoginAt *time.Time     `json:"last_login_at"`                                        // 最后登录时间
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                              // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                       // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
