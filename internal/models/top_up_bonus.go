package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TopUpBonus 充值赠送规则表
type TopUpBonus struct {
	ID                 uint            `gorm:"primarykey" json:"id"`                                              // 主键
	MinAmountThreshold Money           `gorm:"type:decimal(20,2);not null;default:0" json:"min_amount_threshold"` // 门槛金额（充值金额需严格大于该值）
	BonusPercentage    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"bonus_percentage"`     // 赠送百分比
	StartsAt           *time.Time      `gorm:"index" json:"starts_at"`                                            // 生效时间
	ExpiresAt          *time.Time      `gorm:"index" json:"expires_at"`                                           // 失效时间
	IsActive           bool            `gorm:"not null;default:true;index" json:"is_active"`                      // 是否启用
	CreatedAt          time.Time       `gorm:"index" json:"created_at"`                                           // 创建时间
	UpdatedAt          time.Time       `json:"updated_at"`                                                        // 更新时间
}

// TableName 指定表名
func (TopUpBonus) TableName() string {
	return "top_up_bonuses"
}

// ActiveAt 判断规则在指定时间是否生效
func (b *TopUpBonus) ActiveAt(now time.Time) bool {
	if !b.IsActive {
		return false
	}
	if b.StartsAt != nil && now.Before(*b.StartsAt) {
		return false
	}
	if b.ExpiresAt != nil && now.After(*b.ExpiresAt) {
		return false
	}
	return true
}
