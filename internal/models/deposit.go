package models

import "time"

// Deposit 充值记录表
type Deposit struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                      // 主键
	UserID      uint      `gorm:"index;not null" json:"user_id"`                             // 用户ID
	ChargeID    *uint     `gorm:"index" json:"charge_id,omitempty"`                          // 网关扣款ID
	PaymentType string    `gorm:"type:varchar(40);not null" json:"payment_type"`             // 支付方式
	Reference   string    `gorm:"type:varchar(120);uniqueIndex" json:"reference"`            // 入账参考号
	Amount      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`       // 实收金额
	BonusAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"bonus_amount"` // 赠送金额
	BonusID     *uint     `gorm:"index" json:"bonus_id,omitempty"`                           // 命中的赠送规则
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                                   // 创建时间
}

// TableName 指定表名
func (Deposit) TableName() string {
	return "deposits"
}
