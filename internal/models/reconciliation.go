package models

import "time"

// Reconciliation 人工对账记录表（网关已收款但未能完成交付）
type Reconciliation struct {
	ID         uint       `gorm:"primarykey" json:"id"`                                // 主键
	ChargeID   uint       `gorm:"index;not null" json:"charge_id"`                     // 网关扣款ID
	UserID     uint       `gorm:"index;not null" json:"user_id"`                       // 用户ID
	ProductID  uint       `gorm:"index" json:"product_id"`                             // 商品ID
	Amount     Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 待处理金额
	Reason     string     `gorm:"type:varchar(40);not null" json:"reason"`             // 原因
	Status     string     `gorm:"type:varchar(20);not null;index" json:"status"`       // 状态（open/refunded/dismissed）
	ResolvedBy *uint      `json:"resolved_by,omitempty"`                               // 处理管理员
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`                               // 处理时间
	Remark     string     `gorm:"type:varchar(255)" json:"remark"`                     // 备注
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt  time.Time  `json:"updated_at"`                                          // 更新时间
}

// TableName 指定表名
func (Reconciliation) TableName() string {
	return "reconciliations"
}
