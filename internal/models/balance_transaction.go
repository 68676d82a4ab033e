package models

import "time"

// BalanceTransaction 余额流水表
type BalanceTransaction struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                        // 主键
	UserID        uint      `gorm:"index;not null" json:"user_id"`                               // 用户ID
	Type          string    `gorm:"type:varchar(40);not null;index" json:"type"`                 // 流水类型
	Direction     string    `gorm:"type:varchar(10);not null" json:"direction"`                  // 方向（in/out）
	Amount        Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`         // 变动金额
	BalanceBefore Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_before"` // 变动前余额
	BalanceAfter  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_after"`  // 变动后余额
	Reference     string    `gorm:"type:varchar(120);uniqueIndex" json:"reference"`              // 幂等参考号
	SaleID        *uint     `gorm:"index" json:"sale_id,omitempty"`                              // 关联销售记录
	Remark        string    `gorm:"type:varchar(255)" json:"remark"`                             // 备注
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                                     // 创建时间
}

// TableName 指定表名
func (BalanceTransaction) TableName() string {
	return "balance_transactions"
}
