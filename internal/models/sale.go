package models

import "time"

// Sale 销售记录表（创建后不可变）
type Sale struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                // 主键
	SaleNo      string    `gorm:"uniqueIndex;not null" json:"sale_no"`                 // 销售单号
	UserID      uint      `gorm:"index;not null" json:"user_id"`                       // 买家ID
	ProductID   uint      `gorm:"index;not null" json:"product_id"`                    // 商品ID
	Amount      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 成交金额
	Quantity    int       `gorm:"not null" json:"quantity"`                            // 成交数量
	PaymentType string    `gorm:"type:varchar(40);not null;index" json:"payment_type"` // 支付方式（balance 或网关名称）
	ChargeID    *uint     `gorm:"index" json:"charge_id,omitempty"`                    // 网关扣款ID
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                             // 创建时间

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
}

// TableName 指定表名
func (Sale) TableName() string {
	return "sales"
}
