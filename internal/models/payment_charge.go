package models

import "time"

// PaymentCharge 外部网关扣款记录表
type PaymentCharge struct {
	ID             uint       `gorm:"primarykey" json:"id"`                                         // 主键
	ChargeNo       string     `gorm:"uniqueIndex;not null" json:"charge_no"`                        // 扣款单号（提交给网关的商户单号）
	Purpose        string     `gorm:"type:varchar(20);not null;index" json:"purpose"`               // 用途（purchase/top_up）
	UserID         uint       `gorm:"index;not null" json:"user_id"`                                // 用户ID
	ProductID      uint       `gorm:"index" json:"product_id,omitempty"`                            // 商品ID（购买时）
	CartProductID  *uint      `json:"cart_product_id,omitempty"`                                    // 购物车预留项ID
	Quantity       int        `gorm:"not null;default:0" json:"quantity"`                           // 申请数量
	Gateway        string     `gorm:"type:varchar(40);not null" json:"gateway"`                     // 网关名称
	ExternalID     string     `gorm:"type:varchar(120);index" json:"external_id"`                   // 网关交易号
	PayURL         string     `gorm:"type:varchar(500)" json:"pay_url"`                             // 支付链接
	QuotedAmount   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"quoted_amount"`   // 报价金额
	ReceivedAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"received_amount"` // 实收金额
	Status         string     `gorm:"type:varchar(20);not null;index" json:"status"`                // 状态
	SaleID         *uint      `gorm:"index" json:"sale_id,omitempty"`                               // 结算产生的销售记录
	PaidAt         *time.Time `json:"paid_at"`                                                      // 到账时间
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt      time.Time  `json:"updated_at"`                                                   // 更新时间
}

// TableName 指定表名
func (PaymentCharge) TableName() string {
	return "payment_charges"
}
