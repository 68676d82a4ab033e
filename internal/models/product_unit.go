package models

import "time"

// ProductUnit 库存单元表（一次性交付的文本或文件）
type ProductUnit struct {
	ID         uint       `gorm:"primarykey" json:"id"`                  // 主键
	ProductID  uint       `gorm:"index;not null" json:"product_id"`      // 商品ID
	Content    string     `gorm:"type:text;not null" json:"content"`     // 交付内容（文本或文件引用）
	Type       string     `gorm:"type:varchar(20);not null" json:"type"` // 内容类型（text/file）
	SoldSaleID *uint      `gorm:"index" json:"sold_sale_id,omitempty"`   // 售出的销售记录ID（为空表示未售）
	SoldAt     *time.Time `gorm:"index" json:"sold_at,omitempty"`        // 售出时间
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`               // 创建时间
	UpdatedAt  time.Time  `json:"updated_at"`                            // 更新时间
}

// TableName 指定表名
func (ProductUnit) TableName() string {
	return "product_units"
}

// IsSold 是否已售出
func (u *ProductUnit) IsSold() bool {
	return u.SoldSaleID != nil
}
