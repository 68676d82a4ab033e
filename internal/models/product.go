package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                      // 主键
	CategoryID       uint           `gorm:"not null;index" json:"category_id"`                         // 分类ID
	Name             string         `gorm:"type:varchar(200);not null" json:"name"`                    // 商品名称
	Description      string         `gorm:"type:text" json:"description"`                              // 商品描述
	PriceAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price_amount"` // 单价
	StockCount       int            `gorm:"not null;default:0" json:"stock_count"`                     // 可售库存计数（未售出且未被购物车占用）
	MinOrderQuantity *int           `json:"min_order_quantity,omitempty"`                              // 单次最少购买数量
	MaxOrderQuantity *int           `json:"max_order_quantity,omitempty"`                              // 单次最多购买数量
	CanBePurchased   bool           `gorm:"not null;default:true;index" json:"can_be_purchased"`       // 是否可购买
	SortOrder        int            `gorm:"default:0;index" json:"sort_order"`                         // 排序权重
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt        time.Time      `json:"updated_at"`                                                // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"` // 分类信息
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// QuantityInRange 校验购买数量是否在商品限购范围内
func (p *Product) QuantityInRange(quantity int) bool {
	if quantity <= 0 {
		return false
	}
	if p.MinOrderQuantity != nil && quantity < *p.MinOrderQuantity {
		return false
	}
	if p.MaxOrderQuantity != nil && quantity > *p.MaxOrderQuantity {
		return false
	}
	return true
}
