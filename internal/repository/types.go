package repository

import "time"

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page            int
	PageSize        int
	CategoryID      uint
	Search          string
	OnlyPurchasable bool
	WithCategory    bool
}

// SaleListFilter 查询销售记录的过滤条件
type SaleListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	ProductID   uint
	PaymentType string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// BalanceTransactionListFilter 查询余额流水的过滤条件
type BalanceTransactionListFilter struct {
	Page      int
	PageSize  int
	UserID    uint
	SaleID    uint
	Type      string
	Direction string
}

// ReconciliationListFilter 查询人工对账记录的过滤条件
type ReconciliationListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Status   string
}

// ProductUnitListFilter 查询库存单元的过滤条件
type ProductUnitListFilter struct {
	Page       int
	PageSize   int
	ProductID  uint
	OnlyUnsold bool
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page        int
	PageSize    int
	TelegramID  int64
	Search      string
	OnlyBlocked bool
}
