package service

import (
	"fmt"

	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"

	"gorm.io/gorm"
)

// StockLedger 商品可售库存计数
//
// 计数只在调用方事务内变更，并满足：
// stock_count + 购物车预留合计 == 未售单元数。
type StockLedger struct {
	productRepo repository.ProductRepository
	unitRepo    repository.ProductUnitRepository
	cartRepo    repository.CartRepository
}

// NewStockLedger 创建库存计数服务
func NewStockLedger(
	productRepo repository.ProductRepository,
	unitRepo repository.ProductUnitRepository,
	cartRepo repository.CartRepository,
) *StockLedger {
	return &StockLedger{
		productRepo: productRepo,
		unitRepo:    unitRepo,
		cartRepo:    cartRepo,
	}
}

// Lock 在调用方事务内锁定商品行
//
// 同一商品的预留、分配与出库都先取得该锁，再锁购物车与单元行。
func (l *StockLedger) Lock(tx *gorm.DB, productID uint) (*models.Product, error) {
	product, err := l.productRepo.WithTx(tx).GetByIDForUpdate(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Decrement 条件扣减库存，不足时返回 ErrInsufficientStock
func (l *StockLedger) Decrement(tx *gorm.DB, productID uint, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	repo := l.productRepo.WithTx(tx)
	affected, err := repo.DecrementStock(productID, quantity)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStockLedgerUpdateFailed, err)
	}
	if affected > 0 {
		return nil
	}
	product, err := repo.GetByID(productID)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	return ErrInsufficientStock
}

// Increment 回补库存
func (l *StockLedger) Increment(tx *gorm.DB, productID uint, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	affected, err := l.productRepo.WithTx(tx).IncrementStock(productID, quantity)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStockLedgerUpdateFailed, err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Recompute 以单元表为准校验计数，偏差时修正并返回 true
func (l *StockLedger) Recompute(tx *gorm.DB, productID uint) (bool, error) {
	product, err := l.Lock(tx, productID)
	if err != nil {
		return false, err
	}
	unsold, err := l.unitRepo.WithTx(tx).CountUnsold(productID)
	if err != nil {
		return false, err
	}
	reserved, err := l.cartRepo.WithTx(tx).SumReservedByProduct(productID)
	if err != nil {
		return false, err
	}
	expected := int(unsold - reserved)
	if expected < 0 {
		logger.Warnw("stock_ledger_overreserved",
			"product_id", productID,
			"unsold", unsold,
			"reserved", reserved,
		)
		expected = 0
	}
	if product.StockCount == expected {
		return false, nil
	}
	if err := l.productRepo.WithTx(tx).SetStock(productID, expected); err != nil {
		return false, fmt.Errorf("%w: %v", ErrStockLedgerUpdateFailed, err)
	}
	logger.Warnw("stock_ledger_drift_corrected",
		"product_id", productID,
		"stock_count", product.StockCount,
		"expected", expected,
		"unsold", unsold,
		"reserved", reserved,
	)
	return true, nil
}
