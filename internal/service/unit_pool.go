package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/unitshop/internal/constants"
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"

	"gorm.io/gorm"
)

// UnitPayload 入库单元内容
type UnitPayload struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

// UnitStats 商品单元统计
type UnitStats struct {
	ProductID  uint  `json:"product_id"`
	StockCount int   `json:"stock_count"`
	Total      int64 `json:"total"`
	Unsold     int64 `json:"unsold"`
	Sold       int64 `json:"sold"`
	Reserved   int64 `json:"reserved"`
}

// UnitPool 库存单元池：按入库顺序分配，单元只会售出一次
type UnitPool struct {
	productRepo repository.ProductRepository
	unitRepo    repository.ProductUnitRepository
	cartRepo    repository.CartRepository
	ledger      *StockLedger
}

// NewUnitPool 创建单元池服务
func NewUnitPool(
	productRepo repository.ProductRepository,
	unitRepo repository.ProductUnitRepository,
	cartRepo repository.CartRepository,
	ledger *StockLedger,
) *UnitPool {
	return &UnitPool{
		productRepo: productRepo,
		unitRepo:    unitRepo,
		cartRepo:    cartRepo,
		ledger:      ledger,
	}
}

// Allocate 在调用方事务内为销售记录分配最早入库的 n 个未售单元
//
// 先锁商品行再锁单元，分配完成后按单元表重新校验库存计数。
func (p *UnitPool) Allocate(tx *gorm.DB, productID, saleID uint, quantity int) ([]models.ProductUnit, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if saleID == 0 {
		return nil, ErrSaleNotFound
	}
	if _, err := p.ledger.Lock(tx, productID); err != nil {
		return nil, err
	}
	unitRepo := p.unitRepo.WithTx(tx)
	units, err := unitRepo.ListUnsoldForUpdate(productID, quantity)
	if err != nil {
		return nil, err
	}
	if len(units) < quantity {
		return nil, ErrInsufficientStock
	}

	ids := make([]uint, 0, len(units))
	for _, unit := range units {
		ids = append(ids, unit.ID)
	}
	now := time.Now()
	affected, err := unitRepo.MarkSold(ids, saleID, now)
	if err != nil {
		return nil, err
	}
	if affected != int64(len(ids)) {
		// 并发分配抢走了部分单元
		return nil, ErrInsufficientStock
	}
	for i := range units {
		units[i].SoldSaleID = &saleID
		units[i].SoldAt = &now
	}

	if _, err := p.ledger.Recompute(tx, productID); err != nil {
		return nil, err
	}
	return units, nil
}

// ReleaseUnsold 删除商品全部未售单元并清空库存计数，已售单元不受影响
//
// 单元删除后原有的购物车预留失去对应库存，一并清除。
func (p *UnitPool) ReleaseUnsold(productID uint) (int64, error) {
	var deleted int64
	err := p.productRepo.Transaction(func(tx *gorm.DB) error {
		if _, err := p.ledger.Lock(tx, productID); err != nil {
			return err
		}
		cartRepo := p.cartRepo.WithTx(tx)
		reservations, err := cartRepo.ListByProductForUpdate(productID)
		if err != nil {
			return err
		}
		deleted, err = p.unitRepo.WithTx(tx).DeleteUnsold(productID)
		if err != nil {
			return err
		}
		if len(reservations) > 0 {
			if _, err := cartRepo.DeleteByProduct(productID); err != nil {
				return err
			}
			reservedQuantity := 0
			for _, item := range reservations {
				reservedQuantity += item.Quantity
			}
			logger.Infow("unit_pool_reservations_dropped",
				"product_id", productID,
				"count", len(reservations),
				"quantity", reservedQuantity,
			)
		}
		return p.productRepo.WithTx(tx).SetStock(productID, 0)
	})
	if err != nil {
		return 0, err
	}
	logger.Infow("unit_pool_unsold_released", "product_id", productID, "deleted", deleted)
	return deleted, nil
}

// Import 批量入库单元并同步增加库存计数
func (p *UnitPool) Import(productID uint, payloads []UnitPayload) (int, error) {
	units, err := normalizeUnitPayloads(productID, payloads)
	if err != nil {
		return 0, err
	}
	err = p.productRepo.Transaction(func(tx *gorm.DB) error {
		if _, err := p.ledger.Lock(tx, productID); err != nil {
			return err
		}
		if err := p.unitRepo.WithTx(tx).CreateBatch(units); err != nil {
			return err
		}
		return p.ledger.Increment(tx, productID, len(units))
	})
	if err != nil {
		return 0, err
	}
	logger.Infow("unit_pool_imported", "product_id", productID, "count", len(units))
	return len(units), nil
}

// Stats 统计商品单元与预留
func (p *UnitPool) Stats(productID uint) (*UnitStats, error) {
	product, err := p.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	total, unsold, err := p.unitRepo.CountByProduct(productID)
	if err != nil {
		return nil, err
	}
	reserved, err := p.cartRepo.SumReservedByProduct(productID)
	if err != nil {
		return nil, err
	}
	return &UnitStats{
		ProductID:  productID,
		StockCount: product.StockCount,
		Total:      total,
		Unsold:     unsold,
		Sold:       total - unsold,
		Reserved:   reserved,
	}, nil
}

// RecomputeStock 管理端手动校正库存计数
func (p *UnitPool) RecomputeStock(productID uint) (bool, error) {
	var corrected bool
	err := p.productRepo.Transaction(func(tx *gorm.DB) error {
		var err error
		corrected, err = p.ledger.Recompute(tx, productID)
		return err
	})
	return corrected, err
}

// ListBySale 获取销售记录交付的单元
func (p *UnitPool) ListBySale(saleID uint) ([]models.ProductUnit, error) {
	return p.unitRepo.ListBySale(saleID)
}

// ListUnits 分页查看商品单元
func (p *UnitPool) ListUnits(filter repository.ProductUnitListFilter) ([]models.ProductUnit, int64, error) {
	return p.unitRepo.List(filter)
}

func normalizeUnitPayloads(productID uint, payloads []UnitPayload) ([]models.ProductUnit, error) {
	if productID == 0 || len(payloads) == 0 {
		return nil, ErrUnitPayloadInvalid
	}
	units := make([]models.ProductUnit, 0, len(payloads))
	for idx, payload := range payloads {
		content := strings.TrimSpace(payload.Content)
		if content == "" {
			return nil, fmt.Errorf("%w: empty content at %d", ErrUnitPayloadInvalid, idx)
		}
		unitType := strings.ToLower(strings.TrimSpace(payload.Type))
		switch unitType {
		case "":
			unitType = constants.UnitTypeText
		case constants.UnitTypeText, constants.UnitTypeFile:
		default:
			return nil, fmt.Errorf("%w: unknown type %q", ErrUnitPayloadInvalid, payload.Type)
		}
		units = append(units, models.ProductUnit{
			ProductID: productID,
			Content:   content,
			Type:      unitType,
		})
	}
	return units, nil
}
