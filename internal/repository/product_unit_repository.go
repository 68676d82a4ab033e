package repository

import (
	"errors"
	"time"

	"github.com/unitshop/internal/models"

	"gorm.io/gorm"
)

// ProductUnitRepository 库存单元数据访问接口
type ProductUnitRepository interface {
	CreateBatch(units []models.ProductUnit) error
	List(filter ProductUnitListFilter) ([]models.ProductUnit, int64, error)
	ListUnsoldForUpdate(productID uint, limit int) ([]models.ProductUnit, error)
	ListBySale(saleID uint) ([]models.ProductUnit, error)
	MarkSold(ids []uint, saleID uint, soldAt time.Time) (int64, error)
	CountUnsold(productID uint) (int64, error)
	CountByProduct(productID uint) (int64, int64, error)
	DeleteUnsold(productID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormProductUnitRepository
}

// GormProductUnitRepository GORM 实现
type GormProductUnitRepository struct {
	db *gorm.DB
}

// NewProductUnitRepository 创建库存单元仓库
func NewProductUnitRepository(db *gorm.DB) *GormProductUnitRepository {
	return &GormProductUnitRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductUnitRepository) WithTx(tx *gorm.DB) *GormProductUnitRepository {
	if tx == nil {
		return r
	}
	return &GormProductUnitRepository{db: tx}
}

// CreateBatch 批量创建库存单元
func (r *GormProductUnitRepository) CreateBatch(units []models.ProductUnit) error {
	if len(units) == 0 {
		return nil
	}
	return r.db.CreateInBatches(&units, 200).Error
}

// List 分页查询库存单元
func (r *GormProductUnitRepository) List(filter ProductUnitListFilter) ([]models.ProductUnit, int64, error) {
	if filter.ProductID == 0 {
		return nil, 0, errors.New("invalid product id")
	}
	query := r.db.Model(&models.ProductUnit{}).Where("product_id = ?", filter.ProductID)
	if filter.OnlyUnsold {
		query = query.Where("sold_sale_id IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var units []models.ProductUnit
	if err := query.Order("id asc").Find(&units).Error; err != nil {
		return nil, 0, err
	}
	return units, total, nil
}

// ListUnsoldForUpdate 按入库顺序加锁获取最早的未售单元
func (r *GormProductUnitRepository) ListUnsoldForUpdate(productID uint, limit int) ([]models.ProductUnit, error) {
	if productID == 0 || limit <= 0 {
		return nil, errors.New("invalid unit allocation params")
	}
	var units []models.ProductUnit
	if err := forUpdate(r.db).
		Where("product_id = ? AND sold_sale_id IS NULL", productID).
		Order("id asc").
		Limit(limit).
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// ListBySale 获取销售记录交付的单元
func (r *GormProductUnitRepository) ListBySale(saleID uint) ([]models.ProductUnit, error) {
	if saleID == 0 {
		return nil, errors.New("invalid sale id")
	}
	var units []models.ProductUnit
	if err := r.db.Where("sold_sale_id = ?", saleID).Order("id asc").Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// MarkSold 将未售单元标记为已售，只更新仍未售出的行
func (r *GormProductUnitRepository) MarkSold(ids []uint, saleID uint, soldAt time.Time) (int64, error) {
	if len(ids) == 0 || saleID == 0 {
		return 0, nil
	}
	if soldAt.IsZero() {
		soldAt = time.Now()
	}
	result := r.db.Model(&models.ProductUnit{}).
		Where("id IN ? AND sold_sale_id IS NULL", ids).
		Updates(map[string]interface{}{
			"sold_sale_id": saleID,
			"sold_at":      soldAt,
			"updated_at":   soldAt,
		})
	return result.RowsAffected, result.Error
}

// CountUnsold 统计未售单元数量
func (r *GormProductUnitRepository) CountUnsold(productID uint) (int64, error) {
	if productID == 0 {
		return 0, errors.New("invalid product id")
	}
	var count int64
	if err := r.db.Model(&models.ProductUnit{}).
		Where("product_id = ? AND sold_sale_id IS NULL", productID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByProduct 统计单元数量（总数/未售）
func (r *GormProductUnitRepository) CountByProduct(productID uint) (int64, int64, error) {
	if productID == 0 {
		return 0, 0, errors.New("invalid product id")
	}
	var total int64
	if err := r.db.Model(&models.ProductUnit{}).Where("product_id = ?", productID).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	unsold, err := r.CountUnsold(productID)
	if err != nil {
		return 0, 0, err
	}
	return total, unsold, nil
}

// DeleteUnsold 删除商品所有未售单元，已售单元保留
func (r *GormProductUnitRepository) DeleteUnsold(productID uint) (int64, error) {
	if productID == 0 {
		return 0, errors.New("invalid product id")
	}
	result := r.db.Where("product_id = ? AND sold_sale_id IS NULL", productID).Delete(&models.ProductUnit{})
	return result.RowsAffected, result.Error
}
